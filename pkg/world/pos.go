// Package world carries the small geometry types features key their
// stores by: block positions and chunk positions within a named world.
package world

import (
	"encoding/json"
	"fmt"

	"github.com/stonewarden/stonewarden/pkg/store"
)

// BlockPos identifies one block in a world.
type BlockPos struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// Chunk returns the chunk containing this block. Chunks are 16x16
// columns; arithmetic shift keeps negative coordinates correct.
func (p BlockPos) Chunk() ChunkPos {
	return ChunkPos{World: p.World, X: p.X >> 4, Z: p.Z >> 4}
}

func (p BlockPos) String() string {
	return fmt.Sprintf("%s:%d/%d/%d", p.World, p.X, p.Y, p.Z)
}

// ChunkPos identifies one 16x16 chunk column in a world.
type ChunkPos struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Z     int    `json:"z"`
}

func (p ChunkPos) String() string {
	return fmt.Sprintf("%s:%d/%d", p.World, p.X, p.Z)
}

// BlockPosConverter round-trips block positions; the string form is the
// compact JSON text, suitable for store keys.
func BlockPosConverter() store.Converter[BlockPos] {
	return store.JSONOnly(
		func(raw json.RawMessage) (BlockPos, error) {
			var p BlockPos
			err := json.Unmarshal(raw, &p)
			return p, err
		},
		func(p BlockPos) (json.RawMessage, error) { return json.Marshal(p) },
	)
}

// ChunkPosConverter round-trips chunk positions.
func ChunkPosConverter() store.Converter[ChunkPos] {
	return store.JSONOnly(
		func(raw json.RawMessage) (ChunkPos, error) {
			var p ChunkPos
			err := json.Unmarshal(raw, &p)
			return p, err
		},
		func(p ChunkPos) (json.RawMessage, error) { return json.Marshal(p) },
	)
}
