// Package events is the pub/sub bus between the host's game-event
// adapter and the feature listeners. The host emits structured world
// events; each feature subscribes for the types it cares about.
package events

import (
	"github.com/google/uuid"

	"github.com/stonewarden/stonewarden/pkg/world"
)

// EventType classifies world events.
type EventType int

const (
	EvPlayerJoin    EventType = iota // Player entered the server
	EvPlayerQuit                     // Player left the server
	EvBlockPlace                     // Player placed a block
	EvBlockBreak                     // Player broke a block
	EvSignClick                      // Player clicked a sign
	EvPlayerMessage                  // Player sent a private message
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvPlayerJoin:
		return "player-join"
	case EvPlayerQuit:
		return "player-quit"
	case EvBlockPlace:
		return "block-place"
	case EvBlockBreak:
		return "block-break"
	case EvSignClick:
		return "sign-click"
	case EvPlayerMessage:
		return "player-message"
	default:
		return "unknown"
	}
}

// Event is one world occurrence. Fields beyond Type and Player are
// populated per type: Pos for block and sign events, Target for private
// messages, LeftClick and Lines for sign clicks.
type Event struct {
	Type   EventType
	Player uuid.UUID

	Pos       world.BlockPos
	Target    uuid.UUID
	LeftClick bool
	Lines     []string
}
