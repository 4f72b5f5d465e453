// Package yamlconf caches scalar and collection values living at dotted
// paths of a mutable configuration document. Wrappers read their value
// once at load and write it back at save/unload; edits made to the
// document in between are not observed until the next load cycle.
package yamlconf

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Document is a mutable configuration document addressed by dotted path.
// The runtime never parses configuration files itself; the host supplies
// the Document.
type Document interface {
	// Get returns the value at path, or false when absent.
	Get(path string) (any, bool)

	// Set stores value at path, creating intermediate sections. A nil
	// value removes the entry.
	Set(path string, value any)
}

// Saver is implemented by documents that can persist themselves. The
// manager saves the document after flushing its wrappers.
type Saver interface {
	Save() error
}

// File is a yaml.v3-backed Document stored in a single file.
type File struct {
	mu   sync.Mutex
	path string
	root map[string]any
}

// OpenFile reads a YAML document from path. A missing file yields an
// empty document; Save creates it.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, root: make(map[string]any)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("yamlconf: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f.root); err != nil {
		return nil, fmt.Errorf("yamlconf: parse %s: %w", path, err)
	}
	return f, nil
}

// Get implements Document.
func (f *File) Get(path string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	node := f.root
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := node[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		node, ok = v.(map[string]any)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// Set implements Document.
func (f *File) Set(path string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	node := f.root
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			next = make(map[string]any)
			node[part] = next
		}
		node = next
	}

	last := parts[len(parts)-1]
	if value == nil {
		delete(node, last)
		return
	}
	node[last] = value
}

// Save writes the document back to its file.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(f.root)
	if err != nil {
		return fmt.Errorf("yamlconf: serialize %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("yamlconf: write %s: %w", f.path, err)
	}
	return nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }
