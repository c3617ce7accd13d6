package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Registry is a hierarchical key/value store addressed by slash-separated
// paths such as "/Amazon/AWS/Preferences/AWSAttributionEnabled". Values are
// merged in from JSON documents and read back with typed accessors.
//
// A Registry is safe for concurrent use; reads happen on the caller's
// goroutine while background jobs may write.
type Registry struct {
	mu   sync.RWMutex
	root map[string]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{root: make(map[string]any)}
}

// MergeFile parses the JSON document at path and deep-merges it into the
// registry at the root. Objects merge recursively, scalars and arrays
// overwrite, and an explicit null removes the key (JSON merge patch
// semantics). Later merges win over earlier ones at the same path.
func (r *Registry) MergeFile(path string) error {
	return r.MergeFileAt(path, "")
}

// MergeFileAt is MergeFile with the parsed document grafted under anchor
// instead of the root. An empty anchor merges at the root.
func (r *Registry) MergeFileAt(path, anchor string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file %s: %w", path, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("settings file %s: top-level value must be an object", path)
	}

	if anchor != "" {
		segs, err := splitPath(anchor)
		if err != nil {
			return fmt.Errorf("anchor %q: %w", anchor, err)
		}
		// Wrap the document in its ancestor objects so the merge lands
		// under the anchor.
		for i := len(segs) - 1; i >= 0; i-- {
			obj = map[string]any{segs[i]: obj}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	mergePatch(r.root, obj)
	return nil
}

// Get returns the raw value stored at path.
func (r *Registry) Get(path string) (any, bool) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var cur any = r.root
	for _, seg := range segs {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetBool returns the boolean stored at path.
func (r *Registry) GetBool(path string) (bool, bool) {
	raw, ok := r.Get(path)
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	return b, ok
}

// GetString returns the string stored at path.
func (r *Registry) GetString(path string) (string, bool) {
	raw, ok := r.Get(path)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// GetUint64 returns the unsigned integer stored at path. JSON numbers are
// decoded as float64 and accepted when they are integral and non-negative;
// values written through Set keep their Go type.
func (r *Registry) GetUint64(path string) (uint64, bool) {
	raw, ok := r.Get(path)
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// Set stores value at path, creating intermediate objects as needed. It
// fails when a non-object value already occupies an intermediate segment.
func (r *Registry) Set(path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			child := make(map[string]any)
			cur[seg] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("set %s: %q is not an object", path, seg)
		}
		cur = child
	}
	cur[segs[len(segs)-1]] = value
	return nil
}

// DumpSubtree serializes the subtree rooted at prefix to pretty-printed
// JSON, wrapped in its ancestor objects so the output can be merged back at
// the root. It fails when nothing is stored under prefix.
func (r *Registry) DumpSubtree(prefix string) ([]byte, error) {
	segs, err := splitPath(prefix)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var cur any = r.root
	for _, seg := range segs {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dump %s: %q is not an object", prefix, seg)
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, fmt.Errorf("dump %s: no settings under prefix", prefix)
		}
	}

	wrapped := cur
	for i := len(segs) - 1; i >= 0; i-- {
		wrapped = map[string]any{segs[i]: wrapped}
	}

	out, err := json.MarshalIndent(wrapped, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", prefix, err)
	}
	return out, nil
}

// mergePatch applies src onto dst in place. Caller holds the write lock.
func mergePatch(dst, src map[string]any) {
	for key, sv := range src {
		if sv == nil {
			delete(dst, key)
			continue
		}
		sobj, sok := sv.(map[string]any)
		dobj, dok := dst[key].(map[string]any)
		if sok && dok {
			mergePatch(dobj, sobj)
			continue
		}
		if sok {
			// Copy so later mutations of the source document cannot
			// alias into the registry.
			child := make(map[string]any, len(sobj))
			mergePatch(child, sobj)
			dst[key] = child
			continue
		}
		dst[key] = sv
	}
}

func splitPath(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("settings path %q: must start with '/'", path)
	}
	segs := strings.Split(path[1:], "/")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("settings path %q: empty segment", path)
		}
	}
	return segs, nil
}
