// Package settings provides the hierarchical JSON settings registry backing
// the editor's attribution preferences.
//
// # Overview
//
// A Registry holds a tree of values addressed by slash-separated paths and
// is populated by merging JSON documents over each other. Merges follow JSON
// merge patch semantics: objects merge recursively, scalars and arrays
// overwrite, null removes a key, and later merges win. Typed getters read
// leaves back; DumpSubtree serializes a prefixed subtree (wrapped in its
// ancestor objects) so the result can be written to disk and merged back at
// the root on the next run.
//
// # Usage Example
//
// Load preferences and read a flag:
//
//	reg := settings.New()
//	if err := reg.MergeFile(prefsPath); err != nil {
//		log.Warnf("no preferences: %v", err)
//	}
//	enabled, ok := reg.GetBool("/Amazon/AWS/Preferences/AWSAttributionEnabled")
//
// Persist the attribution subtree:
//
//	data, err := reg.DumpSubtree("/Amazon/AWS/Preferences")
//	if err == nil {
//		os.WriteFile(prefsPath, data, 0o644)
//	}
//
// # Watching
//
// Watch keeps a registry in sync with a file the host rewrites at runtime:
//
//	w, err := settings.Watch(reg, prefsPath, logger)
//	defer w.Close()
//
// # Related Packages
//
//   - pkg/attribution: owns one Registry per manager lifetime
package settings
