// Package attribution implements the opt-in AWS usage attribution flow
// for editor hosts.
//
// # Overview
//
// A Manager owns the whole flow: it merges the user's preferences file
// into a settings registry, decides whether a submission is due, gathers
// the engine version, host platform and active AWS gems into a Metric,
// posts it to the attribution service in the background, and persists
// the submission timestamp so the next run honors the configured delay.
//
// # Key Types
//
//   - Manager: orchestrates checks, submissions and persistence
//   - Metric: the JSON payload posted to the service
//   - Config: file locations and the optional endpoint override
//   - Submitter: the transport seam, implemented by serviceapi.Client
//
// # Usage Example
//
//	mgr := attribution.NewManager(attribution.ManagerOptions{
//		Config: attribution.Config{
//			PrefsDir:   prefsDir,
//			EngineRoot: engineRoot,
//		},
//		Lister: gems.NewDirLister(gemDirs, log),
//		Log:    log,
//	})
//	mgr.MetricCheck(ctx)
//	mgr.Wait()
//
// # Features
//
//   - Opt-out respected: a false AWSAttributionEnabled suppresses all
//     submissions; an absent key does not
//   - Rate limited: at most one submission per configured delay window
//   - Non-blocking: network and file writes run on a background executor
//   - Fail-soft: every failure degrades to a logged warning
//
// # Related Packages
//
//   - pkg/settings: the JSON-pointer settings registry
//   - pkg/gems: gem discovery and AWS gem name filtering
//   - pkg/serviceapi: endpoint resolution and the HTTP client
//   - pkg/async: the background executor
package attribution
