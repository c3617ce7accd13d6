// Package gems enumerates engine modules (gems) and derives the AWS gem
// names reported in usage metrics.
//
// # Overview
//
// A host editor either knows its loaded modules directly, in which case it
// wraps them in a StaticLister, or discovers them from gem directories on
// disk with a DirLister, which scans for gem.yaml manifests in parallel
// and skips broken entries with a warning.
//
// ActiveAWSNames applies the reporting filter: only modules whose name
// contains "AWS" qualify, and each reported name is truncated at the last
// "." so library suffixes do not leak into metrics.
//
// # Usage Example
//
//	lister := gems.NewDirLister([]string{"/opt/engine/Gems"}, logger)
//	modules, err := lister.ListModules(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, name := range gems.ActiveAWSNames(modules) {
//	    metric.AddActiveGem(name)
//	}
//
// # Related Packages
//
//   - pkg/attribution: collects gem names into submitted metrics
package gems
