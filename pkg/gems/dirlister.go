package gems

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultScanWorkers bounds concurrent manifest reads during discovery.
const DefaultScanWorkers = 8

// DirLister discovers gems by scanning directories for gem manifests.
// Each immediate subdirectory holding a gem.yaml counts as one gem;
// unreadable or malformed entries are skipped with a warning.
type DirLister struct {
	dirs    []string
	workers int
	log     *logrus.Logger
}

// NewDirLister creates a lister over the given gem directories. A nil
// logger falls back to the logrus standard logger.
func NewDirLister(dirs []string, log *logrus.Logger) *DirLister {
	if log == nil {
		log = logrus.New()
	}
	return &DirLister{
		dirs:    dirs,
		workers: DefaultScanWorkers,
		log:     log,
	}
}

// ListModules scans every configured directory and returns the discovered
// modules sorted by name.
func (l *DirLister) ListModules(ctx context.Context) ([]Module, error) {
	var candidates []string
	for _, dir := range l.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			l.log.Debugf("Gem directory does not exist: %s", dir)
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			l.log.Warnf("Failed to read gem directory %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			candidates = append(candidates, filepath.Join(dir, entry.Name()))
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(l.workers)

	var mu sync.Mutex
	var modules []Module

	for _, gemDir := range candidates {
		gemDir := gemDir
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			manifest, err := LoadManifestFromDir(gemDir)
			if err != nil {
				l.log.Warnf("Failed to load gem from %s: %v", gemDir, err)
				return nil
			}

			mu.Lock()
			modules = append(modules, Module{
				Name:    manifest.GemName,
				Version: manifest.Version,
				Path:    gemDir,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	SortModules(modules)
	return modules, nil
}
