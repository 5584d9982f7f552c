package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/autovalue/processor"
)

// quietPeriod is how long watch waits after the last change before it
// regenerates, so that saving several files causes one run.
const quietPeriod = 250 * time.Millisecond

// watch runs the generator once and then again whenever a Go source file in
// one of the processed packages changes, until ctx is done. Changes to
// generated files are ignored.
func watch(ctx context.Context, cfg *processor.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	dirs, err := packageDirs(ctx, cfg)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		cfg.Logger.Debug("watching", zap.String("dir", dir))
	}

	regenerate := func() {
		if err := run(ctx, cfg); err != nil && !errors.Is(err, errFailures) && ctx.Err() == nil {
			cfg.Logger.Error("autovalue failed", zap.Error(err))
		}
	}
	regenerate()
	cfg.Logger.Info("watching for changes", zap.Int("dirs", len(dirs)))

	timer := time.NewTimer(quietPeriod)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSourceChange(ev) {
				continue
			}
			cfg.Logger.Debug("source changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(quietPeriod)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cfg.Logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			regenerate()
		}
	}
}

func isSourceChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if !strings.HasSuffix(name, ".go") {
		return false
	}
	return !isGeneratedFile(name)
}

func isGeneratedFile(name string) bool {
	return name == processor.RegistryFileName ||
		strings.HasSuffix(name, "_autovalue.go") ||
		strings.HasSuffix(name, "_autovalue_test.go")
}

// packageDirs returns the directories of the packages that cfg processes.
func packageDirs(ctx context.Context, cfg *processor.Config) ([]string, error) {
	pkgs, err := packages.Load(&packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
		Dir:     cfg.Dir,
		Tests:   cfg.Tests,
	}, cfg.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("finding packages to watch: %w", err)
	}
	seen := map[string]bool{}
	var dirs []string
	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.ID, ".test") {
			continue
		}
		for _, f := range pkg.GoFiles {
			dir := filepath.Dir(f)
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	if len(dirs) == 0 {
		return nil, errors.New("no packages to watch")
	}
	return dirs, nil
}
