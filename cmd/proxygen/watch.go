package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

type watchPaths struct {
	Spec   string
	Source string
	Out    string
}

// watch calls regen whenever the spec file or a source file of the target's
// package changes, until ctx is done. Bursts of events within debounce cause
// a single regeneration. A failed regeneration is logged and watching goes on.
func watch(ctx context.Context, paths watchPaths, logger *slog.Logger, debounce time.Duration, regen func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	specAbs, err := filepath.Abs(paths.Spec)
	if err != nil {
		return err
	}
	sourceAbs, err := filepath.Abs(paths.Source)
	if err != nil {
		return err
	}
	outAbs, err := filepath.Abs(paths.Out)
	if err != nil {
		return err
	}

	// Directories, not files: editors often replace a file by renaming a
	// temporary one over it.
	dirs := []string{filepath.Dir(specAbs)}
	if sourceAbs != dirs[0] {
		dirs = append(dirs, sourceAbs)
	}
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return err
		}
	}

	relevant := func(ev fsnotify.Event) bool {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
			return false
		}
		name, err := filepath.Abs(ev.Name)
		if err != nil || name == outAbs {
			return false
		}
		if name == specAbs {
			return true
		}
		return filepath.Dir(name) == sourceAbs && isSourceFile(filepath.Base(name))
	}

	logger.Info("watching", "spec", paths.Spec, "source", paths.Source)

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)

		case <-fire:
			if err := regen(); err != nil {
				logger.Error("regenerate failed", "error", err)
			}
		}
	}
}
