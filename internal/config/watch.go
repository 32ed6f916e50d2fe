package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Runtime holds the settings applied to a running process without a restart.
type Runtime struct {
	LogLevel      zerolog.Level
	SweepInterval time.Duration
}

// Runtime extracts the hot-reloadable part of the config.
func (c *Config) Runtime() Runtime {
	return Runtime{LogLevel: c.LogLevel(), SweepInterval: c.SweepInterval()}
}

// Watch polls path and calls onChange with the previous and new runtime settings
// whenever a newer revision loads and differs from the last applied one.
// A revision that fails to load is retried on the next tick.
func Watch(ctx context.Context, path string, interval time.Duration, onChange func(prev, next Runtime)) error {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	current, err := Load(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	w := &watcher{path: path, lastMod: info.ModTime(), applied: current.Runtime(), onChange: onChange}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
	return nil
}

type watcher struct {
	path     string
	lastMod  time.Time
	applied  Runtime
	onChange func(prev, next Runtime)
}

func (w *watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil || !info.ModTime().After(w.lastMod) {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		return
	}
	w.lastMod = info.ModTime()

	next := cfg.Runtime()
	if next == w.applied {
		return
	}
	prev := w.applied
	w.applied = next
	if w.onChange != nil {
		w.onChange(prev, next)
	}
}
