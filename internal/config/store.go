package config

import (
	"context"
	"sync/atomic"

	"github.com/knadh/koanf/providers/file"

	"github.com/okian/vigil/pkg/logger"
)

// Store publishes the current Config snapshot. Readers always see a
// complete object; hot reload replaces the pointer atomically.
type Store struct {
	ptr atomic.Pointer[Config]
}

// NewStore creates a Store publishing cfg as the initial snapshot.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.ptr.Store(cfg)
	return s
}

// Snapshot returns the current Config. The returned object must be treated
// as read-only.
func (s *Store) Snapshot() *Config {
	return s.ptr.Load()
}

// Replace atomically publishes a new snapshot.
func (s *Store) Replace(cfg *Config) {
	s.ptr.Store(cfg)
}

// Watch re-loads the config file on change and publishes the new snapshot.
// An invalid reload keeps the previous snapshot. Watching stops when ctx is
// canceled. The file provider is fsnotify-backed; some editors replace the
// file on save, which the provider reports as a change event.
func (s *Store) Watch(ctx context.Context, path string, log logger.Logger) error {
	if path == "" {
		return nil
	}
	f := file.Provider(path)
	err := f.Watch(func(event interface{}, err error) {
		if err != nil {
			log.Warn(ctx, "config watch event failed", logger.Error(err))
			return
		}
		cfg, err := LoadFile(ctx, path)
		if err != nil {
			log.Warn(ctx, "config reload rejected, keeping previous snapshot",
				logger.String("path", path),
				logger.Error(err),
			)
			return
		}
		s.Replace(cfg)
		log.Info(ctx, "config reloaded",
			logger.String("path", path),
			logger.Float64("low_threshold", cfg.LowThreshold),
			logger.Float64("high_threshold", cfg.HighThreshold),
		)
	})
	if err != nil {
		return wrapLoad("watch config file", err)
	}
	go func() {
		<-ctx.Done()
		_ = f.Unwatch()
	}()
	return nil
}
