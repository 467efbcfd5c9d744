// Package configwatcher watches the posebridge config file and reports
// changes so settings that can change at runtime are reapplied.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/posebridge/pkg/log"
)

// Plugin implements config watching functionality.
// It monitors one config file and calls the change handler, debounced,
// whenever the file is written or recreated.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration

	path     string
	onChange func(path string)
	logger   log.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before
	// calling the handler.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching path. The directory is watched rather than
// the file so editors that replace the file on save are still seen.
func (p *Plugin) Initialize(ctx context.Context, path string, onChange func(path string), logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.path = path
	p.onChange = onChange
	p.logger = logger.With(log.String("component", p.Name()))
	p.watcher = watcher
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("Config watcher started", log.String("path", path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the config watcher and waits for it to exit or ctx to end.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()
	defer p.watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceChange(ctx)

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceChange(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.logger.Info("Config watcher: config file changed", log.String("path", p.path))
		p.onChange(p.path)
	})
}
