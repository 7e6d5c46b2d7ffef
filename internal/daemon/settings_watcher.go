package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/settings"
)

// SettingsSource is the settings store as seen by the watcher.
type SettingsSource interface {
	Path() string
	Get() settings.Schedule
	Reload() error
}

// Waker ends the current sleep early.
type Waker interface {
	WakeEarly()
}

// SettingsWatcher reloads the settings file when it is edited outside the
// process and wakes the device so the new schedule applies immediately.
// Writes made by the store itself reload to the same schedule and do not
// wake anything.
type SettingsWatcher struct {
	store        SettingsSource
	waker        Waker
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

func NewSettingsWatcher(store SettingsSource, waker Waker, logger *slog.Logger) (*SettingsWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &SettingsWatcher{
		store:        store,
		waker:        waker,
		watcher:      w,
		debounceTime: time.Second,
		logger:       logger,
	}, nil
}

// Start watches the directory holding the settings file; editors and the
// store both replace the file by rename.
func (sw *SettingsWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopChan != nil {
		return nil
	}

	path, err := filepath.Abs(sw.store.Path())
	if err != nil {
		return fmt.Errorf("failed to resolve settings path: %w", err)
	}
	dir := filepath.Dir(path)
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch settings directory %s: %w", dir, err)
	}

	sw.stopChan = make(chan struct{})
	sw.done = make(chan struct{})
	sw.logger.Info("Watching settings file", logfields.Path(path))
	go sw.loop(ctx, filepath.Base(path))
	return nil
}

// Stop ends the watch loop and closes the watcher.
func (sw *SettingsWatcher) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopChan != nil {
		close(sw.stopChan)
		<-sw.done
		sw.stopChan = nil
	}
	return sw.watcher.Close()
}

func (sw *SettingsWatcher) loop(ctx context.Context, base string) {
	defer close(sw.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			sw.logger.Debug("Settings file event", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(sw.debounceTime)
			} else {
				timer.Reset(sw.debounceTime)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			sw.reload()
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Error("Settings watcher error", logfields.Error(err))
		}
	}
}

func (sw *SettingsWatcher) reload() {
	before := sw.store.Get()
	if err := sw.store.Reload(); err != nil {
		sw.logger.Error("Failed to reload settings", logfields.Error(err))
		return
	}
	after := sw.store.Get()
	if after == before {
		return
	}
	sw.logger.Info("Settings changed on disk, waking early", slog.String("schedule", after.String()))
	sw.waker.WakeEarly()
}
