package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/inkframe/internal/settings"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type countingWaker struct{ n atomic.Int32 }

func (w *countingWaker) WakeEarly() { w.n.Add(1) }

func newWatchedStore(t *testing.T) (*settings.Store, *countingWaker) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := settings.Open(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.ResetToDefaults())

	waker := &countingWaker{}
	w, err := NewSettingsWatcher(store, waker, discardLogger())
	require.NoError(t, err)
	w.debounceTime = 20 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return store, waker
}

func TestSettingsWatcher_ExternalEditWakes(t *testing.T) {
	store, waker := newWatchedStore(t)

	edited := settings.Defaults()
	edited.RefreshMinutes = 45
	data, err := yaml.Marshal(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), data, 0o644))

	require.Eventually(t, func() bool { return waker.n.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 45, store.Get().RefreshMinutes)
}

func TestSettingsWatcher_OwnWritesDoNotWake(t *testing.T) {
	store, waker := newWatchedStore(t)

	require.NoError(t, store.SetRefreshMinutes(25))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, waker.n.Load())
	assert.Equal(t, 25, store.Get().RefreshMinutes)
}

func TestSettingsWatcher_IgnoresOtherFiles(t *testing.T) {
	store, waker := newWatchedStore(t)

	other := filepath.Join(filepath.Dir(store.Path()), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, waker.n.Load())
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

type closer struct {
	name  string
	order *[]string
}

func (c closer) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestDaemon_RunClosesInReverseOrder(t *testing.T) {
	var order []string
	d := New(runnerFunc(func(context.Context) error { return context.Canceled }), nil, discardLogger(),
		closer{"journal", &order}, closer{"sleeper", &order})

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []string{"sleeper", "journal"}, order)
}

func TestDaemon_RunPropagatesFailure(t *testing.T) {
	boom := errors.New("exec failed")
	d := New(runnerFunc(func(context.Context) error { return boom }), nil, discardLogger())
	require.ErrorIs(t, d.Run(context.Background()), boom)
}

func TestDaemon_StartsAndStopsWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := settings.Open(path, discardLogger())
	require.NoError(t, err)
	w, err := NewSettingsWatcher(store, &countingWaker{}, discardLogger())
	require.NoError(t, err)

	var sawWatcher bool
	d := New(runnerFunc(func(context.Context) error {
		sawWatcher = w.stopChan != nil
		return nil
	}), w, discardLogger())
	require.NoError(t, d.Run(context.Background()))
	assert.True(t, sawWatcher)
	assert.Nil(t, w.stopChan)
}
