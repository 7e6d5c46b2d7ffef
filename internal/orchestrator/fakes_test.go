package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkframe/internal/changecache"
	"git.home.luguber.info/inful/inkframe/internal/clock"
	"git.home.luguber.info/inful/inkframe/internal/durable"
	"git.home.luguber.info/inful/inkframe/internal/journal"
	"git.home.luguber.info/inful/inkframe/internal/power"
	"git.home.luguber.info/inful/inkframe/internal/remotesync"
	"git.home.luguber.info/inful/inkframe/internal/report"
	"git.home.luguber.info/inful/inkframe/internal/settings"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

const (
	fpA = "aaaaaaaaaaaaaaaa"
	fpB = "bbbbbbbbbbbbbbbb"
	fpC = "cccccccccccccccc"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeLink struct {
	connectErr  error
	connects    int
	disconnects int
	events      *[]string
}

func (l *fakeLink) Connect(context.Context) error {
	l.connects++
	*l.events = append(*l.events, "connect")
	return l.connectErr
}

func (l *fakeLink) Disconnect(context.Context) error {
	l.disconnects++
	*l.events = append(*l.events, "disconnect")
	return nil
}

func (l *fakeLink) HardwareAddr() (string, error) { return "a1b2c3d4e5f6", nil }

type fakeSyncer struct {
	err   error
	calls int
	apply func()
}

func (s *fakeSyncer) Sync(context.Context, http.Header) (remotesync.Result, error) {
	s.calls++
	if s.err != nil {
		return remotesync.Result{}, s.err
	}
	if s.apply != nil {
		s.apply()
		return remotesync.Result{Updated: true}, nil
	}
	return remotesync.Result{}, nil
}

// hashServer answers the fingerprint endpoint.
type hashServer struct {
	body  string
	err   error
	calls int
}

func (h *hashServer) Get(_ context.Context, url string, _ http.Header) (*transport.Response, error) {
	h.calls++
	if !strings.HasSuffix(url, "/hash") {
		return nil, errors.New("unexpected url " + url)
	}
	if h.err != nil {
		return nil, h.err
	}
	return &transport.Response{Status: http.StatusOK, Body: []byte(h.body)}, nil
}

type fakeFetcher struct {
	body    []byte
	hash    string
	err     error
	calls   int
	headers http.Header
}

func (f *fakeFetcher) Download(_ context.Context, _ string, headers http.Header, _ int64) (*transport.Response, error) {
	f.calls++
	f.headers = headers
	if f.err != nil {
		return nil, f.err
	}
	h := http.Header{}
	if f.hash != "" {
		h.Set(transport.HeaderImageHash, f.hash)
	}
	h.Set(transport.HeaderImageName, "sunset.png")
	return &transport.Response{Status: http.StatusOK, Body: f.body, Header: h}, nil
}

type fakePanel struct {
	initErr    error
	loadErr    error
	refreshErr error
	sleepErr   error
	loaded     []byte
	refreshes  int
	sleeps     int
	inits      int
}

func (p *fakePanel) Initialize(context.Context) error { p.inits++; return p.initErr }

func (p *fakePanel) LoadImage(data []byte) error {
	if p.loadErr != nil {
		return p.loadErr
	}
	p.loaded = data
	return nil
}

func (p *fakePanel) Refresh(context.Context) error {
	if p.refreshErr != nil {
		return p.refreshErr
	}
	p.refreshes++
	return nil
}

func (p *fakePanel) Sleep() error { p.sleeps++; return p.sleepErr }

type pressedButton bool

func (b pressedButton) Pressed() (bool, error) { return bool(b), nil }

type fakeSleeper struct {
	wakes []power.Wake
	calls []time.Duration
}

// Sleep returns the scripted wakes in order, then context.Canceled.
func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) (power.Wake, error) {
	s.calls = append(s.calls, d)
	if len(s.wakes) == 0 {
		return "", context.Canceled
	}
	w := s.wakes[0]
	s.wakes = s.wakes[1:]
	return w, nil
}

type fakeRestarter struct{ calls int }

func (r *fakeRestarter) Restart(context.Context) error { r.calls++; return nil }

type fakePortal struct {
	runs int
	err  error
}

func (p *fakePortal) Run(context.Context) error { p.runs++; return p.err }

type fakeReporter struct{ reports []report.Report }

func (r *fakeReporter) Publish(_ context.Context, rep report.Report) error {
	r.reports = append(r.reports, rep)
	return nil
}

func (r *fakeReporter) Close() error { return nil }

// harness wires an orchestrator over real stores and fake hardware.
type harness struct {
	t         *testing.T
	dir       string
	events    []string
	durable   *durable.Store
	settings  *settings.Store
	clock     *clock.Manual
	link      *fakeLink
	syncer    *fakeSyncer
	hashes    *hashServer
	fetcher   *fakeFetcher
	panel     *fakePanel
	sleeper   *fakeSleeper
	restarter *fakeRestarter
	portal    *fakePortal
	reporter  *fakeReporter
	journal   *journal.SQLiteStore
	button    pressedButton
	waits     []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	bootID := filepath.Join(dir, "boot_id")
	require.NoError(t, os.WriteFile(bootID, []byte("5f0b9c7e-1d2a-4c3b-9a8e-7f6d5c4b3a21\n"), 0o600))

	st, err := settings.Open(filepath.Join(dir, "settings.yaml"), discardLogger())
	require.NoError(t, err)
	j, err := journal.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	h := &harness{
		t:         t,
		dir:       dir,
		durable:   durable.NewStore(filepath.Join(dir, "run", "state.json"), bootID, discardLogger()),
		settings:  st,
		clock:     clock.NewManual(time.Unix(0, 0)),
		syncer:    &fakeSyncer{},
		hashes:    &hashServer{body: fpA},
		fetcher:   &fakeFetcher{body: []byte("frame")},
		panel:     &fakePanel{},
		sleeper:   &fakeSleeper{},
		restarter: &fakeRestarter{},
		portal:    &fakePortal{},
		reporter:  &fakeReporter{},
		journal:   j,
	}
	h.link = &fakeLink{events: &h.events}
	return h
}

func (h *harness) orchestrator() *Orchestrator {
	h.t.Helper()
	o, err := New(Deps{
		Durable:   h.durable,
		Settings:  h.settings,
		Clock:     h.clock,
		Link:      h.link,
		Syncer:    h.syncer,
		Checker:   changecache.NewChecker(h.hashes, discardLogger()),
		Fetcher:   h.fetcher,
		Panel:     h.panel,
		Sleeper:   h.sleeper,
		Restarter: h.restarter,
		Button:    h.button,
		Portal:    h.portal,
		Journal:   h.journal,
		Reporter:  h.reporter,
		Logger:    discardLogger(),
	}, Options{
		HoldDuration:   20 * time.Millisecond,
		SampleInterval: 5 * time.Millisecond,
		RestartDelay:   5 * time.Second,
	})
	require.NoError(h.t, err)
	o.wait = func(_ context.Context, d time.Duration) error {
		h.waits = append(h.waits, d)
		h.events = append(h.events, "wait")
		return nil
	}
	return o
}

// commit seeds the durable state as if fp had been rendered in an earlier cycle.
func (h *harness) commit(fp string) {
	h.t.Helper()
	h.durable.Load()
	_, err := h.durable.Apply(durable.Commit(fp))
	require.NoError(h.t, err)
	_, err = h.durable.Apply(durable.Halt(durable.ExitSleep))
	require.NoError(h.t, err)
}

// at sets a valid clock to the given UTC wall time.
func (h *harness) at(hour, minute int) {
	h.t.Helper()
	require.NoError(h.t, h.clock.Set(time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)))
}
