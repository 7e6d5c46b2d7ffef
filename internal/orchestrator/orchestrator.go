// Package orchestrator runs the duty cycle: boot arbitration, then either the
// config portal or the ordered normal cycle
//
//	ReadBattery → ConnectNetwork → SyncRemoteConfig → EvaluateWindow →
//	CheckChange → FetchAndRender → Disconnect → Sleep
//
// A cycle runs on a single goroutine and every step is synchronous. Only the
// orchestrator writes durable state, always through durable.Store.Apply.
package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/inkframe/internal/battery"
	"git.home.luguber.info/inful/inkframe/internal/button"
	"git.home.luguber.info/inful/inkframe/internal/changecache"
	"git.home.luguber.info/inful/inkframe/internal/clock"
	"git.home.luguber.info/inful/inkframe/internal/display"
	"git.home.luguber.info/inful/inkframe/internal/durable"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/journal"
	"git.home.luguber.info/inful/inkframe/internal/metrics"
	"git.home.luguber.info/inful/inkframe/internal/power"
	"git.home.luguber.info/inful/inkframe/internal/remotesync"
	"git.home.luguber.info/inful/inkframe/internal/report"
	"git.home.luguber.info/inful/inkframe/internal/settings"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

// DurableStore is the durable-state surface the cycle uses.
type DurableStore interface {
	Load() (durable.State, durable.WakeReason)
	Apply(ev durable.Event) (durable.State, error)
}

// SettingsReader provides the current schedule.
type SettingsReader interface {
	Get() settings.Schedule
}

// Syncer performs the remote config request.
type Syncer interface {
	Sync(ctx context.Context, headers http.Header) (remotesync.Result, error)
}

// ChangeChecker runs the fingerprint check.
type ChangeChecker interface {
	Check(ctx context.Context, url string, headers http.Header, committed string, tracker *changecache.Tracker) changecache.Outcome
}

// Fetcher downloads the frame.
type Fetcher interface {
	Download(ctx context.Context, url string, headers http.Header, maxBytes int64) (*transport.Response, error)
}

// Portal is the config-mode server. Run returns once a reboot is requested.
type Portal interface {
	Run(ctx context.Context) error
}

// MetricsSink flushes recorded metrics somewhere durable.
type MetricsSink interface {
	Write() error
}

// Deps are the collaborators of a cycle. Button, Battery, Portal, Journal,
// Metrics, MetricsSink and Reporter are optional.
type Deps struct {
	Durable   DurableStore
	Settings  SettingsReader
	Clock     clock.Clock
	Link      transport.Link
	Syncer    Syncer
	Checker   ChangeChecker
	Fetcher   Fetcher
	Panel     display.Panel
	Sleeper   power.Sleeper
	Restarter power.Restarter

	Button      button.Input
	Battery     battery.Sensor
	Portal      Portal
	Journal     journal.Store
	Metrics     metrics.Recorder
	MetricsSink MetricsSink
	Reporter    report.Publisher
	Logger      *slog.Logger
}

// Options tune a cycle.
type Options struct {
	HoldDuration   time.Duration
	SampleInterval time.Duration
	RestartDelay   time.Duration
	MaxImageBytes  int64
	ReportTimeout  time.Duration
	JournalKeep    int
}

// DefaultOptions match the reference hardware.
func DefaultOptions() Options {
	return Options{
		HoldDuration:   button.DefaultHold,
		SampleInterval: button.DefaultInterval,
		RestartDelay:   5 * time.Second,
		MaxImageBytes:  960000,
		ReportTimeout:  5 * time.Second,
		JournalKeep:    2000,
	}
}

// Orchestrator owns the duty cycle.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	loaded     bool
	wakeReason string
	wait       func(ctx context.Context, d time.Duration) error
}

// New validates deps and fills in optional collaborators.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	required := []struct {
		name string
		ok   bool
	}{
		{"durable", deps.Durable != nil},
		{"settings", deps.Settings != nil},
		{"clock", deps.Clock != nil},
		{"link", deps.Link != nil},
		{"syncer", deps.Syncer != nil},
		{"checker", deps.Checker != nil},
		{"fetcher", deps.Fetcher != nil},
		{"panel", deps.Panel != nil},
		{"sleeper", deps.Sleeper != nil},
		{"restarter", deps.Restarter != nil},
	}
	for _, r := range required {
		if !r.ok {
			return nil, ferrors.InternalError("orchestrator dependency missing").
				WithContext("dependency", r.name).
				Build()
		}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopRecorder{}
	}
	if deps.Reporter == nil {
		deps.Reporter = report.Noop{}
	}
	def := DefaultOptions()
	if opts.HoldDuration <= 0 {
		opts.HoldDuration = def.HoldDuration
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = def.SampleInterval
	}
	if opts.RestartDelay < 0 {
		opts.RestartDelay = def.RestartDelay
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = def.MaxImageBytes
	}
	if opts.ReportTimeout <= 0 {
		opts.ReportTimeout = def.ReportTimeout
	}
	if opts.JournalKeep <= 0 {
		opts.JournalKeep = def.JournalKeep
	}
	return &Orchestrator{deps: deps, opts: opts, logger: deps.Logger, wait: waitFor}, nil
}

func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
