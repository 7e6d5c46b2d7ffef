// Package report publishes a summary of every cycle to a NATS subject while
// the network is still up.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/version"
)

// Report is the published cycle summary.
type Report struct {
	DeviceMAC    string    `json:"device_mac"`
	CycleID      string    `json:"cycle_id"`
	BootCount    uint32    `json:"boot_count"`
	WakeReason   string    `json:"wake_reason"`
	Outcome      string    `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	SleepSeconds uint32    `json:"sleep_seconds"`
	BatteryVolts *float64  `json:"battery_v,omitempty"`
	ClockValid   bool      `json:"clock_valid"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
}

// Publisher sends cycle reports.
type Publisher interface {
	Publish(ctx context.Context, r Report) error
	Close() error
}

// Noop drops reports.
type Noop struct{}

func (Noop) Publish(context.Context, Report) error { return nil }
func (Noop) Close() error                          { return nil }

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes reports as JSON messages.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// Options configure a NATS connection.
type Options struct {
	URL     string
	Subject string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Connect dials NATS once. Reconnects are disabled: the link only lives for
// the duration of a cycle.
func Connect(opts Options) (*NATSPublisher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = nats.DefaultTimeout
	}
	nc, err := nats.Connect(opts.URL,
		nats.Name("inkframe"),
		nats.Timeout(opts.Timeout),
		nats.NoReconnect(),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "connect to NATS").
			NextCycle().
			WithContext("url", opts.URL).
			Build()
	}
	return newPublisher(nc, opts.Subject, opts.Logger), nil
}

func newPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, logger: logger}
}

// Publish sends r and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, r Report) error {
	if r.Version == "" {
		r.Version = version.Version
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "publish cycle report").
			WithContext("subject", p.subject).
			Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "flush cycle report").
			WithContext("subject", p.subject).
			Build()
	}
	p.logger.Debug("Published cycle report",
		logfields.CycleID(r.CycleID),
		slog.String("subject", p.subject),
		logfields.Bytes(int64(len(data))))
	return nil
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// PerCycle dials NATS for each report and hangs up afterwards; no connection
// outlives the network link of a cycle.
type PerCycle struct {
	opts Options
	dial func(Options) (*NATSPublisher, error)
}

func NewPerCycle(opts Options) *PerCycle {
	return &PerCycle{opts: opts, dial: Connect}
}

func (p *PerCycle) Publish(ctx context.Context, r Report) error {
	pub, err := p.dial(p.opts)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()
	return pub.Publish(ctx, r)
}

func (p *PerCycle) Close() error { return nil }
