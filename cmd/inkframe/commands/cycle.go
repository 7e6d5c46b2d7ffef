package commands

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
)

// CycleCmd implements the 'cycle' command. The resulting sleep is reported,
// not executed.
type CycleCmd struct{}

type cycleSummary struct {
	CycleID      string  `json:"cycle_id"`
	WakeReason   string  `json:"wake_reason"`
	Action       string  `json:"action"`
	Result       string  `json:"result"`
	Reason       string  `json:"reason,omitempty"`
	SleepSeconds uint32  `json:"sleep_seconds"`
	BootCount    uint32  `json:"boot_count"`
	Fingerprint  string  `json:"fingerprint,omitempty"`
	ClockValid   bool    `json:"clock_valid"`
	Battery      string  `json:"battery"`
	Bytes        int64   `json:"bytes,omitempty"`
	DurationMS   float64 `json:"duration_ms"`
}

func (c *CycleCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dev, err := openDevice(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	out := dev.orch.RunCycle(ctx)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cycleSummary{
		CycleID:      out.CycleID,
		WakeReason:   out.WakeReason,
		Action:       string(out.Action),
		Result:       string(out.Result),
		Reason:       out.Reason,
		SleepSeconds: out.SleepSeconds,
		BootCount:    out.State.BootCount,
		Fingerprint:  out.State.CommittedFingerprint,
		ClockValid:   out.ClockValid,
		Battery:      out.Battery.String(),
		Bytes:        out.Bytes,
		DurationMS:   float64(out.Duration.Microseconds()) / 1000,
	})
}
