package orchestrator

import (
	"time"

	"git.home.luguber.info/inful/inkframe/internal/battery"
	"git.home.luguber.info/inful/inkframe/internal/durable"
)

// Action is what the platform must do once the cycle is over.
type Action string

const (
	ActionSleep   Action = "sleep"
	ActionRestart Action = "restart"
	ActionConfig  Action = "config"
)

// Result labels the path a cycle took.
type Result string

const (
	ResultRendered     Result = "rendered"
	ResultUnchanged    Result = "unchanged"
	ResultQuietHours   Result = "quiet_hours"
	ResultOffline      Result = "offline"
	ResultFetchFailed  Result = "fetch_failed"
	ResultRenderFailed Result = "render_failed"
	ResultDisplayFault Result = "display_fault"
	ResultConfigMode   Result = "config_mode"
)

// Stage names, as logged and recorded.
const (
	StageBootArbitration = "boot_arbitration"
	StageReadBattery     = "read_battery"
	StageConnectNetwork  = "connect_network"
	StageSyncConfig      = "sync_remote_config"
	StageEvaluateWindow  = "evaluate_window"
	StageCheckChange     = "check_change"
	StageFetchRender     = "fetch_render"
	StageDisconnect      = "disconnect"
	StageSleep           = "sleep"
)

// Outcome is the result of RunCycle. Durable updates it describes are
// already persisted.
type Outcome struct {
	Action       Action
	SleepSeconds uint32
	Result       Result
	Reason       string

	CycleID         string
	WakeReason      string
	State           durable.State
	Battery         battery.Reading
	ClockValid      bool
	ScheduleUpdated bool
	ImageName       string
	ServerDeviceID  string
	Bytes           int64
	Duration        time.Duration
}

// Sleep returns the sleep duration.
func (o Outcome) Sleep() time.Duration { return time.Duration(o.SleepSeconds) * time.Second }
