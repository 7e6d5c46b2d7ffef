package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
)

type fakeConn struct {
	subject  string
	data     []byte
	flushed  bool
	closed   bool
	flushErr error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushed = true
	return f.flushErr
}

func (f *fakeConn) Close() { f.closed = true }

func TestNATSPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "inkframe.cycles", discardLogger())

	volts := 3.9
	r := Report{
		DeviceMAC:    "aabbccddeeff",
		CycleID:      "c1",
		BootCount:    12,
		WakeReason:   "timer",
		Outcome:      "rendered",
		Fingerprint:  "0123456789abcdef",
		SleepSeconds: 900,
		BatteryVolts: &volts,
		ClockValid:   true,
		Timestamp:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), r))
	assert.Equal(t, "inkframe.cycles", fc.subject)
	assert.True(t, fc.flushed)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(fc.data, &decoded))
	assert.Equal(t, "aabbccddeeff", decoded["device_mac"])
	assert.InDelta(t, 3.9, decoded["battery_v"], 1e-9)
	assert.NotEmpty(t, decoded["version"])
	assert.NotContains(t, decoded, "reason")

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestNATSPublisher_FlushFailureIsNetworkError(t *testing.T) {
	p := newPublisher(&fakeConn{flushErr: errors.New("timeout")}, "s", discardLogger())
	err := p.Publish(context.Background(), Report{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(Options{URL: "nats://127.0.0.1:1", Subject: "s", Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	require.NoError(t, p.Publish(context.Background(), Report{}))
	require.NoError(t, p.Close())
}

func TestPerCycle_DialsForEachReport(t *testing.T) {
	var conns []*fakeConn
	p := NewPerCycle(Options{Subject: "inkframe.cycles"})
	p.dial = func(o Options) (*NATSPublisher, error) {
		fc := &fakeConn{}
		conns = append(conns, fc)
		return newPublisher(fc, o.Subject, discardLogger()), nil
	}

	require.NoError(t, p.Publish(context.Background(), Report{CycleID: "a"}))
	require.NoError(t, p.Publish(context.Background(), Report{CycleID: "b"}))
	require.Len(t, conns, 2)
	for _, c := range conns {
		assert.Equal(t, "inkframe.cycles", c.subject)
		assert.True(t, c.closed)
	}
}

func TestPerCycle_DialFailure(t *testing.T) {
	p := NewPerCycle(Options{URL: "nats://127.0.0.1:1", Subject: "s", Timeout: 200 * time.Millisecond})
	err := p.Publish(context.Background(), Report{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}
