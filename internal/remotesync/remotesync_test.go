package remotesync

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/inkframe/internal/clock"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/settings"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

// countingStore wraps a settings store and counts Apply calls.
type countingStore struct {
	*settings.Store
	applies int
}

func (c *countingStore) Apply(s settings.Schedule) error {
	c.applies++
	return c.Store.Apply(s)
}

type staticGetter struct {
	status int
	body   string
	err    error
}

func (g staticGetter) Get(context.Context, string, http.Header) (*transport.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &transport.Response{Status: g.status, Body: []byte(g.body)}, nil
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	require.NoError(t, err)
	return &countingStore{Store: s}
}

func TestSync_MergesValidFieldsAtomically(t *testing.T) {
	store := newStore(t)
	clk := clock.NewManual(time.Unix(0, 0))

	res, err := New(staticGetter{status: 200, body: `{
		"server_time_epoch": 1735732800,
		"refresh_interval_minutes": 30,
		"active_start_hour": 7,
		"active_end_hour": 24,
		"timezone_offset_minutes": "60",
		"config_source": "device-override"
	}`}, store, clk, nil).Sync(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, res.ClockSet)
	assert.Equal(t, int64(1735732800), clk.Now().Unix())
	assert.True(t, clock.IsValid(clk.Now()))

	assert.True(t, res.Updated)
	assert.Equal(t, 1, store.applies, "schedule rewritten once")
	got := store.Get()
	assert.Equal(t, 30, got.RefreshMinutes)
	assert.Equal(t, 7, got.ActiveStartHour)
	assert.Equal(t, settings.DefaultActiveEnd, got.ActiveEndHour, "out of range ignored")
	assert.Equal(t, 0, got.TimezoneOffsetMinutes, "wrong type ignored")
	assert.ElementsMatch(t, []string{FieldActiveEnd, FieldTimezoneOffset}, res.Ignored)
	assert.Equal(t, "device-override", res.Source)
}

func TestSync_NoChangeNoWrite(t *testing.T) {
	store := newStore(t)
	clk := clock.NewManual(time.Unix(0, 0))

	res, err := New(staticGetter{status: 200, body: `{"refresh_interval_minutes": 15, "active_start_hour": 8}`},
		store, clk, nil).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.False(t, res.ClockSet)
	assert.Zero(t, store.applies)
	assert.Zero(t, clk.Sets())
}

func TestSync_FailuresLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name     string
		getter   staticGetter
		category ferrors.ErrorCategory
	}{
		{"transport error", staticGetter{err: ferrors.NetworkError("refused").Build()}, ferrors.CategoryNetwork},
		{"bad status", staticGetter{status: 503, body: `{"server_time_epoch": 1735732800}`}, ferrors.CategoryNetwork},
		{"malformed json", staticGetter{status: 200, body: `{"server_time_epoch": `}, ferrors.CategoryValidation},
		{"not an object", staticGetter{status: 200, body: `[1,2]`}, ferrors.CategoryValidation},
		{"null", staticGetter{status: 200, body: `null`}, ferrors.CategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			clk := clock.NewManual(time.Unix(0, 0))
			_, err := New(tt.getter, store, clk, nil).Sync(context.Background(), nil)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, tt.category), "got %v", err)
			assert.Zero(t, clk.Sets())
			assert.Zero(t, store.applies)
			assert.Equal(t, settings.Defaults(), store.Get())
		})
	}
}

func TestSync_NullFieldsAreIgnored(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Update(func(s *settings.Schedule) {
		s.RefreshMinutes = 20
		s.ActiveStartHour = 6
		s.ActiveEndHour = 22
		s.TimezoneOffsetMinutes = 120
	}))
	before := store.Get()
	synced := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(synced)

	res, err := New(staticGetter{status: 200, body: `{
		"server_time_epoch": null,
		"refresh_interval_minutes": null,
		"active_start_hour": null,
		"active_end_hour": null,
		"timezone_offset_minutes": null,
		"config_source": null
	}`}, store, clk, nil).Sync(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, res.ClockSet)
	assert.Zero(t, clk.Sets())
	assert.Equal(t, synced, clk.Now())
	assert.True(t, clock.IsValid(clk.Now()))

	assert.False(t, res.Updated)
	assert.Empty(t, res.Accepted)
	assert.ElementsMatch(t, []string{FieldServerTime, FieldRefresh, FieldActiveStart, FieldActiveEnd, FieldTimezoneOffset}, res.Ignored)
	assert.Equal(t, before, store.Get())
	assert.Zero(t, store.applies)
}

func TestSync_NullNextToValidFields(t *testing.T) {
	store := newStore(t)
	res, err := New(staticGetter{status: 200, body: `{"active_start_hour": null, "refresh_interval_minutes": 45}`},
		store, clock.NewManual(time.Unix(0, 0)), nil).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 45, store.Get().RefreshMinutes)
	assert.Equal(t, settings.DefaultActiveStart, store.Get().ActiveStartHour)
	assert.Equal(t, []string{FieldActiveStart}, res.Ignored)
}

type failingClock struct{ *clock.Manual }

func (failingClock) Set(time.Time) error { return errors.New("EPERM") }

func TestSync_ClockFailureStillMergesSchedule(t *testing.T) {
	store := newStore(t)
	res, err := New(staticGetter{status: 200, body: `{"server_time_epoch": 1735732800, "refresh_interval_minutes": 5}`},
		store, failingClock{clock.NewManual(time.Unix(0, 0))}, nil).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.ClockSet)
	assert.Equal(t, 5, store.Get().RefreshMinutes)
}

func TestSync_AgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config", r.URL.Path)
		assert.Equal(t, "aabbccddeeff", r.Header.Get(transport.HeaderDeviceMAC))
		assert.Equal(t, "3.90", r.Header.Get(transport.HeaderBatteryVoltage))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active_start_hour": 22, "active_end_hour": 6}`))
	}))
	defer srv.Close()

	store := newStore(t)
	addr := srv.Listener.Addr().(*net.TCPAddr)
	require.NoError(t, store.Update(func(s *settings.Schedule) {
		s.ServerHost = addr.IP.String()
		s.ServerPort = addr.Port
	}))

	client := transport.New(transport.Options{Timeout: time.Second})
	res, err := New(client, store, clock.NewManual(time.Unix(0, 0)), nil).
		Sync(context.Background(), transport.IdentityHeaders("aabbccddeeff", 3.9, true))
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 22, store.Get().ActiveStartHour)
	assert.Equal(t, 6, store.Get().ActiveEndHour)
}
