package portal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/settings"
)

func newServer(t *testing.T) (*Server, *settings.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), logger)
	require.NoError(t, err)
	s := New(Options{Store: store, DeviceMAC: "aabbccddeeff", Version: "test", Logger: logger})
	s.grace = 0
	return s, store
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s, _ := newServer(t)
	rec := do(t, s, http.MethodGet, "/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settings.DefaultServerHost, got.Host)
	assert.Equal(t, 5000, got.Port)
	assert.Equal(t, "/image_packed", got.Endpoint)
	assert.Equal(t, 15, got.SleepMinutes)
	assert.Equal(t, "http://192.168.86.34:5000/image_packed", got.URL)
	assert.Equal(t, "aabbccddeeff", got.DeviceMAC)
}

func TestSave_Form(t *testing.T) {
	s, store := newServer(t)
	form := url.Values{"host": {"frames.local"}, "port": {"8000"}, "endpoint": {"img"}, "sleep": {"30"}}
	rec := do(t, s, http.MethodPost, "/save", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := store.Get()
	assert.Equal(t, "frames.local", got.ServerHost)
	assert.Equal(t, 8000, got.ServerPort)
	assert.Equal(t, "/img", got.ImageEndpoint)
	assert.Equal(t, 30, got.RefreshMinutes)
	assert.Equal(t, settings.DefaultActiveStart, got.ActiveStartHour, "untouched")
}

func TestSave_JSON(t *testing.T) {
	s, store := newServer(t)
	rec := do(t, s, http.MethodPost, "/save", "application/json; charset=utf-8",
		`{"active_start_hour": 22, "active_end_hour": 6, "timezone_offset_minutes": -300}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := store.Get()
	assert.Equal(t, 22, got.ActiveStartHour)
	assert.Equal(t, 6, got.ActiveEndHour)
	assert.Equal(t, -300, got.TimezoneOffsetMinutes)
}

// racingStore commits another writer's change right before each Update.
type racingStore struct {
	*settings.Store
	writer func(*settings.Schedule)
}

func (r *racingStore) Update(fn func(*settings.Schedule)) error {
	if err := r.Store.Update(r.writer); err != nil {
		return err
	}
	return r.Store.Update(fn)
}

func TestSave_KeepsConcurrentWrites(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"form", "application/x-www-form-urlencoded", "active_start_hour=5"},
		{"json", "application/json", `{"active_start_hour": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			inner, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), logger)
			require.NoError(t, err)
			store := &racingStore{Store: inner, writer: func(s *settings.Schedule) { s.RefreshMinutes = 45 }}
			s := New(Options{Store: store, Logger: logger})

			rec := do(t, s, http.MethodPost, "/save", tt.contentType, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got := inner.Get()
			assert.Equal(t, 5, got.ActiveStartHour)
			assert.Equal(t, 45, got.RefreshMinutes)
		})
	}
}

func TestSave_RejectsWithoutPartialWrite(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"port out of range", "application/x-www-form-urlencoded", "host=frames.local&port=70000"},
		{"non-integer", "application/x-www-form-urlencoded", "host=frames.local&sleep=often"},
		{"empty host", "application/x-www-form-urlencoded", "host=&sleep=20"},
		{"hour out of range", "application/json", `{"refresh_minutes": 30, "active_end_hour": 24}`},
		{"unknown field", "application/json", `{"brightness": 3}`},
		{"broken json", "application/json", `{"refresh_minutes": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newServer(t)
			rec := do(t, s, http.MethodPost, "/save", tt.contentType, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body ferrors.HTTPErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(ferrors.CategoryValidation), body.Code)
			assert.Equal(t, settings.Defaults(), store.Get())
		})
	}
}

func TestReset(t *testing.T) {
	s, store := newServer(t)
	require.NoError(t, store.SetRefreshMinutes(90))
	rec := do(t, s, http.MethodPost, "/reset", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, settings.Defaults(), store.Get())
}

func TestNotFound(t *testing.T) {
	s, _ := newServer(t)
	rec := do(t, s, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestMetricsMounted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), logger)
	require.NoError(t, err)
	s := New(Options{Store: store, Logger: logger, Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("inkframe_boot_count 1\n"))
	})})
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inkframe_boot_count")
}

func TestServe_ReturnsAfterReboot(t *testing.T) {
	s, _ := newServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/reboot", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("portal did not stop after reboot request")
	}
}

func TestServe_ContextCancel(t *testing.T) {
	s, _ := newServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("portal did not stop on cancel")
	}
}
