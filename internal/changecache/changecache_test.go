package changecache

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

type fakeGetter struct {
	resp    *transport.Response
	err     error
	headers http.Header
}

func (f *fakeGetter) Get(_ context.Context, _ string, headers http.Header) (*transport.Response, error) {
	f.headers = headers
	return f.resp, f.err
}

func body(status int, s string) *fakeGetter {
	return &fakeGetter{resp: &transport.Response{Status: status, Body: []byte(s)}}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		getter      *fakeGetter
		committed   string
		changed     bool
		reason      Reason
		wantPhase   Phase
		wantPending string
	}{
		{"request failure", &fakeGetter{err: errors.New("refused")}, fpA, true, ReasonRequestFailed, PhaseNoPending, ""},
		{"bad status", body(http.StatusInternalServerError, fpB), fpA, true, ReasonRequestFailed, PhaseNoPending, ""},
		{"twenty characters", body(http.StatusOK, "0123456789abcdef0123"), fpA, true, ReasonMalformed, PhaseNoPending, ""},
		{"empty body", body(http.StatusOK, ""), "", true, ReasonMalformed, PhaseNoPending, ""},
		{"matches committed", body(http.StatusOK, fpA), fpA, false, ReasonMatches, PhaseNoPending, ""},
		{"trailing newline", body(http.StatusOK, fpA+"\n"), fpA, true, ReasonMalformed, PhaseNoPending, ""},
		{"padded token", body(http.StatusOK, " "+fpB), fpA, true, ReasonMalformed, PhaseNoPending, ""},
		{"differs", body(http.StatusOK, fpB), fpA, true, ReasonDiffers, PhasePending, fpB},
		{"first image", body(http.StatusOK, fpB), "", true, ReasonDiffers, PhasePending, fpB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			out := NewChecker(tt.getter, nil).Check(context.Background(), "http://frame/hash", nil, tt.committed, tr)
			assert.Equal(t, tt.changed, out.Changed)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Equal(t, tt.wantPhase, tr.Phase())
			assert.Equal(t, tt.wantPending, tr.Pending())
		})
	}
}

func TestCheck_ErrorsAreClassified(t *testing.T) {
	out := NewChecker(body(http.StatusBadGateway, ""), nil).Check(context.Background(), "u", nil, "", NewTracker())
	require.Error(t, out.Err)
	assert.True(t, ferrors.HasCategory(out.Err, ferrors.CategoryNetwork))

	out = NewChecker(body(http.StatusOK, "abc"), nil).Check(context.Background(), "u", nil, "", NewTracker())
	assert.True(t, ferrors.HasCategory(out.Err, ferrors.CategoryValidation))
}

func TestCheck_MatchClearsEarlierPending(t *testing.T) {
	tr := NewTracker()
	tr.Stage(fpB)
	out := NewChecker(body(http.StatusOK, fpA), nil).Check(context.Background(), "u", nil, fpA, tr)
	assert.False(t, out.Changed)
	assert.Equal(t, PhaseNoPending, tr.Phase())
}

func TestCheck_ForwardsIdentityHeaders(t *testing.T) {
	g := body(http.StatusOK, fpA)
	NewChecker(g, nil).Check(context.Background(), "u", transport.IdentityHeaders("aabbccddeeff", 0, false), "", NewTracker())
	assert.Equal(t, "aabbccddeeff", g.headers.Get(transport.HeaderDeviceMAC))
}
