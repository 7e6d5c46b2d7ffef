// Package changecache decides whether the published image differs from the
// one on the panel, and carries the observed fingerprint through a two-phase
// commit so an image is only marked seen after it was rendered.
package changecache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/inkframe/internal/durable"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

// Getter is the transport surface the checker needs.
type Getter interface {
	Get(ctx context.Context, url string, headers http.Header) (*transport.Response, error)
}

// Reason explains a check outcome.
type Reason string

const (
	ReasonRequestFailed Reason = "request_failed"
	ReasonMalformed     Reason = "malformed"
	ReasonDiffers       Reason = "differs"
	ReasonMatches       Reason = "matches"
)

// Outcome is the result of one fingerprint check. Err carries the cause when
// the check failed open.
type Outcome struct {
	Changed     bool
	Reason      Reason
	Fingerprint string
	Err         error
}

// Checker fetches the server fingerprint.
type Checker struct {
	http   Getter
	logger *slog.Logger
}

func NewChecker(g Getter, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{http: g, logger: logger}
}

// Check compares the server fingerprint with committed and updates tracker.
// It fails open: anything short of a well-formed matching fingerprint counts
// as changed. Only a well-formed, differing fingerprint is staged.
func (c *Checker) Check(ctx context.Context, url string, headers http.Header, committed string, tracker *Tracker) Outcome {
	resp, err := c.http.Get(ctx, url, headers)
	if err == nil && resp.Status != http.StatusOK {
		err = ferrors.NetworkError(fmt.Sprintf("fingerprint request returned HTTP %d", resp.Status)).
			WithContext("url", url).
			WithContext("status", resp.Status).
			Build()
	}
	if err != nil {
		c.logger.Warn("Fingerprint check failed, assuming changed", logfields.URL(url), logfields.Error(err))
		return Outcome{Changed: true, Reason: ReasonRequestFailed, Err: err}
	}

	// The body is the bare token; surrounding whitespace makes it malformed.
	fp := string(resp.Body)
	if !durable.ValidFingerprint(fp) {
		verr := ferrors.ValidationError(fmt.Sprintf("fingerprint has %d characters, want %d", len(fp), durable.FingerprintLength)).
			WithContext("url", url).
			Build()
		c.logger.Warn("Malformed fingerprint, assuming changed", logfields.URL(url), slog.Int("length", len(fp)))
		return Outcome{Changed: true, Reason: ReasonMalformed, Fingerprint: fp, Err: verr}
	}

	if fp == committed {
		tracker.Clear()
		return Outcome{Changed: false, Reason: ReasonMatches, Fingerprint: fp}
	}

	tracker.Stage(fp)
	return Outcome{Changed: true, Reason: ReasonDiffers, Fingerprint: fp}
}
