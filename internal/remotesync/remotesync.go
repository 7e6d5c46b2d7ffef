// Package remotesync pulls the device-config document: it sets the clock from
// server time and merges schedule overrides into the settings store.
package remotesync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/inkframe/internal/clock"
	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/settings"
	"git.home.luguber.info/inful/inkframe/internal/transport"
)

// Document field names.
const (
	FieldServerTime     = "server_time_epoch"
	FieldRefresh        = "refresh_interval_minutes"
	FieldActiveStart    = "active_start_hour"
	FieldActiveEnd      = "active_end_hour"
	FieldTimezoneOffset = "timezone_offset_minutes"
	FieldConfigSource   = "config_source"
)

// Getter is the transport surface the syncer needs.
type Getter interface {
	Get(ctx context.Context, url string, headers http.Header) (*transport.Response, error)
}

// ScheduleStore is the settings surface the syncer needs.
type ScheduleStore interface {
	Get() settings.Schedule
	Apply(settings.Schedule) error
}

// Result summarizes one sync.
type Result struct {
	ClockSet   bool
	ServerTime time.Time
	Updated    bool
	Accepted   []string
	Ignored    []string
	Schedule   settings.Schedule
	Source     string
}

// Syncer performs the config request.
type Syncer struct {
	http   Getter
	store  ScheduleStore
	clock  clock.Clock
	logger *slog.Logger
}

func New(g Getter, store ScheduleStore, c clock.Clock, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{http: g, store: store, clock: c, logger: logger}
}

// Sync issues one GET to the config endpoint of the current schedule. A
// non-200 status or a payload that is not a JSON object returns an error and
// touches neither the clock nor the schedule.
func (s *Syncer) Sync(ctx context.Context, headers http.Header) (Result, error) {
	current := s.store.Get()
	url := current.ConfigURL()
	res := Result{Schedule: current}

	resp, err := s.http.Get(ctx, url, headers)
	if err != nil {
		return res, err
	}
	if resp.Status != http.StatusOK {
		return res, ferrors.NetworkError(fmt.Sprintf("config request returned HTTP %d", resp.Status)).
			WithContext("url", url).
			WithContext("status", resp.Status).
			Build()
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &doc); err != nil || doc == nil {
		if err == nil {
			err = fmt.Errorf("document is null")
		}
		return res, ferrors.WrapError(err, ferrors.CategoryValidation, "malformed config document").
			NextCycle().
			WithContext("url", url).
			Build()
	}

	if raw, ok := doc[FieldConfigSource]; ok {
		_ = json.Unmarshal(raw, &res.Source)
	}

	if raw, ok := doc[FieldServerTime]; ok {
		var epoch *int64
		if err := json.Unmarshal(raw, &epoch); err != nil || epoch == nil {
			res.Ignored = append(res.Ignored, FieldServerTime)
		} else {
			res.ServerTime = time.Unix(*epoch, 0).UTC()
			if err := s.clock.Set(res.ServerTime); err != nil {
				s.logger.Warn("Clock update failed", logfields.Error(err))
			} else {
				res.ClockSet = true
			}
		}
	}

	next := current
	s.mergeInt(doc, FieldRefresh, &next.RefreshMinutes, settings.ValidateRefreshMinutes, &res)
	s.mergeInt(doc, FieldActiveStart, &next.ActiveStartHour, func(v int) error {
		return settings.ValidateHour(FieldActiveStart, v)
	}, &res)
	s.mergeInt(doc, FieldActiveEnd, &next.ActiveEndHour, func(v int) error {
		return settings.ValidateHour(FieldActiveEnd, v)
	}, &res)
	s.mergeInt(doc, FieldTimezoneOffset, &next.TimezoneOffsetMinutes, settings.ValidateTimezoneOffset, &res)

	if next != current {
		if err := s.store.Apply(next); err != nil {
			return res, err
		}
		res.Updated = true
		res.Schedule = next
	}

	s.logger.Info("Remote config synced",
		logfields.URL(url),
		slog.Bool("clock_set", res.ClockSet),
		slog.Bool("schedule_updated", res.Updated),
		slog.String("source", res.Source))
	return res, nil
}

// mergeInt copies a present, integer, in-range field into dst. Anything else,
// null included, leaves dst as it was.
func (s *Syncer) mergeInt(doc map[string]json.RawMessage, field string, dst *int, validate func(int) error, res *Result) {
	raw, ok := doc[field]
	if !ok {
		return
	}
	var v *int
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		s.logger.Warn("Ignoring non-integer config field", slog.String("field", field))
		res.Ignored = append(res.Ignored, field)
		return
	}
	if err := validate(*v); err != nil {
		s.logger.Warn("Ignoring out-of-range config field", slog.String("field", field), logfields.Error(err))
		res.Ignored = append(res.Ignored, field)
		return
	}
	*dst = *v
	res.Accepted = append(res.Accepted, field)
}
