package portal

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/settings"
)

// StatusResponse is the GET /status payload.
type StatusResponse struct {
	Host                  string `json:"host"`
	Port                  int    `json:"port"`
	Endpoint              string `json:"endpoint"`
	SleepMinutes          int    `json:"sleep_minutes"`
	URL                   string `json:"url"`
	ActiveStartHour       int    `json:"active_start_hour"`
	ActiveEndHour         int    `json:"active_end_hour"`
	TimezoneOffsetMinutes int    `json:"timezone_offset_minutes"`
	DeviceMAC             string `json:"device_mac,omitempty"`
	Version               string `json:"version,omitempty"`
}

type messageResponse struct {
	Message  string             `json:"message"`
	Schedule *settings.Schedule `json:"schedule,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	cur := s.opts.Store.Get()
	writeJSON(w, http.StatusOK, StatusResponse{
		Host:                  cur.ServerHost,
		Port:                  cur.ServerPort,
		Endpoint:              cur.ImageEndpoint,
		SleepMinutes:          cur.RefreshMinutes,
		URL:                   cur.ImageURL(),
		ActiveStartHour:       cur.ActiveStartHour,
		ActiveEndHour:         cur.ActiveEndHour,
		TimezoneOffsetMinutes: cur.TimezoneOffsetMinutes,
		DeviceMAC:             s.opts.DeviceMAC,
		Version:               s.opts.Version,
	})
}

// handleSave accepts a form or a JSON object. Only supplied fields change and
// they are merged into the stored schedule under its lock, as a whole or not
// at all.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var (
		patch func(*settings.Schedule)
		err   error
	)
	if isJSON(r) {
		patch, err = parseJSON(r)
	} else {
		patch, err = parseForm(r)
	}
	if err == nil {
		err = s.opts.Store.Update(patch)
	}
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	saved := s.opts.Store.Get()
	writeJSON(w, http.StatusOK, messageResponse{Message: "Configuration saved", Schedule: &saved})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.ResetToDefaults(); err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	cur := s.opts.Store.Get()
	writeJSON(w, http.StatusOK, messageResponse{Message: "Configuration reset to defaults", Schedule: &cur})
}

func (s *Server) handleReboot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Rebooting into normal mode"})
	s.requestReboot()
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.adapter.WriteErrorResponse(w, r, ferrors.NotFoundError("not found").WithContext("path", r.URL.Path).Build())
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// saveRequest mirrors Schedule with optional fields.
type saveRequest struct {
	ServerHost            *string `json:"server_host"`
	ServerPort            *int    `json:"server_port"`
	ImageEndpoint         *string `json:"image_endpoint"`
	RefreshMinutes        *int    `json:"refresh_minutes"`
	ActiveStartHour       *int    `json:"active_start_hour"`
	ActiveEndHour         *int    `json:"active_end_hour"`
	TimezoneOffsetMinutes *int    `json:"timezone_offset_minutes"`
}

func parseJSON(r *http.Request) (func(*settings.Schedule), error) {
	var req saveRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid JSON body").Build()
	}
	return func(next *settings.Schedule) {
		setString(&next.ServerHost, req.ServerHost)
		setInt(&next.ServerPort, req.ServerPort)
		setString(&next.ImageEndpoint, req.ImageEndpoint)
		setInt(&next.RefreshMinutes, req.RefreshMinutes)
		setInt(&next.ActiveStartHour, req.ActiveStartHour)
		setInt(&next.ActiveEndHour, req.ActiveEndHour)
		setInt(&next.TimezoneOffsetMinutes, req.TimezoneOffsetMinutes)
	}, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Form field names, the short names first.
var formFields = []struct {
	names    []string
	intField func(*settings.Schedule) *int
	strField func(*settings.Schedule) *string
}{
	{names: []string{"host", "server_host"}, strField: func(s *settings.Schedule) *string { return &s.ServerHost }},
	{names: []string{"port", "server_port"}, intField: func(s *settings.Schedule) *int { return &s.ServerPort }},
	{names: []string{"endpoint", "image_endpoint"}, strField: func(s *settings.Schedule) *string { return &s.ImageEndpoint }},
	{names: []string{"sleep", "refresh_minutes"}, intField: func(s *settings.Schedule) *int { return &s.RefreshMinutes }},
	{names: []string{"active_start_hour"}, intField: func(s *settings.Schedule) *int { return &s.ActiveStartHour }},
	{names: []string{"active_end_hour"}, intField: func(s *settings.Schedule) *int { return &s.ActiveEndHour }},
	{names: []string{"timezone_offset_minutes"}, intField: func(s *settings.Schedule) *int { return &s.TimezoneOffsetMinutes }},
}

func parseForm(r *http.Request) (func(*settings.Schedule), error) {
	if err := r.ParseForm(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid form body").Build()
	}
	var sets []func(*settings.Schedule)
	for _, f := range formFields {
		name, raw, ok := lookupForm(r, f.names)
		if !ok {
			continue
		}
		if f.strField != nil {
			field := f.strField
			sets = append(sets, func(s *settings.Schedule) { *field(s) = raw })
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, ferrors.ValidationError(name + " must be an integer").
				WithContext("field", name).
				WithContext("value", raw).
				Build()
		}
		field := f.intField
		sets = append(sets, func(s *settings.Schedule) { *field(s) = v })
	}
	return func(next *settings.Schedule) {
		for _, set := range sets {
			set(next)
		}
	}, nil
}

func lookupForm(r *http.Request, names []string) (string, string, bool) {
	for _, name := range names {
		if vals, ok := r.PostForm[name]; ok && len(vals) > 0 {
			return name, strings.TrimSpace(vals[0]), true
		}
	}
	return "", "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
