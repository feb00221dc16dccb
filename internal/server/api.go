package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

// scheduleRequest is the wire form of scheduler.Request. Days are names.
type scheduleRequest struct {
	Item        content.Item `json:"item"`
	Priority    string       `json:"priority"`
	Constraints struct {
		ExcludedDays           []string `json:"excluded_days"`
		ExcludedHours          []int    `json:"excluded_hours"`
		MinimumGapBetweenPosts int      `json:"minimum_gap_between_posts"`
	} `json:"constraints"`
	PreferredTime *time.Time `json:"preferred_time"`
	Force         bool       `json:"force"`
}

func (sr scheduleRequest) toRequest() (scheduler.Request, error) {
	req := scheduler.Request{
		Item:          sr.Item,
		PreferredTime: sr.PreferredTime,
		Force:         sr.Force,
	}
	p, err := scheduler.ParsePriority(sr.Priority)
	if err != nil {
		return req, err
	}
	req.Priority = p
	days, err := content.ParseWeekdays(sr.Constraints.ExcludedDays)
	if err != nil {
		return req, fmt.Errorf("%w: %v", scheduler.ErrInvalidRequest, err)
	}
	for _, h := range sr.Constraints.ExcludedHours {
		if h < 0 || h > 23 {
			return req, fmt.Errorf("%w: excluded hour %d is outside 0..23", scheduler.ErrInvalidRequest, h)
		}
	}
	req.Constraints = scheduler.Constraints{
		ExcludedDays:           days,
		ExcludedHours:          sr.Constraints.ExcludedHours,
		MinimumGapBetweenPosts: sr.Constraints.MinimumGapBetweenPosts,
	}
	return req, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f := scheduler.Filter{}
	if p := r.URL.Query().Get("platform"); p != "" {
		platform, err := content.ParsePlatform(p)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", scheduler.ErrInvalidRequest, err))
			return
		}
		f.Platform = platform
	}
	tf, err := s.timeframe(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if tf != nil {
		f.From, f.To = tf.Start, tf.End
	}
	writeJSON(w, http.StatusOK, s.ctl.GetScheduledContent(f))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var sr scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&sr); err != nil {
		writeError(w, fmt.Errorf("%w: %v", scheduler.ErrInvalidRequest, err))
		return
	}
	req, err := sr.toRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.ctl.ScheduleContent(req)
	if err != nil {
		s.metrics.scheduleRequests.WithLabelValues("failed").Inc()
		writeError(w, err)
		return
	}
	s.metrics.scheduleRequests.WithLabelValues("scheduled").Inc()
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var sr scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&sr); err != nil {
		writeError(w, fmt.Errorf("%w: %v", scheduler.ErrInvalidRequest, err))
		return
	}
	req, err := sr.toRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.ctl.RescheduleContent(r.PathValue("id"), req)
	if err != nil {
		s.metrics.scheduleRequests.WithLabelValues("failed").Inc()
		writeError(w, err)
		return
	}
	s.metrics.scheduleRequests.WithLabelValues("rescheduled").Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.CancelContent(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	tf, err := s.timeframe(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conflicts := s.ctl.DetectConflicts(tf)
	if conflicts == nil {
		conflicts = []scheduler.Conflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	tf, err := s.timeframe(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.GetSchedulingAnalytics(tf))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(scheduler.FormatJSON)
	}
	format, err := scheduler.ParseFormat(name)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", scheduler.ErrInvalidRequest, err))
		return
	}
	switch format {
	case scheduler.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="schedule.csv"`)
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	if err := s.ctl.ExportSchedule(w, format); err != nil {
		s.log.Error().Err(err).Msg("export failed")
	}
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	rep, err := s.optimize("api")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// timeframe reads optional from/to query parameters in any common date format,
// interpreted in the audience timezone.
func (s *Server) timeframe(r *http.Request) (*scheduler.Timeframe, error) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" {
		return nil, nil
	}
	var tf scheduler.Timeframe
	for _, p := range []struct {
		raw string
		dst *time.Time
	}{{from, &tf.Start}, {to, &tf.End}} {
		if p.raw == "" {
			continue
		}
		t, err := dateparse.ParseIn(p.raw, s.ctl.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidRequest, err)
		}
		*p.dst = t
	}
	return &tf, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps scheduling errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scheduler.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, scheduler.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scheduler.ErrNoViableSlot):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
