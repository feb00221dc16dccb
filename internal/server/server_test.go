package server

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

// Monday 08:00 UTC.
var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *scheduler.Controller) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	ctl := scheduler.New(scheduler.DefaultConfig(),
		classify.New(content.NewCatalog(content.DefaultCategories()), classify.WithClock(clock)),
		planner.New(planner.WithClock(clock)),
		scheduler.WithClock(clock))
	s, err := New(ctl, WithClock(clock))
	require.NoError(t, err)
	return s, ctl
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const launchPost = `{"item": {"id": "a", "title": "Launch notes", "platform": "linkedin", "created_at": "2026-03-02T08:00:00Z"}, "priority": "high"}`

func TestScheduleAndList(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/schedule", launchPost)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res scheduler.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "a", res.ID())
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), res.ScheduledTime)

	rec = do(t, s, http.MethodGet, "/api/schedule?platform=linkedin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []scheduler.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = do(t, s, http.MethodGet, "/api/schedule?platform=twitter", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/schedule?from=2026-03-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestScheduleRejectsBadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := map[string]string{
		"malformed json":   `{"item":`,
		"missing id":       `{"item": {"title": "x", "platform": "blog"}}`,
		"unknown priority": `{"item": {"id": "a", "title": "x", "platform": "blog"}, "priority": "asap"}`,
		"bad weekday":      `{"item": {"id": "a", "title": "x", "platform": "blog"}, "constraints": {"excluded_days": ["funday"]}}`,
		"bad hour":         `{"item": {"id": "a", "title": "x", "platform": "blog"}, "constraints": {"excluded_hours": [25]}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/schedule", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	rec := do(t, s, http.MethodGet, "/api/schedule?platform=myspace", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/conflicts?from=not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescheduleAndCancel(t *testing.T) {
	s, ctl := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/schedule", launchPost).Code)

	body := `{"item": {"id": "a", "title": "Launch notes", "platform": "linkedin", "created_at": "2026-03-02T08:00:00Z"},
		"preferred_time": "2026-03-04T15:00:00Z", "force": true}`
	rec := do(t, s, http.MethodPut, "/api/schedule/a", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, ok := ctl.Get("a")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC), got.ScheduledTime)

	rec = do(t, s, http.MethodPut, "/api/schedule/missing", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/schedule/a", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, ctl.Len())

	rec = do(t, s, http.MethodDelete, "/api/schedule/a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConflictsAndAnalytics(t *testing.T) {
	s, ctl := newTestServer(t)
	when := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	platforms := []content.Platform{content.PlatformTwitter, content.PlatformLinkedIn, content.PlatformFacebook, content.PlatformBlog}
	for _, p := range platforms {
		_, err := ctl.ScheduleContent(scheduler.Request{
			Item:          content.Item{ID: string(p), Title: "Weekly update", Platform: p, CreatedAt: fixedNow},
			PreferredTime: &when,
			Force:         true,
		})
		require.NoError(t, err)
	}

	rec := do(t, s, http.MethodGet, "/api/conflicts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var conflicts []scheduler.Conflict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, scheduler.ConflictTimeOverload, conflicts[0].Type)
	assert.Len(t, conflicts[0].ContentIDs, 4)

	rec = do(t, s, http.MethodGet, "/api/conflicts?from=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var a scheduler.Analytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, 4, a.TotalScheduled)
	assert.Equal(t, 1, a.PlatformDistribution[content.PlatformTwitter])
	assert.Equal(t, 1, a.DetectedConflicts)
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/schedule", launchPost).Code)

	rec := do(t, s, http.MethodGet, "/api/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "2026-03-02T09:00:00Z", rows[1][3])

	rec = do(t, s, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, s, http.MethodGet, "/api/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizeEndpointAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/schedule", launchPost).Code)

	rec := do(t, s, http.MethodPost, "/api/optimize", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep scheduler.OptimizationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, 1, rep.Rescheduled)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "postplanner_scheduled_items 1")
	assert.Contains(t, body, `postplanner_schedule_requests_total{outcome="scheduled"} 1`)
	assert.Contains(t, body, `postplanner_optimize_runs_total{trigger="api"} 1`)
	assert.Contains(t, body, `endpoint="POST /api/schedule"`)
}

func TestReportPage(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/schedule", launchPost).Code)

	rec := do(t, s, http.MethodGet, "/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<h2>Upcoming</h2>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "Launch notes")

	rec = do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/report", rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "scheduled": 0}`, rec.Body.String())
}

func TestStartOptimizer(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.StartOptimizer("every tuesday")
	assert.Error(t, err)

	c, err := s.StartOptimizer("0 6 * * *")
	require.NoError(t, err)
	entries := c.Entries()
	require.Len(t, entries, 1)
	<-c.Stop().Done()

	entries[0].Job.Run()
	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), `postplanner_optimize_runs_total{trigger="cron"} 1`)
}
