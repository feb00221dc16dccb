// Package scheduler is the master control of the content scheduler. It merges
// classification, slot recommendations and validation into committed results,
// and owns the in-memory schedule store.
package scheduler

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
)

// Classifier classifies content items.
type Classifier interface {
	Classify(item content.Item) classify.Classification
}

// Recommender proposes publishing slots.
type Recommender interface {
	GenerateRecommendations(ctx planner.Context, queue []planner.QueueItem) []planner.Recommendation
	Evaluate(ctx planner.Context, qi planner.QueueItem, at time.Time) planner.Recommendation
}

// Persister mirrors committed changes to durable storage.
type Persister interface {
	SaveResult(r Result) error
	DeleteResult(contentID string) error
	ClearResults() error
}

// Controller orchestrates classifier, algorithm and validator over the schedule store.
type Controller struct {
	// mu serializes validate-then-commit against the store.
	mu    sync.RWMutex
	store map[string]Result

	optimizeMu sync.Mutex

	cfg         Config
	loc         *time.Location
	classifier  Classifier
	recommender Recommender
	persister   Persister
	now         func() time.Time
	log         zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithPersister mirrors every commit and removal to p.
func WithPersister(p Persister) Option {
	return func(c *Controller) { c.persister = p }
}

// WithClock overrides the request-time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New creates a controller with an empty schedule store.
func New(cfg Config, classifier Classifier, recommender Recommender, opts ...Option) *Controller {
	c := &Controller{
		store:       make(map[string]Result),
		cfg:         cfg,
		classifier:  classifier,
		recommender: recommender,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	loc, err := cfg.Audience.Location()
	if err != nil {
		c.log.Warn().Err(err).Msg("using UTC for schedule analysis")
	}
	c.loc = loc
	return c
}

// Config returns the controller defaults.
func (c *Controller) Config() Config {
	return c.cfg
}

// Location is the audience timezone used for day and hour bucketing.
func (c *Controller) Location() *time.Location {
	return c.loc
}

// ScheduleContent classifies, plans, validates and commits one item. Validation
// conflicts do not block the commit; they are attached to the result. Scheduling
// an ID that is already in the store replaces its result.
func (c *Controller) ScheduleContent(req Request) (Result, error) {
	item := req.Item.Normalized()
	id := item.ID
	if id == "" {
		return Result{}, failed("", fmt.Errorf("%w: missing content id", ErrInvalidRequest))
	}
	if _, err := content.ParsePlatform(string(item.Platform)); err != nil {
		return Result{}, failed(id, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	cl := c.classifier.Classify(item)
	pctx := c.mergeContext(req)
	loc, err := pctx.Audience.Location()
	if err != nil {
		loc = c.loc
	}
	now := c.now()
	qi := planner.QueueItem{Item: item, ContentType: cl.ContentType}

	var rec planner.Recommendation
	if req.Force && req.PreferredTime != nil {
		rec = c.recommender.Evaluate(pctx, qi, req.PreferredTime.UTC())
	} else {
		pctx.Start = now
		if req.PreferredTime != nil && req.PreferredTime.After(now) {
			pctx.Start = *req.PreferredTime
		}
		taken := c.platformTimes(item.Platform, id)
		gap := req.Constraints.gap()
		pctx.Skip = func(at time.Time) bool {
			return planner.TooClose(at, taken, gap) || c.excluded(req.Constraints, at, loc)
		}
		recs := c.recommender.GenerateRecommendations(pctx, []planner.QueueItem{qi})
		if len(recs) == 0 {
			c.log.Warn().Str("content_id", id).Str("platform", string(item.Platform)).Msg("no viable slot")
			return Result{}, failed(id, ErrNoViableSlot)
		}
		rec = recs[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conflicts := c.validateLocked(req.Constraints, item, rec.Time, loc)
	res := c.assemble(req, pctx, loc, item, cl, rec, conflicts, now)
	if err := c.commitLocked(res); err != nil {
		return Result{}, failed(id, err)
	}

	ev := c.log.Info().Str("content_id", id).Str("platform", string(item.Platform)).
		Time("scheduled_time", res.ScheduledTime).Float64("confidence", res.Confidence)
	if len(conflicts) > 0 {
		ev = ev.Int("conflicts", len(conflicts))
	}
	ev.Msg("content scheduled")
	return res, nil
}

type rankedRequest struct {
	req   Request
	score float64
}

// ScheduleMultipleContent schedules requests in descending order of
// priority weight + 0.3*priorityScore + 0.4*urgencyScore. A failing item is
// logged and skipped; the rest of the batch proceeds.
func (c *Controller) ScheduleMultipleContent(reqs []Request) ([]Result, []error) {
	ranked := make([]rankedRequest, len(reqs))
	for i, req := range reqs {
		cl := c.classifier.Classify(req.Item)
		ranked[i] = rankedRequest{
			req:   req,
			score: req.Priority.Weight() + 0.3*cl.PriorityScore + 0.4*cl.UrgencyScore,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var (
		scheduled []Result
		failures  []error
	)
	for _, r := range ranked {
		res, err := c.ScheduleContent(r.req)
		if err != nil {
			c.log.Warn().Err(err).Str("content_id", r.req.Item.ID).Msg("skipping item in batch")
			failures = append(failures, err)
			continue
		}
		scheduled = append(scheduled, res)
	}
	c.log.Info().Int("scheduled", len(scheduled)).Int("failed", len(failures)).Msg("batch scheduling complete")
	return scheduled, failures
}

// RescheduleContent re-plans an existing item. The new result is built first and
// swapped in only on success, so a failed reschedule leaves the old result active.
// An empty req.Item reuses the stored item.
func (c *Controller) RescheduleContent(id string, req Request) (Result, error) {
	old, ok := c.Get(id)
	if !ok {
		return Result{}, failed(id, ErrNotFound)
	}
	if req.Item.ID == "" {
		req.Item = old.Item
	} else if req.Item.ID != id {
		return Result{}, failed(id, fmt.Errorf("%w: item id %q does not match", ErrInvalidRequest, req.Item.ID))
	}
	if req.Priority == "" {
		req.Priority = old.Priority
	}
	return c.ScheduleContent(req)
}

// CancelContent removes an item from the store.
func (c *Controller) CancelContent(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.store[id]
	if !ok {
		return failed(id, ErrNotFound)
	}
	delete(c.store, id)
	if c.persister != nil {
		if err := c.persister.DeleteResult(id); err != nil {
			c.store[id] = old
			return fmt.Errorf("removing %s: %w", id, err)
		}
	}
	c.log.Info().Str("content_id", id).Msg("content cancelled")
	return nil
}

// Clear empties the store.
func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.persister != nil {
		if err := c.persister.ClearResults(); err != nil {
			return fmt.Errorf("clearing schedule: %w", err)
		}
	}
	c.store = make(map[string]Result)
	return nil
}

// Restore loads previously committed results without validating or persisting them.
func (c *Controller) Restore(results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range results {
		if r.ID() != "" {
			c.store[r.ID()] = r
		}
	}
}

// Get returns the result for id.
func (c *Controller) Get(id string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.store[id]
	return r, ok
}

// Len returns the number of scheduled items.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// GetScheduledContent returns results matching f in ascending scheduled time.
func (c *Controller) GetScheduledContent(f Filter) []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Result, 0, len(c.store))
	for _, r := range c.store {
		if f.Platform != "" && r.Item.Platform != f.Platform {
			continue
		}
		if !f.From.IsZero() && r.ScheduledTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.ScheduledTime.After(f.To) {
			continue
		}
		out = append(out, r)
	}
	sortResults(out)
	return out
}

func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].ScheduledTime.Equal(rs[j].ScheduledTime) {
			return rs[i].ScheduledTime.Before(rs[j].ScheduledTime)
		}
		return rs[i].ID() < rs[j].ID()
	})
}

// commitLocked stores res and mirrors it to the persister, rolling back on failure.
func (c *Controller) commitLocked(res Result) error {
	id := res.ID()
	prev, had := c.store[id]
	c.store[id] = res
	if c.persister == nil {
		return nil
	}
	if err := c.persister.SaveResult(res); err != nil {
		if had {
			c.store[id] = prev
		} else {
			delete(c.store, id)
		}
		return fmt.Errorf("persisting result: %w", err)
	}
	return nil
}

func (c *Controller) platformTimes(p content.Platform, exclude string) []time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var times []time.Time
	for id, r := range c.store {
		if id != exclude && r.Item.Platform == p {
			times = append(times, r.ScheduledTime)
		}
	}
	return times
}

func (c *Controller) excluded(cons Constraints, at time.Time, loc *time.Location) bool {
	local := at.In(loc)
	return slices.Contains(cons.ExcludedDays, local.Weekday()) || slices.Contains(cons.ExcludedHours, local.Hour())
}

// mergeContext overlays request-specific fields on the configured defaults.
func (c *Controller) mergeContext(req Request) planner.Context {
	ctx := planner.Context{Audience: c.cfg.Audience, Strategy: c.cfg.Strategy, Goals: c.cfg.Goals}

	if a := req.Audience; a != nil {
		if a.Timezone != "" {
			ctx.Audience.Timezone = a.Timezone
		}
		if a.WorkingHours != (planner.HourRange{}) {
			ctx.Audience.WorkingHours = a.WorkingHours
		}
		if len(a.PeakHours) > 0 {
			ctx.Audience.PeakHours = a.PeakHours
		}
		if len(a.PreferredDays) > 0 {
			ctx.Audience.PreferredDays = a.PreferredDays
		}
	}
	if s := req.Strategy; s != nil {
		if s.PostsPerWeek > 0 {
			ctx.Strategy.PostsPerWeek = s.PostsPerWeek
		}
		if s.MinimumGapHours > 0 {
			ctx.Strategy.MinimumGapHours = s.MinimumGapHours
		}
		if len(s.ContentMix) > 0 {
			ctx.Strategy.ContentMix = s.ContentMix
		}
	}
	if g := req.Goals; g != nil {
		if g.Priority != "" {
			ctx.Goals.Priority = g.Priority
		}
		if g.TargetEngagement > 0 {
			ctx.Goals.TargetEngagement = g.TargetEngagement
		}
		if g.TargetReach > 0 {
			ctx.Goals.TargetReach = g.TargetReach
		}
		if g.TargetConversion > 0 {
			ctx.Goals.TargetConversion = g.TargetConversion
		}
	}
	if req.Constraints.MinimumGapBetweenPosts > 0 {
		ctx.Strategy.MinimumGapHours = req.Constraints.MinimumGapBetweenPosts
	}
	return ctx
}

func (c *Controller) assemble(req Request, pctx planner.Context, loc *time.Location, item content.Item, cl classify.Classification, rec planner.Recommendation, conflicts []Conflict, now time.Time) Result {
	confidence := rec.Confidence
	if len(conflicts) > 0 {
		confidence *= 0.8
	}
	if top, ok := cl.TopCategory(); ok && top.Confidence > 80 {
		confidence *= 1.1
	}

	return Result{
		Item:              item,
		Classification:    cl,
		Recommendation:    rec,
		ScheduledTime:     rec.Time,
		Confidence:        content.Clamp(confidence),
		Reasoning:         reasoning(loc, item, cl, rec),
		OptimizationNotes: c.notesLocked(pctx, loc, item, cl, rec, conflicts),
		Conflicts:         conflicts,
		Priority:          req.Priority,
		Constraints:       req.Constraints,
		CommittedAt:       now.UTC(),
	}
}

func reasoning(loc *time.Location, item content.Item, cl classify.Classification, rec planner.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scheduled on %s for %s", item.Platform, rec.Time.In(loc).Format("Mon Jan 02 15:04 MST"))
	if top, ok := cl.TopCategory(); ok {
		fmt.Fprintf(&b, " as %s (%.0f%% match)", top.Name, top.Confidence)
	}
	b.WriteString(".")
	if len(rec.Reasoning.Factors) > 0 {
		fmt.Fprintf(&b, " Factors: %s.", strings.Join(rec.Reasoning.Factors, "; "))
	}
	if rec.Reasoning.HistoricalBasis != "" {
		fmt.Fprintf(&b, " History: %s.", rec.Reasoning.HistoricalBasis)
	}
	return b.String()
}

// notesLocked builds the optimization notes for a result about to be committed.
// Must be called with mu held.
func (c *Controller) notesLocked(pctx planner.Context, loc *time.Location, item content.Item, cl classify.Classification, rec planner.Recommendation, conflicts []Conflict) []string {
	var notes []string
	if len(conflicts) > 0 {
		notes = append(notes, fmt.Sprintf("Resolve %d conflict(s) before publishing", len(conflicts)))
	}
	hour := rec.Time.In(loc).Hour()
	limits := c.cfg.limits(item.Platform)
	if len(limits.OptimalTimes) > 0 && !slices.Contains(limits.OptimalTimes, hour) {
		notes = append(notes, fmt.Sprintf("%s usually performs best at %s", item.Platform, clockHours(limits.OptimalTimes)))
	}
	if top, ok := cl.TopCategory(); ok && len(top.OptimalHours) > 0 && !slices.Contains(top.OptimalHours, hour) {
		notes = append(notes, fmt.Sprintf("%s content tends to land best at %s", top.Name, clockHours(top.OptimalHours)))
	}
	if rec.Confidence < 50 {
		notes = append(notes, "Low-confidence slot; more performance history would sharpen the estimate")
	}
	notes = append(notes, goalNotes(pctx.Goals, rec)...)
	notes = append(notes, c.strategyNotesLocked(pctx.Strategy, loc, item.ID, cl.ContentType, rec.Time)...)
	notes = append(notes, cl.Suggestions...)
	return notes
}

func goalNotes(g planner.Goals, rec planner.Recommendation) []string {
	var notes []string
	below := func(metric string, predicted, target float64) {
		if target > 0 && predicted < target {
			notes = append(notes, fmt.Sprintf("Predicted %s %.1f is below the %.1f target", metric, predicted, target))
		}
	}
	below("engagement", rec.PredictedEngagement, g.TargetEngagement)
	below("reach", rec.PredictedReach, g.TargetReach)
	below("conversion", rec.PredictedConversion, g.TargetConversion)
	return notes
}

// strategyNotesLocked compares the store, with the new item included, against
// the weekly volume and content mix targets. Weeks start on Monday in loc.
func (c *Controller) strategyNotesLocked(s planner.Strategy, loc *time.Location, self string, typ content.ContentType, at time.Time) []string {
	var notes []string
	weekStart := startOfWeek(at.In(loc))
	weekEnd := weekStart.AddDate(0, 0, 7)

	inWeek := 1
	total, sameType := 1, 1
	for id, r := range c.store {
		if id == self {
			continue
		}
		total++
		if r.Classification.ContentType == typ {
			sameType++
		}
		if t := r.ScheduledTime.In(loc); !t.Before(weekStart) && t.Before(weekEnd) {
			inWeek++
		}
	}

	if s.PostsPerWeek > 0 && inWeek > s.PostsPerWeek {
		notes = append(notes, fmt.Sprintf("Week of %s would carry %d posts; the strategy targets %d",
			weekStart.Format("Jan 02"), inWeek, s.PostsPerWeek))
	}
	if len(s.ContentMix) > 0 {
		target, ok := s.ContentMix[typ]
		share := float64(sameType) / float64(total)
		switch {
		case !ok:
			notes = append(notes, fmt.Sprintf("%s is not part of the configured content mix", typ))
		case share > target:
			notes = append(notes, fmt.Sprintf("%s makes up %.0f%% of the schedule; the content mix targets %.0f%%",
				typ, share*100, target*100))
		}
	}
	return notes
}

func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

func clockHours(hours []int) string {
	times := make([]string, len(hours))
	for i, h := range hours {
		times[i] = fmt.Sprintf("%02d:00", h)
	}
	return strings.Join(times, ", ")
}
