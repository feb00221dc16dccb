// Package pipeline runs a full planning pass: collect, fetch, learn from
// history, prioritise, schedule and scan for conflicts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/collect"
	"github.com/TobiSchelling/postplanner/internal/database"
	"github.com/TobiSchelling/postplanner/internal/fetch"
	"github.com/TobiSchelling/postplanner/internal/planner"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID string
	Steps []StepResult
	Run   database.PlanRun
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the six planning steps.
type Pipeline struct {
	db         *database.DB
	controller *scheduler.Controller
	classifier *classify.Classifier
	algorithm  *planner.Algorithm
	feeds      []collect.FeedConfig
	daysBack   int
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFeeds enables the collect and fetch steps.
func WithFeeds(feeds []collect.FeedConfig, daysBack int) Option {
	return func(p *Pipeline) {
		p.feeds = feeds
		p.daysBack = daysBack
	}
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New creates a new pipeline. The controller should persist to db.
func New(db *database.DB, controller *scheduler.Controller, classifier *classify.Classifier, algorithm *planner.Algorithm, opts ...Option) *Pipeline {
	p := &Pipeline{
		db:         db,
		controller: controller,
		classifier: classifier,
		algorithm:  algorithm,
		daysBack:   7,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full pipeline and records it as a plan run.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{RunID: uuid.NewString()}
	r.Run = database.PlanRun{ID: r.RunID, StartedAt: p.now().UTC()}

	step := p.runCollect(ctx, &r.Run)
	r.Steps = append(r.Steps, step)

	step = p.runFetch(ctx)
	r.Steps = append(r.Steps, step)

	step = p.runHistory()
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	ranked, step := p.runPrioritize(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = p.runSchedule(ranked, &r.Run)
	r.Steps = append(r.Steps, step)

	step = p.runConflicts(&r.Run)
	r.Steps = append(r.Steps, step)

	if err := p.db.InsertRun(r.Run); err != nil {
		p.log.Error().Err(err).Str("run_id", r.RunID).Msg("failed to record run")
	}
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] would read %d feeds", len(p.feeds)),
	})

	pending, queueErr := p.db.GetQueuedItems(database.StatusPending)
	if queueErr != nil {
		queueErr = fmt.Errorf("loading queue: %w", queueErr)
	}
	var missing int
	for _, it := range pending {
		if it.SourceURL != "" && it.Body == "" {
			missing++
		}
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d items have no body", missing),
		Err:     queueErr,
	})

	points, err := p.db.CountDataPoints()
	if err != nil {
		err = fmt.Errorf("counting history: %w", err)
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "History",
		Summary: fmt.Sprintf("[dry-run] %d performance data points available", points),
		Err:     err,
	})

	r.Steps = append(r.Steps, StepResult{
		Name:    "Prioritize",
		Summary: fmt.Sprintf("[dry-run] %d pending items to classify", len(pending)),
		Err:     queueErr,
	})

	r.Steps = append(r.Steps, StepResult{
		Name:    "Schedule",
		Summary: fmt.Sprintf("[dry-run] %d items already scheduled", p.controller.Len()),
	})
	return r
}

func (p *Pipeline) runCollect(ctx context.Context, run *database.PlanRun) StepResult {
	if len(p.feeds) == 0 {
		return StepResult{Name: "Collect", Summary: "No feeds configured"}
	}
	p.log.Info().Msg("step 1/6: collecting feed entries")
	collector := collect.NewCollector(p.feeds, p.db, p.daysBack, p.log)
	result := collector.Collect(ctx)
	run.Collected = result.NewItems
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Queued %d new items (%d found, %d duplicates)", result.NewItems, result.TotalFound, result.Duplicates),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	p.log.Info().Msg("step 2/6: fetching item bodies")
	fetcher := fetch.NewContentFetcher(p.db, 15*time.Second, p.log)
	result, err := fetcher.FetchMissingContent(ctx)
	if err != nil {
		return StepResult{Name: "Fetch", Err: err}
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d bodies, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runHistory() StepResult {
	p.log.Info().Msg("step 3/6: loading performance history")
	points, err := p.db.GetDataPoints(time.Time{})
	if err != nil {
		return StepResult{Name: "History", Err: fmt.Errorf("loading history: %w", err)}
	}
	p.algorithm.AnalyzeHistoricalPatterns(points)
	if len(points) == 0 {
		return StepResult{Name: "History", Summary: "No history; planning from audience rules"}
	}
	return StepResult{
		Name:    "History",
		Summary: fmt.Sprintf("Learned from %d data points", len(points)),
	}
}

func (p *Pipeline) runPrioritize(ctx context.Context) ([]classify.Prioritized, StepResult) {
	p.log.Info().Msg("step 4/6: prioritising pending items")
	items, err := p.db.GetQueuedItems(database.StatusPending)
	if err != nil {
		return nil, StepResult{Name: "Prioritize", Err: fmt.Errorf("loading queue: %w", err)}
	}
	ranked, err := p.classifier.Prioritize(ctx, items)
	if err != nil {
		return nil, StepResult{Name: "Prioritize", Err: err}
	}
	summary := fmt.Sprintf("Ranked %d pending items", len(ranked))
	if len(ranked) > 0 {
		summary += fmt.Sprintf("; top: %q (%.0f)", ranked[0].Item.Title, ranked[0].FinalPriority)
	}
	return ranked, StepResult{Name: "Prioritize", Summary: summary}
}

func (p *Pipeline) runSchedule(ranked []classify.Prioritized, run *database.PlanRun) StepResult {
	p.log.Info().Msg("step 5/6: scheduling")
	if len(ranked) == 0 {
		return StepResult{Name: "Schedule", Summary: "Nothing to schedule"}
	}

	reqs := make([]scheduler.Request, len(ranked))
	for i, pr := range ranked {
		reqs[i] = scheduler.Request{Item: pr.Item, Priority: scheduler.InferPriority(pr.Classification)}
	}
	results, failures := p.controller.ScheduleMultipleContent(reqs)

	var errs []error
	for _, res := range results {
		if err := p.db.SetQueueStatus(res.ID(), database.StatusScheduled); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ferr := range failures {
		var sf *scheduler.SchedulingFailedError
		if errors.As(ferr, &sf) && sf.ContentID != "" {
			if err := p.db.SetQueueStatus(sf.ContentID, database.StatusFailed); err != nil {
				errs = append(errs, err)
			}
		}
	}
	run.Scheduled = len(results)
	run.Failed = len(failures)

	return StepResult{
		Name:    "Schedule",
		Summary: fmt.Sprintf("Scheduled %d items, %d without a viable slot", len(results), len(failures)),
		Err:     errors.Join(errs...),
	}
}

func (p *Pipeline) runConflicts(run *database.PlanRun) StepResult {
	p.log.Info().Msg("step 6/6: scanning for conflicts")
	conflicts := p.controller.DetectConflicts(nil)
	run.Conflicts = len(conflicts)
	if len(conflicts) == 0 {
		return StepResult{Name: "Conflicts", Summary: "No schedule-wide conflicts"}
	}
	return StepResult{
		Name:    "Conflicts",
		Summary: fmt.Sprintf("%d schedule-wide conflicts; run `postplanner conflicts` for details", len(conflicts)),
	}
}
