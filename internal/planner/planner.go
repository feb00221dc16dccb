package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/scoring"
)

const (
	searchDays  = 7
	searchSlots = searchDays * 24

	historicalCap = 15

	defaultReachPerEngagement      = 10
	defaultConversionPerEngagement = 0.05
	maxPredictedReach              = 1_000_000
)

// Algorithm proposes publishing slots from audience rules and a rolling history.
type Algorithm struct {
	mu             sync.RWMutex
	data           []DataPoint
	hourly         map[int]float64
	daily          map[time.Weekday]float64
	platformHourly map[content.Platform]map[int]float64
	reachRatio     float64
	convRatio      float64

	loc *time.Location
	now func() time.Time
	log zerolog.Logger
}

// Option configures an Algorithm.
type Option func(*Algorithm)

// WithClock overrides the time source for the search origin.
func WithClock(now func() time.Time) Option {
	return func(a *Algorithm) { a.now = now }
}

// WithLocation sets the timezone history buckets are computed in.
func WithLocation(loc *time.Location) Option {
	return func(a *Algorithm) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Algorithm) { a.log = log }
}

// New creates an algorithm with an empty history.
func New(opts ...Option) *Algorithm {
	a := &Algorithm{loc: time.UTC, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	a.recompute()
	return a
}

// AnalyzeHistoricalPatterns replaces the dataset with points and recomputes the
// hourly, daily and per-platform averages. Calling it twice with the same
// points yields the same model.
func (a *Algorithm) AnalyzeHistoricalPatterns(points []DataPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = append([]DataPoint(nil), points...)
	a.recompute()
	a.log.Debug().Int("samples", len(a.data)).Msg("historical patterns recomputed")
}

// UpdateWithPerformanceData appends observed points and recomputes the model.
func (a *Algorithm) UpdateWithPerformanceData(points []DataPoint) {
	if len(points) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = append(a.data, points...)
	a.recompute()
	a.log.Debug().Int("added", len(points)).Int("samples", len(a.data)).Msg("performance data merged")
}

// Patterns returns a copy of the current model.
func (a *Algorithm) Patterns() Patterns {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p := Patterns{
		Samples:        len(a.data),
		Hourly:         make(map[int]float64, len(a.hourly)),
		Daily:          make(map[time.Weekday]float64, len(a.daily)),
		PlatformHourly: make(map[content.Platform]map[int]float64, len(a.platformHourly)),
	}
	for h, v := range a.hourly {
		p.Hourly[h] = v
	}
	for d, v := range a.daily {
		p.Daily[d] = v
	}
	for pl, hours := range a.platformHourly {
		cp := make(map[int]float64, len(hours))
		for h, v := range hours {
			cp[h] = v
		}
		p.PlatformHourly[pl] = cp
	}
	return p
}

// recompute must be called with mu held.
func (a *Algorithm) recompute() {
	hourSum := make(map[int]float64)
	hourN := make(map[int]int)
	daySum := make(map[time.Weekday]float64)
	dayN := make(map[time.Weekday]int)
	platSum := make(map[content.Platform]map[int]float64)
	platN := make(map[content.Platform]map[int]int)

	var engagement, reach, conversions float64
	for _, dp := range a.data {
		local := dp.Timestamp.In(a.loc)
		h, d := local.Hour(), local.Weekday()
		hourSum[h] += dp.Engagement
		hourN[h]++
		daySum[d] += dp.Engagement
		dayN[d]++
		if platSum[dp.Platform] == nil {
			platSum[dp.Platform] = make(map[int]float64)
			platN[dp.Platform] = make(map[int]int)
		}
		platSum[dp.Platform][h] += dp.Engagement
		platN[dp.Platform][h]++

		engagement += dp.Engagement
		reach += dp.Reach
		conversions += dp.Conversions
	}

	a.hourly = make(map[int]float64, len(hourSum))
	for h, s := range hourSum {
		a.hourly[h] = s / float64(hourN[h])
	}
	a.daily = make(map[time.Weekday]float64, len(daySum))
	for d, s := range daySum {
		a.daily[d] = s / float64(dayN[d])
	}
	a.platformHourly = make(map[content.Platform]map[int]float64, len(platSum))
	for p, hours := range platSum {
		avg := make(map[int]float64, len(hours))
		for h, s := range hours {
			avg[h] = s / float64(platN[p][h])
		}
		a.platformHourly[p] = avg
	}

	a.reachRatio = defaultReachPerEngagement
	a.convRatio = defaultConversionPerEngagement
	if engagement > 0 {
		a.reachRatio = reach / engagement
		a.convRatio = conversions / engagement
	}
}

// slotInput is what the slot rules see for one candidate.
type slotInput struct {
	local    time.Time
	audience Audience
	histHour float64
	histDay  float64
}

var slotRules = []scoring.Rule[slotInput]{
	{
		Name:      "working_hours",
		Rationale: "within audience working hours",
		Points: func(in slotInput) float64 {
			if in.audience.WorkingHours.Contains(in.local.Hour()) {
				return 20
			}
			return 0
		},
	},
	{
		Name:      "peak_hour",
		Rationale: "audience peak hour",
		Points: func(in slotInput) float64 {
			if in.audience.IsPeak(in.local.Hour()) {
				return 30
			}
			return 0
		},
	},
	{
		Name:      "preferred_day",
		Rationale: "preferred publishing day",
		Points: func(in slotInput) float64 {
			if in.audience.Prefers(in.local.Weekday()) {
				return 15
			}
			return 0
		},
	},
	{
		Name:   "historical_hour",
		Points: func(in slotInput) float64 { return historicalPoints(in.histHour) },
		Describe: func(in slotInput, pts float64) string {
			return fmt.Sprintf("%02d:00 averages %.1f engagement (+%.1f)", in.local.Hour(), in.histHour, pts)
		},
	},
	{
		Name:   "historical_day",
		Points: func(in slotInput) float64 { return historicalPoints(in.histDay) },
		Describe: func(in slotInput, pts float64) string {
			return fmt.Sprintf("%s averages %.1f engagement (+%.1f)", in.local.Weekday(), in.histDay, pts)
		},
	},
}

func historicalPoints(avg float64) float64 {
	return math.Max(0, math.Min(historicalCap, avg/100*historicalCap))
}

type scoredSlot struct {
	at         time.Time
	score      float64
	historical float64
	result     scoring.Result
	input      slotInput
}

// GenerateRecommendations proposes one slot per queued item, then drops
// recommendations that fall within the strategy gap of an accepted one with
// higher confidence. Items without any viable slot produce no recommendation.
func (a *Algorithm) GenerateRecommendations(ctx Context, queue []QueueItem) []Recommendation {
	var recs []Recommendation
	for _, qi := range queue {
		if rec, ok := a.Recommend(ctx, qi); ok {
			recs = append(recs, rec)
		}
	}
	return spaceOut(recs, ctx.Strategy.MinimumGapHours)
}

// Recommend searches the next 168 hourly slots for the best one for a single item.
func (a *Algorithm) Recommend(ctx Context, qi QueueItem) (Recommendation, bool) {
	audLoc, err := ctx.Audience.Location()
	if err != nil {
		a.log.Warn().Err(err).Msg("falling back to UTC for audience")
	}

	origin := ctx.Start
	if origin.IsZero() {
		origin = a.now()
	}
	first := origin.Truncate(time.Hour)
	if first.Before(origin) {
		first = first.Add(time.Hour)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var best *scoredSlot
	for i := 0; i < searchSlots; i++ {
		at := first.Add(time.Duration(i) * time.Hour)
		if qi.Item.Deadline != nil && at.After(*qi.Item.Deadline) {
			break
		}
		if ctx.Skip != nil && ctx.Skip(at) {
			continue
		}
		s := a.scoreSlot(at, audLoc, ctx.Audience, qi.Item.Platform)
		if best == nil || s.score > best.score {
			best = &s
		}
	}
	if best == nil {
		return Recommendation{}, false
	}

	return a.recommendation(*best, ctx.Audience, audLoc, qi), true
}

// Evaluate scores a caller-chosen time for an item without searching.
func (a *Algorithm) Evaluate(ctx Context, qi QueueItem, at time.Time) Recommendation {
	audLoc, err := ctx.Audience.Location()
	if err != nil {
		a.log.Warn().Err(err).Msg("falling back to UTC for audience")
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recommendation(a.scoreSlot(at, audLoc, ctx.Audience, qi.Item.Platform), ctx.Audience, audLoc, qi)
}

// recommendation must be called with mu held for reading.
func (a *Algorithm) recommendation(best scoredSlot, aud Audience, audLoc *time.Location, qi QueueItem) Recommendation {
	typ := qi.ContentType
	if typ == "" {
		typ = qi.Item.ContentType
	}
	if typ == "" {
		typ = content.TypeArticle
	}

	engagement, reach, conversion := a.predict(best.historical)
	return Recommendation{
		ContentID:           qi.Item.ID,
		Time:                best.at.UTC(),
		Platform:            qi.Item.Platform,
		ContentType:         typ,
		Confidence:          best.score,
		PredictedEngagement: engagement,
		PredictedReach:      reach,
		PredictedConversion: conversion,
		Reasoning: Reasoning{
			Factors:         best.result.Rationales(),
			HistoricalBasis: a.historicalBasis(best.input),
			AudienceInsight: audienceInsight(aud, audLoc),
		},
	}
}

// scoreSlot must be called with mu held for reading.
func (a *Algorithm) scoreSlot(at time.Time, audLoc *time.Location, aud Audience, platform content.Platform) scoredSlot {
	hist := at.In(a.loc)
	histHour, ok := a.platformHourly[platform][hist.Hour()]
	if !ok {
		histHour = a.hourly[hist.Hour()]
	}
	in := slotInput{
		local:    at.In(audLoc),
		audience: aud,
		histHour: histHour,
		histDay:  a.daily[hist.Weekday()],
	}
	res := scoring.Evaluate(slotRules, in)
	return scoredSlot{
		at:         at,
		score:      content.Clamp(res.Total),
		historical: res.Points("historical_hour") + res.Points("historical_day"),
		result:     res,
		input:      in,
	}
}

// predict is deterministic: engagement follows the historical contribution and
// reach/conversion scale it by the observed dataset ratios, or fixed defaults
// when there is no history.
func (a *Algorithm) predict(historical float64) (engagement, reach, conversion float64) {
	engagement = math.Max(20, historical*2)
	reach = math.Min(maxPredictedReach, math.Round(engagement*a.reachRatio))
	conversion = math.Min(engagement, engagement*a.convRatio)
	return engagement, reach, conversion
}

func (a *Algorithm) historicalBasis(in slotInput) string {
	if len(a.data) == 0 {
		return "no historical data; audience rules only"
	}
	return fmt.Sprintf("%d data points; hour average %.1f, %s average %.1f",
		len(a.data), in.histHour, in.local.Weekday(), in.histDay)
}

func audienceInsight(aud Audience, loc *time.Location) string {
	peaks := make([]string, len(aud.PeakHours))
	for i, h := range aud.PeakHours {
		peaks[i] = fmt.Sprintf("%02d:00", h)
	}
	insight := fmt.Sprintf("audience in %s works %02d:00-%02d:00", loc, aud.WorkingHours.Start, aud.WorkingHours.End)
	if len(peaks) > 0 {
		insight += ", peaks at " + strings.Join(peaks, ", ")
	}
	return insight
}

// TooClose reports whether at lies within gap of any of the given times.
func TooClose(at time.Time, times []time.Time, gap time.Duration) bool {
	if gap <= 0 {
		return false
	}
	for _, t := range times {
		if absDuration(at.Sub(t)) < gap {
			return true
		}
	}
	return false
}

// spaceOut keeps recommendations greedily by descending confidence, dropping any
// within gapHours of one already kept.
func spaceOut(recs []Recommendation, gapHours int) []Recommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].Time.Before(recs[j].Time)
	})
	if gapHours <= 0 {
		return recs
	}

	gap := time.Duration(gapHours) * time.Hour
	var kept []Recommendation
	for _, r := range recs {
		clash := false
		for _, k := range kept {
			if absDuration(r.Time.Sub(k.Time)) < gap {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, r)
		}
	}
	return kept
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
