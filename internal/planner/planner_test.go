package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/content"
)

// Monday 08:00 UTC.
var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testContext() Context {
	return Context{
		Audience: Audience{
			Timezone:      "UTC",
			WorkingHours:  HourRange{Start: 9, End: 17},
			PeakHours:     []int{9, 12, 15, 18},
			PreferredDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		},
		Strategy: Strategy{MinimumGapHours: 2},
	}
}

func newTestAlgorithm() *Algorithm {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func item(id string) QueueItem {
	return QueueItem{Item: content.Item{ID: id, Platform: content.PlatformLinkedIn}}
}

func TestRecommendWithoutHistoryUsesAudienceRules(t *testing.T) {
	a := newTestAlgorithm()

	rec, ok := a.Recommend(testContext(), item("a"))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), rec.Time)
	assert.Equal(t, 65.0, rec.Confidence)
	assert.Equal(t, 20.0, rec.PredictedEngagement)
	assert.Equal(t, 200.0, rec.PredictedReach)
	assert.InDelta(t, 1.0, rec.PredictedConversion, 1e-9)
	assert.Equal(t, content.TypeArticle, rec.ContentType)
	assert.Equal(t, []string{
		"within audience working hours",
		"audience peak hour",
		"preferred publishing day",
	}, rec.Reasoning.Factors)
	assert.Equal(t, "no historical data; audience rules only", rec.Reasoning.HistoricalBasis)

	again, ok := a.Recommend(testContext(), item("a"))
	require.True(t, ok)
	assert.Equal(t, rec, again)
}

func TestRecommendNeverBeforeStart(t *testing.T) {
	a := newTestAlgorithm()
	ctx := testContext()
	ctx.Start = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	rec, ok := a.Recommend(ctx, item("a"))
	require.True(t, ok)
	assert.False(t, rec.Time.Before(ctx.Start))
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), rec.Time)
}

func TestRecommendUsesHistory(t *testing.T) {
	a := newTestAlgorithm()
	a.AnalyzeHistoricalPatterns([]DataPoint{{
		Timestamp:   time.Date(2026, 2, 24, 14, 0, 0, 0, time.UTC), // Tuesday
		Platform:    content.PlatformTwitter,
		Engagement:  100,
		Reach:       500,
		Conversions: 2,
	}})

	rec, ok := a.Recommend(testContext(), item("a"))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), rec.Time)
	assert.Equal(t, 80.0, rec.Confidence)
	assert.Equal(t, 30.0, rec.PredictedEngagement)
	assert.Equal(t, 150.0, rec.PredictedReach)
	assert.InDelta(t, 0.6, rec.PredictedConversion, 1e-9)
	assert.Contains(t, rec.Reasoning.HistoricalBasis, "1 data points")
}

func TestPlatformHourlyOverridesGlobalBucket(t *testing.T) {
	a := newTestAlgorithm()
	a.AnalyzeHistoricalPatterns([]DataPoint{
		{Timestamp: time.Date(2026, 2, 23, 10, 0, 0, 0, time.UTC), Platform: content.PlatformLinkedIn, Engagement: 100},
		{Timestamp: time.Date(2026, 2, 23, 10, 0, 0, 0, time.UTC), Platform: content.PlatformTwitter, Engagement: 0},
	})

	a.mu.RLock()
	linked := a.scoreSlot(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), time.UTC, testContext().Audience, content.PlatformLinkedIn)
	other := a.scoreSlot(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), time.UTC, testContext().Audience, content.PlatformFacebook)
	a.mu.RUnlock()

	assert.Equal(t, 15.0, linked.result.Points("historical_hour"))
	assert.Equal(t, 7.5, other.result.Points("historical_hour"))
}

func TestRecommendRespectsDeadline(t *testing.T) {
	a := newTestAlgorithm()
	past := fixedNow.Add(-time.Hour)
	qi := item("late")
	qi.Item.Deadline = &past

	_, ok := a.Recommend(testContext(), qi)
	assert.False(t, ok)

	soon := fixedNow.Add(30 * time.Minute)
	qi.Item.Deadline = &soon
	rec, ok := a.Recommend(testContext(), qi)
	require.True(t, ok)
	assert.Equal(t, fixedNow, rec.Time)
}

func TestRecommendSkipsBusySlots(t *testing.T) {
	a := newTestAlgorithm()
	ctx := testContext()
	busy := []time.Time{time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	ctx.Skip = func(at time.Time) bool { return TooClose(at, busy, 2*time.Hour) }

	rec, ok := a.Recommend(ctx, item("a"))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), rec.Time)

	ctx.Skip = func(time.Time) bool { return true }
	_, ok = a.Recommend(ctx, item("a"))
	assert.False(t, ok)
}

func TestEvaluateScoresGivenTime(t *testing.T) {
	a := newTestAlgorithm()
	at := time.Date(2026, 3, 7, 22, 0, 0, 0, time.UTC) // Saturday night
	rec := a.Evaluate(testContext(), item("a"), at)
	assert.Equal(t, at, rec.Time)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Empty(t, rec.Reasoning.Factors)
	assert.Equal(t, 20.0, rec.PredictedEngagement)
}

func TestTooClose(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base}
	assert.True(t, TooClose(base.Add(time.Hour), times, 2*time.Hour))
	assert.False(t, TooClose(base.Add(2*time.Hour), times, 2*time.Hour))
	assert.False(t, TooClose(base, times, 0))
}

func TestGenerateRecommendationsSpacesOutQueue(t *testing.T) {
	a := newTestAlgorithm()

	recs := a.GenerateRecommendations(testContext(), []QueueItem{item("a"), item("b")})
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ContentID)

	ctx := testContext()
	ctx.Strategy.MinimumGapHours = 0
	recs = a.GenerateRecommendations(ctx, []QueueItem{item("a"), item("b")})
	assert.Len(t, recs, 2)
}

func TestSpaceOutPrefersHigherConfidence(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recs := []Recommendation{
		{ContentID: "low", Time: base, Confidence: 40},
		{ContentID: "high", Time: base.Add(time.Hour), Confidence: 90},
		{ContentID: "far", Time: base.Add(5 * time.Hour), Confidence: 50},
	}
	kept := spaceOut(recs, 2)
	require.Len(t, kept, 2)
	assert.Equal(t, "high", kept[0].ContentID)
	assert.Equal(t, "far", kept[1].ContentID)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	points := []DataPoint{
		{Timestamp: time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC), Platform: content.PlatformBlog, Engagement: 40},
		{Timestamp: time.Date(2026, 2, 23, 9, 30, 0, 0, time.UTC), Platform: content.PlatformBlog, Engagement: 60},
		{Timestamp: time.Date(2026, 2, 24, 18, 0, 0, 0, time.UTC), Platform: content.PlatformEmail, Engagement: 10},
	}
	a := newTestAlgorithm()
	a.AnalyzeHistoricalPatterns(points)
	first := a.Patterns()
	a.AnalyzeHistoricalPatterns(points)
	assert.Equal(t, first, a.Patterns())

	assert.Equal(t, 3, first.Samples)
	assert.Equal(t, 50.0, first.Hourly[9])
	assert.Equal(t, 50.0, first.Daily[time.Monday])
	assert.Equal(t, 10.0, first.PlatformHourly[content.PlatformEmail][18])
	assert.Equal(t, []int{9, 18}, first.BestHours(5))
}

func TestUpdateWithPerformanceDataAppends(t *testing.T) {
	p1 := []DataPoint{{Timestamp: time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC), Engagement: 40}}
	p2 := []DataPoint{{Timestamp: time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC), Engagement: 80}}

	a := newTestAlgorithm()
	a.AnalyzeHistoricalPatterns(p1)
	a.UpdateWithPerformanceData(p2)

	b := newTestAlgorithm()
	b.AnalyzeHistoricalPatterns(append(append([]DataPoint{}, p1...), p2...))

	assert.Equal(t, b.Patterns(), a.Patterns())
	assert.Equal(t, 60.0, a.Patterns().Hourly[9])
}

func TestHourRangeContains(t *testing.T) {
	day := HourRange{Start: 9, End: 17}
	assert.True(t, day.Contains(9))
	assert.False(t, day.Contains(17))

	night := HourRange{Start: 22, End: 6}
	assert.True(t, night.Contains(23))
	assert.True(t, night.Contains(3))
	assert.False(t, night.Contains(12))
}

func TestAudienceLocationFallback(t *testing.T) {
	loc, err := Audience{Timezone: "Not/AZone"}.Location()
	assert.Error(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = Audience{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
