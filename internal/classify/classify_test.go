package classify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/content"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestClassifier() *Classifier {
	return New(content.NewCatalog(content.DefaultCategories()), WithClock(func() time.Time { return fixedNow }))
}

func TestClassifyAIMarketingGuide(t *testing.T) {
	c := newTestClassifier()
	cl := c.Classify(content.Item{
		ID:           "ai-guide",
		Title:        "AI marketing guide",
		Platform:     content.PlatformLinkedIn,
		BusinessGoal: content.GoalLeadGeneration,
	})

	require.NotEmpty(t, cl.Categories)
	assert.LessOrEqual(t, len(cl.Categories), 3)

	found := false
	for _, m := range cl.Categories {
		if m.CategoryID == "tech-innovation" || m.CategoryID == "marketing-tips" {
			assert.Greater(t, m.Confidence, 30.0)
			found = true
		}
	}
	assert.True(t, found, "expected tech-innovation or marketing-tips in %+v", cl.Categories)

	top, ok := cl.TopCategory()
	require.True(t, ok)
	assert.Equal(t, "marketing-tips", top.CategoryID)
	assert.InDelta(t, 55.0, top.Confidence, 1e-9)
	assert.Contains(t, top.Reasoning, "matched 2/8 keywords")
	assert.Contains(t, top.Reasoning, "aligned with lead_generation")

	assert.Equal(t, GoalAlignment{Primary: content.GoalLeadGeneration, Confidence: 90}, cl.GoalAlignment)
	assert.Contains(t, cl.SuggestedTags, "marketing-tips")
}

func TestCategoriesAreRankedDescending(t *testing.T) {
	c := newTestClassifier()
	cl := c.Classify(content.Item{
		Title:        "Growth strategy for software leadership",
		Body:         "Business revenue and ROI through automation and AI",
		Platform:     content.PlatformLinkedIn,
		BusinessGoal: content.GoalLeadGeneration,
	})
	require.NotEmpty(t, cl.Categories)
	for i := 1; i < len(cl.Categories); i++ {
		assert.GreaterOrEqual(t, cl.Categories[i-1].Confidence, cl.Categories[i].Confidence)
	}
	assert.Equal(t, "business-strategy", cl.Categories[0].CategoryID)
}

func TestKeywordsMatchWholeWords(t *testing.T) {
	c := newTestClassifier()
	cl := c.Classify(content.Item{
		Title:        "Email campaign recap",
		Platform:     content.PlatformLinkedIn,
		BusinessGoal: content.GoalBrandAwareness,
	})

	byID := make(map[string]CategoryMatch)
	for _, m := range cl.Categories {
		byID[m.CategoryID] = m
	}
	require.Contains(t, byID, "tech-innovation")
	assert.InDelta(t, 45.0, byID["tech-innovation"].Confidence, 1e-9)
	assert.InDelta(t, 50.0, byID["marketing-tips"].Confidence, 1e-9)

	for _, tc := range []struct {
		text, kw string
		want     bool
	}{
		{"email campaign", "ai", false},
		{"ai marketing guide", "ai", true},
		{"built with ai.", "ai", true},
		{"(ai)", "ai", true},
		{"aim high", "ai", false},
		{"social media tips", "social media", true},
		{"antisocial media", "social media", false},
		{"", "ai", false},
	} {
		assert.Equal(t, tc.want, containsWord(tc.text, tc.kw), "%q in %q", tc.kw, tc.text)
	}
}

func TestEqualConfidenceRanksByPriorityWeight(t *testing.T) {
	c := newTestClassifier()
	cl := c.Classify(content.Item{
		Title:        "Quarterly recap",
		Platform:     content.PlatformLinkedIn,
		BusinessGoal: content.GoalLeadGeneration,
	})

	require.Len(t, cl.Categories, 3)
	ids := make([]string, len(cl.Categories))
	for i, m := range cl.Categories {
		assert.InDelta(t, 45.0, m.Confidence, 1e-9)
		ids[i] = m.CategoryID
	}
	assert.Equal(t, []string{"business-strategy", "tech-innovation", "marketing-tips"}, ids)
	assert.Equal(t, []int{8, 9, 12, 17}, cl.Categories[0].OptimalHours)
}

func TestClassifyDegradesToEmptyCategories(t *testing.T) {
	c := newTestClassifier()
	cl := c.Classify(content.Item{Title: "Hello", Body: "nothing relevant", Platform: content.PlatformEmail})
	assert.True(t, cl.Degraded())
	assert.Empty(t, cl.Categories)
	assert.Contains(t, cl.Suggestions, "Add topic keywords so the item matches a catalog category")
}

func TestScoresStayWithinBounds(t *testing.T) {
	c := newTestClassifier()
	soon := fixedNow.Add(2 * time.Hour)
	items := []content.Item{
		{Title: strings.Repeat("ai marketing strategy growth ", 20), Platform: content.PlatformEmail,
			BusinessGoal: content.GoalConversion, Urgency: content.UrgencyUrgent, Deadline: &soon},
		{Title: "", Platform: content.PlatformTwitter},
		{Title: "buy now", Body: "photo", Platform: content.PlatformInstagram, Urgency: content.UrgencyLow},
	}
	for _, it := range items {
		cl := c.Classify(it)
		assert.GreaterOrEqual(t, cl.UrgencyScore, 0.0)
		assert.LessOrEqual(t, cl.UrgencyScore, 100.0)
		assert.GreaterOrEqual(t, cl.PriorityScore, 0.0)
		assert.LessOrEqual(t, cl.PriorityScore, 100.0)
		assert.GreaterOrEqual(t, cl.GoalAlignment.Confidence, 0.0)
		assert.LessOrEqual(t, cl.GoalAlignment.Confidence, 100.0)
		for _, m := range cl.Categories {
			assert.Greater(t, m.Confidence, 30.0)
			assert.LessOrEqual(t, m.Confidence, 100.0)
		}
	}
}

func TestDetectContentType(t *testing.T) {
	cases := []struct {
		name string
		item content.Item
		want content.ContentType
	}{
		{"explicit wins", content.Item{ContentType: content.TypePoll, Body: "watch this video"}, content.TypePoll},
		{"video", content.Item{Body: "Watch our launch", Platform: content.PlatformBlog}, content.TypeVideo},
		{"image", content.Item{Body: "A photo from the event"}, content.TypeImage},
		{"poll", content.Item{Body: "Cast your vote"}, content.TypePoll},
		{"newsletter", content.Item{Body: "Monthly digest", Platform: content.PlatformEmail}, content.TypeNewsletter},
		{"story", content.Item{Body: "Quick update", Platform: content.PlatformInstagram}, content.TypeStory},
		{"long instagram", content.Item{Body: strings.Repeat("x", 300), Platform: content.PlatformInstagram}, content.TypeArticle},
		{"default", content.Item{Body: "Plain text", Platform: content.PlatformLinkedIn}, content.TypeArticle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectContentType(tc.item))
		})
	}
}

func TestUrgencyScore(t *testing.T) {
	at := func(d time.Duration) *time.Time { v := fixedNow.Add(d); return &v }

	assert.Equal(t, 0.0, UrgencyScore(content.Item{}, fixedNow))
	assert.Equal(t, 40.0, UrgencyScore(content.Item{Urgency: content.UrgencyUrgent}, fixedNow))
	assert.Equal(t, 70.0, UrgencyScore(content.Item{Urgency: content.UrgencyUrgent, Deadline: at(3 * time.Hour)}, fixedNow))
	assert.Equal(t, 40.0, UrgencyScore(content.Item{Urgency: content.UrgencyMedium, Deadline: at(48 * time.Hour)}, fixedNow))
	assert.Equal(t, 20.0, UrgencyScore(content.Item{Urgency: content.UrgencyLow, Deadline: at(100 * time.Hour)}, fixedNow))
	assert.Equal(t, 30.0, UrgencyScore(content.Item{Urgency: content.UrgencyHigh, Deadline: at(400 * time.Hour)}, fixedNow))
}

func TestPriorityScore(t *testing.T) {
	assert.Equal(t, 60.0, PriorityScore(content.Item{BusinessGoal: content.GoalConversion, Platform: content.PlatformEmail}))
	assert.Equal(t, 30.0, PriorityScore(content.Item{BusinessGoal: content.GoalBrandAwareness, Platform: content.PlatformTwitter}))
	assert.Equal(t, 18.0, PriorityScore(content.Item{Platform: content.PlatformInstagram}))
}

func TestAlignGoalHeuristics(t *testing.T) {
	assert.Equal(t, content.GoalConversion, AlignGoal(content.Item{Title: "Spring sale starts today"}).Primary)
	assert.Equal(t, 70.0, AlignGoal(content.Item{Body: "Register for the webinar"}).Confidence)
	assert.Equal(t, content.GoalEngagement, AlignGoal(content.Item{Body: "Share your thoughts"}).Primary)
	assert.Equal(t, GoalAlignment{Primary: content.GoalBrandAwareness, Confidence: 50}, AlignGoal(content.Item{Body: "Our story"}))
}

func TestPrioritizeOrdersByFinalPriority(t *testing.T) {
	c := newTestClassifier()
	soon := fixedNow.Add(6 * time.Hour)
	items := []content.Item{
		{ID: "low", Platform: content.PlatformTwitter, Urgency: content.UrgencyLow},
		{ID: "top", Platform: content.PlatformEmail, BusinessGoal: content.GoalConversion, Urgency: content.UrgencyUrgent, Deadline: &soon},
		{ID: "mid", Platform: content.PlatformLinkedIn, BusinessGoal: content.GoalLeadGeneration, Urgency: content.UrgencyMedium},
	}

	out, err := c.Prioritize(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"top", "mid", "low"}, []string{out[0].Item.ID, out[1].Item.ID, out[2].Item.ID})

	// urgency 70*0.4 + priority 60*0.6
	assert.InDelta(t, 64.0, out[0].FinalPriority, 1e-9)
	assert.Equal(t, "High priority - schedule within 24 hours", out[0].Reasoning)
	assert.Equal(t, "Low priority - flexible scheduling", out[2].Reasoning)
}

func TestPrioritizeHonoursCancelledContext(t *testing.T) {
	c := newTestClassifier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Prioritize(ctx, []content.Item{{ID: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPriorityBand(t *testing.T) {
	assert.Equal(t, "Critical priority - schedule immediately", PriorityBand(81))
	assert.Equal(t, "Medium priority - schedule within 3 days", PriorityBand(60))
	assert.Equal(t, "Low priority - flexible scheduling", PriorityBand(40))
}
