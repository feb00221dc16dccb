package classify

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/scoring"
)

const (
	maxCategories     = 3
	minCategoryScore  = 30
	maxSuggestedTags  = 8
	storyMaxBodyChars = 280
)

// CategoryMatch is one ranked category for an item.
type CategoryMatch struct {
	CategoryID   string  `json:"category_id"`
	Name         string  `json:"name"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	OptimalHours []int   `json:"optimal_hours,omitempty"`
}

// GoalAlignment is the business goal an item most likely serves.
type GoalAlignment struct {
	Primary    content.BusinessGoal `json:"primary"`
	Confidence float64              `json:"confidence"`
}

// Classification is derived from an item on every call and never stored on its own.
type Classification struct {
	Categories    []CategoryMatch     `json:"categories"`
	SuggestedTags []string            `json:"suggested_tags"`
	ContentType   content.ContentType `json:"content_type"`
	UrgencyScore  float64             `json:"urgency_score"`
	PriorityScore float64             `json:"priority_score"`
	GoalAlignment GoalAlignment       `json:"goal_alignment"`
	Suggestions   []string            `json:"suggestions"`
}

// TopCategory returns the highest ranked category, if any matched.
func (c Classification) TopCategory() (CategoryMatch, bool) {
	if len(c.Categories) == 0 {
		return CategoryMatch{}, false
	}
	return c.Categories[0], true
}

// Degraded reports whether no category cleared the match threshold.
func (c Classification) Degraded() bool {
	return len(c.Categories) == 0
}

// Classifier assigns categories and scores to content items using an injected catalog.
type Classifier struct {
	catalog *content.Catalog
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the time source used for deadline proximity.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Classifier) { c.log = log }
}

// New creates a classifier over a read-only catalog.
func New(catalog *content.Catalog, opts ...Option) *Classifier {
	c := &Classifier{catalog: catalog, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog the classifier was built with.
func (c *Classifier) Catalog() *content.Catalog {
	return c.catalog
}

// Classify derives a classification for item. It performs no I/O.
func (c *Classifier) Classify(item content.Item) Classification {
	text := item.Text()
	matches, matched := c.rankCategories(item, text)

	cl := Classification{
		Categories:    matches,
		ContentType:   DetectContentType(item),
		UrgencyScore:  UrgencyScore(item, c.now()),
		PriorityScore: PriorityScore(item),
		GoalAlignment: AlignGoal(item),
	}
	cl.SuggestedTags = suggestTags(matches, matched, cl.ContentType)
	cl.Suggestions = c.suggest(item, cl)

	if cl.Degraded() {
		c.log.Debug().Str("content_id", item.ID).Msg("no category cleared the match threshold")
	}
	return cl
}

type categoryInput struct {
	item    content.Item
	cat     content.Category
	matched []string
}

var categoryRules = []scoring.Rule[categoryInput]{
	{
		Name: "keywords",
		Points: func(in categoryInput) float64 {
			if len(in.cat.Keywords) == 0 {
				return 0
			}
			return float64(len(in.matched)) / float64(len(in.cat.Keywords)) * 40
		},
		Describe: func(in categoryInput, _ float64) string {
			return fmt.Sprintf("matched %d/%d keywords (%s)", len(in.matched), len(in.cat.Keywords), strings.Join(in.matched, ", "))
		},
	},
	{
		Name:      "platform",
		Rationale: "optimal platform",
		Points: func(in categoryInput) float64 {
			if in.cat.SupportsPlatform(in.item.Platform) {
				return 20
			}
			return 0
		},
	},
	{
		Name: "goal",
		Points: func(in categoryInput) float64 {
			if in.cat.AlignsWith(in.item.BusinessGoal) {
				return 25
			}
			return 0
		},
		Describe: func(in categoryInput, _ float64) string {
			return fmt.Sprintf("aligned with %s", in.item.BusinessGoal)
		},
	},
}

func (c *Classifier) rankCategories(item content.Item, text string) ([]CategoryMatch, map[string][]string) {
	var matches []CategoryMatch
	matched := make(map[string][]string)
	weights := make(map[string]float64)

	for _, cat := range c.catalog.Categories() {
		var hits []string
		for _, kw := range cat.Keywords {
			if containsWord(text, strings.ToLower(kw)) {
				hits = append(hits, kw)
			}
		}
		res := scoring.Evaluate(categoryRules, categoryInput{item: item, cat: cat, matched: hits})
		score := min(100, res.Total)
		if score <= minCategoryScore {
			continue
		}
		matched[cat.ID] = hits
		matches = append(matches, CategoryMatch{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Confidence:   content.Clamp(score),
			Reasoning:    strings.Join(res.Rationales(), "; "),
			OptimalHours: slices.Clone(cat.OptimalHours),
		})
		weights[cat.ID] = cat.PriorityWeight
	}

	// Equal confidence falls back to the catalog priority weight.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return weights[matches[i].CategoryID] > weights[matches[j].CategoryID]
	})
	if len(matches) > maxCategories {
		matches = matches[:maxCategories]
	}
	return matches, matched
}

// containsWord reports whether kw occurs in text delimited by non-alphanumerics
// or the ends of text, so "ai" does not match inside "email".
func containsWord(text, kw string) bool {
	if kw == "" {
		return false
	}
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], kw)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(kw)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		off = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

var typeKeywords = []struct {
	words []string
	typ   content.ContentType
}{
	{[]string{"video", "watch"}, content.TypeVideo},
	{[]string{"image", "photo"}, content.TypeImage},
	{[]string{"poll", "vote"}, content.TypePoll},
}

// DetectContentType returns the explicit type, or sniffs one from the body text.
func DetectContentType(item content.Item) content.ContentType {
	if item.ContentType != "" {
		return item.ContentType
	}
	body := strings.ToLower(item.Body)
	for _, tk := range typeKeywords {
		for _, w := range tk.words {
			if strings.Contains(body, w) {
				return tk.typ
			}
		}
	}
	switch {
	case item.Platform == content.PlatformEmail:
		return content.TypeNewsletter
	case item.Platform == content.PlatformInstagram && len(item.Body) < storyMaxBodyChars:
		return content.TypeStory
	}
	return content.TypeArticle
}

var urgencyPoints = map[content.Urgency]float64{
	content.UrgencyUrgent: 40,
	content.UrgencyHigh:   30,
	content.UrgencyMedium: 20,
	content.UrgencyLow:    10,
}

var deadlineBands = []struct {
	within time.Duration
	points float64
}{
	{24 * time.Hour, 30},
	{72 * time.Hour, 20},
	{168 * time.Hour, 10},
}

// UrgencyScore combines declared urgency with deadline proximity relative to now.
func UrgencyScore(item content.Item, now time.Time) float64 {
	score := urgencyPoints[item.Urgency]
	if item.Deadline != nil {
		left := item.Deadline.Sub(now)
		for _, band := range deadlineBands {
			if left < band.within {
				score += band.points
				break
			}
		}
	}
	return content.Clamp(score)
}

var goalPoints = map[content.BusinessGoal]float64{
	content.GoalConversion:     30,
	content.GoalLeadGeneration: 25,
	content.GoalEngagement:     20,
	content.GoalRetention:      20,
	content.GoalBrandAwareness: 15,
}

var platformPoints = map[content.Platform]float64{
	content.PlatformEmail:     30,
	content.PlatformLinkedIn:  25,
	content.PlatformBlog:      20,
	content.PlatformInstagram: 18,
	content.PlatformFacebook:  15,
	content.PlatformTwitter:   15,
}

// PriorityScore weighs the declared business goal and the target platform.
func PriorityScore(item content.Item) float64 {
	return content.Clamp(goalPoints[item.BusinessGoal] + platformPoints[item.Platform])
}

var goalHeuristics = []struct {
	words      []string
	goal       content.BusinessGoal
	confidence float64
}{
	{[]string{"buy", "purchase", "discount", "sale", "offer", "order now", "shop"}, content.GoalConversion, 75},
	{[]string{"sign up", "signup", "register", "subscribe", "download", "free trial", "demo"}, content.GoalLeadGeneration, 70},
	{[]string{"share", "comment", "follow", "tag a friend", "let us know", "join the conversation"}, content.GoalEngagement, 65},
}

// AlignGoal returns the declared goal with high confidence, or infers one from the text.
func AlignGoal(item content.Item) GoalAlignment {
	if item.BusinessGoal != "" {
		return GoalAlignment{Primary: item.BusinessGoal, Confidence: 90}
	}
	text := item.Text()
	for _, h := range goalHeuristics {
		for _, w := range h.words {
			if strings.Contains(text, w) {
				return GoalAlignment{Primary: h.goal, Confidence: h.confidence}
			}
		}
	}
	return GoalAlignment{Primary: content.GoalBrandAwareness, Confidence: 50}
}

func suggestTags(matches []CategoryMatch, matched map[string][]string, typ content.ContentType) []string {
	var tags []string
	add := func(tag string) {
		tag = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), " ", "-")
		if tag == "" || slices.Contains(tags, tag) || len(tags) >= maxSuggestedTags {
			return
		}
		tags = append(tags, tag)
	}
	for _, m := range matches {
		add(m.CategoryID)
		for _, kw := range matched[m.CategoryID] {
			add(kw)
		}
	}
	add(string(typ))
	return tags
}

func (c *Classifier) suggest(item content.Item, cl Classification) []string {
	var out []string

	top, ok := cl.TopCategory()
	if !ok {
		out = append(out, "Add topic keywords so the item matches a catalog category")
	} else if cat, found := c.catalog.Lookup(top.CategoryID); found {
		if !cat.SupportsPlatform(item.Platform) && len(cat.OptimalPlatforms) > 0 {
			out = append(out, fmt.Sprintf("%s content performs best on %s", cat.Name, joinPlatforms(cat.OptimalPlatforms)))
		}
		if len(cat.ContentTypes) > 0 && !slices.Contains(cat.ContentTypes, cl.ContentType) {
			out = append(out, fmt.Sprintf("Consider a %s format for %s content", cat.ContentTypes[0], cat.Name))
		}
	}

	if item.Platform == content.PlatformTwitter && len(item.Title)+len(item.Body) > 280 {
		out = append(out, "Trim the copy to fit twitter's 280 character limit")
	}
	if item.BusinessGoal == "" && cl.GoalAlignment.Confidence < 60 {
		out = append(out, "Declare a business goal to sharpen prioritization")
	}
	if item.Urgency == content.UrgencyUrgent && item.Deadline == nil {
		out = append(out, "Set a deadline for urgent content so proximity can be scored")
	}
	return out
}

func joinPlatforms(ps []content.Platform) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
