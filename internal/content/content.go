package content

import (
	"fmt"
	"strings"
	"time"
)

// Platform is a publishing target.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformEmail     Platform = "email"
	PlatformBlog      Platform = "blog"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformFacebook,
	PlatformInstagram,
	PlatformEmail,
	PlatformBlog,
}

// ContentType describes the format of a content item.
type ContentType string

const (
	TypeArticle    ContentType = "article"
	TypeVideo      ContentType = "video"
	TypeImage      ContentType = "image"
	TypePoll       ContentType = "poll"
	TypeNewsletter ContentType = "newsletter"
	TypeStory      ContentType = "story"
)

// Urgency is the caller-declared urgency of an item.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// BusinessGoal is the outcome a piece of content is meant to drive.
type BusinessGoal string

const (
	GoalBrandAwareness BusinessGoal = "brand_awareness"
	GoalLeadGeneration BusinessGoal = "lead_generation"
	GoalEngagement     BusinessGoal = "engagement"
	GoalConversion     BusinessGoal = "conversion"
	GoalRetention      BusinessGoal = "retention"
)

// Item is a unit of content awaiting a publish time. Items are owned by the
// caller and never mutated by the scheduling core.
type Item struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Body         string       `json:"body" yaml:"body"`
	Platform     Platform     `json:"platform" yaml:"platform"`
	ContentType  ContentType  `json:"content_type,omitempty" yaml:"content_type"`
	Urgency      Urgency      `json:"urgency,omitempty" yaml:"urgency"`
	BusinessGoal BusinessGoal `json:"business_goal,omitempty" yaml:"business_goal"`
	SourceURL    string       `json:"source_url,omitempty" yaml:"source_url"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	Deadline     *time.Time   `json:"deadline" yaml:"deadline"`
}

// Text returns the lower-cased title and body used for keyword matching.
func (it Item) Text() string {
	return strings.ToLower(it.Title + " " + it.Body)
}

// Normalized returns a copy with all timestamps in UTC.
func (it Item) Normalized() Item {
	it.CreatedAt = it.CreatedAt.UTC()
	if it.Deadline != nil {
		d := it.Deadline.UTC()
		it.Deadline = &d
	}
	return it
}

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// ParseContentType validates a content type. Empty input is allowed.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "", TypeArticle, TypeVideo, TypeImage, TypePoll, TypeNewsletter, TypeStory:
		return t, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// ParseUrgency validates an urgency level. Empty input is allowed.
func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	switch u {
	case "", UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return u, nil
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

// ParseBusinessGoal validates a business goal. Empty input is allowed.
func ParseBusinessGoal(s string) (BusinessGoal, error) {
	g := BusinessGoal(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case "", GoalBrandAwareness, GoalLeadGeneration, GoalEngagement, GoalConversion, GoalRetention:
		return g, nil
	}
	return "", fmt.Errorf("unknown business goal %q", s)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdays[key]; ok {
		return d, nil
	}
	if len(key) == 3 {
		for name, d := range weekdays {
			if strings.HasPrefix(name, key) {
				return d, nil
			}
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// ParseWeekdays parses a list of day names.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// Clamp bounds a score to [0,100].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
