// Package collect turns RSS/Atom feed entries into queued content items.
package collect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/content"
)

// Queue accepts collected items. It reports false for duplicates.
type Queue interface {
	EnqueueItem(item content.Item) (bool, error)
}

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	NewItems   int
	Duplicates int
	Failed     int
	Sources    map[string]int
}

// Collector gathers feed entries into the content queue.
type Collector struct {
	queue    Queue
	parser   *FeedParser
	daysBack int
	now      func() time.Time
	log      zerolog.Logger
}

// NewCollector creates a collector over feeds.
func NewCollector(feeds []FeedConfig, queue Queue, daysBack int, log zerolog.Logger) *Collector {
	return &Collector{
		queue:    queue,
		parser:   NewFeedParser(feeds, log),
		daysBack: daysBack,
		now:      time.Now,
		log:      log,
	}
}

// Collect parses every feed and queues entries that are not yet known.
func (c *Collector) Collect(ctx context.Context) *Result {
	r := &Result{Sources: make(map[string]int)}
	now := c.now()

	entries := c.parser.ParseAll(ctx, now.AddDate(0, 0, -c.daysBack))
	r.TotalFound = len(entries)

	for _, entry := range entries {
		item := entryItem(entry, now)
		added, err := c.queue.EnqueueItem(item)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("url", entry.URL).Msg("failed to queue entry")
			r.Failed++
		case added:
			r.NewItems++
			r.Sources[entry.Source]++
		default:
			r.Duplicates++
		}
	}

	c.log.Info().Int("found", r.TotalFound).Int("new", r.NewItems).Int("duplicates", r.Duplicates).
		Msg("collection complete")
	return r
}

func entryItem(e FeedEntry, now time.Time) content.Item {
	created := now
	if e.Published != nil {
		created = *e.Published
	}
	platform := e.Platform
	if platform == "" {
		platform = content.PlatformBlog
	}
	return content.Item{
		ID:           uuid.NewString(),
		Title:        e.Title,
		Body:         e.Content,
		Platform:     platform,
		BusinessGoal: e.BusinessGoal,
		SourceURL:    e.URL,
		CreatedAt:    created.UTC(),
	}
}
