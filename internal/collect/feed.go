package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/content"
)

const maxPerFeed = 20

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL          string
	Title        string
	Published    *time.Time
	Content      string
	Source       string
	Platform     content.Platform
	BusinessGoal content.BusinessGoal
}

// FeedConfig is one feed and the platform its entries are planned for.
type FeedConfig struct {
	URL          string
	Name         string
	Platform     content.Platform
	BusinessGoal content.BusinessGoal
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds []FeedConfig
	log   zerolog.Logger
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, log zerolog.Logger) *FeedParser {
	return &FeedParser{feeds: feeds, log: log}
}

// ParseAll parses all configured feeds and returns entries published at or
// after cutoff. A feed that fails to parse is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, cutoff time.Time) []FeedEntry {
	var all []FeedEntry

	parser := gofeed.NewParser()
	for _, fc := range fp.feeds {
		if ctx.Err() != nil {
			break
		}
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		entries, err := parseFeed(ctx, parser, fc, name, cutoff)
		if err != nil {
			fp.log.Warn().Err(err).Str("feed", fc.URL).Msg("failed to parse feed")
			continue
		}
		all = append(all, entries...)
		fp.log.Info().Str("source", name).Int("entries", len(entries)).Msg("parsed feed")
	}

	return all
}

func parseFeed(ctx context.Context, parser *gofeed.Parser, fc FeedConfig, sourceName string, cutoff time.Time) ([]FeedEntry, error) {
	feed, err := parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}

		entry := parseItem(item, sourceName)
		if entry == nil {
			continue
		}
		entry.Platform = fc.Platform
		entry.BusinessGoal = fc.BusinessGoal
		if entry.Published == nil || !entry.Published.Before(cutoff) {
			entries = append(entries, *entry)
		}
	}

	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	var body string
	if item.Content != "" {
		body = stripHTML(item.Content)
	} else if item.Description != "" {
		body = stripHTML(item.Description)
	}

	return &FeedEntry{
		URL:       itemURL,
		Title:     title,
		Published: published,
		Content:   body,
		Source:    source,
	}
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(entityReplacer.Replace(result.String())), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
