// Package fetch fills the bodies of queued items by extracting the readable
// text of their source pages.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/database"
)

const (
	// Items whose feed body is already this long are left alone.
	minBodyChars = 200
	// Extracted text shorter than this is treated as a failed extraction.
	minExtractedChars = 100
	maxBodyChars      = 4000
)

// Store is the queue the fetcher reads from and writes to.
type Store interface {
	GetQueuedItems(status string) ([]content.Item, error)
	UpdateItemBody(id, body string) error
}

// Result holds the results of a content fetch run.
type Result struct {
	Fetched           int
	AlreadyHadContent int
	Failed            int
}

// ContentFetcher fetches article text via HTTP + readability extraction.
type ContentFetcher struct {
	store  Store
	client *http.Client
	log    zerolog.Logger
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(store Store, timeout time.Duration, log zerolog.Logger) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		store: store,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		log: log,
	}
}

// FetchMissingContent extracts bodies for pending items with a short body and
// a source URL. After an HTTP error status the rest of that domain is skipped.
func (f *ContentFetcher) FetchMissingContent(ctx context.Context) (*Result, error) {
	items, err := f.store.GetQueuedItems(database.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("loading pending items: %w", err)
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if len(item.Body) >= minBodyChars || item.SourceURL == "" {
			result.AlreadyHadContent++
			continue
		}

		domain := ""
		if u, err := url.Parse(item.SourceURL); err == nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		text, err := f.fetchArticleContent(ctx, item.SourceURL)
		if err != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			f.log.Warn().Err(err).Str("url", item.SourceURL).Str("domain", domain).
				Msg("fetch failed, skipping remaining items from domain")
			continue
		}
		if text == "" {
			result.Failed++
			f.log.Debug().Str("url", item.SourceURL).Msg("no extractable content")
			continue
		}

		if err := f.store.UpdateItemBody(item.ID, text); err != nil {
			return result, fmt.Errorf("storing body for %s: %w", item.ID, err)
		}
		result.Fetched++
		f.log.Debug().Str("content_id", item.ID).Str("title", item.Title).Msg("fetched content")
	}

	f.log.Info().Int("fetched", result.Fetched).Int("failed", result.Failed).Msg("content fetch complete")
	return result, nil
}

func (f *ContentFetcher) fetchArticleContent(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "postplanner/1.0 (content scheduler)")

	resp, err := f.client.Do(req)
	if err != nil {
		// Connection errors are not held against the domain.
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) <= minExtractedChars {
		return "", nil
	}
	if len(text) > maxBodyChars {
		text = strings.ToValidUTF8(text[:maxBodyChars], "")
	}
	return text, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, http.StatusText(e.code))
}
