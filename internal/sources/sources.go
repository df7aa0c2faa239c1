// Package sources turns configured news sources into candidate articles.
// Each source is fetched independently: one dead listing page never aborts
// the run, it just contributes zero candidates and a recorded failure.
package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"aidigest/internal/config"
	"aidigest/internal/fetch"
	"aidigest/internal/links"
	"aidigest/internal/logger"
)

// Candidate is an article discovered on a listing page, not yet scored or
// filtered. URL is already normalized; uniqueness is defined by it.
type Candidate struct {
	URL          string
	Title        string
	Source       string
	DiscoveredAt time.Time
	PublishedAt  time.Time // zero when the source gives no publish date
}

// FetchError reports a failed source fetch. It is non-fatal to the run.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Source, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Extractor fetches all configured sources with bounded concurrency and a
// courtesy pacing limiter between requests.
type Extractor struct {
	client      *fetch.Client
	feedParser  *gofeed.Parser
	sources     []config.Source
	concurrency int
	limiter     *rate.Limiter
	now         func() time.Time
}

func NewExtractor(client *fetch.Client, srcs []config.Source, concurrency int, delay time.Duration) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		lim = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Extractor{
		client:      client,
		feedParser:  gofeed.NewParser(),
		sources:     srcs,
		concurrency: concurrency,
		limiter:     lim,
		now:         time.Now,
	}
}

// Sources returns the configured source list in priority order.
func (e *Extractor) Sources() []config.Source { return e.sources }

// FetchAll collects candidates from every source. Failures are isolated and
// returned per source name; the candidate slice holds whatever the healthy
// sources produced, in source order.
func (e *Extractor) FetchAll(ctx context.Context) ([]Candidate, map[string]error) {
	results := make([][]Candidate, len(e.sources))
	var mu sync.Mutex
	failures := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, src := range e.sources {
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				return err // context cancelled, stop scheduling sources
			}

			cands, err := e.Fetch(gctx, src)
			if err != nil {
				logger.Warn("source fetch failed", "source", src.Name, "error", err)
				mu.Lock()
				failures[src.Name] = err
				mu.Unlock()
				return nil
			}

			logger.Debug("source fetched", "source", src.Name, "candidates", len(cands))
			results[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	var all []Candidate
	for _, r := range results {
		all = append(all, r...)
	}
	return all, failures
}

// Fetch collects candidates from a single source, deduplicated by
// normalized URL before they ever reach the scorer.
func (e *Extractor) Fetch(ctx context.Context, src config.Source) ([]Candidate, error) {
	switch src.Type {
	case config.SourceRSS:
		return e.fetchRSS(ctx, src)
	default:
		return e.fetchHTML(ctx, src)
	}
}

func (e *Extractor) fetchHTML(ctx context.Context, src config.Source) ([]Candidate, error) {
	status, body, err := e.client.Get(ctx, src.URL)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Source: src.Name, Err: fmt.Errorf("status %d", status)}
	}

	found := links.Extract(body, src.URL, src.Patterns)

	seen := make(map[string]bool, len(found))
	cands := make([]Candidate, 0, len(found))
	for link := range found {
		norm, err := links.Normalize(link, src.StripQuery)
		if err != nil {
			continue
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true

		cands = append(cands, Candidate{
			URL:          norm,
			Title:        TitleFromURL(norm),
			Source:       src.Name,
			DiscoveredAt: e.now(),
		})
	}
	return cands, nil
}

func (e *Extractor) fetchRSS(ctx context.Context, src config.Source) ([]Candidate, error) {
	feed, err := e.feedParser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Err: err}
	}

	seen := make(map[string]bool, len(feed.Items))
	cands := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		norm, err := links.Normalize(item.Link, src.StripQuery)
		if err != nil {
			continue
		}
		if len(src.Patterns) > 0 && !pathMatches(norm, src.Patterns) {
			continue
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true

		c := Candidate{
			URL:          norm,
			Title:        strings.TrimSpace(item.Title),
			Source:       src.Name,
			DiscoveredAt: e.now(),
		}
		if c.Title == "" {
			c.Title = TitleFromURL(norm)
		}
		if item.PublishedParsed != nil {
			c.PublishedAt = *item.PublishedParsed
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func pathMatches(u string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(u, p) {
			return true
		}
	}
	return false
}

// TitleFromURL rebuilds a readable title from the article slug when a
// listing page offers no anchor text, e.g. "/ai/gpt-5-launch" -> "Gpt 5 Launch".
func TitleFromURL(u string) string {
	trimmed := strings.TrimSuffix(u, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return trimmed
	}
	slug := trimmed[idx+1:]
	slug = strings.TrimSuffix(slug, ".html")

	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
