// Package extract pulls full article text out of article pages so the
// summarizer has more than a headline to work with. Extraction is best
// effort: a page that yields nothing falls back to the title downstream.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"aidigest/internal/fetch"
	"aidigest/internal/logger"
)

// Article is extracted page content.
type Article struct {
	URL     string
	Title   string
	Content string
	Words   int
}

// siteSelectors maps a host fragment to the CSS selectors that find its
// article body. Ordered: the first selector that yields paragraphs wins.
var siteSelectors = map[string][]string{
	"techcrunch.com": {
		".entry-content p",
		".article-content p",
		"article p",
	},
	"wired.com": {
		".body__inner-container p",
		"article p",
	},
	"theverge.com": {
		".duet--article--article-body-component p",
		"article p",
	},
	"venturebeat.com": {
		".article-content p",
		"article p",
	},
	"arstechnica.com": {
		".article-content p",
		"article p",
	},
	"zdnet.com": {
		".storyBody p",
		"article p",
	},
}

// genericSelectors is the fallback chain for hosts with no dedicated entry.
var genericSelectors = []string{
	"article p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

// Extractor fetches article pages with the shared HTTP client and paces
// requests so a burst of top-N articles does not hammer one host.
type Extractor struct {
	client  *fetch.Client
	limiter *rate.Limiter
}

func New(client *fetch.Client, delay time.Duration) *Extractor {
	lim := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		lim = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Extractor{client: client, limiter: lim}
}

// Extract fetches one article page and returns its cleaned body text.
func (e *Extractor) Extract(ctx context.Context, url string) (*Article, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	status, body, err := e.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("fetch article: status %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse article html: %w", err)
	}

	content := cleanContent(extractBody(doc, url))
	if content == "" {
		return nil, fmt.Errorf("no article body found")
	}

	a := &Article{
		URL:     url,
		Title:   extractTitle(doc),
		Content: content,
		Words:   len(strings.Fields(content)),
	}
	return a, nil
}

// ExtractAll fetches up to limit articles, keyed by URL. Failures are logged
// and skipped; the summarizer falls back to titles for missing entries.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string, limit int) map[string]*Article {
	out := make(map[string]*Article)
	for _, url := range urls {
		if limit > 0 && len(out) >= limit {
			break
		}
		a, err := e.Extract(ctx, url)
		if err != nil {
			logger.Debug("article extraction failed", "url", url, "error", err)
			continue
		}
		out[url] = a
	}
	return out
}

func extractBody(doc *goquery.Document, url string) string {
	for host, selectors := range siteSelectors {
		if strings.Contains(url, host) {
			if body := paragraphsFor(doc, selectors, 1, 10); body != "" {
				return body
			}
			break
		}
	}
	return paragraphsFor(doc, genericSelectors, 3, 20)
}

// paragraphsFor walks the selector chain and returns the first selector's
// paragraphs that meet the floor, joined with blank lines.
func paragraphsFor(doc *goquery.Document, selectors []string, minParagraphs, minLen int) string {
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > minLen {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= minParagraphs {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", ".article-title", ".headline", ".entry-title", "title"} {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// junkPhrases are boilerplate fragments news sites wrap around article
// bodies. Exact-match removal only; anything smarter risks eating content.
var junkPhrases = []string{
	"Sign up for our newsletter",
	"Subscribe to our newsletter",
	"Read more:",
	"Related:",
	"Advertisement",
	"Share this article",
	"Follow us on",
	"Click here to",
	"All rights reserved",
	"Terms of Service",
	"Privacy Policy",
	"Cookie Policy",
	"Sign in",
	"Create an account",
}

var junkIndicators = []string{
	"cookie", "advertisement", "sponsored", "affiliate",
	"click here", "follow us", "share this", "sign up", "subscribe",
}

// cleanContent strips boilerplate and reflows the text into paragraphs of
// real sentences. Lines carrying a junk indicator are dropped whole; exact
// phrases are stripped from what survives.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	var paragraphs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		lower := strings.ToLower(line)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if junk {
			continue
		}

		for _, phrase := range junkPhrases {
			line = strings.ReplaceAll(line, phrase, "")
		}
		line = strings.TrimSpace(line)
		if len(line) >= 30 {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// Excerpt returns the first maxWords words of the content.
func (a *Article) Excerpt(maxWords int) string {
	words := strings.Fields(a.Content)
	if maxWords <= 0 || len(words) <= maxWords {
		return a.Content
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
