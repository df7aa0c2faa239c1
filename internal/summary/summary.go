// Package summary condenses article content for the digest. It prefers the
// Gemini API and degrades to an extractive summary when the key is missing,
// the per-day request budget is spent, or the API call fails. A digest never
// fails because summarization did.
package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"aidigest/internal/logger"
)

// Prompts longer than this get truncated before hitting the API.
const maxPromptRunes = 6000

// Result is one summarization outcome. FromFallback tells the formatter the
// text is extractive rather than generated; Reason says why.
type Result struct {
	Summary      string
	FromFallback bool
	Reason       string
}

// Summarizer wraps the Gemini client with a request budget and a
// content-keyed cache so reruns over the same articles cost nothing.
type Summarizer struct {
	client   *genai.Client
	model    string
	maxWords int
	budget   *budget
	cache    *cache
}

// New builds a Gemini-backed summarizer. An empty apiKey yields a
// fallback-only summarizer rather than an error.
func New(ctx context.Context, apiKey, model string, maxWords, maxRequests int) (*Summarizer, error) {
	s := &Summarizer{
		model:    model,
		maxWords: maxWords,
		budget:   newBudget(maxRequests),
		cache:    newCache(),
	}
	if apiKey == "" {
		logger.Warn("no Gemini API key, summaries will be extractive")
		return s, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	s.client = client
	return s, nil
}

func (s *Summarizer) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Summarize condenses one article. content may be empty, in which case the
// title alone is summarized (usually verbatim).
func (s *Summarizer) Summarize(ctx context.Context, title, content string) Result {
	if cached, ok := s.cache.get(title, content); ok {
		logger.Debug("summary cache hit", "title", title)
		return cached
	}

	res := s.generate(ctx, title, content)
	// Fallbacks come from transient conditions (spent budget, API error);
	// caching one would pin the degraded summary past recovery.
	if !res.FromFallback {
		s.cache.set(title, content, res)
	}
	return res
}

func (s *Summarizer) generate(ctx context.Context, title, content string) Result {
	if s.client == nil {
		return fallbackResult(title, content, s.maxWords, "no api key")
	}
	if !s.budget.take() {
		return fallbackResult(title, content, s.maxWords, "request budget spent")
	}

	model := s.client.GenerativeModel(s.model)
	prompt := buildPrompt(title, content, s.maxWords)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		logger.Warn("gemini request failed", "title", title, "error", err)
		return fallbackResult(title, content, s.maxWords, "api error")
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		logger.Warn("gemini returned empty response", "title", title)
		return fallbackResult(title, content, s.maxWords, "empty response")
	}

	text := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if text == "" {
		return fallbackResult(title, content, s.maxWords, "empty response")
	}
	return Result{Summary: text}
}

func buildPrompt(title, content string, maxWords int) string {
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\r", "")), " ")
	if utf8.RuneCountInString(content) > maxPromptRunes {
		runes := []rune(content)
		trimmed := string(runes[:maxPromptRunes])
		// Prefer ending on a sentence when one lands reasonably late.
		if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed
	}

	return fmt.Sprintf(`Summarize this AI industry news article in at most %d words.
Write plain English prose for a daily digest. Lead with what happened, keep
company and product names exact, skip introductions like "This article is about".

TITLE: %s

ARTICLE:
%s`, maxWords, title, content)
}

func fallbackResult(title, content string, maxWords int, reason string) Result {
	return Result{
		Summary:      Fallback(title, content, maxWords),
		FromFallback: true,
		Reason:       reason,
	}
}

// Fallback builds an extractive summary: the leading sentences of the
// content, cut at the word budget. With no content the title stands in.
func Fallback(title, content string, maxWords int) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return strings.TrimSpace(title)
	}

	// First paragraph usually carries the lede.
	if idx := strings.Index(text, "\n\n"); idx > 0 {
		first := strings.TrimSpace(text[:idx])
		if len(strings.Fields(first)) >= 15 {
			text = first
		}
	}

	words := strings.Fields(text)
	if maxWords > 0 && len(words) > maxWords {
		text = strings.Join(words[:maxWords], " ")
		// Avoid ending mid-sentence when a period is close.
		if idx := strings.LastIndex(text, ". "); idx > len(text)/2 {
			text = text[:idx+1]
		} else {
			text += "..."
		}
	}
	return text
}
