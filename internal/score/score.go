// Package score assigns relevance scores to candidate articles from a fixed
// configuration table. Scoring is a pure function of its inputs: no network,
// no storage, safe to call concurrently.
package score

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"aidigest/internal/config"
	"aidigest/internal/sources"
)

// Factor is one contribution to a score, kept for transparency in the
// published digest ("why did this article rank?").
type Factor struct {
	Label string
	Delta int
}

// Scored is a candidate plus its total score and the ordered factor
// breakdown. Score always equals the clamped sum of the factor deltas.
type Scored struct {
	sources.Candidate
	Score   int
	Factors []Factor
}

type matcher struct {
	keyword config.Keyword
	re      *regexp.Regexp // word-boundary match for short tokens, nil otherwise
}

// Scorer holds the compiled keyword tables. Construct once, reuse per run.
type Scorer struct {
	matchers    []matcher
	sourceBonus map[string]int
	baseScore   int
	recency     config.Recency
	now         func() time.Time
}

// New compiles the scoring configuration. Short keywords (<= 3 runes) are
// matched on word boundaries so "ai" does not match "said"; phrases and
// longer keywords match as substrings.
func New(cfg config.Scoring) (*Scorer, error) {
	s := &Scorer{
		sourceBonus: cfg.SourceBonus,
		baseScore:   cfg.BaseScore,
		recency:     cfg.Recency,
		now:         time.Now,
	}

	for _, k := range cfg.Keywords {
		word := strings.ToLower(strings.TrimSpace(k.Word))
		if word == "" {
			return nil, fmt.Errorf("score: empty keyword in tier %q", k.Tier)
		}
		k.Word = word

		m := matcher{keyword: k}
		if !strings.Contains(word, " ") && len(word) <= 3 {
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("score: keyword %q: %w", word, err)
			}
			m.re = re
		}
		s.matchers = append(s.matchers, m)
	}
	return s, nil
}

// Score rates one candidate. body is optional extra text (snippet or lead
// paragraph); the URL and title always participate in matching. Each
// distinct keyword counts once no matter how often it occurs.
func (s *Scorer) Score(c sources.Candidate, body string) Scored {
	text := strings.ToLower(c.URL + " " + c.Title + " " + body)

	var factors []Factor
	for _, m := range s.matchers {
		if !m.matches(text) {
			continue
		}
		factors = append(factors, Factor{
			Label: string(m.keyword.Tier) + ": " + m.keyword.Word,
			Delta: m.keyword.Weight,
		})
	}

	if bonus, ok := s.sourceBonus[c.Source]; ok && bonus != 0 {
		factors = append(factors, Factor{Label: "source: " + c.Source, Delta: bonus})
	}

	if delta, label := s.recencyBonus(c, text); delta != 0 {
		factors = append(factors, Factor{Label: label, Delta: delta})
	}

	if s.baseScore != 0 {
		factors = append(factors, Factor{Label: "base", Delta: s.baseScore})
	}

	total := 0
	for _, f := range factors {
		total += f.Delta
	}
	if total < 0 {
		total = 0
	}

	// Largest contributions first; label breaks magnitude ties so the
	// ordering is identical across runs.
	sort.SliceStable(factors, func(i, j int) bool {
		di, dj := abs(factors[i].Delta), abs(factors[j].Delta)
		if di != dj {
			return di > dj
		}
		return factors[i].Label < factors[j].Label
	})

	return Scored{Candidate: c, Score: total, Factors: factors}
}

// recencyBonus keys freshness off the best available publish signal: an
// explicit feed date, or a year token in the URL/text. No signal means no
// bonus and no penalty.
func (s *Scorer) recencyBonus(c sources.Candidate, text string) (int, string) {
	currentYear := s.now().Year()

	year := 0
	if !c.PublishedAt.IsZero() {
		year = c.PublishedAt.Year()
	} else {
		year = detectYear(text, currentYear)
	}

	switch year {
	case currentYear:
		return s.recency.CurrentYearBonus, "recency: " + strconv.Itoa(year)
	case currentYear - 1:
		return s.recency.PreviousYearBonus, "recency: " + strconv.Itoa(year)
	default:
		return 0, ""
	}
}

// detectYear looks for the current or previous year as a token in the text.
// Preferring the current year keeps URLs that mention both deterministic.
func detectYear(text string, currentYear int) int {
	if containsYear(text, currentYear) {
		return currentYear
	}
	if containsYear(text, currentYear-1) {
		return currentYear - 1
	}
	return 0
}

func containsYear(text string, year int) bool {
	return strings.Contains(text, strconv.Itoa(year))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (m matcher) matches(text string) bool {
	if m.re != nil {
		return m.re.MatchString(text)
	}
	return strings.Contains(text, m.keyword.Word)
}
