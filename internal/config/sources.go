package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceHTML = "html"
	SourceRSS  = "rss"
)

// Source describes one configured news source.
type Source struct {
	Name       string   `yaml:"name"`
	URL        string   `yaml:"url"`
	Type       string   `yaml:"type"`
	Patterns   []string `yaml:"patterns"`
	Bonus      int      `yaml:"bonus"`
	StripQuery bool     `yaml:"strip_query"`
}

// Keyword tiers. Each tier carries its own weight band; the tier tag makes
// scoring auditable per keyword.
type Tier string

const (
	TierHighValue Tier = "high-value"
	TierCompany   Tier = "company"
	TierTechnical Tier = "technical"
)

// Keyword is one weighted scoring term.
type Keyword struct {
	Tier   Tier
	Word   string
	Weight int
}

// Recency is the configurable year-based freshness bonus.
type Recency struct {
	CurrentYearBonus  int `yaml:"current_year"`
	PreviousYearBonus int `yaml:"previous_year"`
}

// Scoring is the full configuration table consumed by the scorer.
type Scoring struct {
	Keywords    []Keyword
	BaseScore   int
	Recency     Recency
	SourceBonus map[string]int
}

// sourcesFile is the on-disk YAML shape.
type sourcesFile struct {
	Sources  []Source `yaml:"sources"`
	Keywords struct {
		HighValue map[string]int `yaml:"high_value"`
		Company   map[string]int `yaml:"company"`
		Technical map[string]int `yaml:"technical"`
	} `yaml:"keywords"`
	BaseScore int     `yaml:"base_score"`
	Recency   Recency `yaml:"recency"`
}

func loadSourcesFile(path string) (*sourcesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sf sourcesFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range sf.Sources {
		if sf.Sources[i].Type == "" {
			sf.Sources[i].Type = SourceHTML
		}
	}
	return &sf, nil
}

// Scoring flattens the tier maps into a tagged keyword list, sorted for
// stable iteration, plus the per-source bonus table.
func (sf *sourcesFile) Scoring() Scoring {
	s := Scoring{
		BaseScore:   sf.BaseScore,
		Recency:     sf.Recency,
		SourceBonus: make(map[string]int, len(sf.Sources)),
	}

	appendTier := func(tier Tier, words map[string]int) {
		for word, weight := range words {
			s.Keywords = append(s.Keywords, Keyword{Tier: tier, Word: word, Weight: weight})
		}
	}
	appendTier(TierHighValue, sf.Keywords.HighValue)
	appendTier(TierCompany, sf.Keywords.Company)
	appendTier(TierTechnical, sf.Keywords.Technical)

	sort.Slice(s.Keywords, func(i, j int) bool {
		if s.Keywords[i].Tier != s.Keywords[j].Tier {
			return s.Keywords[i].Tier < s.Keywords[j].Tier
		}
		return s.Keywords[i].Word < s.Keywords[j].Word
	})

	for _, src := range sf.Sources {
		s.SourceBonus[src.Name] = src.Bonus
	}
	return s
}
