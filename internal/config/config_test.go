package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testYAML = `
sources:
  - name: TechCrunch
    url: https://techcrunch.com/category/artificial-intelligence/
    type: html
    patterns: ["/2026/"]
    bonus: 8
    strip_query: true
  - name: Feed
    url: https://example.com/feed
    type: rss
    bonus: 5

keywords:
  high_value:
    openai: 20
  company:
    google: 10
  technical:
    model: 4

base_score: 5

recency:
  current_year: 8
  previous_year: 4
`

func writeTestYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFileAndEnv(t *testing.T) {
	t.Setenv("SOURCES_CONFIG_PATH", writeTestYAML(t, testYAML))
	t.Setenv("TOP_N", "5")
	t.Setenv("DEDUP_MODE", "seen")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(cfg.Sources))
	}
	if cfg.TopN != 5 {
		t.Errorf("TopN = %d, want 5", cfg.TopN)
	}
	if cfg.DedupMode != DedupSeen {
		t.Errorf("DedupMode = %q", cfg.DedupMode)
	}
	if cfg.Sources[0].Type != SourceHTML || cfg.Sources[1].Type != SourceRSS {
		t.Errorf("source types wrong: %+v", cfg.Sources)
	}
	if cfg.Scoring.BaseScore != 5 {
		t.Errorf("BaseScore = %d", cfg.Scoring.BaseScore)
	}
	if cfg.Scoring.Recency.CurrentYearBonus != 8 {
		t.Errorf("current year bonus = %d", cfg.Scoring.Recency.CurrentYearBonus)
	}
	if got := cfg.Scoring.SourceBonus["TechCrunch"]; got != 8 {
		t.Errorf("TechCrunch bonus = %d", got)
	}
}

func TestScoringFlattensTiersDeterministically(t *testing.T) {
	sf, err := loadSourcesFile(writeTestYAML(t, testYAML))
	if err != nil {
		t.Fatalf("loadSourcesFile: %v", err)
	}

	first := sf.Scoring()
	if len(first.Keywords) != 3 {
		t.Fatalf("keywords = %d, want 3", len(first.Keywords))
	}
	for i := 0; i < 10; i++ {
		again := sf.Scoring()
		for j := range first.Keywords {
			if again.Keywords[j] != first.Keywords[j] {
				t.Fatalf("keyword order unstable: %+v vs %+v", first.Keywords, again.Keywords)
			}
		}
	}

	tiers := map[Tier]int{}
	for _, k := range first.Keywords {
		tiers[k.Tier]++
	}
	if tiers[TierHighValue] != 1 || tiers[TierCompany] != 1 || tiers[TierTechnical] != 1 {
		t.Errorf("tier tags wrong: %v", tiers)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	sf, err := loadSourcesFile(writeTestYAML(t, testYAML))
	if err != nil {
		t.Fatal(err)
	}
	return &Config{
		Sources:          sf.Sources,
		Scoring:          sf.Scoring(),
		TopN:             15,
		DedupMode:        DedupPublished,
		FetchConcurrency: 1,
		LedgerDriver:     "sqlite",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no sources", func(c *Config) { c.Sources = nil }, "no sources"},
		{"unnamed source", func(c *Config) { c.Sources[0].Name = "" }, "no name"},
		{"duplicate name", func(c *Config) { c.Sources[1].Name = c.Sources[0].Name }, "duplicate"},
		{"missing url", func(c *Config) { c.Sources[0].URL = "" }, "no listing url"},
		{"bad type", func(c *Config) { c.Sources[0].Type = "atom" }, "unknown type"},
		{"negative bonus", func(c *Config) { c.Sources[0].Bonus = -1 }, "negative bonus"},
		{"no keywords", func(c *Config) { c.Scoring.Keywords = nil }, "keyword tables are empty"},
		{"zero weight", func(c *Config) { c.Scoring.Keywords[0].Weight = 0 }, "non-positive weight"},
		{"zero top n", func(c *Config) { c.TopN = 0 }, "TOP_N"},
		{"bad dedup mode", func(c *Config) { c.DedupMode = "never" }, "DEDUP_MODE"},
		{"zero concurrency", func(c *Config) { c.FetchConcurrency = 0 }, "FETCH_CONCURRENCY"},
		{"bad driver", func(c *Config) { c.LedgerDriver = "mysql" }, "LEDGER_DRIVER"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SOURCES_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing sources file")
	}
}
