// Package digest builds the ranked top-N article selection for one run:
// collect candidates, score them, drop what the ledger already knows, rank
// deterministically, truncate.
package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"aidigest/internal/config"
	"aidigest/internal/ledger"
	"aidigest/internal/logger"
	"aidigest/internal/score"
	"aidigest/internal/sources"
)

// Fetcher is the candidate-collection dependency, satisfied by
// sources.Extractor.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]sources.Candidate, map[string]error)
}

// Digest is one run's selection, ready for summarization and publishing.
// The counters describe the run that produced it.
type Digest struct {
	Articles       []score.Scored
	GeneratedAt    time.Time
	SourceFailures map[string]error

	CandidatesCollected int
	DuplicatesFiltered  int
}

// Selector wires collection, scoring and the dedup ledger into the
// selection pipeline.
type Selector struct {
	fetcher  Fetcher
	scorer   *score.Scorer
	ledger   ledger.Ledger
	priority map[string]int // source name -> config position, for tie-breaks
	now      func() time.Time
}

func NewSelector(f Fetcher, sc *score.Scorer, l ledger.Ledger, srcs []config.Source) *Selector {
	priority := make(map[string]int, len(srcs))
	for i, s := range srcs {
		priority[s.Name] = i
	}
	return &Selector{
		fetcher:  f,
		scorer:   sc,
		ledger:   l,
		priority: priority,
		now:      time.Now,
	}
}

// BuildDigest runs the selection pipeline. mode decides what the ledger
// filters out: previously published articles only, or anything ever seen.
// Every candidate that survives the filter is recorded as seen, whether or
// not it makes the top N. Ledger failures abort the run: a digest built
// without dedup would repeat stories.
func (s *Selector) BuildDigest(ctx context.Context, topN int, mode string) (*Digest, error) {
	generatedAt := s.now()

	candidates, failures := s.fetcher.FetchAll(ctx)
	logger.Info("candidates collected",
		"count", len(candidates), "failed_sources", len(failures))

	// Cross-source dedup: the first source in config order wins a URL that
	// several listings link to.
	unique := make([]sources.Candidate, 0, len(candidates))
	seenURL := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seenURL[c.URL] {
			continue
		}
		seenURL[c.URL] = true
		unique = append(unique, c)
	}

	var fresh []score.Scored
	dropped := 0
	for _, c := range unique {
		known, err := s.known(ctx, c.URL, mode)
		if err != nil {
			return nil, fmt.Errorf("ledger lookup for %s: %w", c.URL, err)
		}
		if known {
			dropped++
			continue
		}

		sc := s.scorer.Score(c, "")
		if err := s.ledger.RecordSeen(ctx, c.URL, c.Source, sc.Score, generatedAt); err != nil {
			return nil, fmt.Errorf("record seen %s: %w", c.URL, err)
		}
		fresh = append(fresh, sc)
	}
	logger.Info("candidates filtered",
		"fresh", len(fresh), "duplicates", dropped, "mode", mode)

	s.rank(fresh)

	if topN < 0 {
		topN = 0
	}
	if len(fresh) > topN {
		fresh = fresh[:topN]
	}
	logger.Info("digest built", "articles", len(fresh))

	return &Digest{
		Articles:            fresh,
		GeneratedAt:         generatedAt,
		SourceFailures:      failures,
		CandidatesCollected: len(candidates),
		DuplicatesFiltered:  dropped,
	}, nil
}

// MarkPublished stamps every digest article in the ledger after a
// successful send.
func (s *Selector) MarkPublished(ctx context.Context, d *Digest) error {
	at := s.now()
	for _, a := range d.Articles {
		if err := s.ledger.MarkPublished(ctx, a.URL, at); err != nil {
			return fmt.Errorf("mark published %s: %w", a.URL, err)
		}
	}
	return nil
}

func (s *Selector) known(ctx context.Context, url, mode string) (bool, error) {
	if mode == config.DedupSeen {
		return s.ledger.Seen(ctx, url)
	}
	return s.ledger.Published(ctx, url)
}

// rank orders articles by score descending with a total tie-break chain, so
// the same inputs always produce the same digest.
func (s *Selector) rank(articles []score.Scored) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
			return a.DiscoveredAt.Before(b.DiscoveredAt)
		}
		if pa, pb := s.priority[a.Source], s.priority[b.Source]; pa != pb {
			return pa < pb
		}
		return a.URL < b.URL
	})
}
