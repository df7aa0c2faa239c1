// Package ledger persists which article URLs have been seen and published,
// so consecutive digests never repeat a story. Two backends share the same
// schema shape: sqlite for single-host deployments, postgres for shared ones.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an operation targets a URL the ledger has
// never recorded.
var ErrNotFound = errors.New("ledger: url not recorded")

// HashURL derives the stable primary key for a normalized URL.
func HashURL(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Entry is one recorded article.
type Entry struct {
	URL         string
	Source      string
	Score       int
	FirstSeenAt time.Time
	PublishedAt time.Time // zero until the article goes out in a digest
}

// Stats summarizes ledger activity over a trailing window.
type Stats struct {
	Seen      int
	Published int
	MeanScore float64
}

// Ledger is the persistence contract for the dedup store. All methods key on
// the normalized URL; implementations hash it internally.
type Ledger interface {
	// Seen reports whether the URL was ever recorded.
	Seen(ctx context.Context, url string) (bool, error)

	// RecordSeen inserts the URL if absent. Recording an already-known URL
	// is a no-op: the original first-seen time and score are kept.
	RecordSeen(ctx context.Context, url, source string, score int, at time.Time) error

	// MarkPublished stamps the URL's publish time. The first stamp wins;
	// marking an unseen URL returns ErrNotFound.
	MarkPublished(ctx context.Context, url string, at time.Time) error

	// Published reports whether the URL has gone out in a digest.
	Published(ctx context.Context, url string) (bool, error)

	// Stats aggregates activity since now-window. A zero window means all time.
	Stats(ctx context.Context, window time.Duration) (Stats, error)

	Close() error
}

// Open constructs the ledger backend named by driver.
func Open(driver, dsn string) (Ledger, error) {
	switch driver {
	case "sqlite":
		return openSQLite(dsn)
	case "postgres":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("ledger: unknown driver %q", driver)
	}
}
