package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	url_hash      TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	score         INTEGER NOT NULL DEFAULT 0,
	first_seen_at TIMESTAMP NOT NULL,
	published_at  TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_articles_first_seen ON articles(first_seen_at);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
`

type sqliteLedger struct {
	db *sql.DB
}

func openSQLite(dsn string) (*sqliteLedger, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = "file:" + dsn + "?cache=shared&mode=rwc&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// sqlite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent recording.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &sqliteLedger{db: db}, nil
}

func (l *sqliteLedger) Seen(ctx context.Context, url string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM articles WHERE url_hash = ?`, HashURL(url)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger seen: %w", err)
	}
	return true, nil
}

func (l *sqliteLedger) RecordSeen(ctx context.Context, url, source string, score int, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO articles (url_hash, url, source, score, first_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url_hash) DO NOTHING`,
		HashURL(url), url, source, score, at.UTC())
	if err != nil {
		return fmt.Errorf("ledger record seen: %w", err)
	}
	return nil
}

func (l *sqliteLedger) MarkPublished(ctx context.Context, url string, at time.Time) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE articles SET published_at = ?
		WHERE url_hash = ? AND published_at IS NULL`,
		at.UTC(), HashURL(url))
	if err != nil {
		return fmt.Errorf("ledger mark published: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger mark published: %w", err)
	}
	if n == 0 {
		// Either already published (first stamp wins) or never seen.
		seen, err := l.Seen(ctx, url)
		if err != nil {
			return err
		}
		if !seen {
			return ErrNotFound
		}
	}
	return nil
}

func (l *sqliteLedger) Published(ctx context.Context, url string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM articles WHERE url_hash = ? AND published_at IS NOT NULL`,
		HashURL(url)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger published: %w", err)
	}
	return true, nil
}

func (l *sqliteLedger) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	var since time.Time
	if window > 0 {
		since = time.Now().Add(-window).UTC()
	}

	var s Stats
	var mean sql.NullFloat64
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(published_at),
		       AVG(score)
		FROM articles
		WHERE first_seen_at >= ?`, since).Scan(&s.Seen, &s.Published, &mean)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	if mean.Valid {
		s.MeanScore = mean.Float64
	}
	return s, nil
}

func (l *sqliteLedger) Close() error { return l.db.Close() }
