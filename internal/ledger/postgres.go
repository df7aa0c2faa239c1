package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	url_hash      TEXT PRIMARY KEY,
	url           TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	score         INTEGER NOT NULL DEFAULT 0,
	first_seen_at TIMESTAMPTZ NOT NULL,
	published_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_articles_first_seen ON articles(first_seen_at);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
`

type postgresLedger struct {
	db *sql.DB
}

func openPostgres(dsn string) (*postgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}
	return &postgresLedger{db: db}, nil
}

func (l *postgresLedger) Seen(ctx context.Context, url string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM articles WHERE url_hash = $1`, HashURL(url)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger seen: %w", err)
	}
	return true, nil
}

func (l *postgresLedger) RecordSeen(ctx context.Context, url, source string, score int, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO articles (url_hash, url, source, score, first_seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url_hash) DO NOTHING`,
		HashURL(url), url, source, score, at.UTC())
	if err != nil {
		return fmt.Errorf("ledger record seen: %w", err)
	}
	return nil
}

func (l *postgresLedger) MarkPublished(ctx context.Context, url string, at time.Time) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE articles SET published_at = $1
		WHERE url_hash = $2 AND published_at IS NULL`,
		at.UTC(), HashURL(url))
	if err != nil {
		return fmt.Errorf("ledger mark published: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger mark published: %w", err)
	}
	if n == 0 {
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

func (l *postgresLedger) Published(ctx context.Context, url string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM articles WHERE url_hash = $1 AND published_at IS NOT NULL`,
		HashURL(url)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger published: %w", err)
	}
	return true, nil
}

func (l *postgresLedger) Stats(ctx context.Context, window time.Duration) (Stats, error) {
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
		WHERE first_seen_at >= $1`, since).Scan(&s.Seen, &s.Published, &mean)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	if mean.Valid {
		s.MeanScore = mean.Float64
	}
	return s, nil
}

func (l *postgresLedger) Close() error { return l.db.Close() }
