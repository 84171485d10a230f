package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	sessionId      TEXT NOT NULL,
	role           TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content        TEXT NOT NULL,
	sentiment      TEXT NOT NULL,
	sentimentScore REAL NOT NULL,
	createdAt      REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS turns_session ON turns(sessionId);
`

// Store persists turns in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends one turn.
func (s *Store) Insert(ctx context.Context, t Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, sessionId, role, content, sentiment, sentimentScore, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SessionID, string(t.Role), t.Content, t.Sentiment, t.SentimentScore, unixSeconds(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// List returns the most recent limit turns in chronological order. A
// non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sessionId, role, content, sentiment, sentimentScore, createdAt
		FROM (SELECT * FROM turns ORDER BY seq DESC LIMIT ?)
		ORDER BY seq ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t         Turn
			role      string
			createdAt float64
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Content, &t.Sentiment, &t.SentimentScore, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if t.Role, err = ParseRole(role); err != nil {
			return nil, fmt.Errorf("scan turn %s: %w", t.ID, err)
		}
		t.CreatedAt = timeFromUnix(createdAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
