package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Log records completed exchanges for operator review. It is never read
// back into conversation context; the in-memory window stays the only
// context source.
type Log struct {
	db *sql.DB
}

func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	slog.Info("transcript log opened", "path", path)
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Record stores one completed exchange. Implements the dispatcher's
// Recorder interface.
func (l *Log) Record(platform, userID, route, prompt, reply string) error {
	_, err := l.db.Exec(`
		INSERT INTO exchanges (platform, user_id, route, prompt, reply, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, platform, userID, route, prompt, reply, time.Now().UTC())
	return err
}

type Exchange struct {
	Platform  string    `json:"platform"`
	UserID    string    `json:"userId"`
	Route     string    `json:"route"`
	Prompt    string    `json:"prompt"`
	Reply     string    `json:"reply"`
	CreatedAt time.Time `json:"createdAt"`
}

// Recent returns the user's latest exchanges in chronological order.
func (l *Log) Recent(userID string, limit int) ([]Exchange, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := l.db.Query(`
		SELECT platform, user_id, route, prompt, reply, created_at
		FROM exchanges WHERE user_id = ?
		ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.Platform, &e.UserID, &e.Route, &e.Prompt, &e.Reply, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}

	// Reverse to chronological order
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, rows.Err()
}
