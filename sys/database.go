package sys

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			locator TEXT NOT NULL,
			title TEXT NOT NULL,
			duration_seconds INTEGER DEFAULT 0,
			played_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_chat
			ON play_history (chat_id, played_at DESC)`,
	}

	for _, q := range tableQueries {
		if _, err := DB.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Play History ---

type PlayHistoryEntry struct {
	ID              int64
	ChatID          snowflake.ID
	Locator         string
	Title           string
	DurationSeconds int
	PlayedAt        time.Time
}

func AddPlayHistory(ctx context.Context, chatID snowflake.ID, locator, title string, durationSeconds int) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO play_history (chat_id, locator, title, duration_seconds)
		VALUES (?, ?, ?, ?)
	`, chatID.String(), locator, title, durationSeconds)
	return err
}

func GetRecentHistory(ctx context.Context, chatID snowflake.ID, limit int) ([]*PlayHistoryEntry, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, chat_id, locator, title, duration_seconds, played_at
		FROM play_history WHERE chat_id = ? ORDER BY played_at DESC LIMIT ?
	`, chatID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*PlayHistoryEntry
	for rows.Next() {
		e := &PlayHistoryEntry{}
		var cid string
		if err := rows.Scan(&e.ID, &cid, &e.Locator, &e.Title, &e.DurationSeconds, &e.PlayedAt); err != nil {
			return nil, err
		}
		e.ChatID, _ = snowflake.Parse(cid)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
