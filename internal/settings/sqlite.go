package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bitor-console/internal/types"
)

// SQLiteRepository implements Repository using SQLite for persistence
type SQLiteRepository struct {
	db       *sql.DB
	defaults *types.AppSettings
}

// NewSQLiteRepository creates a new SQLite-backed settings repository.
// defaults is returned by Load until something has been saved.
func NewSQLiteRepository(dbPath string, defaults *types.AppSettings) (*SQLiteRepository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	// Single-row table; NULL columns are preferences that were never set
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS app_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			theme TEXT,
			notifications INTEGER,
			auto_refresh INTEGER,
			refresh_interval INTEGER,
			language TEXT,
			timezone TEXT,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteRepository{db: db, defaults: defaults.Clone()}, nil
}

// Load retrieves the stored settings, returning defaults if none exist
func (r *SQLiteRepository) Load(ctx context.Context) (*types.AppSettings, error) {
	var (
		theme, language, timezone  sql.NullString
		notifications, autoRefresh sql.NullBool
		refreshInterval            sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT theme, notifications, auto_refresh, refresh_interval, language, timezone
		FROM app_settings WHERE id = 1
	`).Scan(&theme, &notifications, &autoRefresh, &refreshInterval, &language, &timezone)

	if errors.Is(err, sql.ErrNoRows) {
		if r.defaults == nil {
			return &types.AppSettings{}, nil
		}
		return r.defaults.Clone(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}

	s := &types.AppSettings{
		Theme:    types.Theme(theme.String),
		Language: language.String,
		Timezone: timezone.String,
	}
	if notifications.Valid {
		s.Notifications = types.Bool(notifications.Bool)
	}
	if autoRefresh.Valid {
		s.AutoRefresh = types.Bool(autoRefresh.Bool)
	}
	if refreshInterval.Valid {
		s.RefreshInterval = types.Int(int(refreshInterval.Int64))
	}
	return s, nil
}

// Save persists settings using upsert, replacing every column
func (r *SQLiteRepository) Save(ctx context.Context, s *types.AppSettings) error {
	if s == nil {
		return errors.New("save settings: nil settings")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_settings (id, theme, notifications, auto_refresh, refresh_interval, language, timezone, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			theme = excluded.theme,
			notifications = excluded.notifications,
			auto_refresh = excluded.auto_refresh,
			refresh_interval = excluded.refresh_interval,
			language = excluded.language,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at
	`,
		nullString(string(s.Theme)),
		nullBool(s.Notifications),
		nullBool(s.AutoRefresh),
		nullInt(s.RefreshInterval),
		nullString(s.Language),
		nullString(s.Timezone),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Clear removes the stored settings so Load returns defaults again
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM app_settings WHERE id = 1"); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return nil
}

// Close releases database resources
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
