package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftnote/driftnote-agent/internal/domain"
)

// currentSchemaVersion is the latest schema version. Bump when adding
// migrations.
const currentSchemaVersion = 1

// Store is the SQLite-backed implementation of domain.MessageStore,
// domain.EntryStore, and domain.StateStore. One store, three interfaces;
// the two conversation surfaces write disjoint message partitions keyed
// by the surface column.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at baseDir/driftnote.db
// and applies migrations. The baseDir parameter lets tests use t.TempDir().
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "driftnote.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0o600)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		return nil
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS messages (
				id         TEXT PRIMARY KEY,
				surface    TEXT NOT NULL,
				role       TEXT NOT NULL,
				content    TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_messages_surface_created
				ON messages(surface, created_at);

			CREATE TABLE IF NOT EXISTS entries (
				id         TEXT PRIMARY KEY,
				created_at INTEGER NOT NULL,
				mood       TEXT NOT NULL,
				text       TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_entries_created
				ON entries(created_at);

			CREATE TABLE IF NOT EXISTS state (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);
		`); err != nil {
			return fmt.Errorf("applying schema v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, currentSchemaVersion)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, surface, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(msg.ID), string(msg.Surface), string(msg.Role), msg.Content, msg.CreatedAt.UnixNano())
	if err != nil {
		return &domain.StoreError{Op: "append message", Err: err}
	}
	return nil
}

func (s *Store) MessagesSince(ctx context.Context, surface domain.Surface, since time.Time) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at
		FROM messages
		WHERE surface = ? AND created_at >= ?
		ORDER BY created_at ASC
	`, string(surface), since.UnixNano())
	if err != nil {
		return nil, &domain.StoreError{Op: "query messages", Err: err}
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var (
			id, role, content string
			createdAt         int64
		)
		if err := rows.Scan(&id, &role, &content, &createdAt); err != nil {
			return nil, &domain.StoreError{Op: "scan message", Err: err}
		}
		out = append(out, &domain.Message{
			ID:        domain.MessageID(id),
			Surface:   surface,
			Role:      domain.Role(role),
			Content:   content,
			CreatedAt: time.Unix(0, createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "query messages", Err: err}
	}
	return out, nil
}

func (s *Store) DeleteSince(ctx context.Context, surface domain.Surface, since time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE surface = ? AND created_at >= ?
	`, string(surface), since.UnixNano())
	if err != nil {
		return &domain.StoreError{Op: "delete messages", Err: err}
	}
	return nil
}

// ─────────────────────────────────────────
// EntryStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendEntry(ctx context.Context, entry *domain.JournalEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, created_at, mood, text)
		VALUES (?, ?, ?, ?)
	`, string(entry.ID), entry.CreatedAt.UnixNano(), entry.Mood, entry.Text)
	if err != nil {
		return &domain.StoreError{Op: "append entry", Err: err}
	}
	return nil
}

func (s *Store) QueryEntries(ctx context.Context, since *time.Time) ([]*domain.JournalEntry, error) {
	query := `
		SELECT id, created_at, mood, text
		FROM entries
	`
	var args []any
	if since != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UnixNano())
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "query entries", Err: err}
	}
	defer rows.Close()

	var out []*domain.JournalEntry
	for rows.Next() {
		var (
			id, mood, text string
			createdAt      int64
		)
		if err := rows.Scan(&id, &createdAt, &mood, &text); err != nil {
			return nil, &domain.StoreError{Op: "scan entry", Err: err}
		}
		out = append(out, &domain.JournalEntry{
			ID:        domain.EntryID(id),
			CreatedAt: time.Unix(0, createdAt),
			Mood:      mood,
			Text:      text,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "query entries", Err: err}
	}
	return out, nil
}

// ─────────────────────────────────────────
// StateStore implementation
// ─────────────────────────────────────────

func (s *Store) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &domain.StoreError{Op: fmt.Sprintf("get state %q", key), Err: err}
	}
	return value, true, nil
}

func (s *Store) SetState(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return &domain.StoreError{Op: fmt.Sprintf("set state %q", key), Err: err}
	}
	return nil
}
