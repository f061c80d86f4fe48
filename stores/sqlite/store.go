package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"inscribe-server/core"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	// Per-session raster blobs
	snapshotStmt := `CREATE TABLE IF NOT EXISTS snapshots (
		session_id TEXT PRIMARY KEY,
		data TEXT,
		updated_at DATETIME
	);`
	if _, err = db.Exec(snapshotStmt); err != nil {
		log.Fatalf("failed to create snapshots table: %v", err)
	}

	// Workspace metadata and preferences share one key/value table.
	settingsStmt := `CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT
	);`
	if _, err = db.Exec(settingsStmt); err != nil {
		log.Fatalf("failed to create settings table: %v", err)
	}

	historyStmt := `CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		expression TEXT,
		result TEXT,
		assignment INTEGER,
		steps TEXT,
		created_at DATETIME
	);`
	if _, err = db.Exec(historyStmt); err != nil {
		log.Fatalf("failed to create history table: %v", err)
	}

	return &sqliteStore{db}
}

// SnapshotStore implementation
func (s *sqliteStore) PutSnapshot(ctx context.Context, sessionID string, dataURI string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, dataURI, time.Now())
	if err != nil {
		logrus.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Error("Failed to store snapshot")
		return err
	}
	return nil
}

func (s *sqliteStore) GetSnapshot(ctx context.Context, sessionID string) (string, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE session_id = ?", sessionID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("snapshot for session %s not found", sessionID)
		}
		logrus.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Error("Failed to retrieve snapshot")
		return "", err
	}
	return data, nil
}

func (s *sqliteStore) DeleteSnapshot(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE session_id = ?", sessionID)
	return err
}

func (s *sqliteStore) putSetting(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data))
	return err
}

func (s *sqliteStore) getSetting(ctx context.Context, key string, v any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return false, err
	}
	return true, nil
}

// WorkspaceStore implementation
func (s *sqliteStore) SaveWorkspace(ctx context.Context, ws *core.Workspace) error {
	return s.putSetting(ctx, "workspace", ws)
}

func (s *sqliteStore) LoadWorkspace(ctx context.Context) (*core.Workspace, error) {
	var ws core.Workspace
	ok, err := s.getSetting(ctx, "workspace", &ws)
	if err != nil || !ok {
		return nil, err
	}
	return &ws, nil
}

// PreferenceStore implementation
func (s *sqliteStore) SavePreferences(ctx context.Context, prefs *core.Preferences) error {
	return s.putSetting(ctx, "preferences", prefs)
}

func (s *sqliteStore) LoadPreferences(ctx context.Context) (*core.Preferences, error) {
	var prefs core.Preferences
	ok, err := s.getSetting(ctx, "preferences", &prefs)
	if err != nil || !ok {
		return nil, err
	}
	return &prefs, nil
}

// HistoryStore implementation
func (s *sqliteStore) AppendHistory(ctx context.Context, entries []core.RecognitionEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		// ULID keys keep insertion order sortable.
		_, err = tx.ExecContext(ctx,
			"INSERT INTO history (id, expression, result, assignment, steps, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			ulid.Make().String(), e.Expression, e.Result, e.Assignment, e.Steps, e.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ListHistory(ctx context.Context) ([]core.RecognitionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expression, result, assignment, steps, created_at FROM history ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []core.RecognitionEntry
	for rows.Next() {
		var e core.RecognitionEntry
		if err := rows.Scan(&e.Expression, &e.Result, &e.Assignment, &e.Steps, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *sqliteStore) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}
