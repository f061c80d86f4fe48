package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"inscribe-server/core"
)

const (
	snapshotsDir    = "snapshots"
	workspaceFile   = "workspace.json"
	preferencesFile = "preferences.json"
	historyFile     = "history.json"
)

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store rooted at basePath.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(filepath.Join(basePath, snapshotsDir), 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) snapshotPath(sessionID string) (string, error) {
	// Session IDs are ULIDs; anything path-like is rejected outright.
	if filepath.Base(sessionID) != sessionID || sessionID == "" || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.basePath, snapshotsDir, sessionID), nil
}

// SnapshotStore implementation: one file per session under snapshots/.
func (s *fsStore) PutSnapshot(ctx context.Context, sessionID string, dataURI string) error {
	path, err := s.snapshotPath(sessionID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"session_id": sessionID, "path": path})
	if err := os.WriteFile(path, []byte(dataURI), 0644); err != nil {
		log.WithError(err).Error("Failed to write snapshot file")
		return err
	}
	log.Debug("Snapshot written")
	return nil
}

func (s *fsStore) GetSnapshot(ctx context.Context, sessionID string) (string, error) {
	path, err := s.snapshotPath(sessionID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("snapshot for session %s not found", sessionID)
		}
		logrus.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Error("Failed to read snapshot file")
		return "", err
	}
	return string(data), nil
}

func (s *fsStore) DeleteSnapshot(ctx context.Context, sessionID string) error {
	path, err := s.snapshotPath(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Error("Failed to delete snapshot file")
		return err
	}
	return nil
}

// readJSON loads a JSON file into v; a missing file leaves v untouched and
// returns ok=false.
func (s *fsStore) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("corrupt %s: %w", name, err)
	}
	return true, nil
}

func (s *fsStore) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.basePath, name), data, 0644)
}

// WorkspaceStore implementation.
func (s *fsStore) SaveWorkspace(ctx context.Context, ws *core.Workspace) error {
	return s.writeJSON(workspaceFile, ws)
}

func (s *fsStore) LoadWorkspace(ctx context.Context) (*core.Workspace, error) {
	var ws core.Workspace
	ok, err := s.readJSON(workspaceFile, &ws)
	if err != nil || !ok {
		return nil, err
	}
	return &ws, nil
}

// PreferenceStore implementation.
func (s *fsStore) SavePreferences(ctx context.Context, prefs *core.Preferences) error {
	return s.writeJSON(preferencesFile, prefs)
}

func (s *fsStore) LoadPreferences(ctx context.Context) (*core.Preferences, error) {
	var prefs core.Preferences
	ok, err := s.readJSON(preferencesFile, &prefs)
	if err != nil || !ok {
		return nil, err
	}
	return &prefs, nil
}

// HistoryStore implementation: the whole history lives in one JSON file and
// appends rewrite it. History volumes are human-interaction sized.
func (s *fsStore) AppendHistory(ctx context.Context, entries []core.RecognitionEntry) error {
	var existing []core.RecognitionEntry
	if _, err := s.readJSON(historyFile, &existing); err != nil {
		return err
	}
	return s.writeJSON(historyFile, append(existing, entries...))
}

func (s *fsStore) ListHistory(ctx context.Context) ([]core.RecognitionEntry, error) {
	var entries []core.RecognitionEntry
	if _, err := s.readJSON(historyFile, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *fsStore) ClearHistory(ctx context.Context) error {
	err := os.Remove(filepath.Join(s.basePath, historyFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
