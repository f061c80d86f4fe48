package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"inscribe-server/core"
)

var (
	savedSnapshots = make(map[string]string)
	savedWorkspace *core.Workspace
	savedPrefs     *core.Preferences
	savedHistory   []core.RecognitionEntry
	mu             sync.RWMutex
)

// memStore keeps every persisted concern in process memory. It is the
// default backend and the one the tests run against.
type memStore struct{}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{}
}

// Reset drops all stored state. Test helper.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	savedSnapshots = make(map[string]string)
	savedWorkspace = nil
	savedPrefs = nil
	savedHistory = nil
}

// PutSnapshot stores the raster blob for a session. Part of the SnapshotStore interface.
func (s *memStore) PutSnapshot(ctx context.Context, sessionID string, dataURI string) error {
	mu.Lock()
	defer mu.Unlock()

	savedSnapshots[sessionID] = dataURI
	logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"data_length": len(dataURI),
	}).Debug("Snapshot stored")
	return nil
}

// GetSnapshot retrieves the raster blob for a session. Part of the SnapshotStore interface.
func (s *memStore) GetSnapshot(ctx context.Context, sessionID string) (string, error) {
	mu.RLock()
	defer mu.RUnlock()

	if val, ok := savedSnapshots[sessionID]; ok {
		return val, nil
	}
	return "", fmt.Errorf("snapshot for session %s not found", sessionID)
}

// DeleteSnapshot removes the raster blob for a session. Part of the SnapshotStore interface.
func (s *memStore) DeleteSnapshot(ctx context.Context, sessionID string) error {
	mu.Lock()
	defer mu.Unlock()

	delete(savedSnapshots, sessionID)
	logrus.WithField("session_id", sessionID).Debug("Snapshot deleted")
	return nil
}

// SaveWorkspace stores the session list and active pointer. Part of the WorkspaceStore interface.
func (s *memStore) SaveWorkspace(ctx context.Context, ws *core.Workspace) error {
	mu.Lock()
	defer mu.Unlock()

	cp := *ws
	cp.Sessions = append([]core.SessionMeta(nil), ws.Sessions...)
	savedWorkspace = &cp
	return nil
}

// LoadWorkspace returns the stored workspace, or nil when nothing was saved.
func (s *memStore) LoadWorkspace(ctx context.Context) (*core.Workspace, error) {
	mu.RLock()
	defer mu.RUnlock()

	if savedWorkspace == nil {
		return nil, nil
	}
	cp := *savedWorkspace
	cp.Sessions = append([]core.SessionMeta(nil), savedWorkspace.Sessions...)
	return &cp, nil
}

// SavePreferences stores the tool preferences. Part of the PreferenceStore interface.
func (s *memStore) SavePreferences(ctx context.Context, prefs *core.Preferences) error {
	mu.Lock()
	defer mu.Unlock()

	cp := *prefs
	savedPrefs = &cp
	return nil
}

// LoadPreferences returns the stored preferences, or nil when nothing was saved.
func (s *memStore) LoadPreferences(ctx context.Context) (*core.Preferences, error) {
	mu.RLock()
	defer mu.RUnlock()

	if savedPrefs == nil {
		return nil, nil
	}
	cp := *savedPrefs
	return &cp, nil
}

// AppendHistory appends recognition entries in order. Part of the HistoryStore interface.
func (s *memStore) AppendHistory(ctx context.Context, entries []core.RecognitionEntry) error {
	mu.Lock()
	defer mu.Unlock()

	savedHistory = append(savedHistory, entries...)
	return nil
}

// ListHistory returns all recognition entries, oldest first.
func (s *memStore) ListHistory(ctx context.Context) ([]core.RecognitionEntry, error) {
	mu.RLock()
	defer mu.RUnlock()

	return append([]core.RecognitionEntry(nil), savedHistory...), nil
}

// ClearHistory drops all recognition entries.
func (s *memStore) ClearHistory(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	savedHistory = nil
	return nil
}
