package core

import (
	"context"
	"time"
)

type (
	// SessionMeta is the persisted identity of one canvas session. The raster
	// content itself is stored separately, keyed by the session ID.
	SessionMeta struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Workspace is the persisted shape of the whole workspace: the ordered
	// session list (insertion order is display order) and the active session.
	Workspace struct {
		Sessions []SessionMeta `json:"sessions"`
		ActiveID string        `json:"activeId"`
	}

	// Preferences are the user's tool settings, restored at startup.
	Preferences struct {
		Color      string  `json:"color"`
		StrokeSize float64 `json:"strokeSize"`
		Tool       string  `json:"tool"`
	}

	// RecognitionEntry is one recognized expression from the math recognition
	// service, kept in the workspace history.
	RecognitionEntry struct {
		Expression string    `json:"expression"`
		Result     string    `json:"result"`
		Assignment bool      `json:"assignment"`
		Steps      string    `json:"steps,omitempty"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	// SnapshotStore persists the raster content of a session as a PNG data
	// URI, keyed by session ID. Writes are best-effort: callers treat a
	// failed write as a warning, never as a reason to roll back in-memory
	// state.
	SnapshotStore interface {
		// PutSnapshot stores the raster blob for a session, replacing any
		// previous one.
		PutSnapshot(ctx context.Context, sessionID string, dataURI string) error

		// GetSnapshot returns the stored raster blob for a session, or an
		// error if none exists.
		GetSnapshot(ctx context.Context, sessionID string) (string, error)

		// DeleteSnapshot removes the raster blob for a session. Deleting a
		// missing blob is not an error.
		DeleteSnapshot(ctx context.Context, sessionID string) error
	}

	// WorkspaceStore persists the session list and active-session pointer.
	WorkspaceStore interface {
		SaveWorkspace(ctx context.Context, ws *Workspace) error

		// LoadWorkspace returns the persisted workspace, or nil if nothing
		// has been saved yet.
		LoadWorkspace(ctx context.Context) (*Workspace, error)
	}

	// PreferenceStore persists the user's tool settings.
	PreferenceStore interface {
		SavePreferences(ctx context.Context, prefs *Preferences) error

		// LoadPreferences returns the persisted preferences, or nil if
		// nothing has been saved yet.
		LoadPreferences(ctx context.Context) (*Preferences, error)
	}

	// HistoryStore persists the ordered recognition history.
	HistoryStore interface {
		AppendHistory(ctx context.Context, entries []RecognitionEntry) error
		ListHistory(ctx context.Context) ([]RecognitionEntry, error)
		ClearHistory(ctx context.Context) error
	}
)
