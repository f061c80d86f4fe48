// Package workspace owns the set of canvas sessions, the active-session
// pointer and everything that spans sessions: preferences, recognition
// results, variable bindings and PDF export.
package workspace

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"inscribe-server/canvas"
	"inscribe-server/core"
	"inscribe-server/recognition"
)

type (
	// Store is the persistence surface the manager needs. stores.Store
	// satisfies it.
	Store interface {
		core.SnapshotStore
		core.WorkspaceStore
		core.PreferenceStore
		core.HistoryStore
	}

	// Recognizer abstracts the recognition client for testing.
	Recognizer interface {
		Analyze(ctx context.Context, imageDataURI string, variables map[string]string) ([]recognition.Result, error)
	}

	// Config carries the per-surface drawing parameters, replacing the
	// module-level tool state of the original drawing client.
	Config struct {
		Width      int
		Height     int
		Background color.RGBA
	}

	// Manager coordinates all canvas sessions. All methods are safe for
	// concurrent use; sessions themselves are only ever touched while the
	// manager's lock is held.
	Manager struct {
		mu       sync.Mutex
		cfg      Config
		store    Store
		sessions []*canvas.Session
		activeID string
		seq      int
		bindings map[string]string
		results  []core.RecognitionEntry
		prefs    core.Preferences
	}
)

// DefaultConfig mirrors the original drawing surface: a dark opaque
// background behind a transparent ink layer.
func DefaultConfig() Config {
	return Config{
		Width:      1280,
		Height:     720,
		Background: color.RGBA{R: 0x16, G: 0x17, B: 0x18, A: 0xff},
	}
}

// New creates an empty manager. Call Load before serving requests.
func New(cfg Config, store Store) *Manager {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultConfig()
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		bindings: make(map[string]string),
		prefs: core.Preferences{
			Color:      "rgb(255, 255, 255)",
			StrokeSize: 3,
			Tool:       "pen",
		},
	}
}

// Load restores persisted workspace metadata, raster snapshots, preferences
// and recognition history, then guarantees at least one session exists.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, err := m.store.LoadWorkspace(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load workspace metadata, starting fresh")
	}
	if ws != nil {
		for _, meta := range ws.Sessions {
			surface := canvas.NewSurface(m.cfg.Width, m.cfg.Height)
			if uri, err := m.store.GetSnapshot(ctx, meta.ID); err == nil {
				if err := surface.LoadDataURI(uri); err != nil {
					logrus.WithFields(logrus.Fields{"session_id": meta.ID, "error": err}).Warn("Ignoring corrupt snapshot")
					surface.Clear()
				}
			}
			sess := canvas.NewSession(meta.ID, meta.Name, surface, m.store)
			sess.Initialize(ctx)
			m.sessions = append(m.sessions, sess)
		}
		m.activeID = ws.ActiveID
		m.seq = len(m.sessions)
	}
	if m.lookup(m.activeID) == nil && len(m.sessions) > 0 {
		m.activeID = m.sessions[0].ID
	}
	if len(m.sessions) == 0 {
		m.createLocked(ctx)
	}

	if prefs, err := m.store.LoadPreferences(ctx); err == nil && prefs != nil {
		m.prefs = *prefs
	}
	if entries, err := m.store.ListHistory(ctx); err == nil {
		m.results = entries
	}
	return nil
}

func (m *Manager) lookup(id string) *canvas.Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// createLocked adds a fresh blank session and makes it active. Caller holds
// the lock.
func (m *Manager) createLocked(ctx context.Context) *canvas.Session {
	m.seq++
	id := ulid.Make().String()
	name := fmt.Sprintf("Canvas %d", m.seq)
	sess := canvas.NewSession(id, name, canvas.NewSurface(m.cfg.Width, m.cfg.Height), m.store)
	sess.Initialize(ctx)
	m.sessions = append(m.sessions, sess)
	m.activeID = id
	m.persistWorkspace(ctx)
	logrus.WithFields(logrus.Fields{"session_id": id, "name": name}).Info("Session created")
	return sess
}

// Create adds a new blank session, sets it active and returns its metadata.
func (m *Manager) Create(ctx context.Context) core.SessionMeta {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.createLocked(ctx)
	return core.SessionMeta{ID: s.ID, Name: s.Name}
}

// Delete removes a session and its persisted blob. Deleting the active
// session activates the first remaining one; deleting the last session
// immediately creates a fresh blank one so the workspace is never left
// without a drawing surface.
func (m *Manager) Delete(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, s := range m.sessions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)
	if err := m.store.DeleteSnapshot(ctx, id); err != nil {
		logrus.WithFields(logrus.Fields{"session_id": id, "error": err}).Warn("Failed to delete persisted snapshot")
	}
	if len(m.sessions) == 0 {
		m.createLocked(ctx)
	} else if m.activeID == id {
		m.activeID = m.sessions[0].ID
	}
	m.persistWorkspace(ctx)
	logrus.WithField("session_id", id).Info("Session deleted")
	return true
}

// SwitchActive points the workspace at another session. Unknown ids are a
// no-op. Pure pointer change; no raster is touched.
func (m *Manager) SwitchActive(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookup(id) == nil {
		return false
	}
	m.activeID = id
	m.persistWorkspace(ctx)
	return true
}

// Rename updates a session's display name.
func (m *Manager) Rename(ctx context.Context, id, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(id)
	if s == nil || name == "" {
		return false
	}
	s.Name = name
	m.persistWorkspace(ctx)
	return true
}

// Sessions returns metadata for every session in display order.
func (m *Manager) Sessions() []core.SessionMeta {
	m.mu.Lock()
	defer m.mu.Unlock()

	metas := make([]core.SessionMeta, 0, len(m.sessions))
	for _, s := range m.sessions {
		metas = append(metas, core.SessionMeta{ID: s.ID, Name: s.Name})
	}
	return metas
}

// ActiveID returns the id of the active session.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// ApplyStroke runs a complete drag gesture against a session.
func (m *Manager) ApplyStroke(ctx context.Context, id, toolName string, points []canvas.Point, size float64, colorName string) error {
	tool, err := canvas.ParseTool(toolName)
	if err != nil {
		return err
	}
	col := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if colorName != "" {
		if col, err = canvas.ParseColor(colorName); err != nil {
			return err
		}
	}
	if size <= 0 {
		size = 3
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(id)
	if s == nil {
		return fmt.Errorf("session %s not found", id)
	}
	return s.ApplyStroke(ctx, tool, points, size, col)
}

// PlaceText commits a text annotation on a session.
func (m *Manager) PlaceText(ctx context.Context, id, text string, at canvas.Point, colorName string) error {
	col := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if colorName != "" {
		var err error
		if col, err = canvas.ParseColor(colorName); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(id)
	if s == nil {
		return fmt.Errorf("session %s not found", id)
	}
	s.PlaceText(ctx, text, at, col, colorName)
	return nil
}

// StampImage decodes a PNG data URI and commits it onto a session.
func (m *Manager) StampImage(ctx context.Context, id, imageDataURI string, at canvas.Point) error {
	img, err := canvas.DecodeDataURI(imageDataURI)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(id)
	if s == nil {
		return fmt.Errorf("session %s not found", id)
	}
	s.StampImage(ctx, img, at)
	return nil
}

// Undo steps a session back one committed state.
func (m *Manager) Undo(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(id)
	if s == nil {
		return false
	}
	s.Undo(ctx)
	return true
}

// Redo reapplies a session's most recently undone state.
func (m *Manager) Redo(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(id)
	if s == nil {
		return false
	}
	s.Redo(ctx)
	return true
}

// ResetSession clears one session back to a blank baseline.
func (m *Manager) ResetSession(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.lookup(id)
	if s == nil {
		return false
	}
	s.Reset(ctx)
	return true
}

// ResetAll resets every session and clears workspace-level derived state:
// recognition results, overlays and variable bindings.
func (m *Manager) ResetAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		s.Reset(ctx)
	}
	m.bindings = make(map[string]string)
	m.results = nil
	if err := m.store.ClearHistory(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to clear persisted history")
	}
	logrus.Info("Workspace reset")
}

// Recognize sends the active session's raster to the recognition service.
// Assignment entries update the variable bindings; every entry is appended
// to the recognition history and placed as an overlay on the session, in
// response order.
func (m *Manager) Recognize(ctx context.Context, client Recognizer) ([]core.RecognitionEntry, error) {
	m.mu.Lock()
	s := m.lookup(m.activeID)
	if s == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("no active session")
	}
	uri, err := s.Surface().DataURI()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	vars := make(map[string]string, len(m.bindings))
	for k, v := range m.bindings {
		vars[k] = v
	}
	m.mu.Unlock()

	// The HTTP call runs outside the lock; the UI stays interactive while
	// recognition is in flight.
	results, err := client.Analyze(ctx, uri, vars)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Overlay placement anchors at the drawn content's center, stacking
	// entries beneath each other.
	ox, oy := float64(m.cfg.Width)/2, float64(m.cfg.Height)/2
	if bounds, ok := s.Surface().ContentBounds(); ok {
		ox = float64(bounds.Min.X+bounds.Max.X) / 2
		oy = float64(bounds.Min.Y+bounds.Max.Y) / 2
	}

	now := time.Now()
	entries := make([]core.RecognitionEntry, 0, len(results))
	for i, r := range results {
		if r.Assignment {
			m.bindings[r.Expression] = r.Result
		}
		entries = append(entries, core.RecognitionEntry{
			Expression: r.Expression,
			Result:     r.Result,
			Assignment: r.Assignment,
			Steps:      r.Steps,
			CreatedAt:  now,
		})
		s.AddOverlay(canvas.Overlay{
			Expression: r.Expression,
			Result:     r.Result,
			X:          ox,
			Y:          oy + float64(30*i),
		})
	}
	m.results = append(m.results, entries...)
	if err := m.store.AppendHistory(ctx, entries); err != nil {
		logrus.WithError(err).Warn("Failed to persist recognition history")
	}
	return entries, nil
}

// Bindings returns a copy of the recognized-variable bindings.
func (m *Manager) Bindings() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.bindings))
	for k, v := range m.bindings {
		out[k] = v
	}
	return out
}

// Results returns the recognition history, oldest first.
func (m *Manager) Results() []core.RecognitionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.RecognitionEntry(nil), m.results...)
}

// Preferences returns the current tool preferences.
func (m *Manager) Preferences() core.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// SetPreferences validates and persists tool preferences.
func (m *Manager) SetPreferences(ctx context.Context, prefs core.Preferences) error {
	if _, err := canvas.ParseTool(prefs.Tool); err != nil {
		return err
	}
	if _, err := canvas.ParseColor(prefs.Color); err != nil {
		return err
	}
	if prefs.StrokeSize <= 0 || prefs.StrokeSize > 100 {
		return fmt.Errorf("stroke size %v out of range", prefs.StrokeSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs
	if err := m.store.SavePreferences(ctx, &prefs); err != nil {
		logrus.WithError(err).Warn("Failed to persist preferences")
	}
	return nil
}

// RenderPNG writes one session's raster as PNG.
func (m *Manager) RenderPNG(id string, w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(id)
	if s == nil {
		return fmt.Errorf("session %s not found", id)
	}
	return s.Surface().EncodePNG(w)
}

// UndoDepth and session inspection helpers used by handlers and tests.
func (m *Manager) SessionState(id string) (undo, redo int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(id)
	if s == nil {
		return 0, 0, false
	}
	return s.UndoDepth(), s.RedoDepth(), true
}

// persistWorkspace writes the session list and active pointer. Best-effort:
// a failed write is a warning, in-memory state stays authoritative.
func (m *Manager) persistWorkspace(ctx context.Context) {
	ws := &core.Workspace{ActiveID: m.activeID}
	for _, s := range m.sessions {
		ws.Sessions = append(ws.Sessions, core.SessionMeta{ID: s.ID, Name: s.Name})
	}
	if err := m.store.SaveWorkspace(ctx, ws); err != nil {
		logrus.WithError(err).Warn("Failed to persist workspace metadata")
	}
}
