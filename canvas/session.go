package canvas

import (
	"context"
	"image"
	"image/color"

	"github.com/sirupsen/logrus"

	"inscribe-server/core"
)

// DefaultHistoryDepth bounds the number of retained snapshots per session.
const DefaultHistoryDepth = 10

type (
	// TextAnnotation is a committed text placement scoped to one session.
	TextAnnotation struct {
		Text  string  `json:"text"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Color string  `json:"color"`
	}

	// Overlay is a recognized-expression overlay positioned on the session.
	Overlay struct {
		Expression string  `json:"expression"`
		Result     string  `json:"result"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
	}

	// Session owns one raster surface and its linear undo/redo history.
	//
	// A session starts Uninitialized: every operation except Initialize is a
	// no-op until Initialize captures the baseline snapshot. The undo stack,
	// once initialized, always holds at least that baseline.
	//
	// Mutations follow the BeginMutation/Commit contract: exactly one new
	// snapshot is appended per committed mutation, and any pending redo
	// history is invalidated. Snapshot persistence is best-effort; a failed
	// store write is logged and never rolls back in-memory state.
	Session struct {
		ID   string
		Name string

		surface     *Surface
		undo        [][]byte
		redo        [][]byte
		depth       int
		mutating    bool
		annotations []TextAnnotation
		overlays    []Overlay

		snapshots core.SnapshotStore
	}
)

// NewSession creates an uninitialized session borrowing the given surface.
// store may be nil, in which case persistence is skipped entirely.
func NewSession(id, name string, surface *Surface, store core.SnapshotStore) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		surface:   surface,
		depth:     DefaultHistoryDepth,
		snapshots: store,
	}
}

// Surface returns the raster surface the session draws on.
func (s *Session) Surface() *Surface { return s.surface }

// Ready reports whether the session has been initialized.
func (s *Session) Ready() bool { return len(s.undo) > 0 }

// UndoDepth returns the number of retained undo snapshots, baseline included.
func (s *Session) UndoDepth() int { return len(s.undo) }

// RedoDepth returns the number of undone snapshots available for redo.
func (s *Session) RedoDepth() int { return len(s.redo) }

// CanUndo reports whether an undo would change state. The baseline snapshot
// itself is never undone past.
func (s *Session) CanUndo() bool { return len(s.undo) > 1 }

// CanRedo reports whether a redo would change state.
func (s *Session) CanRedo() bool { return len(s.redo) > 0 }

// Annotations returns the session-scoped text annotations.
func (s *Session) Annotations() []TextAnnotation { return s.annotations }

// Overlays returns the recognized-expression overlays placed on the session.
func (s *Session) Overlays() []Overlay { return s.overlays }

// AddOverlay records a recognized-expression overlay.
func (s *Session) AddOverlay(o Overlay) { s.overlays = append(s.overlays, o) }

// Initialize captures the current raster content as the single baseline
// entry of the undo stack. Initializing an already-initialized session is a
// no-op; asynchronous restore paths may race a user-triggered initialize and
// the first one wins.
func (s *Session) Initialize(ctx context.Context) {
	if s.Ready() {
		logrus.WithField("session_id", s.ID).Debug("Session already initialized, ignoring")
		return
	}
	s.undo = append(s.undo, s.surface.Snapshot())
	s.persist(ctx)
}

// BeginMutation marks the start of a mutating gesture. The snapshot itself
// is deferred to Commit; the marker only guards against commits that were
// never opened.
func (s *Session) BeginMutation() {
	if !s.Ready() {
		return
	}
	s.mutating = true
}

// Commit appends the current raster state to the undo stack, invalidates the
// redo stack and enforces the history bound. Eviction discards from index 1
// onward so the baseline (index 0) always survives and a full undo chain can
// still reach blank.
func (s *Session) Commit(ctx context.Context) {
	if !s.Ready() {
		return
	}
	s.mutating = false
	s.undo = append(s.undo, s.surface.Snapshot())
	s.redo = s.redo[:0]
	for len(s.undo) > s.depth {
		s.undo = append(s.undo[:1], s.undo[2:]...)
	}
	s.persist(ctx)
}

// Undo steps back one committed state. Undoing at the baseline is a no-op.
func (s *Session) Undo(ctx context.Context) {
	if !s.CanUndo() {
		return
	}
	top := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, top)
	s.surface.Restore(s.undo[len(s.undo)-1])
	s.persist(ctx)
}

// Redo reapplies the most recently undone state. Redoing with an empty redo
// stack is a no-op.
func (s *Session) Redo(ctx context.Context) {
	if !s.CanRedo() {
		return
	}
	top := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, top)
	s.surface.Restore(top)
	s.persist(ctx)
}

// Reset clears the raster to blank, replaces the whole history with a single
// blank baseline and drops session-scoped annotations and overlays.
func (s *Session) Reset(ctx context.Context) {
	if !s.Ready() {
		return
	}
	s.surface.Clear()
	s.undo = [][]byte{s.surface.Snapshot()}
	s.redo = s.redo[:0]
	s.annotations = nil
	s.overlays = nil
	s.persist(ctx)
}

// ApplyStroke runs a complete pointer gesture through the stroke builder and
// commits the result. It is the single dispatch point for raster-mutating
// tools.
func (s *Session) ApplyStroke(ctx context.Context, tool Tool, points []Point, size float64, c color.RGBA) error {
	if !s.Ready() || len(points) == 0 {
		return nil
	}
	switch tool.Kind {
	case ToolSelection:
		// Selection never mutates the raster.
		return nil
	case ToolPen, ToolEraser:
		b := NewStrokeBuilder(s.surface)
		b.Begin(points[0], tool, size, c)
		for _, p := range points[1:] {
			b.Add(p)
		}
		b.End()
	case ToolShape:
		s.BeginMutation()
		a, z := points[0], points[len(points)-1]
		switch tool.Shape {
		case ShapeRectangle:
			s.surface.StrokeRect(a, z, size, c)
		case ShapeEllipse:
			s.surface.StrokeEllipse(a, z, size, c)
		case ShapeLine:
			s.surface.StrokeLine(a, z, size, c)
		case ShapeArrow:
			s.surface.StrokeArrow(a, z, size, c)
		}
	case ToolTextBox:
		// Text placement goes through PlaceText, which carries the string.
		return nil
	}
	s.Commit(ctx)
	return nil
}

// PlaceText commits a text annotation at the given point.
func (s *Session) PlaceText(ctx context.Context, text string, at Point, c color.RGBA, colorName string) {
	if !s.Ready() || text == "" {
		return
	}
	s.BeginMutation()
	s.surface.DrawText(text, at, c)
	s.annotations = append(s.annotations, TextAnnotation{Text: text, X: at.X, Y: at.Y, Color: colorName})
	s.Commit(ctx)
}

// StampImage commits an image placement at the given point.
func (s *Session) StampImage(ctx context.Context, img image.Image, at Point) {
	if !s.Ready() {
		return
	}
	s.BeginMutation()
	s.surface.DrawImage(img, at)
	s.Commit(ctx)
}

// persist writes the current raster to the snapshot store. Failures degrade
// to a warning; the in-memory history stays authoritative.
func (s *Session) persist(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	uri, err := s.surface.DataURI()
	if err != nil {
		logrus.WithFields(logrus.Fields{"session_id": s.ID, "error": err}).Warn("Failed to encode snapshot")
		return
	}
	if err := s.snapshots.PutSnapshot(ctx, s.ID, uri); err != nil {
		logrus.WithFields(logrus.Fields{"session_id": s.ID, "error": err}).Warn("Failed to persist snapshot, keeping in-memory state")
	}
}
