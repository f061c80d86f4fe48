package canvases

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"inscribe-server/canvas"
	"inscribe-server/workspace"
)

type (
	StrokeRequest struct {
		Tool   string         `json:"tool"`
		Points []canvas.Point `json:"points"`
		Size   float64        `json:"size"`
		Color  string         `json:"color"`
	}

	TextRequest struct {
		Text  string  `json:"text"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Color string  `json:"color"`
	}

	ImageRequest struct {
		Image string  `json:"image"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}

	RenameRequest struct {
		Name string `json:"name"`
	}

	StateResponse struct {
		UndoDepth int `json:"undoDepth"`
		RedoDepth int `json:"redoDepth"`
	}
)

// HandleList returns metadata for every canvas in display order.
func HandleList(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"sessions": mgr.Sessions(),
			"activeId": mgr.ActiveID(),
		})
	}
}

// HandleCreate adds a new blank canvas and activates it.
func HandleCreate(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta := mgr.Create(r.Context())
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, meta)
	}
}

// HandleDelete removes a canvas and its persisted raster.
func HandleDelete(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !mgr.Delete(r.Context(), id) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Canvas not found"})
			return
		}
		render.JSON(w, r, map[string]any{
			"sessions": mgr.Sessions(),
			"activeId": mgr.ActiveID(),
		})
	}
}

// HandleActivate switches the active canvas.
func HandleActivate(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !mgr.SwitchActive(r.Context(), id) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Canvas not found"})
			return
		}
		render.JSON(w, r, map[string]string{"activeId": id})
	}
}

// HandleRename updates a canvas display name.
func HandleRename(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req RenameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Name is required"})
			return
		}
		if !mgr.Rename(r.Context(), id, req.Name) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Canvas not found"})
			return
		}
		render.JSON(w, r, map[string]string{"id": id, "name": req.Name})
	}
}

// HandleStroke applies a complete drag gesture to a canvas.
func HandleStroke(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req StrokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if len(req.Points) == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "At least one point is required"})
			return
		}
		if err := mgr.ApplyStroke(r.Context(), id, req.Tool, req.Points, req.Size, req.Color); err != nil {
			logrus.WithFields(logrus.Fields{"error": err, "canvas_id": id}).Warn("Failed to apply stroke")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		writeState(w, r, mgr, id)
	}
}

// HandleText commits a text annotation.
func HandleText(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req TextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Text is required"})
			return
		}
		if err := mgr.PlaceText(r.Context(), id, req.Text, canvas.Point{X: req.X, Y: req.Y}, req.Color); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		writeState(w, r, mgr, id)
	}
}

// HandleImage stamps a PNG data URI onto a canvas.
func HandleImage(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req ImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Image is required"})
			return
		}
		if err := mgr.StampImage(r.Context(), id, req.Image, canvas.Point{X: req.X, Y: req.Y}); err != nil {
			logrus.WithFields(logrus.Fields{"error": err, "canvas_id": id}).Warn("Failed to stamp image")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		writeState(w, r, mgr, id)
	}
}

// HandleUndo steps a canvas back one committed state.
func HandleUndo(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !mgr.Undo(r.Context(), id) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Canvas not found"})
			return
		}
		writeState(w, r, mgr, id)
	}
}

// HandleRedo reapplies a canvas's most recently undone state.
func HandleRedo(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !mgr.Redo(r.Context(), id) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Canvas not found"})
			return
		}
		writeState(w, r, mgr, id)
	}
}

// HandleReset clears a canvas back to a blank baseline.
func HandleReset(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !mgr.ResetSession(r.Context(), id) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Canvas not found"})
			return
		}
		writeState(w, r, mgr, id)
	}
}

// HandleRender returns a canvas's raster as PNG.
func HandleRender(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		w.Header().Set("Content-Type", "image/png")
		if err := mgr.RenderPNG(id, w); err != nil {
			logrus.WithFields(logrus.Fields{"error": err, "canvas_id": id}).Warn("Failed to render canvas")
			http.Error(w, "Canvas not found", http.StatusNotFound)
			return
		}
	}
}

func writeState(w http.ResponseWriter, r *http.Request, mgr *workspace.Manager, id string) {
	undo, redo, ok := mgr.SessionState(id)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Canvas not found"})
		return
	}
	render.JSON(w, r, StateResponse{UndoDepth: undo, RedoDepth: redo})
}
