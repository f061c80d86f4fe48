package workspaces

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"inscribe-server/core"
	"inscribe-server/workspace"
)

// HandleGet returns the workspace overview: sessions, active pointer,
// variable bindings and preferences.
func HandleGet(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"sessions":    mgr.Sessions(),
			"activeId":    mgr.ActiveID(),
			"bindings":    mgr.Bindings(),
			"preferences": mgr.Preferences(),
		})
	}
}

// HandleReset resets every canvas and clears workspace-level derived state.
func HandleReset(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr.ResetAll(r.Context())
		render.JSON(w, r, map[string]any{
			"sessions": mgr.Sessions(),
			"activeId": mgr.ActiveID(),
		})
	}
}

// HandleExport streams the whole workspace as a multi-page PDF, one page per
// canvas in display order.
func HandleExport(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="inscribe-workspace.pdf"`)
		if err := mgr.ExportAll(w); err != nil {
			logrus.WithError(err).Error("Failed to export workspace")
			http.Error(w, "Failed to export workspace", http.StatusInternalServerError)
			return
		}
	}
}

// HandleGetPreferences returns the persisted tool preferences.
func HandleGetPreferences(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, mgr.Preferences())
	}
}

// HandlePutPreferences validates and stores tool preferences.
func HandlePutPreferences(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var prefs core.Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if err := mgr.SetPreferences(r.Context(), prefs); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, prefs)
	}
}

// HandleHistory returns the recognition history, oldest first.
func HandleHistory(mgr *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := mgr.Results()
		if results == nil {
			results = []core.RecognitionEntry{}
		}
		render.JSON(w, r, results)
	}
}
