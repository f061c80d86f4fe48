package recognize

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"inscribe-server/workspace"
)

// HandleRecognize sends the active canvas to the recognition service and
// returns the recognized expressions. Assignment results update the
// workspace's variable bindings before the response is written.
func HandleRecognize(mgr *workspace.Manager, client workspace.Recognizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := mgr.Recognize(r.Context(), client)
		if err != nil {
			logrus.WithError(err).Error("Recognition failed")
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, map[string]string{"error": "Recognition failed"})
			return
		}
		render.JSON(w, r, map[string]any{
			"data":     entries,
			"bindings": mgr.Bindings(),
		})
	}
}
