package assistant

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

type (
	ChatRequest struct {
		Message string `json:"message"`
	}

	ChatResponse struct {
		Response string `json:"response"`
	}

	// Sender abstracts the chat client.
	Sender interface {
		Send(ctx context.Context, message string) string
	}
)

// HandleChat forwards a message to the chat service. Service failures are
// absorbed into the client's fixed fallback reply, so this handler always
// answers 200 with some response text.
func HandleChat(client Sender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Please provide a message."})
			return
		}
		render.JSON(w, r, ChatResponse{Response: client.Send(r.Context(), req.Message)})
	}
}
