// Package chat calls the external assistant service backing the chat panel.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// FallbackResponse is returned whenever the chat service cannot be reached
// or answers with garbage. Chat failures never propagate as errors.
const FallbackResponse = "I'm sorry, I encountered an error while processing your request."

type (
	chatRequest struct {
		Message string `json:"message"`
	}

	chatResponse struct {
		Response string `json:"response"`
	}

	// Client talks to the chat service over HTTP.
	Client struct {
		baseURL    string
		httpClient *http.Client
	}
)

// NewClient creates a chat client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Send forwards the user's message and returns the assistant's reply. Any
// failure collapses into the fixed fallback message.
func (c *Client) Send(ctx context.Context, message string) string {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return FallbackResponse
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return FallbackResponse
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("Chat service unreachable")
		return FallbackResponse
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logrus.WithField("status", resp.StatusCode).Warn("Chat service returned an error")
		return FallbackResponse
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Response == "" {
		logrus.WithError(err).Warn("Invalid chat response")
		return FallbackResponse
	}
	return parsed.Response
}
