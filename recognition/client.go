// Package recognition calls the external math-expression recognition
// service: raster image in, ordered list of recognized expressions out.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Result is one recognized expression. Assignment entries bind the
	// expression to the result in the caller's variable map.
	Result struct {
		Expression string `json:"expr"`
		Result     string `json:"result"`
		Assignment bool   `json:"assign"`
		Steps      string `json:"steps"`
	}

	analyzeRequest struct {
		Image     string            `json:"image"`
		Variables map[string]string `json:"dict_of_vars"`
	}

	analyzeResponse struct {
		Message string   `json:"message"`
		Data    []Result `json:"data"`
		Status  string   `json:"status"`
	}

	// Client talks to the recognition service over HTTP. Calls are not
	// retried; a failed call surfaces to the user.
	Client struct {
		baseURL    string
		httpClient *http.Client
	}
)

// NewClient creates a recognition client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Analyze submits the raster (as a PNG data URI) together with the current
// variable bindings and returns the recognized expressions in response order.
func (c *Client) Analyze(ctx context.Context, imageDataURI string, variables map[string]string) ([]Result, error) {
	if variables == nil {
		variables = map[string]string{}
	}
	body, err := json.Marshal(analyzeRequest{Image: imageDataURI, Variables: variables})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition service returned status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid recognition response: %w", err)
	}

	logrus.WithField("results", len(parsed.Data)).Debug("Recognition call completed")
	return parsed.Data, nil
}
