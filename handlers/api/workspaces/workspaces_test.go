package workspaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inscribe-server/canvas"
	"inscribe-server/core"
	"inscribe-server/stores/memory"
	"inscribe-server/workspace"
)

func newTestManager(t *testing.T) *workspace.Manager {
	t.Helper()
	memory.Reset()
	mgr := workspace.New(workspace.Config{Width: 64, Height: 64}, memory.NewStore())
	if err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return mgr
}

func TestHandleGet(t *testing.T) {
	mgr := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspace", nil)
	rec := httptest.NewRecorder()
	HandleGet(mgr)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Sessions    []core.SessionMeta `json:"sessions"`
		ActiveID    string             `json:"activeId"`
		Bindings    map[string]string  `json:"bindings"`
		Preferences core.Preferences   `json:"preferences"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sessions) != 1 || resp.ActiveID != resp.Sessions[0].ID {
		t.Errorf("unexpected workspace overview: %s", rec.Body.String())
	}
	if resp.Preferences.Tool != "pen" {
		t.Errorf("default tool = %q, want pen", resp.Preferences.Tool)
	}
}

func TestHandleReset(t *testing.T) {
	mgr := newTestManager(t)
	id := mgr.ActiveID()
	mgr.ApplyStroke(context.Background(), id, "pen",
		[]canvas.Point{{X: 5, Y: 5}, {X: 40, Y: 40}}, 4, "#ffffff")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/workspace/reset", nil)
	rec := httptest.NewRecorder()
	HandleReset(mgr)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	undo, redo, _ := mgr.SessionState(id)
	if undo != 1 || redo != 0 {
		t.Errorf("session state after reset = %d/%d, want 1/0", undo, redo)
	}
}

func TestHandleExport(t *testing.T) {
	mgr := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/workspace/export", nil)
	rec := httptest.NewRecorder()
	HandleExport(mgr)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="inscribe-workspace.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body does not start with a PDF header")
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	body, _ := json.Marshal(core.Preferences{Color: "#ff8800", StrokeSize: 8, Tool: "eraser"})
	req := httptest.NewRequest(http.MethodPut, "/api/v2/preferences", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	HandlePutPreferences(mgr)(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v2/preferences", nil)
	rec = httptest.NewRecorder()
	HandleGetPreferences(mgr)(rec, req)
	var prefs core.Preferences
	json.Unmarshal(rec.Body.Bytes(), &prefs)
	if prefs.Tool != "eraser" || prefs.StrokeSize != 8 {
		t.Errorf("preferences = %+v", prefs)
	}
}

func TestPutPreferencesRejectsInvalid(t *testing.T) {
	mgr := newTestManager(t)

	for _, body := range []string{
		"{not json",
		`{"color":"#ffffff","strokeSize":3,"tool":"lasso"}`,
		`{"color":"#ffffff","strokeSize":0,"tool":"pen"}`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/api/v2/preferences", bytes.NewReader([]byte(body)))
		rec := httptest.NewRecorder()
		HandlePutPreferences(mgr)(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("put %q status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleHistoryEmptyIsArray(t *testing.T) {
	mgr := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/history", nil)
	rec := httptest.NewRecorder()
	HandleHistory(mgr)(rec, req)

	if got := rec.Body.String(); got != "[]\n" && got != "[]" {
		t.Errorf("empty history must render as [], got %q", got)
	}
}
