package canvases

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"inscribe-server/canvas"
	"inscribe-server/stores/memory"
	"inscribe-server/workspace"
)

func newTestRouter(t *testing.T) (*chi.Mux, *workspace.Manager) {
	t.Helper()
	memory.Reset()
	mgr := workspace.New(workspace.Config{Width: 64, Height: 64}, memory.NewStore())
	if err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	r := chi.NewRouter()
	r.Route("/api/v2/canvases", func(r chi.Router) {
		r.Get("/", HandleList(mgr))
		r.Post("/", HandleCreate(mgr))
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", HandleDelete(mgr))
			r.Post("/activate", HandleActivate(mgr))
			r.Put("/name", HandleRename(mgr))
			r.Post("/strokes", HandleStroke(mgr))
			r.Post("/text", HandleText(mgr))
			r.Post("/images", HandleImage(mgr))
			r.Post("/undo", HandleUndo(mgr))
			r.Post("/redo", HandleRedo(mgr))
			r.Post("/reset", HandleReset(mgr))
			r.Get("/image", HandleRender(mgr))
		})
	})
	return r, mgr
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) StateResponse {
	t.Helper()
	var state StateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to decode state response: %v (%s)", err, rec.Body.String())
	}
	return state
}

func TestListAndCreate(t *testing.T) {
	r, mgr := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v2/canvases", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Sessions []struct{ ID, Name string }
		ActiveID string `json:"activeId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Sessions) != 1 || list.ActiveID == "" {
		t.Fatalf("unexpected list response: %s", rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	if len(mgr.Sessions()) != 2 {
		t.Errorf("expected 2 sessions after create, got %d", len(mgr.Sessions()))
	}
}

func TestStrokeUndoRedoRoundTrip(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	stroke := StrokeRequest{
		Tool:   "pen",
		Points: []canvas.Point{{X: 5, Y: 5}, {X: 40, Y: 40}},
		Size:   4,
		Color:  "#ffffff",
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/strokes", stroke)
	if rec.Code != http.StatusOK {
		t.Fatalf("stroke status = %d: %s", rec.Code, rec.Body.String())
	}
	if state := decodeState(t, rec); state.UndoDepth != 2 || state.RedoDepth != 0 {
		t.Errorf("state after stroke = %+v, want 2/0", state)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/undo", nil)
	if state := decodeState(t, rec); state.UndoDepth != 1 || state.RedoDepth != 1 {
		t.Errorf("state after undo = %+v, want 1/1", state)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/redo", nil)
	if state := decodeState(t, rec); state.UndoDepth != 2 || state.RedoDepth != 0 {
		t.Errorf("state after redo = %+v, want 2/0", state)
	}
}

func TestStrokeValidation(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	rec := doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/strokes", StrokeRequest{Tool: "pen"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty points status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/strokes", StrokeRequest{
		Tool:   "lasso",
		Points: []canvas.Point{{X: 1, Y: 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown tool status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/missing/strokes", StrokeRequest{
		Tool:   "pen",
		Points: []canvas.Point{{X: 1, Y: 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown canvas status = %d, want 400", rec.Code)
	}
}

func TestDeleteAndActivate(t *testing.T) {
	r, mgr := newTestRouter(t)
	first := mgr.ActiveID()
	second := mgr.Create(context.Background())

	rec := doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+first+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d", rec.Code)
	}
	if mgr.ActiveID() != first {
		t.Error("activate must switch the active canvas")
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/missing/activate", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("activate unknown status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/v2/canvases/"+second.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(mgr.Sessions()) != 1 {
		t.Errorf("expected 1 session after delete, got %d", len(mgr.Sessions()))
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/v2/canvases/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete unknown status = %d, want 404", rec.Code)
	}
}

func TestDeleteLastCanvasCreatesReplacement(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	rec := doJSON(t, r, http.MethodDelete, "/api/v2/canvases/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var resp struct {
		Sessions []struct{ ID string }
		ActiveID string `json:"activeId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Sessions) != 1 || resp.Sessions[0].ID == id {
		t.Errorf("deleting the last canvas must report a fresh replacement: %s", rec.Body.String())
	}
}

func TestRename(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	rec := doJSON(t, r, http.MethodPut, "/api/v2/canvases/"+id+"/name", RenameRequest{Name: "Notes"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}
	if mgr.Sessions()[0].Name != "Notes" {
		t.Error("rename must update the session name")
	}

	rec = doJSON(t, r, http.MethodPut, "/api/v2/canvases/"+id+"/name", RenameRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", rec.Code)
	}
}

func TestTextAndReset(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	rec := doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/text", TextRequest{Text: "hello", X: 10, Y: 20, Color: "#ffffff"})
	if rec.Code != http.StatusOK {
		t.Fatalf("text status = %d: %s", rec.Code, rec.Body.String())
	}
	if state := decodeState(t, rec); state.UndoDepth != 2 {
		t.Errorf("state after text = %+v, want undo depth 2", state)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/text", TextRequest{X: 1, Y: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/reset", nil)
	if state := decodeState(t, rec); state.UndoDepth != 1 || state.RedoDepth != 0 {
		t.Errorf("state after reset = %+v, want 1/0", state)
	}
}

func TestRenderPNG(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/canvases/"+id+"/image", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("render status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("response is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Errorf("rendered size = %v, want 64x64", img.Bounds())
	}
}

func TestImageStamp(t *testing.T) {
	r, mgr := newTestRouter(t)
	id := mgr.ActiveID()

	// Render the blank canvas and stamp it back; any valid PNG data URI works.
	req := httptest.NewRequest(http.MethodGet, "/api/v2/canvases/"+id+"/image", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(rec.Body.Bytes())

	rec2 := doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/images", ImageRequest{Image: uri, X: 0, Y: 0})
	if rec2.Code != http.StatusOK {
		t.Fatalf("image status = %d: %s", rec2.Code, rec2.Body.String())
	}
	if state := decodeState(t, rec2); state.UndoDepth != 2 {
		t.Errorf("state after image = %+v, want undo depth 2", state)
	}

	rec2 = doJSON(t, r, http.MethodPost, "/api/v2/canvases/"+id+"/images", ImageRequest{Image: "not-a-data-uri"})
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad image status = %d, want 400", rec2.Code)
	}
}
