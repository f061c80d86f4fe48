package memory

import (
	"context"
	"testing"

	"inscribe-server/core"
)

func TestSnapshotLifecycle(t *testing.T) {
	Reset()
	ctx := context.Background()
	store := NewStore()

	if _, err := store.GetSnapshot(ctx, "s1"); err == nil {
		t.Error("missing snapshot must return an error")
	}

	if err := store.PutSnapshot(ctx, "s1", "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("PutSnapshot() failed: %v", err)
	}
	got, err := store.GetSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if got != "data:image/png;base64,AAAA" {
		t.Errorf("GetSnapshot() = %q", got)
	}

	// Put replaces.
	store.PutSnapshot(ctx, "s1", "data:image/png;base64,BBBB")
	if got, _ := store.GetSnapshot(ctx, "s1"); got != "data:image/png;base64,BBBB" {
		t.Errorf("replaced snapshot = %q", got)
	}

	if err := store.DeleteSnapshot(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSnapshot() failed: %v", err)
	}
	if _, err := store.GetSnapshot(ctx, "s1"); err == nil {
		t.Error("deleted snapshot must be gone")
	}

	// Deleting a missing snapshot is not an error.
	if err := store.DeleteSnapshot(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteSnapshot() of a missing blob failed: %v", err)
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	Reset()
	ctx := context.Background()
	store := NewStore()

	ws, err := store.LoadWorkspace(ctx)
	if err != nil {
		t.Fatalf("LoadWorkspace() failed: %v", err)
	}
	if ws != nil {
		t.Fatal("unsaved workspace must load as nil")
	}

	in := &core.Workspace{
		Sessions: []core.SessionMeta{{ID: "a", Name: "Canvas 1"}, {ID: "b", Name: "Canvas 2"}},
		ActiveID: "b",
	}
	if err := store.SaveWorkspace(ctx, in); err != nil {
		t.Fatalf("SaveWorkspace() failed: %v", err)
	}

	// Mutating the original after saving must not leak into the store.
	in.Sessions[0].Name = "mutated"

	out, err := store.LoadWorkspace(ctx)
	if err != nil {
		t.Fatalf("LoadWorkspace() failed: %v", err)
	}
	if out.ActiveID != "b" || len(out.Sessions) != 2 || out.Sessions[0].Name != "Canvas 1" {
		t.Errorf("loaded workspace = %+v", out)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	Reset()
	ctx := context.Background()
	store := NewStore()

	if prefs, _ := store.LoadPreferences(ctx); prefs != nil {
		t.Fatal("unsaved preferences must load as nil")
	}

	in := &core.Preferences{Color: "#ffffff", StrokeSize: 3, Tool: "pen"}
	store.SavePreferences(ctx, in)
	out, err := store.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("LoadPreferences() failed: %v", err)
	}
	if *out != *in {
		t.Errorf("loaded preferences = %+v, want %+v", out, in)
	}
}

func TestHistoryOrderAndClear(t *testing.T) {
	Reset()
	ctx := context.Background()
	store := NewStore()

	store.AppendHistory(ctx, []core.RecognitionEntry{{Expression: "1+1", Result: "2"}})
	store.AppendHistory(ctx, []core.RecognitionEntry{
		{Expression: "x", Result: "5", Assignment: true},
		{Expression: "x+1", Result: "6"},
	})

	got, err := store.ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("history length = %d, want 3", len(got))
	}
	if got[0].Expression != "1+1" || got[2].Expression != "x+1" {
		t.Error("history must keep append order")
	}

	if err := store.ClearHistory(ctx); err != nil {
		t.Fatalf("ClearHistory() failed: %v", err)
	}
	if got, _ := store.ListHistory(ctx); len(got) != 0 {
		t.Errorf("cleared history length = %d, want 0", len(got))
	}
}
