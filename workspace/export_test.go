package workspace

import (
	"bytes"
	"context"
	"testing"
)

func TestExportAllProducesPDF(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.ApplyStroke(ctx, mgr.ActiveID(), "pen", line(5, 5, 50, 50), 4, "#ffffff")
	mgr.Create(ctx)

	var buf bytes.Buffer
	if err := mgr.ExportAll(&buf); err != nil {
		t.Fatalf("ExportAll() failed: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header: %.8q", out)
	}
	// Two sessions, two pages, one content stream each.
	if got := bytes.Count(out, []byte("/Contents ")); got != 2 {
		t.Errorf("expected 2 page content streams, found %d", got)
	}
}

func TestExportBlankWorkspace(t *testing.T) {
	mgr, _ := newTestManager(t)

	var buf bytes.Buffer
	if err := mgr.ExportAll(&buf); err != nil {
		t.Fatalf("ExportAll() on a blank workspace failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("blank workspace must still export a valid document")
	}
}
