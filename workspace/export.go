package workspace

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// A4 landscape, millimeters.
const (
	pageWidth  = 297.0
	pageHeight = 210.0
	pageMargin = 10.0
)

// ExportAll renders every session, in display order, as one landscape PDF
// page: the raster flattened against the opaque background with the session
// name as a caption beneath it.
func (m *Manager) ExportAll(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)

	for i, s := range m.sessions {
		flat := s.Surface().Flatten(m.cfg.Background)
		var buf bytes.Buffer
		if err := png.Encode(&buf, flat); err != nil {
			return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
		}

		pdf.AddPage()
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		name := fmt.Sprintf("session-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)

		// Fit the raster inside the page, leaving room for the caption.
		imgW := pageWidth - 2*pageMargin
		imgH := imgW * float64(flat.Rect.Dy()) / float64(flat.Rect.Dx())
		maxH := pageHeight - 2*pageMargin - 10
		if imgH > maxH {
			imgH = maxH
			imgW = imgH * float64(flat.Rect.Dx()) / float64(flat.Rect.Dy())
		}
		x := (pageWidth - imgW) / 2
		pdf.ImageOptions(name, x, pageMargin, imgW, imgH, false, opts, 0, "")
		pdf.SetXY(pageMargin, pageMargin+imgH+4)
		pdf.CellFormat(pageWidth-2*pageMargin, 8, s.Name, "", 0, "C", false, 0, "")
	}

	return pdf.Output(w)
}
