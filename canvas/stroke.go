package canvas

import "image/color"

// StrokeBuilder accumulates pointer samples for a single drag gesture and
// renders the stroke-so-far onto the surface after every sample.
//
// Pen strokes recompute the smoothed outline over the entire accumulated
// sequence on each sample, restoring the base snapshot first so the visible
// stroke never duplicates content from an earlier, already-committed stroke.
// The eraser is a cheaper incremental path: it clears quadratic segments
// between consecutive raw samples and never needs the restore step.
//
// At most one gesture is in progress per input device; the builder carries no
// locking of its own.
type StrokeBuilder struct {
	surface *Surface
	base    []byte
	points  []Point
	tool    Tool
	size    float64
	color   color.RGBA
	active  bool
}

// NewStrokeBuilder creates a builder drawing onto surface.
func NewStrokeBuilder(surface *Surface) *StrokeBuilder {
	return &StrokeBuilder{surface: surface}
}

// Active reports whether a gesture is in progress.
func (b *StrokeBuilder) Active() bool { return b.active }

// Begin starts a new gesture at p. The tool is fixed for the gesture's
// duration. The pre-gesture raster is captured so pen overlays can be redrawn
// from scratch on every sample.
func (b *StrokeBuilder) Begin(p Point, tool Tool, size float64, c color.RGBA) {
	b.base = b.surface.Snapshot()
	b.points = append(b.points[:0], p)
	b.tool = tool
	b.size = size
	b.color = c
	b.active = true
	b.render(p)
}

// Add appends a sample and re-renders the stroke-so-far.
func (b *StrokeBuilder) Add(p Point) {
	if !b.active {
		return
	}
	b.points = append(b.points, p)
	b.render(p)
}

// End finalizes the gesture: the last rendered overlay is already part of the
// raster, so only the sample sequence is discarded. The owning session must
// follow with a Commit.
func (b *StrokeBuilder) End() {
	b.points = nil
	b.base = nil
	b.active = false
}

// Discard abandons the gesture and restores the pre-gesture raster. This is
// the explicit abort path; pointer-cancel in the reference behavior finalizes
// instead (see End).
func (b *StrokeBuilder) Discard() {
	if !b.active {
		return
	}
	b.surface.Restore(b.base)
	b.End()
}

func (b *StrokeBuilder) render(latest Point) {
	switch b.tool.Kind {
	case ToolPen:
		b.surface.Restore(b.base)
		outline := FreehandOutline(b.points, DefaultStrokeOptions(b.size))
		b.surface.FillPolygon(outline, b.color)
	case ToolEraser:
		n := len(b.points)
		if n == 1 {
			b.surface.EraseQuadratic(latest, latest, latest, b.size)
			return
		}
		prev := b.points[n-2]
		mid := Point{X: (prev.X + latest.X) / 2, Y: (prev.Y + latest.Y) / 2}
		b.surface.EraseQuadratic(prev, mid, latest, b.size)
	}
}
