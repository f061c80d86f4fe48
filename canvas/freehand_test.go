package canvas

import (
	"math"
	"testing"
)

func outlineBounds(pts []Point) (w, h float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return maxX - minX, maxY - minY
}

func TestFreehandOutlineEmptyInput(t *testing.T) {
	if out := FreehandOutline(nil, DefaultStrokeOptions(4)); len(out) != 0 {
		t.Errorf("empty input must yield an empty outline, got %d points", len(out))
	}
}

func TestFreehandOutlineSinglePointIsDisc(t *testing.T) {
	out := FreehandOutline([]Point{{X: 20, Y: 20}}, DefaultStrokeOptions(8))
	if len(out) < 8 {
		t.Fatalf("tap outline too coarse: %d points", len(out))
	}
	for _, p := range out {
		d := math.Hypot(p.X-20, p.Y-20)
		if d > 8 {
			t.Fatalf("tap outline point %+v too far from center (%.1f)", p, d)
		}
	}
}

func TestFreehandOutlineCoversSamples(t *testing.T) {
	samples := []Point{{X: 10, Y: 30}, {X: 20, Y: 28}, {X: 30, Y: 32}, {X: 40, Y: 30}, {X: 50, Y: 29}}
	out := FreehandOutline(samples, DefaultStrokeOptions(6))
	if len(out) < 6 {
		t.Fatalf("outline too coarse: %d points", len(out))
	}
	w, h := outlineBounds(out)
	if w < 28 {
		t.Errorf("outline width %.1f does not span the sample range", w)
	}
	if h < 2 || h > 20 {
		t.Errorf("outline height %.1f out of range for a size-6 stroke", h)
	}
}

func TestFreehandOutlineWidthTracksSize(t *testing.T) {
	var samples []Point
	for x := 10.0; x <= 90; x += 8 {
		samples = append(samples, Point{X: x, Y: 50})
	}
	_, thin := outlineBounds(FreehandOutline(samples, DefaultStrokeOptions(2)))
	_, thick := outlineBounds(FreehandOutline(samples, DefaultStrokeOptions(12)))
	if thick <= thin {
		t.Errorf("size 12 stroke (%.1f) must be wider than size 2 (%.1f)", thick, thin)
	}
}

func TestStreamlineDampensJitter(t *testing.T) {
	// Alternate samples two pixels above and below the midline. The smoothed
	// outline must be narrower than the raw jitter band plus stroke width.
	var samples []Point
	for i := 0; i < 30; i++ {
		y := 50.0
		if i%2 == 1 {
			y = 54
		}
		samples = append(samples, Point{X: float64(10 + i*3), Y: y})
	}
	opts := DefaultStrokeOptions(4)
	opts.Streamline = 0.9
	_, h := outlineBounds(FreehandOutline(samples, opts))
	if h > 10 {
		t.Errorf("streamlined outline height %.1f, want jitter mostly absorbed", h)
	}
}
