package canvas

import "math"

// StrokeOptions control the pressure-tapered freehand outline.
//
// Size is the full stroke diameter. Thinning scales the radius by simulated
// pressure (0 disables tapering). Smoothing softens direction changes and
// Streamline pulls each incoming sample toward its predecessor, damping
// pointer jitter. All three shape parameters are in [0, 1].
type StrokeOptions struct {
	Size       float64
	Thinning   float64
	Smoothing  float64
	Streamline float64
}

// DefaultStrokeOptions mirror the drawing client's pen settings.
func DefaultStrokeOptions(size float64) StrokeOptions {
	return StrokeOptions{
		Size:       size,
		Thinning:   0.5,
		Smoothing:  0.5,
		Streamline: 0.5,
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// FreehandOutline converts raw pointer samples into a closed polygon
// approximating a pressure-tapered stroke, suitable for filling. The whole
// sample sequence is recomputed on every call; incremental callers simply
// pass the accumulated points again.
func FreehandOutline(points []Point, opts StrokeOptions) []Point {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if len(points) == 0 {
		return nil
	}

	// Streamline: interpolate each sample toward the previous streamlined
	// point so fast jittery input settles into a smooth path.
	t := 0.15 + (1-opts.Streamline)*0.85
	pts := make([]Point, 0, len(points))
	pts = append(pts, points[0])
	for _, p := range points[1:] {
		prev := pts[len(pts)-1]
		sp := Point{X: lerp(prev.X, p.X, t), Y: lerp(prev.Y, p.Y, t)}
		if math.Hypot(sp.X-prev.X, sp.Y-prev.Y) < 0.1 {
			continue
		}
		pts = append(pts, sp)
	}

	if len(pts) == 1 {
		// A tap: emit a small circle.
		return discOutline(pts[0], opts.Size/2)
	}

	// Simulated pressure from inter-sample velocity: slow movement presses
	// harder, fast movement thins the stroke.
	radii := make([]float64, len(pts))
	pressure := 0.5
	for i := range pts {
		if i > 0 {
			d := math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
			target := 1 - math.Min(1, d/opts.Size)
			pressure = lerp(pressure, target, math.Min(1, d/opts.Size)/2+0.25)
		}
		r := opts.Size / 2
		if opts.Thinning > 0 {
			r *= lerp(1-opts.Thinning, 1, pressure)
		}
		// Taper the ends regardless of pressure.
		edge := math.Min(float64(i), float64(len(pts)-1-i))
		taper := math.Min(1, (edge+1)/4)
		radii[i] = math.Max(r*taper, 0.5)
	}

	// Offset each point perpendicular to its (smoothed) direction and walk
	// the left side forward, the right side backward.
	dirs := make([]Point, len(pts))
	for i := range pts {
		var a, b Point
		switch {
		case i == 0:
			a, b = pts[0], pts[1]
		case i == len(pts)-1:
			a, b = pts[i-1], pts[i]
		default:
			a, b = pts[i-1], pts[i+1]
		}
		d := math.Hypot(b.X-a.X, b.Y-a.Y)
		if d < 1e-6 {
			dirs[i] = Point{X: 1, Y: 0}
			continue
		}
		dir := Point{X: (b.X - a.X) / d, Y: (b.Y - a.Y) / d}
		if i > 0 && opts.Smoothing > 0 {
			dir = Point{
				X: lerp(dir.X, dirs[i-1].X, opts.Smoothing/2),
				Y: lerp(dir.Y, dirs[i-1].Y, opts.Smoothing/2),
			}
			d = math.Hypot(dir.X, dir.Y)
			if d > 1e-6 {
				dir = Point{X: dir.X / d, Y: dir.Y / d}
			}
		}
		dirs[i] = dir
	}

	left := make([]Point, len(pts))
	right := make([]Point, len(pts))
	for i := range pts {
		// Perpendicular (rotated 90 degrees counter-clockwise).
		perp := Point{X: -dirs[i].Y, Y: dirs[i].X}
		left[i] = Point{X: pts[i].X + perp.X*radii[i], Y: pts[i].Y + perp.Y*radii[i]}
		right[i] = Point{X: pts[i].X - perp.X*radii[i], Y: pts[i].Y - perp.Y*radii[i]}
	}

	outline := make([]Point, 0, 2*len(pts)+16)
	outline = append(outline, left...)
	outline = append(outline, capArc(pts[len(pts)-1], dirs[len(pts)-1], radii[len(pts)-1], false)...)
	for i := len(pts) - 1; i >= 0; i-- {
		outline = append(outline, right[i])
	}
	outline = append(outline, capArc(pts[0], dirs[0], radii[0], true)...)
	return outline
}

// capArc emits a semicircular end cap around p. start selects the cap at the
// stroke start (facing against the direction of travel).
func capArc(p, dir Point, r float64, start bool) []Point {
	base := math.Atan2(dir.Y, dir.X)
	if start {
		base += math.Pi
	}
	const segs = 8
	arc := make([]Point, 0, segs-1)
	for i := 1; i < segs; i++ {
		a := base - math.Pi/2 + math.Pi*float64(i)/segs
		arc = append(arc, Point{X: p.X + r*math.Cos(a), Y: p.Y + r*math.Sin(a)})
	}
	return arc
}

func discOutline(p Point, r float64) []Point {
	if r < 0.5 {
		r = 0.5
	}
	const segs = 16
	out := make([]Point, 0, segs)
	for i := 0; i < segs; i++ {
		a := 2 * math.Pi * float64(i) / segs
		out = append(out, Point{X: p.X + r*math.Cos(a), Y: p.Y + r*math.Sin(a)})
	}
	return out
}
