package canvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Point is a 2D pointer sample in surface coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Surface is an in-process RGBA raster standing in for the browser's 2D
// canvas. Pixels start fully transparent; export flattens them against an
// opaque background.
type Surface struct {
	img *image.RGBA
}

// NewSurface creates a blank (fully transparent) surface.
func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *Surface) Width() int  { return s.img.Rect.Dx() }
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	pix := s.img.Pix
	for i := range pix {
		pix[i] = 0
	}
}

// Snapshot returns a full copy of the surface's pixel contents.
func (s *Surface) Snapshot() []byte {
	buf := make([]byte, len(s.img.Pix))
	copy(buf, s.img.Pix)
	return buf
}

// Restore overwrites the surface with a snapshot previously taken from a
// surface of the same dimensions. Mismatched snapshots are ignored.
func (s *Surface) Restore(snapshot []byte) {
	if len(snapshot) != len(s.img.Pix) {
		return
	}
	copy(s.img.Pix, snapshot)
}

// SetPixel writes one pixel, clipped to the surface bounds.
func (s *Surface) SetPixel(x, y int, c color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(s.img.Rect) {
		return
	}
	s.img.SetRGBA(x, y, c)
}

// ClearPixel makes one pixel fully transparent, clipped to the surface
// bounds. This is the destination-out primitive the eraser is built on.
func (s *Surface) ClearPixel(x, y int) {
	if !(image.Point{X: x, Y: y}).In(s.img.Rect) {
		return
	}
	i := s.img.PixOffset(x, y)
	s.img.Pix[i] = 0
	s.img.Pix[i+1] = 0
	s.img.Pix[i+2] = 0
	s.img.Pix[i+3] = 0
}

// FillPolygon fills a closed polygon with c using even-odd scanline filling.
func (s *Surface) FillPolygon(pts []Point, c color.RGBA) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	y0 := int(math.Max(0, math.Floor(minY)))
	y1 := int(math.Min(float64(s.Height()-1), math.Ceil(maxY)))

	for y := y0; y <= y1; y++ {
		fy := float64(y) + 0.5
		var xs []float64
		j := len(pts) - 1
		for i := 0; i < len(pts); i++ {
			a, b := pts[i], pts[j]
			if (a.Y <= fy) != (b.Y <= fy) {
				t := (fy - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
			j = i
		}
		if len(xs) < 2 {
			continue
		}
		// insertion sort: crossing counts are tiny
		for i := 1; i < len(xs); i++ {
			for k := i; k > 0 && xs[k] < xs[k-1]; k-- {
				xs[k], xs[k-1] = xs[k-1], xs[k]
			}
		}
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Max(0, math.Round(xs[i])))
			x1 := int(math.Min(float64(s.Width()-1), math.Round(xs[i+1])))
			for x := x0; x <= x1; x++ {
				s.img.SetRGBA(x, y, c)
			}
		}
	}
}

// stampDisc paints a filled disc; clear selects between painting c and
// clearing to transparent.
func (s *Surface) stampDisc(cx, cy, r float64, c color.RGBA, clear bool) {
	x0 := int(math.Floor(cx - r))
	x1 := int(math.Ceil(cx + r))
	y0 := int(math.Floor(cy - r))
	y1 := int(math.Ceil(cy + r))
	rr := r * r
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy > rr {
				continue
			}
			if clear {
				s.ClearPixel(x, y)
			} else {
				s.SetPixel(x, y, c)
			}
		}
	}
}

// StrokeLine draws a round-capped line of the given width by stamping discs
// along the segment.
func (s *Surface) StrokeLine(a, b Point, width float64, c color.RGBA) {
	r := math.Max(width/2, 0.5)
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	steps := int(dist) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.stampDisc(a.X+t*(b.X-a.X), a.Y+t*(b.Y-a.Y), r, c, false)
	}
}

// EraseQuadratic clears a round-capped path along the quadratic curve from a
// to b with control point ctrl. The eraser skips stroke smoothing entirely;
// consecutive raw samples are joined by these cheap curve segments.
func (s *Surface) EraseQuadratic(a, ctrl, b Point, width float64) {
	r := math.Max(width/2, 0.5)
	approx := math.Hypot(ctrl.X-a.X, ctrl.Y-a.Y) + math.Hypot(b.X-ctrl.X, b.Y-ctrl.Y)
	steps := int(approx) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		mt := 1 - t
		x := mt*mt*a.X + 2*mt*t*ctrl.X + t*t*b.X
		y := mt*mt*a.Y + 2*mt*t*ctrl.Y + t*t*b.Y
		s.stampDisc(x, y, r, color.RGBA{}, true)
	}
}

// StrokeRect draws the outline of the axis-aligned rectangle spanned by two
// corner points.
func (s *Surface) StrokeRect(a, b Point, width float64, c color.RGBA) {
	tl := Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	br := Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
	tr := Point{X: br.X, Y: tl.Y}
	bl := Point{X: tl.X, Y: br.Y}
	s.StrokeLine(tl, tr, width, c)
	s.StrokeLine(tr, br, width, c)
	s.StrokeLine(br, bl, width, c)
	s.StrokeLine(bl, tl, width, c)
}

// StrokeEllipse draws the outline of the ellipse inscribed in the rectangle
// spanned by two corner points.
func (s *Surface) StrokeEllipse(a, b Point, width float64, c color.RGBA) {
	cx := (a.X + b.X) / 2
	cy := (a.Y + b.Y) / 2
	rx := math.Abs(b.X-a.X) / 2
	ry := math.Abs(b.Y-a.Y) / 2
	if rx < 1 || ry < 1 {
		s.StrokeLine(a, b, width, c)
		return
	}
	steps := int(2*math.Pi*math.Max(rx, ry)) + 8
	prev := Point{X: cx + rx, Y: cy}
	for i := 1; i <= steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		next := Point{X: cx + rx*math.Cos(t), Y: cy + ry*math.Sin(t)}
		s.StrokeLine(prev, next, width, c)
		prev = next
	}
}

// StrokeArrow draws a line from a to b with an arrowhead at b.
func (s *Surface) StrokeArrow(a, b Point, width float64, c color.RGBA) {
	s.StrokeLine(a, b, width, c)
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	head := math.Max(width*4, 10)
	for _, da := range []float64{math.Pi - 0.45, math.Pi + 0.45} {
		tip := Point{
			X: b.X + head*math.Cos(angle+da),
			Y: b.Y + head*math.Sin(angle+da),
		}
		s.StrokeLine(b, tip, width, c)
	}
}

// DrawText renders a single line of text with its baseline at p.
func (s *Surface) DrawText(text string, p Point, c color.RGBA) {
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(p.X), int(p.Y)),
	}
	d.DrawString(text)
}

// DrawImage composites src over the surface with its top-left corner at p.
func (s *Surface) DrawImage(src image.Image, p Point) {
	r := src.Bounds().Sub(src.Bounds().Min).Add(image.Pt(int(p.X), int(p.Y)))
	draw.Draw(s.img, r, src, src.Bounds().Min, draw.Over)
}

// ContentBounds returns the bounding box of all non-transparent pixels. ok is
// false when the surface is entirely blank.
func (s *Surface) ContentBounds() (bounds image.Rectangle, ok bool) {
	minX, minY := s.Width(), s.Height()
	maxX, maxY := -1, -1
	for y := 0; y < s.Height(); y++ {
		row := s.img.Pix[y*s.img.Stride : y*s.img.Stride+4*s.Width()]
		for x := 0; x < s.Width(); x++ {
			if row[4*x+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Flatten composites the surface over an opaque background and returns the
// result. Exported artifacts must never carry transparency.
func (s *Surface) Flatten(bg color.RGBA) *image.RGBA {
	out := image.NewRGBA(s.img.Rect)
	draw.Draw(out, out.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Rect, s.img, s.img.Rect.Min, draw.Over)
	return out
}

// EncodePNG writes the surface as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

// DataURI returns the surface encoded as an image/png data URI, the format
// both the persistence layer and the recognition service consume.
func (s *Surface) DataURI() (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI parses an image/png data URI back into an image.
func DecodeDataURI(uri string) (image.Image, error) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		return nil, fmt.Errorf("unsupported data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("invalid data URI payload: %w", err)
	}
	return png.Decode(bytes.NewReader(raw))
}

// LoadDataURI replaces the surface content with a decoded data URI image.
func (s *Surface) LoadDataURI(uri string) error {
	img, err := DecodeDataURI(uri)
	if err != nil {
		return err
	}
	s.Clear()
	draw.Draw(s.img, s.img.Rect, img, img.Bounds().Min, draw.Src)
	return nil
}
