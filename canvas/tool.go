package canvas

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

type (
	// ToolKind identifies one of the closed set of drawing tools.
	ToolKind int

	// ShapeKind identifies the shape drawn by the shape tool.
	ShapeKind int

	// Tool is a tagged tool variant. Shape is meaningful only when Kind is
	// ToolShape.
	Tool struct {
		Kind  ToolKind
		Shape ShapeKind
	}
)

const (
	ToolPen ToolKind = iota
	ToolEraser
	ToolTextBox
	ToolSelection
	ToolShape
)

const (
	ShapeRectangle ShapeKind = iota
	ShapeEllipse
	ShapeLine
	ShapeArrow
)

// ParseTool maps a wire-level tool name onto the closed tool set.
func ParseTool(name string) (Tool, error) {
	switch strings.ToLower(name) {
	case "pen":
		return Tool{Kind: ToolPen}, nil
	case "eraser":
		return Tool{Kind: ToolEraser}, nil
	case "textbox", "text":
		return Tool{Kind: ToolTextBox}, nil
	case "selection", "select":
		return Tool{Kind: ToolSelection}, nil
	case "rectangle", "rect":
		return Tool{Kind: ToolShape, Shape: ShapeRectangle}, nil
	case "ellipse", "circle":
		return Tool{Kind: ToolShape, Shape: ShapeEllipse}, nil
	case "line":
		return Tool{Kind: ToolShape, Shape: ShapeLine}, nil
	case "arrow":
		return Tool{Kind: ToolShape, Shape: ShapeArrow}, nil
	}
	return Tool{}, fmt.Errorf("unknown tool %q", name)
}

// String returns the wire-level name of the tool.
func (t Tool) String() string {
	switch t.Kind {
	case ToolPen:
		return "pen"
	case ToolEraser:
		return "eraser"
	case ToolTextBox:
		return "textbox"
	case ToolSelection:
		return "selection"
	case ToolShape:
		switch t.Shape {
		case ShapeRectangle:
			return "rectangle"
		case ShapeEllipse:
			return "ellipse"
		case ShapeLine:
			return "line"
		case ShapeArrow:
			return "arrow"
		}
	}
	return "unknown"
}

// ParseColor accepts "#rrggbb", "#rgb" and "rgb(r, g, b)" color strings, the
// two forms the drawing client sends.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %v", s, err)
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return color.RGBA{}, fmt.Errorf("invalid rgb color %q", s)
		}
		var c [3]uint8
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || v < 0 || v > 255 {
				return color.RGBA{}, fmt.Errorf("invalid rgb color %q", s)
			}
			c[i] = uint8(v)
		}
		return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}, nil
	}
	return color.RGBA{}, fmt.Errorf("unsupported color format %q", s)
}
