package arbor

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at paint time.
type Color struct {
	R, G, B, A float64
}

// ColorBlack is the default fill for shapes and text.
var ColorBlack = Color{0, 0, 0, 1}

// ColorTransparent paints nothing.
var ColorTransparent = Color{}

// toRGBA converts to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ParseColor converts a color property value into a Color. Accepted forms
// are Color, any color.Color, "#rgb", "#rrggbb", "#rrggbbaa", CSS color
// names ("tomato"), "transparent" and the empty string (transparent).
func ParseColor(v any) (Color, error) {
	switch c := v.(type) {
	case Color:
		return c, nil
	case *Color:
		if c == nil {
			return ColorTransparent, nil
		}
		return *c, nil
	case nil:
		return ColorTransparent, nil
	case string:
		return parseColorString(c)
	case color.Color:
		r, g, b, a := c.RGBA()
		if a == 0 {
			return ColorTransparent, nil
		}
		// Un-premultiply.
		return Color{
			R: float64(r) / float64(a),
			G: float64(g) / float64(a),
			B: float64(b) / float64(a),
			A: float64(a) / 0xffff,
		}, nil
	}
	return Color{}, fmt.Errorf("unsupported color value %T", v)
}

func parseColorString(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "transparent" || s == "none" {
		return ColorTransparent, nil
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			hex += "ff"
		}
		if len(hex) != 8 {
			return Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return Color{
			R: float64(n>>24&0xff) / 255,
			G: float64(n>>16&0xff) / 255,
			B: float64(n>>8&0xff) / 255,
			A: float64(n&0xff) / 255,
		}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return ParseColor(c)
	}
	return Color{}, fmt.Errorf("unknown color %q", s)
}

// Vec2 is a 2D vector used for positions, offsets, sizes, and directions
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Props is a property mapping for declarative elements, canvas configs and
// partial state writes.
type Props map[string]any

// clone returns a shallow copy of p. A nil Props clones to an empty one.
func (p Props) clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft   MouseButton = iota // primary (left) mouse button
	MouseButtonRight                     // secondary (right) mouse button
	MouseButtonMiddle                    // middle mouse button (scroll wheel click)
)

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)
