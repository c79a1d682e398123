package arbor

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
)

var (
	// ErrUnsupportedType is returned by a render pass when an element type has
	// no registered Kind.
	ErrUnsupportedType = errors.New("arbor: unsupported element type")
	// ErrInvalidProperty is returned when a property value cannot be applied
	// by the kind's setter.
	ErrInvalidProperty = errors.New("arbor: invalid property value")
)

// Setter applies one property value to a node.
type Setter func(n *Node, v any) error

// Kind describes a drawable type: how to construct it and how to apply each
// of its properties.
type Kind struct {
	// Name is the normalized type name ("Rect", "Circle", ...).
	Name string
	// Container kinds get their leaf children reconciled into the node.
	Container bool
	// New constructs a node. arg is nil for containers, the text for "text",
	// the source for "image" and the structural props for everything else.
	New func(k *Kind, arg any) (*Node, error)
	// Setters maps property names to typed setters. Registration merges the
	// common setters beneath the kind's own.
	Setters map[string]Setter
	// Paint draws the node through its world transform. Nil uses the
	// built-in painter for the kind's name, or a filled rectangle.
	Paint func(dst *ebiten.Image, n *Node)
}

// apply sets every property in props on n, using the kind's setter table and
// falling back to plain attributes.
func (k *Kind) apply(n *Node, props Props) error {
	for name, v := range props {
		if set, ok := k.Setters[name]; ok {
			if err := set(n, v); err != nil {
				return fmt.Errorf("%w: %s.%s: %v", ErrInvalidProperty, k.Name, name, err)
			}
			continue
		}
		n.SetAttr(name, v)
	}
	return nil
}

// Registry maps normalized type names to kinds.
type Registry struct {
	kinds map[string]*Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// DefaultRegistry returns a new registry holding the built-in kinds: rect,
// circle, ellipse, triangle, line, polygon, polyline, text, image and group.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range builtinKinds {
		r.Register(k)
	}
	return r
}

// Register adds k under its normalized name, replacing any previous kind of
// the same name. The common setters are merged beneath k.Setters here so that
// lookups during rendering are a single map access.
func (r *Registry) Register(k *Kind) {
	if k == nil || k.New == nil {
		panic("arbor: kind needs a constructor")
	}
	name := NormalizeName(k.Name)
	table := make(map[string]Setter, len(commonSetters)+len(k.Setters))
	for prop, set := range commonSetters {
		table[prop] = set
	}
	for prop, set := range k.Setters {
		table[prop] = set
	}
	k.Name = name
	k.Setters = table
	r.kinds[name] = k
}

// Lookup resolves a declarative type ("i-text", "rect") to its kind. The
// normalized name is returned even when no kind matches.
func (r *Registry) Lookup(typ string) (*Kind, string, bool) {
	name := NormalizeName(typ)
	k, ok := r.kinds[name]
	return k, name, ok
}

// --- Built-in kinds ---

var (
	groupKind = &Kind{Name: "Group", Container: true, New: func(*Kind, any) (*Node, error) {
		return NewGroup(), nil
	}}
	textKind = &Kind{Name: "Text", New: func(_ *Kind, arg any) (*Node, error) {
		s, err := toString(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: Text.text: %v", ErrInvalidProperty, err)
		}
		return NewText(s), nil
	}, Setters: map[string]Setter{
		"text": func(n *Node, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			n.Text = s
			measureText(n)
			return nil
		},
		"fontSize": func(n *Node, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			n.FontSize = f
			measureText(n)
			return nil
		},
		"fontFamily": stringSetter(func(n *Node) *string { return &n.FontFamily }),
	}}
	imageKind = &Kind{Name: "Image", New: func(_ *Kind, arg any) (*Node, error) {
		n := NewImage(nil)
		if err := setImageSrc(n, arg); err != nil {
			return nil, fmt.Errorf("%w: Image.src: %v", ErrInvalidProperty, err)
		}
		return n, nil
	}, Setters: map[string]Setter{
		"src": setImageSrc,
	}}
)

var builtinKinds = []*Kind{
	groupKind,
	textKind,
	imageKind,
	{Name: "Rect", New: newShape},
	{Name: "Triangle", New: newShape},
	{Name: "Circle", New: newShape, Setters: map[string]Setter{
		"radius": func(n *Node, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			n.Radius = f
			n.Width, n.Height = 2*f, 2*f
			n.transformDirty = true
			return nil
		},
	}},
	{Name: "Ellipse", New: newShape, Setters: map[string]Setter{
		"rx": func(n *Node, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			n.RX, n.Width = f, 2*f
			n.transformDirty = true
			return nil
		},
		"ry": func(n *Node, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			n.RY, n.Height = f, 2*f
			n.transformDirty = true
			return nil
		},
	}},
	{Name: "Line", New: newShape, Setters: map[string]Setter{
		"x1": lineSetter(func(n *Node) *float64 { return &n.X1 }),
		"y1": lineSetter(func(n *Node) *float64 { return &n.Y1 }),
		"x2": lineSetter(func(n *Node) *float64 { return &n.X2 }),
		"y2": lineSetter(func(n *Node) *float64 { return &n.Y2 }),
	}},
	{Name: "Polygon", New: newShape, Setters: map[string]Setter{"points": setPoints}},
	{Name: "Polyline", New: newShape, Setters: map[string]Setter{"points": setPoints}},
}

// newShape constructs a shape from its structural props.
func newShape(k *Kind, arg any) (*Node, error) {
	n := newNode(k)
	props, _ := arg.(Props)
	if err := k.apply(n, props); err != nil {
		return nil, err
	}
	return n, nil
}

// commonSetters apply to every kind.
var commonSetters = map[string]Setter{
	"left":        transformSetter(func(n *Node) *float64 { return &n.Left }),
	"top":         transformSetter(func(n *Node) *float64 { return &n.Top }),
	"width":       transformSetter(func(n *Node) *float64 { return &n.Width }),
	"height":      transformSetter(func(n *Node) *float64 { return &n.Height }),
	"scaleX":      transformSetter(func(n *Node) *float64 { return &n.ScaleX }),
	"scaleY":      transformSetter(func(n *Node) *float64 { return &n.ScaleY }),
	"angle":       transformSetter(func(n *Node) *float64 { return &n.Angle }),
	"skewX":       transformSetter(func(n *Node) *float64 { return &n.SkewX }),
	"skewY":       transformSetter(func(n *Node) *float64 { return &n.SkewY }),
	"originX":     originSetter(func(n *Node) *float64 { return &n.OriginX }),
	"originY":     originSetter(func(n *Node) *float64 { return &n.OriginY }),
	"opacity":     transformSetter(func(n *Node) *float64 { return &n.Opacity }),
	"strokeWidth": floatSetter(func(n *Node) *float64 { return &n.StrokeWidth }),
	"fill":        colorSetter(func(n *Node) *Color { return &n.Fill }),
	"stroke":      colorSetter(func(n *Node) *Color { return &n.Stroke }),
	"visible":     boolSetter(func(n *Node) *bool { return &n.Visible }),
	"selectable":  boolSetter(func(n *Node) *bool { return &n.Selectable }),
	"controls":    boolSetter(func(n *Node) *bool { return &n.Controls }),
	"evented":     boolSetter(func(n *Node) *bool { return &n.Evented }),
	"hoverCursor": stringSetter(func(n *Node) *string { return &n.HoverCursor }),
	"name":        stringSetter(func(n *Node) *string { return &n.Name }),
	"data": func(n *Node, v any) error {
		n.UserData = v
		return nil
	},
	"entityID": func(n *Node, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		n.EntityID = uint32(f)
		return nil
	},
}

// --- Setter builders ---

func floatSetter(field func(*Node) *float64) Setter {
	return func(n *Node, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*field(n) = f
		return nil
	}
}

func transformSetter(field func(*Node) *float64) Setter {
	return func(n *Node, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*field(n) = f
		n.transformDirty = true
		return nil
	}
}

func lineSetter(field func(*Node) *float64) Setter {
	return func(n *Node, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*field(n) = f
		n.Width = math.Abs(n.X2 - n.X1)
		n.Height = math.Abs(n.Y2 - n.Y1)
		n.transformDirty = true
		return nil
	}
}

func originSetter(field func(*Node) *float64) Setter {
	return func(n *Node, v any) error {
		if s, ok := v.(string); ok {
			switch s {
			case "left", "top":
				*field(n) = 0
			case "center":
				*field(n) = 0.5
			case "right", "bottom":
				*field(n) = 1
			default:
				return fmt.Errorf("unknown origin %q", s)
			}
			n.transformDirty = true
			return nil
		}
		return transformSetter(field)(n, v)
	}
}

func boolSetter(field func(*Node) *bool) Setter {
	return func(n *Node, v any) error {
		*field(n) = truthy(v)
		return nil
	}
}

func stringSetter(field func(*Node) *string) Setter {
	return func(n *Node, v any) error {
		s, err := toString(v)
		if err != nil {
			return err
		}
		*field(n) = s
		return nil
	}
}

func colorSetter(field func(*Node) *Color) Setter {
	return func(n *Node, v any) error {
		c, err := ParseColor(v)
		if err != nil {
			return err
		}
		*field(n) = c
		return nil
	}
}

func setPoints(n *Node, v any) error {
	var pts []Vec2
	switch p := v.(type) {
	case []Vec2:
		pts = append(pts, p...)
	case [][2]float64:
		for _, xy := range p {
			pts = append(pts, Vec2{xy[0], xy[1]})
		}
	case []any:
		for _, item := range p {
			pt, ok := item.(Vec2)
			if !ok {
				return fmt.Errorf("point %T is not a Vec2", item)
			}
			pts = append(pts, pt)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported points value %T", v)
	}
	n.Points = pts
	var maxX, maxY float64
	for _, pt := range pts {
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	n.Width, n.Height = maxX, maxY
	n.transformDirty = true
	return nil
}

func setImageSrc(n *Node, v any) error {
	switch src := v.(type) {
	case nil:
		n.Src, n.Image = "", nil
	case string:
		n.Src, n.Image = src, nil
	case image.Image:
		n.Src, n.Image = "", src
		b := src.Bounds()
		if n.Width == 0 && n.Height == 0 {
			n.Width, n.Height = float64(b.Dx()), float64(b.Dy())
		}
	case *ImageEntry:
		if src == nil {
			n.Src, n.Image = "", nil
			return nil
		}
		return setImageSrc(n, src.Payload)
	default:
		return fmt.Errorf("unsupported image source %T", v)
	}
	n.transformDirty = true
	return nil
}

// --- Text metrics ---

// The built-in glyphs are 6x16 pixels at the default font size.
const (
	defaultFontSize = 16
	glyphW          = 6
	glyphH          = 16
)

// measureText sizes a text node from its content and font size.
func measureText(n *Node) {
	lines := strings.Split(n.Text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l))
	}
	scale := n.FontSize / defaultFontSize
	n.Width = float64(longest*glyphW) * scale
	n.Height = float64(len(lines)*glyphH) * scale
	n.transformDirty = true
}

// --- Value conversion ---

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("%T is not a number", v)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%T is not a string", v)
}
