package arbor

import (
	"errors"
	"image"
	"testing"
)

func newKindNode(t *testing.T, typ string, props Props) *Node {
	t.Helper()
	k, name, ok := DefaultRegistry().Lookup(typ)
	if !ok {
		t.Fatalf("kind %s not registered", name)
	}
	n, err := newShape(k, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := k.apply(n, props); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDefaultRegistryKinds(t *testing.T) {
	reg := DefaultRegistry()
	for _, typ := range []string{"rect", "circle", "ellipse", "triangle", "line", "polygon", "polyline", "text", "image", "group"} {
		k, name, ok := reg.Lookup(typ)
		if !ok {
			t.Errorf("%s (%s) not registered", typ, name)
			continue
		}
		if k.Name != name {
			t.Errorf("kind name = %q, want %q", k.Name, name)
		}
		if _, ok := k.Setters["left"]; !ok {
			t.Errorf("%s lacks the common setters", name)
		}
	}
	if k, _, _ := reg.Lookup("group"); !k.Container {
		t.Error("group should be a container")
	}
}

func TestRegisterWithoutConstructorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewRegistry().Register(&Kind{Name: "x"})
}

func TestShapeSetters(t *testing.T) {
	c := newKindNode(t, "circle", Props{"radius": 5})
	assertNear(t, "circle width", c.Width, 10)

	e := newKindNode(t, "ellipse", Props{"rx": 3, "ry": 2})
	assertNear(t, "ellipse width", e.Width, 6)
	assertNear(t, "ellipse height", e.Height, 4)

	l := newKindNode(t, "line", Props{"x1": 10, "y1": 5, "x2": 2, "y2": 25})
	assertNear(t, "line width", l.Width, 8)
	assertNear(t, "line height", l.Height, 20)

	p := newKindNode(t, "polygon", Props{"points": [][2]float64{{0, 0}, {10, 0}, {5, 7}}})
	if len(p.Points) != 3 {
		t.Fatalf("points = %v", p.Points)
	}
	assertNear(t, "polygon width", p.Width, 10)
	assertNear(t, "polygon height", p.Height, 7)
}

func TestCommonSetters(t *testing.T) {
	n := newKindNode(t, "rect", Props{
		"originX":  "center",
		"originY":  1,
		"opacity":  0.5,
		"visible":  0,
		"stroke":   "#0000ff80",
		"name":     "box",
		"data":     []int{1},
		"entityID": 7,
	})
	assertNear(t, "originX", n.OriginX, 0.5)
	assertNear(t, "originY", n.OriginY, 1)
	assertNear(t, "opacity", n.Opacity, 0.5)
	if n.Visible {
		t.Error("visible: 0 should hide")
	}
	if n.Stroke.B != 1 || n.Stroke.A < 0.5 || n.Stroke.A > 0.51 {
		t.Errorf("stroke = %v", n.Stroke)
	}
	if n.Name != "box" || n.EntityID != 7 || n.UserData == nil {
		t.Errorf("name %q entity %d data %v", n.Name, n.EntityID, n.UserData)
	}
}

func TestSetterErrors(t *testing.T) {
	k, _, _ := DefaultRegistry().Lookup("rect")
	tests := []struct {
		name  string
		props Props
	}{
		{"number", Props{"left": "x"}},
		{"color", Props{"fill": "not-a-color"}},
		{"origin", Props{"originX": "middle"}},
		{"points", Props{"points": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := k
			if tt.name == "points" {
				kind, _, _ = DefaultRegistry().Lookup("polygon")
			}
			err := kind.apply(newNode(kind), tt.props)
			if !errors.Is(err, ErrInvalidProperty) {
				t.Errorf("err = %v, want ErrInvalidProperty", err)
			}
		})
	}
}

func TestTextMeasure(t *testing.T) {
	n := NewText("ab\nlonger")
	assertNear(t, "width", n.Width, 6*glyphW)
	assertNear(t, "height", n.Height, 2*glyphH)

	k, _, _ := DefaultRegistry().Lookup("text")
	if err := k.apply(n, Props{"fontSize": 32}); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "scaled width", n.Width, 12*glyphW)
}

func TestImageSources(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	tests := []struct {
		name    string
		src     any
		wantImg bool
		wantW   float64
	}{
		{"nil", nil, false, 0},
		{"string", "a.png", false, 0},
		{"image", img, true, 4},
		{"entry", &ImageEntry{Payload: img, Success: true}, true, 4},
		{"pending entry", &ImageEntry{}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewImage(tt.src)
			if (n.Image != nil) != tt.wantImg {
				t.Errorf("image set = %v, want %v", n.Image != nil, tt.wantImg)
			}
			assertNear(t, "width", n.Width, tt.wantW)
		})
	}
	if err := setImageSrc(NewImage(nil), 42); err == nil {
		t.Error("expected error for an int source")
	}
}
