package arbor

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recordingParent counts batched Remove calls on a group.
type recordingParent struct {
	*Node
	removeCalls int
}

func (p *recordingParent) Remove(nodes ...*Node) {
	p.removeCalls++
	p.Node.Remove(nodes...)
}

func mustRender(t *testing.T, tree Element, parent Parent, s State) RenderStats {
	t.Helper()
	stats, err := Render(tree, parent, s)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return stats
}

func rect(props Props) Element { return E("rect", props) }

// --- Scenarios ---

func TestRenderKeyedRectCreateThenUpdate(t *testing.T) {
	c := NewCanvas(100, 100)
	s := NewState(nil)

	stats := mustRender(t, rect(Props{"key": 1, "left": 10, "top": 10, "width": 5, "height": 5}), c, s)
	if diff := cmp.Diff(RenderStats{Created: 1}, stats); diff != "" {
		t.Errorf("first pass stats (-want +got):\n%s", diff)
	}
	objs := c.Objects()
	if len(objs) != 1 {
		t.Fatalf("objects = %d, want 1", len(objs))
	}
	n := objs[0]
	if n.Key() != 1 || n.ElementType() != "rect" {
		t.Errorf("identity = (%v, %q), want (1, rect)", n.Key(), n.ElementType())
	}
	if diff := cmp.Diff(Rect{X: 10, Y: 10, Width: 5, Height: 5}, n.Bounds()); diff != "" {
		t.Errorf("bounds (-want +got):\n%s", diff)
	}

	stats = mustRender(t, rect(Props{"key": 1, "left": 20, "top": 10, "width": 5, "height": 5}), c, s)
	if diff := cmp.Diff(RenderStats{Updated: 1}, stats); diff != "" {
		t.Errorf("second pass stats (-want +got):\n%s", diff)
	}
	if c.Item(0) != n {
		t.Fatal("update should keep the same node")
	}
	assertNear(t, "left", n.Left, 20)
	assertNear(t, "bounds.X", n.Bounds().X, 20)
}

func TestRenderEmptyListRemovesAllInOneBatch(t *testing.T) {
	p := &recordingParent{Node: NewGroup()}
	s := NewState(nil)
	mustRender(t, List{rect(nil), rect(nil), rect(nil)}, p, s)
	if p.NumChildren() != 3 {
		t.Fatalf("children = %d, want 3", p.NumChildren())
	}

	p.removeCalls = 0
	stats := mustRender(t, List{}, p, s)
	if stats.Removed != 3 || p.NumChildren() != 0 {
		t.Errorf("removed = %d, children left = %d", stats.Removed, p.NumChildren())
	}
	if p.removeCalls != 1 {
		t.Errorf("Remove called %d times, want 1", p.removeCalls)
	}
}

// --- Properties ---

func TestRenderIdempotent(t *testing.T) {
	c := NewCanvas(200, 200)
	s := NewState(Props{"label": "hi"})
	tree := Func(func(s State) Element {
		return List{
			rect(Props{"key": "r", "left": 1, "fill": "red"}),
			E("circle", Props{"radius": 4, "onClick": func() {}}),
			E("text", Props{"text": s.Get("label")}),
			Group(Props{"left": 50}, rect(Props{"width": 3}), E("line", Props{"x1": 0, "y1": 0, "x2": 5, "y2": 5})),
		}
	})

	mustRender(t, tree, c, s)
	stats := mustRender(t, tree, c, s)
	if stats.Changed() {
		t.Errorf("second pass changed the scene: %+v", stats)
	}
	if stats.Skipped != 6 {
		t.Errorf("skipped = %d, want 6", stats.Skipped)
	}
}

func TestRenderKeyedReorderKeepsNodes(t *testing.T) {
	c := NewCanvas(100, 100)
	s := NewState(nil)
	mustRender(t, List{rect(Props{"key": "a"}), E("circle", Props{"key": "b"})}, c, s)
	a, b := c.Item(0), c.Item(1)

	stats := mustRender(t, List{E("circle", Props{"key": "b"}), rect(Props{"key": "a"})}, c, s)
	if stats.Created != 0 || stats.Removed != 0 {
		t.Errorf("reorder recreated nodes: %+v", stats)
	}
	if stats.Moved != 1 {
		t.Errorf("moved = %d, want 1", stats.Moved)
	}
	if c.Item(0) != b || c.Item(1) != a {
		t.Error("nodes should be swapped in place")
	}
}

func TestRenderNumericKeysMatchAcrossTypes(t *testing.T) {
	c := NewCanvas(100, 100)
	s := NewState(nil)
	mustRender(t, List{rect(Props{"key": 1}), rect(Props{"key": 2})}, c, s)
	one, two := c.Item(0), c.Item(1)

	for _, keys := range [][2]any{
		{int64(1), 2.0},
		{float32(1), uint8(2)},
		{1, 2},
	} {
		stats := mustRender(t, List{rect(Props{"key": keys[0]}), rect(Props{"key": keys[1]})}, c, s)
		if stats.Created != 0 || stats.Removed != 0 {
			t.Errorf("keys %T/%T recreated nodes: %+v", keys[0], keys[1], stats)
		}
		if c.Item(0) != one || c.Item(1) != two {
			t.Errorf("keys %T/%T swapped nodes", keys[0], keys[1])
		}
	}
}

type rowID int

func TestKeysEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same string", "a", "a", true},
		{"different string", "a", "b", false},
		{"int and int64", 1, int64(1), true},
		{"int and float64", 1, 1.0, true},
		{"named int", rowID(3), 3, true},
		{"fraction", 1, 1.5, false},
		{"number and string", 1, "1", false},
		{"nil and zero", nil, 0, false},
		{"both nil", nil, nil, true},
		{"slices", []any{1, "x"}, []any{1, "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keysEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("keysEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := keysEqual(tt.b, tt.a); got != tt.want {
				t.Errorf("keysEqual(%v, %v) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestRenderIdentityChangeRecreates(t *testing.T) {
	tests := []struct {
		name   string
		before Element
		after  Element
	}{
		{"type", rect(Props{"left": 1}), E("circle", Props{"left": 1})},
		{"key", rect(Props{"key": "a"}), rect(Props{"key": "b"})},
		{"keyed to positional", rect(Props{"key": "a"}), rect(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(100, 100)
			s := NewState(nil)
			mustRender(t, tt.before, c, s)
			old := c.Item(0)

			stats := mustRender(t, tt.after, c, s)
			if stats.Created != 1 || stats.Removed != 1 {
				t.Errorf("stats = %+v, want 1 created and 1 removed", stats)
			}
			if len(c.Objects()) != 1 || c.Item(0) == old {
				t.Error("old node should be replaced")
			}
			if old.Parent != nil {
				t.Error("old node should be detached")
			}
		})
	}
}

func TestRenderRemovesOnlyUnclaimed(t *testing.T) {
	c := NewCanvas(100, 100)
	s := NewState(nil)
	mustRender(t, List{rect(Props{"key": "a"}), rect(Props{"key": "b"}), rect(Props{"key": "c"})}, c, s)
	a, b, cc := c.Item(0), c.Item(1), c.Item(2)

	stats := mustRender(t, List{rect(Props{"key": "c"}), rect(Props{"key": "a"})}, c, s)
	if stats.Removed != 1 {
		t.Errorf("removed = %d, want 1", stats.Removed)
	}
	if b.Parent != nil {
		t.Error("b should be removed")
	}
	if objs := c.Objects(); len(objs) != 2 || objs[0] != cc || objs[1] != a {
		t.Errorf("objects = %v, want [c a]", objs)
	}
}

func TestRenderUnsupportedType(t *testing.T) {
	c := NewCanvas(100, 100)
	stats, err := Render(List{rect(Props{"left": 3}), E("fancy-blob", nil)}, c, NewState(nil))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	if !strings.Contains(err.Error(), "FancyBlob") {
		t.Errorf("error should name the resolved type: %v", err)
	}
	if stats.Created != 1 || len(c.Objects()) != 1 {
		t.Error("the earlier leaf should stay applied")
	}
}

func TestRenderInvalidProperty(t *testing.T) {
	c := NewCanvas(100, 100)
	_, err := Render(rect(Props{"left": "far"}), c, NewState(nil))
	if !errors.Is(err, ErrInvalidProperty) {
		t.Fatalf("err = %v, want ErrInvalidProperty", err)
	}
	if _, err := Render(rect(Props{"onClick": 42}), c, NewState(nil)); !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("non-func handler: err = %v, want ErrInvalidProperty", err)
	}
}

func TestRenderBlockProps(t *testing.T) {
	c := NewCanvas(100, 100)
	tree := E(BlockType, Props{"fill": "red", "top": 7},
		rect(nil),
		rect(Props{"fill": "blue"}),
		E(BlockType, Props{"fill": "#00ff00"}, rect(nil)),
	)
	mustRender(t, tree, c, NewState(nil))

	want := []Color{{1, 0, 0, 1}, {0, 0, 1, 1}, {0, 1, 0, 1}}
	for i, col := range want {
		n := c.Item(i)
		if n.Fill != col {
			t.Errorf("item %d fill = %v, want %v", i, n.Fill, col)
		}
		assertNear(t, "top", n.Top, 7)
	}
}

func TestRenderSelectionDefaults(t *testing.T) {
	tests := []struct {
		name       string
		selection  bool
		props      Props
		selectable bool
		cursor     string
	}{
		{"inherits enabled", true, nil, true, "move"},
		{"inherits disabled", false, nil, false, "default"},
		{"explicit false", true, Props{"selectable": false}, false, "default"},
		{"explicit true", false, Props{"selectable": true}, true, "move"},
		{"explicit cursor wins", true, Props{"hoverCursor": "pointer"}, true, "pointer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(100, 100)
			c.Selection = tt.selection
			mustRender(t, rect(tt.props), c, NewState(nil))
			n := c.Item(0)
			if n.Selectable != tt.selectable || n.Controls != tt.selectable {
				t.Errorf("selectable/controls = %v/%v, want %v", n.Selectable, n.Controls, tt.selectable)
			}
			if n.HoverCursor != tt.cursor {
				t.Errorf("hoverCursor = %q, want %q", n.HoverCursor, tt.cursor)
			}
		})
	}
}

func TestRenderRefEveryPass(t *testing.T) {
	c := NewCanvas(100, 100)
	var seen []*Node
	ref := func(n *Node) { seen = append(seen, n) }
	tree := rect(Props{"ref": ref})

	mustRender(t, tree, c, NewState(nil))
	mustRender(t, tree, c, NewState(nil))
	if len(seen) != 2 || seen[0] != seen[1] || seen[0] != c.Item(0) {
		t.Errorf("ref calls = %v", seen)
	}
	if c.Item(0).Attr("ref") != nil || c.Item(0).Attr("key") != nil {
		t.Error("reserved props must not be applied")
	}
}

func TestRenderGroupChildren(t *testing.T) {
	c := NewCanvas(200, 200)
	s := NewState(nil)
	mustRender(t, Group(Props{"left": 10, "top": 10},
		rect(Props{"key": "a", "width": 20, "height": 20}),
		rect(Props{"key": "b", "left": 30, "width": 10, "height": 10}),
	), c, s)

	g := c.Item(0)
	if g.NumChildren() != 2 {
		t.Fatalf("group children = %d, want 2", g.NumChildren())
	}
	assertNear(t, "group width", g.Width, 40)
	assertNear(t, "group height", g.Height, 20)
	b := g.ChildAt(1)
	assertNear(t, "child world x", b.Bounds().X, 40)

	a := g.ChildAt(0)
	stats := mustRender(t, Group(Props{"left": 10, "top": 10},
		rect(Props{"key": "a", "width": 20, "height": 20}),
	), c, s)
	if stats.Removed != 1 || g.NumChildren() != 1 || g.ChildAt(0) != a {
		t.Errorf("stats = %+v, children = %v", stats, g.Children())
	}
}

func TestRenderHandlersRefreshOnSkip(t *testing.T) {
	c := NewCanvas(100, 100)
	got := ""
	handler := func(label string) Element {
		return rect(Props{"onClick": func(*Event) { got = label }})
	}
	mustRender(t, handler("first"), c, NewState(nil))
	stats := mustRender(t, handler("second"), c, NewState(nil))
	if stats.Skipped != 1 {
		t.Errorf("stats = %+v, want a skip", stats)
	}
	c.Item(0).Handler("onClick")(&Event{})
	if got != "second" {
		t.Errorf("handler saw %q, want second", got)
	}
}

func TestRenderTypedComponent(t *testing.T) {
	c := NewCanvas(100, 100)
	badge := func(p Props, children ...Element) Element {
		return Group(Props{"left": p["x"]}, append(List{rect(Props{"width": 4, "height": 4})}, children...)...)
	}
	tree := E(BlockType, Props{"fill": "red"},
		C(badge, Props{"x": 12}, E("text", Props{"text": "ok"})),
		nil,
	)
	mustRender(t, tree, c, NewState(nil))

	g := c.Item(0)
	if g.ElementType() != "group" || g.NumChildren() != 2 {
		t.Fatalf("component rendered %q with %d children", g.ElementType(), g.NumChildren())
	}
	assertNear(t, "left", g.Left, 12)
	if g.Fill != (Color{1, 0, 0, 1}) {
		t.Errorf("block props should reach the component leaf, fill = %v", g.Fill)
	}
	if txt := g.ChildAt(1); txt.Text != "ok" {
		t.Errorf("text = %q", txt.Text)
	}
}

func TestRenderFuncReadsState(t *testing.T) {
	c := NewCanvas(100, 100)
	tree := Func(func(s State) Element {
		return rect(Props{"left": s.Get("pos.x")})
	})
	mustRender(t, tree, c, NewState(Props{"pos": Props{"x": 5}}))
	assertNear(t, "left", c.Item(0).Left, 5)

	s2 := NewState(Props{"pos": Props{"x": 9}})
	stats := mustRender(t, tree, c, s2)
	if stats.Updated != 1 {
		t.Errorf("stats = %+v", stats)
	}
	assertNear(t, "left", c.Item(0).Left, 9)
}

func TestRenderUnknownPropsBecomeAttrs(t *testing.T) {
	c := NewCanvas(100, 100)
	mustRender(t, rect(Props{"role": "button"}), c, NewState(nil))
	if got := c.Item(0).Attr("role"); got != "button" {
		t.Errorf("attr role = %v", got)
	}
}

func TestRenderNilParentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	_, _ = Render(rect(nil), nil, NewState(nil))
}

func TestCustomRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Kind{
		Name: "star-shape",
		New:  func(k *Kind, _ any) (*Node, error) { return newNode(k), nil },
		Setters: map[string]Setter{
			"points": func(n *Node, v any) error {
				f, err := toFloat(v)
				n.Radius = f
				return err
			},
		},
	})
	r := NewReconciler(reg)
	c := NewCanvas(100, 100)
	if _, err := r.Render(E("star-shape", Props{"points": 5, "left": 2}), c, NewState(nil)); err != nil {
		t.Fatal(err)
	}
	n := c.Item(0)
	if n.Kind.Name != "StarShape" || n.Radius != 5 || n.Left != 2 {
		t.Errorf("node = %s radius %v left %v", n.Kind.Name, n.Radius, n.Left)
	}
	if _, err := r.Render(rect(nil), c, NewState(nil)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("rect should be unknown to a custom registry, err = %v", err)
	}
}
