package arbor

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// --- ID counter ---

// nodeIDCounter is a plain counter only touched on the game loop.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// --- Node ---

// Node is a live drawable on a canvas. A single flat struct is used for all
// drawable kinds; Kind says which fields are meaningful and which property
// setters apply.
//
// Nodes created by the reconciler carry hidden identity fields (key, element
// type, last-applied props) used to match them against the next declarative
// tree. Code outside the reconciler should treat those as read-only.
type Node struct {
	// Identity
	ID   uint32
	Name string
	Kind *Kind

	// Hierarchy
	Parent   *Node
	children []*Node
	canvas   *Canvas // set on a canvas root only

	// Transform (local). Left/Top position the origin point, which sits at
	// (OriginX*Width, OriginY*Height) inside the node.
	Left, Top        float64
	Width, Height    float64
	ScaleX, ScaleY   float64
	Angle            float64 // degrees, clockwise
	SkewX, SkewY     float64 // degrees
	OriginX, OriginY float64

	// Computed by SetCoords
	worldTransform [6]float64
	worldAlpha     float64
	transformDirty bool
	coords         [4]Vec2 // tl, tr, br, bl in canvas space

	// Appearance
	Fill        Color
	Stroke      Color
	StrokeWidth float64
	Opacity     float64
	Visible     bool

	// Shape fields
	Radius         float64 // circle
	RX, RY         float64 // ellipse
	X1, Y1, X2, Y2 float64 // line
	Points         []Vec2  // polygon, polyline

	// Text fields
	Text       string
	FontSize   float64
	FontFamily string

	// Image fields
	Src   string
	Image image.Image

	// Interaction
	Selectable  bool
	Controls    bool
	Evented     bool
	HoverCursor string

	// Metadata
	UserData any
	EntityID uint32

	// Reconciliation identity
	key          any
	typ          string
	props        Props
	shouldRemove bool
	childAdded   bool

	handlers map[string]func(*Event)
	attrs    map[string]any

	// Paint caches
	imageCache   *ebiten.Image
	imageCacheOf image.Image
	textCache    *ebiten.Image
	textCacheOf  string

	disposed bool
}

// nodeDefaults sets the common default field values shared by all kinds.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Opacity = 1
	n.Fill = ColorBlack
	n.StrokeWidth = 1
	n.Visible = true
	n.Selectable = true
	n.Controls = true
	n.Evented = true
	n.HoverCursor = "move"
	n.FontSize = defaultFontSize
	n.worldTransform = identityTransform
	n.worldAlpha = 1
	n.transformDirty = true
}

func newNode(kind *Kind) *Node {
	n := &Node{Kind: kind}
	nodeDefaults(n)
	if kind != nil {
		n.Name = kind.Name
	}
	return n
}

// NewGroup creates an empty group node. Children are positioned relative to
// the group's top-left corner.
func NewGroup() *Node {
	n := newNode(groupKind)
	n.Fill = ColorTransparent
	return n
}

// NewText creates a text node with the given content.
func NewText(text string) *Node {
	n := newNode(textKind)
	n.Text = text
	measureText(n)
	return n
}

// NewImage creates an image node. src may be an image.Image (for example a
// loaded ImageEntry payload) or a string naming the source.
func NewImage(src any) *Node {
	n := newNode(imageKind)
	n.Fill = ColorTransparent
	_ = setImageSrc(n, src)
	return n
}

// --- Identity accessors ---

// Key returns the reconciliation key: the explicit key prop, or the node's
// position in its parent's list when no key was given.
func (n *Node) Key() any {
	return n.key
}

// ElementType returns the declarative type the node was created from.
func (n *Node) ElementType() string {
	return n.typ
}

// AppliedProps returns the props applied by the last render pass. The
// returned map MUST NOT be mutated by the caller.
func (n *Node) AppliedProps() Props {
	return n.props
}

// Handler returns the event handler stored under prop name (e.g. "onClick"),
// or nil.
func (n *Node) Handler(name string) func(*Event) {
	return n.handlers[name]
}

// SetHandler stores an event handler under prop name. A nil fn removes it.
func (n *Node) SetHandler(name string, fn func(*Event)) {
	if fn == nil {
		delete(n.handlers, name)
		return
	}
	if n.handlers == nil {
		n.handlers = make(map[string]func(*Event))
	}
	n.handlers[name] = fn
}

// Attr returns a property stored without a typed setter.
func (n *Node) Attr(name string) any {
	return n.attrs[name]
}

// SetAttr stores a property that has no typed setter on this kind.
func (n *Node) SetAttr(name string, v any) {
	if n.attrs == nil {
		n.attrs = make(map[string]any)
	}
	n.attrs[name] = v
}

// Canvas returns the canvas this node is attached to, or nil.
func (n *Node) Canvas() *Canvas {
	p := n
	for p.Parent != nil {
		p = p.Parent
	}
	return p.canvas
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	n.AddChildAt(child, len(n.children))
}

// AddChildAt inserts child at the given index, shifting later children.
// Same reparenting and cycle-check behavior as AddChild.
func (n *Node) AddChildAt(child *Node, index int) {
	if child == nil {
		panic("arbor: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChildAt (parent)")
		debugCheckDisposed(child, "AddChildAt (child)")
	}
	if isAncestor(child, n) {
		panic("arbor: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	if index < 0 || index > len(n.children) {
		panic("arbor: child index out of range")
	}
	child.Parent = n
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	markSubtreeDirty(child)
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("arbor: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// IndexOf returns the index of child among n's children, or -1.
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// SetChildIndex moves child to a new index among its siblings.
func (n *Node) SetChildIndex(child *Node, index int) {
	if child.Parent != n {
		panic("arbor: child's parent is not this node")
	}
	nc := len(n.children)
	if index < 0 || index >= nc {
		panic("arbor: child index out of range")
	}
	oldIndex := n.IndexOf(child)
	if oldIndex == index {
		return
	}
	// Shift elements to fill the gap and open the target slot.
	if oldIndex < index {
		copy(n.children[oldIndex:], n.children[oldIndex+1:index+1])
	} else {
		copy(n.children[index+1:], n.children[index:oldIndex])
	}
	n.children[index] = child
}

// --- Parent implementation (groups as reconcile targets) ---

// Objects returns the node's children.
func (n *Node) Objects() []*Node {
	return n.children
}

// Item returns the child at index, or nil when index is out of range.
func (n *Node) Item(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// InsertAt places child so that it ends up at index. Indexes past the end
// append. A child already in n is moved.
func (n *Node) InsertAt(child *Node, index int) {
	if child.Parent == n {
		n.removeChildByPtr(child)
		child.Parent = nil
	}
	if index > len(n.children) {
		index = len(n.children)
	}
	n.AddChildAt(child, index)
}

// Remove detaches every given node that is a child of n. Nodes that are not
// children are ignored.
func (n *Node) Remove(nodes ...*Node) {
	for _, c := range nodes {
		if c != nil && c.Parent == n {
			n.RemoveChild(c)
		}
	}
}

// SelectionEnabled reports whether the node's canvas allows selection.
func (n *Node) SelectionEnabled() bool {
	if c := n.Canvas(); c != nil {
		return c.Selection
	}
	return false
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.handlers = nil
	n.attrs = nil
	n.UserData = nil
	releaseImageCache(n)
	n.Image = nil
	if n.textCache != nil {
		n.textCache.Deallocate()
		n.textCache = nil
	}
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
