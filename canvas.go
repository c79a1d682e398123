package arbor

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// EntityStore is the interface for optional ECS integration.
// When set on a Canvas, events whose target carries an EntityID are
// forwarded to the ECS.
type EntityStore interface {
	EmitEvent(event Event)
}

// Event carries the data of one canvas event. Fields that do not apply to
// the event type are zero.
type Event struct {
	Type   string
	Target *Node
	Canvas *Canvas

	// Pointer position in canvas space, and relative to Target.
	Pointer Vec2
	Local   Vec2

	Button    MouseButton
	Modifiers KeyModifiers
	PointerID int

	// Drag: start position and movement since the previous event.
	// Wheel: scroll amount.
	Start Vec2
	Delta Vec2

	// Pinch
	Scale    float64
	Rotation float64 // degrees

	// Transform action for before:transform ("drag", "scale", "rotate").
	Action string

	// Selection events
	Selected   []*Node
	Deselected []*Node

	// Drop
	Files fs.FS
}

type listener struct {
	id uint32
	fn func(*Event)
}

// CallbackHandle allows removing a registered canvas listener.
type CallbackHandle struct {
	id     uint32
	canvas *Canvas
	event  string
}

// Remove unregisters this listener so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.canvas == nil {
		return
	}
	ls := h.canvas.listeners[h.event]
	for i := range ls {
		if ls[i].id == h.id {
			copy(ls[i:], ls[i+1:])
			ls[len(ls)-1] = listener{}
			h.canvas.listeners[h.event] = ls[:len(ls)-1]
			return
		}
	}
}

// CanvasSetter applies one configuration value to a canvas.
type CanvasSetter func(c *Canvas, v any) error

// Canvas is a drawing surface: the root of a node tree plus selection,
// event listeners, input state and a cached frame.
type Canvas struct {
	root  *Node
	store EntityStore
	debug bool

	// Configuration
	Width, Height    float64
	Background       Color
	Selection        bool
	SelectionColor   Color
	Zoom             float64
	PanX, PanY       float64
	DefaultCursor    string
	OffsetX, OffsetY float64
	attrs            map[string]any

	active    []*Node
	listeners map[string][]listener
	nextID    uint32

	// Redraw
	renderRequested bool
	renderCount     int
	paintDirty      bool
	frame           *ebiten.Image
	lastViewport    [6]float64

	// Input
	now          time.Duration
	pointers     [maxPointers]pointerState
	hitBuf       []*Node
	dragDeadZone float64
	touchMap     [maxPointers]ebiten.TouchID
	touchUsed    [maxPointers]bool
	prevTouchIDs []ebiten.TouchID
	pinch        pinchState
	lastUp       clickRecord
	injectQueue  []syntheticPointerEvent
	cursor       string
}

// NewCanvas creates a canvas of the given size with selection enabled.
func NewCanvas(width, height float64) *Canvas {
	c := &Canvas{
		Width:          width,
		Height:         height,
		Background:     ColorTransparent,
		Selection:      true,
		SelectionColor: Color{0.4, 0.6, 1, 1},
		Zoom:           1,
		DefaultCursor:  "default",
		listeners:      make(map[string][]listener),
		dragDeadZone:   defaultDragDeadZone,
	}
	c.root = NewGroup()
	c.root.Name = "root"
	c.root.canvas = c
	return c
}

// Root returns the canvas root node. Reconciled nodes are its children.
func (c *Canvas) Root() *Node {
	return c.root
}

// SetEntityStore sets the optional ECS bridge.
func (c *Canvas) SetEntityStore(store EntityStore) {
	c.store = store
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// access panics, tree depth and child count warnings are printed, and render
// stats are logged to stderr.
func (c *Canvas) SetDebugMode(enabled bool) {
	c.debug = enabled
	globalDebug = enabled
}

// --- Parent ---

// Objects returns the top-level nodes in paint order.
func (c *Canvas) Objects() []*Node { return c.root.Objects() }

// Item returns the top-level node at index, or nil.
func (c *Canvas) Item(index int) *Node { return c.root.Item(index) }

// InsertAt places n at index among the top-level nodes.
func (c *Canvas) InsertAt(n *Node, index int) {
	c.root.InsertAt(n, index)
	c.RequestRenderAll()
}

// Add appends nodes to the top level.
func (c *Canvas) Add(nodes ...*Node) {
	for _, n := range nodes {
		c.root.AddChild(n)
	}
	c.RequestRenderAll()
}

// Remove detaches top-level nodes. Nodes not on the canvas are ignored.
// Removing a selected node discards the selection.
func (c *Canvas) Remove(nodes ...*Node) {
	c.root.Remove(nodes...)
	for _, a := range c.active {
		if a.Canvas() != c {
			c.DiscardActiveObjects()
			break
		}
	}
	c.RequestRenderAll()
}

// SelectionEnabled reports whether nodes may be selected by default.
func (c *Canvas) SelectionEnabled() bool { return c.Selection }

// --- Selection ---

// ActiveObjects returns the selected nodes. The returned slice MUST NOT be
// mutated by the caller.
func (c *Canvas) ActiveObjects() []*Node {
	return c.active
}

// ActiveObject returns the first selected node, or nil.
func (c *Canvas) ActiveObject() *Node {
	if len(c.active) == 0 {
		return nil
	}
	return c.active[0]
}

// SetActiveObject replaces the selection with n without firing events.
func (c *Canvas) SetActiveObject(n *Node) {
	c.active = c.active[:0]
	if n != nil {
		c.active = append(c.active, n)
	}
	c.RequestRenderAll()
}

// DiscardActiveObjects clears the selection, firing before:selection:cleared
// and selection:cleared when something was selected.
func (c *Canvas) DiscardActiveObjects() {
	if len(c.active) == 0 {
		return
	}
	prev := append([]*Node(nil), c.active...)
	c.Fire(EventBeforeSelectionCleared, &Event{Target: prev[0], Deselected: prev})
	c.active = c.active[:0]
	c.Fire(EventSelectionCleared, &Event{Deselected: prev})
	c.RequestRenderAll()
}

// selectTarget makes n the selection, firing the selection lifecycle events.
func (c *Canvas) selectTarget(n *Node, e Event) {
	if n == nil {
		c.DiscardActiveObjects()
		return
	}
	if len(c.active) == 1 && c.active[0] == n {
		return
	}
	prev := append([]*Node(nil), c.active...)
	c.active = append(c.active[:0], n)
	e.Target = n
	e.Selected = []*Node{n}
	if len(prev) == 0 {
		c.Fire(EventSelectionCreated, &e)
	} else {
		e.Deselected = prev
		c.Fire(EventSelectionUpdated, &e)
	}
	c.RequestRenderAll()
}

// --- Events ---

// On registers fn for the named event ("mouse:down", "object:moving", ...).
func (c *Canvas) On(name string, fn func(*Event)) CallbackHandle {
	c.nextID++
	c.listeners[name] = append(c.listeners[name], listener{id: c.nextID, fn: fn})
	return CallbackHandle{id: c.nextID, canvas: c, event: name}
}

// Fire dispatches e to the listeners of name in registration order and to
// the ECS bridge.
func (c *Canvas) Fire(name string, e *Event) {
	if e == nil {
		e = &Event{}
	}
	e.Type = name
	e.Canvas = c
	ls := c.listeners[name]
	if len(ls) > 0 {
		snapshot := append([]listener(nil), ls...)
		for _, l := range snapshot {
			l.fn(e)
		}
	}
	c.emitEntityEvent(e)
}

func (c *Canvas) emitEntityEvent(e *Event) {
	if c.store == nil {
		return
	}
	// Pinch gestures are global; everything else needs an entity target.
	pinch := e.Type == EventObjectScaling || e.Type == EventObjectRotating
	if !pinch && (e.Target == nil || e.Target.EntityID == 0) {
		return
	}
	c.store.EmitEvent(*e)
}

// --- Configuration ---

// Config returns a configuration value stored without a typed setter.
func (c *Canvas) Config(name string) any {
	return c.attrs[name]
}

// Configure applies every entry of cfg through the canvas setter table.
// Keys without a setter are stored and readable through Config.
func (c *Canvas) Configure(cfg Props) error {
	for k, v := range cfg {
		set, ok := canvasSetters[k]
		if !ok {
			if c.attrs == nil {
				c.attrs = make(map[string]any)
			}
			c.attrs[k] = v
			continue
		}
		if err := set(c, v); err != nil {
			return fmt.Errorf("%w: canvas.%s: %v", ErrInvalidProperty, k, err)
		}
	}
	c.RequestRenderAll()
	return nil
}

var canvasSetters = map[string]CanvasSetter{
	"width":           canvasFloat(func(c *Canvas) *float64 { return &c.Width }),
	"height":          canvasFloat(func(c *Canvas) *float64 { return &c.Height }),
	"zoom":            canvasFloat(func(c *Canvas) *float64 { return &c.Zoom }),
	"viewportLeft":    canvasFloat(func(c *Canvas) *float64 { return &c.PanX }),
	"viewportTop":     canvasFloat(func(c *Canvas) *float64 { return &c.PanY }),
	"offsetLeft":      canvasFloat(func(c *Canvas) *float64 { return &c.OffsetX }),
	"offsetTop":       canvasFloat(func(c *Canvas) *float64 { return &c.OffsetY }),
	"backgroundColor": canvasColor(func(c *Canvas) *Color { return &c.Background }),
	"selectionColor":  canvasColor(func(c *Canvas) *Color { return &c.SelectionColor }),
	"selection": func(c *Canvas, v any) error {
		c.Selection = truthy(v)
		return nil
	},
	"defaultCursor": func(c *Canvas, v any) error {
		s, err := toString(v)
		c.DefaultCursor = s
		return err
	},
}

func canvasFloat(field func(*Canvas) *float64) CanvasSetter {
	return func(c *Canvas, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func canvasColor(field func(*Canvas) *Color) CanvasSetter {
	return func(c *Canvas, v any) error {
		col, err := ParseColor(v)
		if err != nil {
			return err
		}
		*field(c) = col
		return nil
	}
}

// viewportTransform maps canvas space to the surface.
func (c *Canvas) viewportTransform() [6]float64 {
	z := c.Zoom
	if z == 0 {
		z = 1
	}
	return [6]float64{z, 0, 0, z, c.PanX, c.PanY}
}

// CalcOffset recomputes the viewport and every node's coordinates after a
// configuration change.
func (c *Canvas) CalcOffset() {
	c.lastViewport = c.viewportTransform()
	c.root.SetCoords()
}

// screenToCanvas converts a screen position to surface and canvas space.
func (c *Canvas) screenToCanvas(sx, sy float64) (vx, vy, cx, cy float64) {
	vx, vy = sx-c.OffsetX, sy-c.OffsetY
	cx, cy = transformPoint(invertAffine(c.viewportTransform()), vx, vy)
	return vx, vy, cx, cy
}

// --- Redraw ---

// RequestRenderAll marks the canvas for a render on the next RenderAll.
func (c *Canvas) RequestRenderAll() {
	c.renderRequested = true
}

// RenderRequested reports whether a render is pending.
func (c *Canvas) RenderRequested() bool {
	return c.renderRequested
}

// refreshTransforms recomputes dirty world transforms, or all of them when
// the viewport changed.
func (c *Canvas) refreshTransforms() {
	vp := c.viewportTransform()
	if vp != c.lastViewport {
		c.lastViewport = vp
		c.root.transformDirty = true
	}
	updateWorldTransform(c.root, vp, 1, false)
}

// RenderAll brings every node's coordinates up to date and invalidates the
// cached frame so the next Draw repaints it.
func (c *Canvas) RenderAll() {
	c.refreshTransforms()
	c.renderRequested = false
	c.paintDirty = true
	c.renderCount++
}

// RenderCount returns how many times RenderAll has run.
func (c *Canvas) RenderCount() int {
	return c.renderCount
}

// Cursor returns the hover cursor of the node under the mouse, or the
// canvas default.
func (c *Canvas) Cursor() string {
	if c.cursor == "" {
		return c.DefaultCursor
	}
	return c.cursor
}
