package arbor

import (
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// --- Constants ---

const (
	maxPointers         = 10  // pointer 0 = mouse, 1-9 = touch
	defaultDragDeadZone = 4.0 // pixels
	dblClickWindow      = 300 * time.Millisecond
)

// --- Per-pointer state ---

type pointerState struct {
	down      bool
	startX    float64 // canvas space
	startY    float64
	lastX     float64
	lastY     float64
	lastVX    float64 // surface space
	lastVY    float64
	hitNode   *Node
	hoverNode *Node
	dragging  bool
	moved     bool        // the hit node was moved by this drag
	button    MouseButton // button captured at press time
}

// --- Pinch state ---

type pinchState struct {
	active       bool
	pointer0     int
	pointer1     int
	target       *Node
	initialDist  float64
	initialAngle float64
	prevDist     float64
	prevAngle    float64
}

// clickRecord remembers the last release for double-click detection.
type clickRecord struct {
	target *Node
	at     time.Duration
	valid  bool
}

// SetDragDeadZone sets the minimum movement in pixels before a drag starts.
func (c *Canvas) SetDragDeadZone(pixels float64) {
	c.dragDeadZone = pixels
}

// --- Hit testing ---

// hitTest finds the topmost evented top-level node at the surface position.
// Groups are hit as a whole. Returns nil if nothing is hit.
func (c *Canvas) hitTest(vx, vy float64) *Node {
	objs := c.root.children
	for i := len(objs) - 1; i >= 0; i-- {
		n := objs[i]
		if !n.Visible || !n.Evented {
			continue
		}
		if n.containsPoint(vx, vy) {
			return n
		}
	}
	return nil
}

// FindTarget returns the node a pointer at the given screen position would
// target, or nil.
func (c *Canvas) FindTarget(sx, sy float64) *Node {
	c.refreshTransforms()
	vx, vy, _, _ := c.screenToCanvas(sx, sy)
	return c.hitTest(vx, vy)
}

// --- Input processing ---

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

// update advances the canvas clock and processes one frame of input. With
// poll false only injected input is processed, which keeps tests free of
// device state.
func (c *Canvas) update(dt time.Duration, poll bool) {
	c.now += dt
	c.refreshTransforms()

	var mods KeyModifiers
	if poll {
		mods = readModifiers()
	}
	if c.processInjectedInput(mods) || !poll {
		return
	}
	c.processMousePointer(mods)
	c.processTouchPointers(mods)
	c.detectPinch(mods)
	c.processWheel(mods)
	c.processDrop(mods)
}

// processMousePointer handles mouse input (pointer 0).
func (c *Canvas) processMousePointer(mods KeyModifiers) {
	mx, my := ebiten.CursorPosition()

	var pressed bool
	var button MouseButton
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	middle := ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle)

	if left || right || middle {
		pressed = true
		if left {
			button = MouseButtonLeft
		} else if right {
			button = MouseButtonRight
		} else {
			button = MouseButtonMiddle
		}
	}

	c.processPointer(0, float64(mx), float64(my), pressed, button, mods)
}

// processTouchPointers handles touch input (pointers 1-9).
func (c *Canvas) processTouchPointers(mods KeyModifiers) {
	for _, tid := range inpututil.AppendJustPressedTouchIDs(nil) {
		c.touchSlot(tid)
	}
	touchIDs := ebiten.AppendTouchIDs(c.prevTouchIDs[:0])
	c.prevTouchIDs = touchIDs

	var activeSlots [maxPointers]bool
	for _, tid := range touchIDs {
		slot := c.touchSlot(tid)
		if slot < 0 {
			continue
		}
		activeSlots[slot] = true

		tx, ty := ebiten.TouchPosition(tid)
		c.processPointer(slot, float64(tx), float64(ty), true, MouseButtonLeft, mods)
	}

	// Release any touch slots that are no longer active.
	for i := 1; i < maxPointers; i++ {
		if c.touchUsed[i] && !activeSlots[i] {
			ps := &c.pointers[i]
			if ps.down {
				c.processPointer(i, ps.lastVX+c.OffsetX, ps.lastVY+c.OffsetY, false, MouseButtonLeft, mods)
			}
			c.touchUsed[i] = false
			c.touchMap[i] = 0
		}
	}
}

// touchSlot maps an ebiten.TouchID to a pointer slot (1-9).
// Returns the existing slot or allocates a new one. Returns -1 if full.
func (c *Canvas) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxPointers; i++ {
		if c.touchUsed[i] && c.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !c.touchUsed[i] {
			c.touchUsed[i] = true
			c.touchMap[i] = tid
			return i
		}
	}
	return -1
}

// processWheel fires mouse:wheel for scroll input.
func (c *Canvas) processWheel(mods KeyModifiers) {
	dx, dy := ebiten.Wheel()
	if dx == 0 && dy == 0 {
		return
	}
	mx, my := ebiten.CursorPosition()
	e := c.pointerEvent(0, float64(mx), float64(my), MouseButtonLeft, mods)
	e.Delta = Vec2{dx, dy}
	c.Fire(EventMouseWheel, &e)
}

// processDrop fires drop when files are dropped onto the window.
func (c *Canvas) processDrop(mods KeyModifiers) {
	files := ebiten.DroppedFiles()
	if files == nil {
		return
	}
	mx, my := ebiten.CursorPosition()
	e := c.pointerEvent(0, float64(mx), float64(my), MouseButtonLeft, mods)
	e.Files = files
	c.Fire(EventDrop, &e)
}

// pointerEvent builds an event for a pointer at a screen position, targeting
// the node under it.
func (c *Canvas) pointerEvent(pointerID int, sx, sy float64, button MouseButton, mods KeyModifiers) Event {
	vx, vy, cx, cy := c.screenToCanvas(sx, sy)
	return c.eventAt(c.hitTest(vx, vy), pointerID, vx, vy, cx, cy, button, mods)
}

func (c *Canvas) eventAt(target *Node, pointerID int, vx, vy, cx, cy float64, button MouseButton, mods KeyModifiers) Event {
	e := Event{
		Target:    target,
		Pointer:   Vec2{cx, cy},
		Button:    button,
		Modifiers: mods,
		PointerID: pointerID,
	}
	if target != nil {
		e.Local.X, e.Local.Y = target.WorldToLocal(vx, vy)
	}
	return e
}

// processPointer runs the pointer state machine for a single pointer.
func (c *Canvas) processPointer(pointerID int, sx, sy float64, pressed bool, button MouseButton, mods KeyModifiers) {
	ps := &c.pointers[pointerID]
	vx, vy, cx, cy := c.screenToCanvas(sx, sy)

	target := c.hitTest(vx, vy)
	if ps.down && ps.moved {
		target = ps.hitNode
	}

	// Hover over/out when the hovered node changes.
	if target != ps.hoverNode && !ps.down {
		if ps.hoverNode != nil {
			e := c.eventAt(ps.hoverNode, pointerID, vx, vy, cx, cy, button, mods)
			c.Fire(EventMouseOut, &e)
		}
		if target != nil {
			e := c.eventAt(target, pointerID, vx, vy, cx, cy, button, mods)
			c.Fire(EventMouseOver, &e)
		}
		ps.hoverNode = target
		if pointerID == 0 {
			c.cursor = ""
			if target != nil {
				c.cursor = target.HoverCursor
			}
		}
	}

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.button = button
		ps.startX, ps.startY = cx, cy
		ps.lastX, ps.lastY = cx, cy
		ps.lastVX, ps.lastVY = vx, vy
		ps.hitNode = target
		ps.dragging = false
		ps.moved = false

		e := c.eventAt(target, pointerID, vx, vy, cx, cy, button, mods)
		c.Fire(EventMouseDownBefore, &e)
		if c.Selection {
			if target != nil && target.Selectable {
				c.selectTarget(target, e)
			} else if target == nil {
				c.DiscardActiveObjects()
			}
		}
		e = c.eventAt(target, pointerID, vx, vy, cx, cy, button, mods)
		c.Fire(EventMouseDown, &e)

	case !pressed && ps.down:
		e := c.eventAt(target, pointerID, vx, vy, cx, cy, ps.button, mods)
		e.Start = Vec2{ps.startX, ps.startY}
		c.Fire(EventMouseUpBefore, &e)
		c.Fire(EventMouseUp, &e)

		if ps.moved {
			me := c.eventAt(ps.hitNode, pointerID, vx, vy, cx, cy, ps.button, mods)
			me.Action = "drag"
			me.Start = Vec2{ps.startX, ps.startY}
			c.Fire(EventObjectMoved, &me)
			c.Fire(EventObjectModified, &me)
			c.lastUp = clickRecord{}
		} else if !ps.dragging {
			if c.lastUp.valid && c.lastUp.target == target && c.now-c.lastUp.at <= dblClickWindow {
				de := c.eventAt(target, pointerID, vx, vy, cx, cy, ps.button, mods)
				c.Fire(EventMouseDblClick, &de)
				c.lastUp = clickRecord{}
			} else {
				c.lastUp = clickRecord{target: target, at: c.now, valid: true}
			}
		}

		ps.down = false
		ps.hitNode = nil
		ps.dragging = false
		ps.moved = false
		ps.lastX, ps.lastY = cx, cy
		ps.lastVX, ps.lastVY = vx, vy

	case pressed && ps.down:
		if cx == ps.lastX && cy == ps.lastY {
			return
		}
		if !ps.dragging {
			dx := cx - ps.startX
			dy := cy - ps.startY
			if math.Sqrt(dx*dx+dy*dy) > c.dragDeadZone {
				ps.dragging = true
				if n := ps.hitNode; n != nil && n.Selectable && c.Selection && !c.pinch.active {
					be := c.eventAt(n, pointerID, vx, vy, cx, cy, ps.button, mods)
					be.Action = "drag"
					c.Fire(EventBeforeTransform, &be)
					ps.moved = true
				}
			}
		}
		e := c.eventAt(target, pointerID, vx, vy, cx, cy, ps.button, mods)
		e.Start = Vec2{ps.startX, ps.startY}
		e.Delta = Vec2{cx - ps.lastX, cy - ps.lastY}
		c.Fire(EventMouseMoveBefore, &e)
		if ps.moved && !c.pinch.active {
			c.moveNode(ps.hitNode, vx-ps.lastVX, vy-ps.lastVY)
			me := c.eventAt(ps.hitNode, pointerID, vx, vy, cx, cy, ps.button, mods)
			me.Action = "drag"
			me.Start = e.Start
			me.Delta = e.Delta
			c.Fire(EventObjectMoving, &me)
		}
		c.Fire(EventMouseMove, &e)
		ps.lastX, ps.lastY = cx, cy
		ps.lastVX, ps.lastVY = vx, vy

	default:
		// Hover move.
		if cx != ps.lastX || cy != ps.lastY {
			e := c.eventAt(target, pointerID, vx, vy, cx, cy, button, mods)
			e.Delta = Vec2{cx - ps.lastX, cy - ps.lastY}
			c.Fire(EventMouseMoveBefore, &e)
			c.Fire(EventMouseMove, &e)
			ps.lastX, ps.lastY = cx, cy
			ps.lastVX, ps.lastVY = vx, vy
		}
	}
}

// moveNode translates n by a surface-space delta, converted into its
// parent's space.
func (c *Canvas) moveNode(n *Node, dvx, dvy float64) {
	if n == nil || n.Parent == nil {
		return
	}
	inv := invertAffine(n.Parent.worldTransform)
	dx := inv[0]*dvx + inv[2]*dvy
	dy := inv[1]*dvx + inv[3]*dvy
	n.SetPosition(n.Left+dx, n.Top+dy)
	n.SetCoords()
	c.RequestRenderAll()
}

// --- Pinch detection ---

func (c *Canvas) detectPinch(mods KeyModifiers) {
	var active [maxPointers]bool
	var count int
	for i := 1; i < maxPointers; i++ {
		if c.pointers[i].down {
			active[i] = true
			count++
		}
	}

	if count != 2 {
		if c.pinch.active {
			c.endPinch(mods)
		}
		return
	}

	var p0, p1 int
	found := 0
	for i := 1; i < maxPointers && found < 2; i++ {
		if active[i] {
			if found == 0 {
				p0 = i
			} else {
				p1 = i
			}
			found++
		}
	}

	ps0 := &c.pointers[p0]
	ps1 := &c.pointers[p1]

	cx := (ps0.lastX + ps1.lastX) / 2
	cy := (ps0.lastY + ps1.lastY) / 2
	dx := ps1.lastX - ps0.lastX
	dy := ps1.lastY - ps0.lastY
	dist := math.Sqrt(dx*dx + dy*dy)
	angle := math.Atan2(dy, dx)

	// Suppress drag for the two pinch pointers.
	ps0.dragging, ps0.moved = false, false
	ps1.dragging, ps1.moved = false, false

	if !c.pinch.active {
		c.pinch = pinchState{
			active:       true,
			pointer0:     p0,
			pointer1:     p1,
			initialDist:  dist,
			initialAngle: angle,
			prevDist:     dist,
			prevAngle:    angle,
		}
		if n := ps0.hitNode; n != nil && n.Selectable && c.Selection {
			c.pinch.target = n
			e := Event{Target: n, Pointer: Vec2{cx, cy}, Modifiers: mods, PointerID: p0, Action: "scale"}
			c.Fire(EventBeforeTransform, &e)
		}
		return
	}

	scale := 1.0
	if c.pinch.initialDist > 0 {
		scale = dist / c.pinch.initialDist
	}
	scaleDelta := 0.0
	if c.pinch.prevDist > 0 {
		scaleDelta = dist/c.pinch.prevDist - 1.0
	}
	rotDelta := (angle - c.pinch.prevAngle) / degToRad
	rotation := (angle - c.pinch.initialAngle) / degToRad
	c.pinch.prevDist = dist
	c.pinch.prevAngle = angle

	n := c.pinch.target
	if n != nil {
		n.SetScale(n.ScaleX*(1+scaleDelta), n.ScaleY*(1+scaleDelta))
		n.SetAngle(n.Angle + rotDelta)
		n.SetCoords()
		c.RequestRenderAll()
	}
	e := Event{
		Target:    n,
		Pointer:   Vec2{cx, cy},
		Modifiers: mods,
		PointerID: p0,
		Scale:     scale,
		Rotation:  rotation,
		Delta:     Vec2{scaleDelta, rotDelta},
	}
	e.Action = "scale"
	c.Fire(EventObjectScaling, &e)
	e.Action = "rotate"
	c.Fire(EventObjectRotating, &e)
}

func (c *Canvas) endPinch(mods KeyModifiers) {
	n := c.pinch.target
	c.pinch = pinchState{}
	if n == nil {
		return
	}
	e := Event{Target: n, Modifiers: mods, Scale: n.ScaleX, Rotation: n.Angle}
	e.Action = "scale"
	c.Fire(EventObjectScaled, &e)
	e.Action = "rotate"
	c.Fire(EventObjectRotated, &e)
	c.Fire(EventObjectModified, &e)
}
