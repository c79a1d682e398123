package arbor

import (
	"testing"
	"time"
)

const frameDT = time.Second / 60

// newTestRect adds a 100x100 rect at (left, top) to the canvas top level.
func newTestRect(c *Canvas, left, top float64) *Node {
	n := newNode(nil)
	n.Left, n.Top = left, top
	n.Width, n.Height = 100, 100
	c.Add(n)
	c.RenderAll()
	return n
}

func TestInjectClick(t *testing.T) {
	c := NewCanvas(400, 400)
	rect := newTestRect(c, 0, 0)

	var ups int
	c.On(EventMouseUp, func(e *Event) {
		ups++
		if e.Target != rect {
			t.Error("expected rect target")
		}
	})

	c.InjectClick(50, 50)
	if c.PendingInput() != 2 {
		t.Fatalf("expected 2 queued events, got %d", c.PendingInput())
	}

	// Frame 1: press
	c.update(frameDT, false)
	if c.PendingInput() != 1 {
		t.Fatalf("expected 1 remaining event after frame 1, got %d", c.PendingInput())
	}
	if ups != 0 {
		t.Error("mouse:up should not fire on press frame")
	}

	// Frame 2: release
	c.update(frameDT, false)
	if c.PendingInput() != 0 {
		t.Fatalf("expected 0 remaining events after frame 2, got %d", c.PendingInput())
	}
	if ups != 1 {
		t.Errorf("mouse:up fired %d times, want 1", ups)
	}
}

func TestInjectDragMovesSelectable(t *testing.T) {
	c := NewCanvas(400, 400)
	rect := newTestRect(c, 0, 0)

	var events []string
	for _, name := range []string{EventBeforeTransform, EventObjectMoving, EventObjectMoved, EventObjectModified} {
		c.On(name, func(e *Event) { events = append(events, e.Type) })
	}

	// frame 0: press at (10,10); frames 1-3: moves; frame 4: release at (60, 30).
	c.InjectDrag(10, 10, 60, 30, 5)
	for range 5 {
		c.update(frameDT, false)
	}

	if len(events) < 4 {
		t.Fatalf("expected at least 4 events, got %v", events)
	}
	if events[0] != EventBeforeTransform {
		t.Errorf("first event = %s, want %s", events[0], EventBeforeTransform)
	}
	if events[len(events)-2] != EventObjectMoved || events[len(events)-1] != EventObjectModified {
		t.Errorf("last events = %v, want moved then modified", events[len(events)-2:])
	}
	// The final release frame carries no move, so the rect follows the
	// pointer up to the last InjectMove position.
	assertNear(t, "left", rect.Left, 37.5)
	assertNear(t, "top", rect.Top, 15)
}

func TestInjectDragUnselectableDoesNotMove(t *testing.T) {
	c := NewCanvas(400, 400)
	rect := newTestRect(c, 0, 0)
	rect.Selectable = false

	moving := 0
	c.On(EventObjectMoving, func(*Event) { moving++ })
	c.InjectDrag(10, 10, 200, 200, 5)
	for range 5 {
		c.update(frameDT, false)
	}
	if moving != 0 || rect.Left != 0 {
		t.Errorf("moving = %d, left = %v; want no movement", moving, rect.Left)
	}
}

func TestInjectHoverOverOut(t *testing.T) {
	c := NewCanvas(400, 400)
	rect := newTestRect(c, 0, 0)
	rect.HoverCursor = "pointer"

	var events []string
	c.On(EventMouseOver, func(e *Event) { events = append(events, e.Type) })
	c.On(EventMouseOut, func(e *Event) { events = append(events, e.Type) })

	c.InjectHover(50, 50)
	c.update(frameDT, false)
	if c.Cursor() != "pointer" {
		t.Errorf("cursor = %q, want pointer", c.Cursor())
	}
	c.InjectHover(300, 300)
	c.update(frameDT, false)
	if c.Cursor() != "default" {
		t.Errorf("cursor = %q, want default", c.Cursor())
	}

	want := []string{EventMouseOver, EventMouseOut}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("events = %v, want %v", events, want)
	}
}
