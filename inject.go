package arbor

// syntheticPointerEvent represents a single injected pointer event in screen
// coordinates, processed exactly like real mouse input.
type syntheticPointerEvent struct {
	screenX, screenY float64
	pressed          bool
	button           MouseButton
}

// InjectPress queues a pointer press at the given screen coordinates (left
// button). Each queued event is consumed by one frame.
func (c *Canvas) InjectPress(x, y float64) {
	c.injectQueue = append(c.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		pressed: true,
		button:  MouseButtonLeft,
	})
}

// InjectMove queues a pointer move with the button held down. Use this
// between InjectPress and InjectRelease to simulate a drag.
func (c *Canvas) InjectMove(x, y float64) {
	c.injectQueue = append(c.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		pressed: true,
		button:  MouseButtonLeft,
	})
}

// InjectHover queues a pointer move with no button held.
func (c *Canvas) InjectHover(x, y float64) {
	c.injectQueue = append(c.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		button: MouseButtonLeft,
	})
}

// InjectRelease queues a pointer release at the given screen coordinates.
func (c *Canvas) InjectRelease(x, y float64) {
	c.injectQueue = append(c.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		pressed: false,
		button:  MouseButtonLeft,
	})
}

// InjectClick queues a press followed by a release at the same screen
// coordinates. Consumes two frames.
func (c *Canvas) InjectClick(x, y float64) {
	c.InjectPress(x, y)
	c.InjectRelease(x, y)
}

// InjectDrag queues a full drag sequence: press at (fromX, fromY), linearly
// interpolated moves over frames-2 intermediate frames, and release at
// (toX, toY). Minimum frames is 2 (press + release).
func (c *Canvas) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	c.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		c.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	c.InjectRelease(toX, toY)
}

// PendingInput reports how many injected events are still queued.
func (c *Canvas) PendingInput() int {
	return len(c.injectQueue)
}

// processInjectedInput pops one injected event and feeds it through
// processPointer. Returns true if an event was consumed, in which case real
// mouse input is skipped for the frame.
func (c *Canvas) processInjectedInput(mods KeyModifiers) bool {
	if len(c.injectQueue) == 0 {
		return false
	}
	evt := c.injectQueue[0]
	copy(c.injectQueue, c.injectQueue[1:])
	c.injectQueue = c.injectQueue[:len(c.injectQueue)-1]

	c.processPointer(0, evt.screenX, evt.screenY, evt.pressed, evt.button, mods)
	return true
}
