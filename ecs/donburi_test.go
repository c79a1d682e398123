package ecs

import (
	"testing"
	"time"

	"github.com/phanxgames/arbor"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestDonburiStore_EmitEvent(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var received []arbor.Event
	CanvasEventType.Subscribe(world, func(w donburi.World, e arbor.Event) {
		received = append(received, e)
	})

	target := arbor.NewGroup()
	target.EntityID = 42
	store.EmitEvent(arbor.Event{
		Type:    arbor.EventMouseDown,
		Target:  target,
		Pointer: arbor.Vec2{X: 100, Y: 200},
		Button:  arbor.MouseButtonLeft,
	})
	store.EmitEvent(arbor.Event{Type: arbor.EventObjectScaling, Scale: 2})

	// Events are queued until processed.
	if len(received) != 0 {
		t.Fatalf("events delivered before ProcessEvents: %d", len(received))
	}
	CanvasEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	e0 := received[0]
	if e0.Type != arbor.EventMouseDown || e0.Target.EntityID != 42 {
		t.Errorf("event 0: %+v", e0)
	}
	if e0.Pointer.X != 100 || e0.Pointer.Y != 200 {
		t.Errorf("event 0 position: %v", e0.Pointer)
	}
	if e1 := received[1]; e1.Type != arbor.EventObjectScaling || e1.Scale != 2 {
		t.Errorf("event 1: %+v", e1)
	}
}

func TestDonburiStore_ImplementsEntityStore(t *testing.T) {
	var _ arbor.EntityStore = NewDonburiStore(donburi.NewWorld())
}

func TestDonburiStore_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var count1, count2 int
	CanvasEventType.Subscribe(world, func(donburi.World, arbor.Event) { count1++ })
	CanvasEventType.Subscribe(world, func(donburi.World, arbor.Event) { count2++ })

	store.EmitEvent(arbor.Event{Type: arbor.EventMouseUp})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}

func TestDonburiStore_CanvasForwardsEntityTargets(t *testing.T) {
	view := arbor.List{
		arbor.E("rect", arbor.Props{"width": 50, "height": 50, "entityID": 7}),
		arbor.E("rect", arbor.Props{"left": 100, "width": 50, "height": 50}),
	}
	app, err := arbor.NewApp(view, nil)
	if err != nil {
		t.Fatal(err)
	}
	world := donburi.NewWorld()
	app.Canvas("").SetEntityStore(NewDonburiStore(world))

	var downs []uint32
	CanvasEventType.Subscribe(world, func(_ donburi.World, e arbor.Event) {
		if e.Type == arbor.EventMouseDown {
			downs = append(downs, e.Target.EntityID)
		}
	})

	c := app.Canvas("")
	c.InjectClick(25, 25)
	c.InjectClick(125, 25)
	for range 4 {
		app.Advance(time.Second / 60)
	}
	CanvasEventType.ProcessEvents(world)

	if len(downs) != 1 || downs[0] != 7 {
		t.Errorf("mouse:down entities = %v, want [7]", downs)
	}
}
