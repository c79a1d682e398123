package arbor

import (
	"math"
	"testing"
	"time"

	"github.com/tanema/gween/ease"
)

// runUntilComplete advances app frame by frame until the named animation
// completes, failing after limit frames.
func runUntilComplete(t *testing.T, app *App, name string, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		app.Advance(frameDT)
		if app.Animation(name).Complete {
			return i
		}
	}
	t.Fatalf("%s not complete after %d frames", name, limit)
	return 0
}

func TestAnimZeroDurationCompletesSynchronously(t *testing.T) {
	app := newTestApp(t, nil, Props{"x": Props{"y": 5}})
	completed := false
	tok := app.Anim("x.y", AnimOptions{To: 100, Complete: func() { completed = true }})

	if !tok.Complete || tok.Running {
		t.Errorf("token = %+v, want complete", tok)
	}
	if tok.From != 5.0 || tok.To != 100.0 {
		t.Errorf("from %v to %v", tok.From, tok.To)
	}
	if got := app.State().Float("x.y"); got != 100 {
		t.Errorf("x.y = %v, want 100", got)
	}
	if !completed {
		t.Error("Complete callback not called")
	}
}

func TestAnimReachesTarget(t *testing.T) {
	app := newTestApp(t, nil, Props{"x": 10})
	var changes []float64
	completed := 0
	app.Anim("x", AnimOptions{
		To:       110,
		Duration: time.Second,
		Easing:   ease.Linear,
		Change:   func(v float64) { changes = append(changes, v) },
		Complete: func() { completed++ },
	})
	if app.Animation("x").Complete {
		t.Fatal("animation with a duration completed immediately")
	}

	for range 30 {
		app.Advance(frameDT)
	}
	if tok := app.Animation("x"); !tok.Running {
		t.Errorf("token = %+v, want running", tok)
	}
	mid := app.State().Float("x")
	if mid <= 10 || mid >= 110 {
		t.Errorf("midway x = %v", mid)
	}

	frames := runUntilComplete(t, app, "x", 60)
	if frames+30 < 58 {
		t.Errorf("completed after %d frames, want about 60", frames+30)
	}
	app.Advance(frameDT)
	if got := app.State().Float("x"); math.Abs(got-110) > 0.01 {
		t.Errorf("x = %v, want 110", got)
	}
	if completed != 1 {
		t.Errorf("Complete called %d times", completed)
	}
	for i := 1; i < len(changes); i++ {
		if changes[i] < changes[i-1] {
			t.Fatalf("linear animation went backwards at %d: %v", i, changes)
		}
	}
}

func TestAnimSupersession(t *testing.T) {
	app := newTestApp(t, nil, Props{"x": 0})
	firstChanges, firstDone := 0, false
	app.Anim("x", AnimOptions{
		To:       100,
		Duration: time.Second,
		Change:   func(float64) { firstChanges++ },
		Complete: func() { firstDone = true },
	})
	for range 10 {
		app.Advance(frameDT)
	}
	seen := firstChanges

	app.Anim("x", AnimOptions{To: -50, Duration: 200 * time.Millisecond})
	runUntilComplete(t, app, "x", 30)
	app.Advance(frameDT)

	if firstChanges != seen || firstDone {
		t.Errorf("superseded animation still running: %d changes, done %v", firstChanges-seen, firstDone)
	}
	if got := app.State().Float("x"); math.Abs(got+50) > 0.01 {
		t.Errorf("x = %v, want -50", got)
	}
}

func TestAnimBy(t *testing.T) {
	app := newTestApp(t, nil, Props{"angle": 30})
	tok := app.Anim("angle", AnimOptions{By: Float(15), To: 999})
	if tok.To != 45.0 {
		t.Errorf("to = %v, want 45", tok.To)
	}
	if got := app.State().Float("angle"); got != 45 {
		t.Errorf("angle = %v", got)
	}

	tok = app.Anim("angle", AnimOptions{From: Float(0), By: Float(10)})
	if tok.From != 0.0 || tok.To != 10.0 {
		t.Errorf("from %v to %v", tok.From, tok.To)
	}
}

func TestStopAnim(t *testing.T) {
	app := newTestApp(t, nil, Props{"x": 0})
	app.Anim("x", AnimOptions{To: 100, Duration: time.Second})
	for range 20 {
		app.Advance(frameDT)
	}
	app.StopAnim("x")
	app.Advance(frameDT)
	held := app.State().Float("x")

	for range 10 {
		app.Advance(frameDT)
	}
	if got := app.State().Float("x"); got != held {
		t.Errorf("x moved after StopAnim: %v -> %v", held, got)
	}
	if tok := app.Animation("x"); tok.Running || tok.Complete {
		t.Errorf("stopped token = %+v", tok)
	}
}

func TestAnimationUnknownName(t *testing.T) {
	app := newTestApp(t, nil, nil)
	if tok := app.Animation("nope"); tok != (AnimToken{}) {
		t.Errorf("token = %+v, want zero", tok)
	}
}

func TestAnimColor(t *testing.T) {
	app := newTestApp(t, nil, Props{"fill": "red"})
	var last Color
	tok := app.AnimColor("fill", ColorAnimOptions{
		To:       Color{0, 0, 1, 1},
		Duration: 250 * time.Millisecond,
		Change:   func(c Color) { last = c },
	})
	if tok.From != (Color{1, 0, 0, 1}) {
		t.Errorf("from = %v, want red", tok.From)
	}

	runUntilComplete(t, app, "fill", 30)
	app.Advance(frameDT)
	got, ok := app.State().Get("fill").(Color)
	if !ok {
		t.Fatalf("fill = %T, want Color", app.State().Get("fill"))
	}
	for _, ch := range []struct {
		name      string
		got, want float64
	}{
		{"R", got.R, 0}, {"B", got.B, 1}, {"last B", last.B, 1},
	} {
		if math.Abs(ch.got-ch.want) > 0.01 {
			t.Errorf("%s = %v, want %v", ch.name, ch.got, ch.want)
		}
	}
}

func TestAnimDrivesRender(t *testing.T) {
	view := Func(func(s State) Element {
		return E("rect", Props{"key": "r", "left": s.Float("x"), "width": 10, "height": 10})
	})
	app := newTestApp(t, view, Props{"x": 0})
	r := app.Canvas("").Item(0)
	anim := app.State().Get("$anim").(func(string, AnimOptions) AnimToken)
	anim("x", AnimOptions{To: 50, Duration: 100 * time.Millisecond})

	runUntilComplete(t, app, "x", 20)
	app.Advance(frameDT)
	if app.Canvas("").Item(0) != r {
		t.Error("animation should update the node in place")
	}
	assertNear(t, "left", r.Left, 50)
}

func TestConcurrentAnimsAllLand(t *testing.T) {
	app := newTestApp(t, nil, Props{"pos": Props{"x": 0}, "scale": 1, "fill": "red"})
	app.Anim("pos.x", AnimOptions{To: 100, Duration: 300 * time.Millisecond})
	app.Anim("scale", AnimOptions{To: 3, Duration: 200 * time.Millisecond})
	app.AnimColor("fill", ColorAnimOptions{To: Color{0, 0, 1, 1}, Duration: 250 * time.Millisecond})

	for range 5 {
		app.Advance(frameDT)
	}
	s := app.State()
	if s.Float("pos.x") <= 0 || s.Float("scale") <= 1 {
		t.Errorf("mid-flight pos.x %v scale %v, want both moving", s.Float("pos.x"), s.Float("scale"))
	}

	runUntilComplete(t, app, "pos.x", 40)
	if !app.Animation("scale").Complete || !app.Animation("fill").Complete {
		t.Fatal("shorter animations should finish first")
	}
	app.Advance(frameDT)
	s = app.State()
	assertNear(t, "pos.x", s.Float("pos.x"), 100)
	assertNear(t, "scale", s.Float("scale"), 3)
	if c, ok := s.Get("fill").(Color); !ok || math.Abs(c.B-1) > 0.01 {
		t.Errorf("fill = %v, want blue", s.Get("fill"))
	}
}
