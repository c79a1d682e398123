package arbor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newRunnerApp(t *testing.T) *App {
	t.Helper()
	view := Func(func(s State) Element {
		return E("rect", Props{"left": 0, "top": 0, "width": 200, "height": 200, "fill": s.Get("fill")})
	})
	app, err := NewApp(view, Props{"fill": "red"})
	if err != nil {
		t.Fatal(err)
	}
	return app
}

func TestLoadTestScript(t *testing.T) {
	data := []byte(`
steps:
  - action: screenshot
    label: initial
  - action: click
    x: 100
    y: 200
  - action: wait
    frames: 3
  - action: set
    path: fill
    value: blue
`)
	runner, err := LoadTestScript(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []testStep{
		{Action: "screenshot", Label: "initial"},
		{Action: "click", X: 100, Y: 200},
		{Action: "wait", Frames: 3},
		{Action: "set", Path: "fill", Value: "blue"},
	}
	if diff := cmp.Diff(want, runner.steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTestScriptJSON(t *testing.T) {
	runner, err := LoadTestScript([]byte(`{"steps": [{"action": "drag", "fromX": 1, "toX": 9, "frames": 4}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if st := runner.steps[0]; st.FromX != 1 || st.ToX != 9 || st.Frames != 4 {
		t.Errorf("step = %+v", st)
	}
}

func TestLoadTestScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid", "steps: [unclosed"},
		{"empty", "steps: []"},
		{"unknown action", "steps: [{action: teleport}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTestScript([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunnerClickWaitsForInput(t *testing.T) {
	app := newRunnerApp(t)
	runner, err := LoadTestScript([]byte(`steps: [{action: click, x: 50, y: 50}, {action: screenshot, label: after}]`))
	if err != nil {
		t.Fatal(err)
	}

	runner.step(app)
	if got := app.Canvas("").PendingInput(); got != 2 {
		t.Fatalf("expected 2 queued events, got %d", got)
	}
	runner.step(app)
	if runner.cursor != 1 {
		t.Errorf("cursor should still be 1, got %d", runner.cursor)
	}

	c := app.Canvas("")
	c.update(frameDT, false)
	c.update(frameDT, false)

	runner.step(app)
	if diff := cmp.Diff([]string{"after"}, app.screenshotQueue); diff != "" {
		t.Errorf("screenshots (-want +got):\n%s", diff)
	}
	if !runner.Done() {
		t.Error("runner should be done")
	}
}

func TestRunnerWait(t *testing.T) {
	app := newRunnerApp(t)
	runner, err := LoadTestScript([]byte(`steps: [{action: wait, frames: 3}, {action: screenshot, label: done}]`))
	if err != nil {
		t.Fatal(err)
	}

	for i := range 3 {
		runner.step(app)
		if runner.Done() {
			t.Fatalf("done too early at frame %d", i+1)
		}
	}
	runner.step(app)
	if !runner.Done() {
		t.Error("runner should be done after screenshot step")
	}
}

func TestRunnerDrivenByApp(t *testing.T) {
	app := newRunnerApp(t)
	runner, err := LoadTestScript([]byte(`steps: [{action: set, path: fill, value: blue}, {action: drag, fromX: 10, fromY: 10, toX: 60, toY: 10, frames: 3}]`))
	if err != nil {
		t.Fatal(err)
	}
	app.SetTestRunner(runner)

	for range 10 {
		app.Advance(frameDT)
	}
	if !runner.Done() {
		t.Fatal("runner should finish")
	}
	if got := app.State().String("fill"); got != "blue" {
		t.Errorf("fill = %q, want blue", got)
	}
	rect := app.Canvas("").Item(0)
	if rect.Left <= 0 {
		t.Errorf("rect should have been dragged right, left = %v", rect.Left)
	}
}
