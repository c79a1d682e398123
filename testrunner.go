package arbor

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// testStep represents a single action in a test script.
type testStep struct {
	Action  string  `yaml:"action"`
	Surface string  `yaml:"surface,omitempty"`
	Label   string  `yaml:"label,omitempty"`
	X       float64 `yaml:"x,omitempty"`
	Y       float64 `yaml:"y,omitempty"`
	FromX   float64 `yaml:"fromX,omitempty"`
	FromY   float64 `yaml:"fromY,omitempty"`
	ToX     float64 `yaml:"toX,omitempty"`
	ToY     float64 `yaml:"toY,omitempty"`
	Frames  int     `yaml:"frames,omitempty"`
	Path    string  `yaml:"path,omitempty"`
	Value   any     `yaml:"value,omitempty"`
}

// testScript is the top-level structure for a test script.
type testScript struct {
	Steps []testStep `yaml:"steps"`
}

// TestRunner sequences injected input, state writes and screenshots across
// frames for automated testing. Attach to an App via SetTestRunner.
//
// Supported actions: click, hover, drag, wait, set, screenshot.
type TestRunner struct {
	steps     []testStep
	cursor    int
	waitCount int
	done      bool
}

// LoadTestScript parses a YAML test script (JSON is accepted as well) and
// returns a TestRunner ready to be attached via SetTestRunner.
func LoadTestScript(data []byte) (*TestRunner, error) {
	var script testScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "click", "hover", "drag", "wait", "set", "screenshot":
		default:
			return nil, fmt.Errorf("parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// SetTestRunner attaches a TestRunner to the app. Its step method runs at
// the start of every frame, before input is processed.
func (a *App) SetTestRunner(runner *TestRunner) {
	a.runner = runner
}

// Done reports whether all steps in the test script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// pendingInput counts queued injected events over every canvas.
func pendingInput(a *App) int {
	n := 0
	for _, sf := range a.surfaces {
		n += sf.canvas.PendingInput()
	}
	return n
}

// step advances the test runner by one frame. Called from App.step.
func (r *TestRunner) step(a *App) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if pendingInput(a) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	c := a.Canvas(st.Surface)
	switch st.Action {
	case "screenshot":
		a.Screenshot(st.Label)
	case "click":
		if c != nil {
			c.InjectClick(st.X, st.Y)
		}
	case "hover":
		if c != nil {
			c.InjectHover(st.X, st.Y)
		}
	case "drag":
		if c != nil {
			c.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, max(st.Frames, 2))
		}
	case "set":
		if err := a.Set(st.Path, st.Value); err != nil {
			a.report(fmt.Errorf("test step %d: %w", r.cursor-1, err))
		}
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && pendingInput(a) == 0 {
		r.done = true
	}
}
