package arbor

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// AnimToken describes the most recent animation registered under a name.
// From and To are float64 for numeric animations and Color for color
// animations.
type AnimToken struct {
	From, To any
	Running  bool
	Complete bool
}

// AnimOptions configures App.Anim. When From is nil the start value is read
// from the state at the animation's name. By, when set, makes the target
// From+By instead of To.
type AnimOptions struct {
	From     *float64
	To       float64
	By       *float64
	Duration time.Duration
	Easing   ease.TweenFunc // default ease.InOutCubic
	Change   func(v float64)
	Complete func()
	// Stop registers the token without starting a tween, cancelling any
	// animation running under the same name.
	Stop bool
}

// ColorAnimOptions configures App.AnimColor. When From is nil the start
// color is parsed from the state at the animation's name.
type ColorAnimOptions struct {
	From     *Color
	To       Color
	Duration time.Duration
	Easing   ease.TweenFunc // default ease.InOutCubic
	Change   func(c Color)
	Complete func()
	Stop     bool
}

// Float returns a pointer to v, for the optional From and By options.
func Float(v float64) *float64 { return &v }

// tweenGroup drives up to 4 gween tweens in lockstep on behalf of one
// animation token.
type tweenGroup struct {
	name   string
	token  *AnimToken
	tweens [4]*gween.Tween
	count  int
	apply  func(vals [4]float64)
	done   func()
}

// update advances the tweens by dt and reports whether the group finished.
// A group whose token has been superseded finishes without applying values.
func (g *tweenGroup) update(a *App, dt time.Duration) bool {
	if a.anims[g.name] != g.token {
		return true
	}
	var vals [4]float64
	allDone := true
	for i := 0; i < g.count; i++ {
		v, finished := g.tweens[i].Update(float32(dt.Seconds()))
		vals[i] = float64(v)
		if !finished {
			allDone = false
		}
	}
	g.token.Running = true
	g.apply(vals)
	if allDone {
		g.token.Running = false
		g.token.Complete = true
		if g.done != nil {
			g.done()
		}
	}
	return allDone
}

// tickAnimations advances every running animation by one frame.
func (a *App) tickAnimations(dt time.Duration) {
	if len(a.running) == 0 {
		return
	}
	// Callbacks may start new animations; those join the next frame.
	running := a.running
	a.running = nil
	kept := running[:0]
	for _, g := range running {
		if !g.update(a, dt) {
			kept = append(kept, g)
		}
	}
	a.running = append(kept, a.running...)
}

// Anim animates the numeric state value at name and returns the registered
// token. Each frame writes the current value with SetDebounced and calls
// Change. A later call for the same name supersedes this one.
func (a *App) Anim(name string, opts AnimOptions) AnimToken {
	from := a.state.Float(name)
	if opts.From != nil {
		from = *opts.From
	}
	to := opts.To
	if opts.By != nil {
		to = from + *opts.By
	}
	token := &AnimToken{From: from, To: to}
	a.anims[name] = token
	if opts.Stop {
		return *token
	}

	set := func(v float64) {
		a.SetDebounced(name, v)
		if opts.Change != nil {
			opts.Change(v)
		}
	}
	if opts.Duration <= 0 {
		a.finishNow(token, func() { set(to) }, opts.Complete)
		return *token
	}

	fn := opts.Easing
	if fn == nil {
		fn = ease.InOutCubic
	}
	secs := float32(opts.Duration.Seconds())
	g := &tweenGroup{name: name, token: token, count: 1, done: opts.Complete}
	g.tweens[0] = gween.New(float32(from), float32(to), secs, fn)
	g.apply = func(vals [4]float64) { set(vals[0]) }
	a.running = append(a.running, g)
	return *token
}

// AnimColor animates the color state value at name channel by channel. It
// behaves like Anim; the written values are Color.
func (a *App) AnimColor(name string, opts ColorAnimOptions) AnimToken {
	var from Color
	if opts.From != nil {
		from = *opts.From
	} else if v, ok := a.state.Lookup(name); ok {
		from, _ = ParseColor(v)
	}
	to := opts.To
	token := &AnimToken{From: from, To: to}
	a.anims[name] = token
	if opts.Stop {
		return *token
	}

	set := func(c Color) {
		a.SetDebounced(name, c)
		if opts.Change != nil {
			opts.Change(c)
		}
	}
	if opts.Duration <= 0 {
		a.finishNow(token, func() { set(to) }, opts.Complete)
		return *token
	}

	fn := opts.Easing
	if fn == nil {
		fn = ease.InOutCubic
	}
	secs := float32(opts.Duration.Seconds())
	g := &tweenGroup{name: name, token: token, count: 4, done: opts.Complete}
	g.tweens[0] = gween.New(float32(from.R), float32(to.R), secs, fn)
	g.tweens[1] = gween.New(float32(from.G), float32(to.G), secs, fn)
	g.tweens[2] = gween.New(float32(from.B), float32(to.B), secs, fn)
	g.tweens[3] = gween.New(float32(from.A), float32(to.A), secs, fn)
	g.apply = func(vals [4]float64) {
		set(Color{R: vals[0], G: vals[1], B: vals[2], A: vals[3]})
	}
	a.running = append(a.running, g)
	return *token
}

// finishNow completes a zero-duration animation in the calling frame: the
// final value is written and flushed, then the token completes.
func (a *App) finishNow(token *AnimToken, set func(), complete func()) {
	set()
	a.Flush()
	token.Complete = true
	if complete != nil {
		complete()
	}
}

// Animation returns the token registered under name. The zero token means no
// animation was ever registered.
func (a *App) Animation(name string) AnimToken {
	if t, ok := a.anims[name]; ok {
		return *t
	}
	return AnimToken{}
}

// StopAnim cancels the animation running under name, leaving the state at
// its last written value.
func (a *App) StopAnim(name string) {
	v := a.state.Float(name)
	a.Anim(name, AnimOptions{From: &v, To: v, Stop: true})
}
