package arbor

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/singleflight"
)

// writeDebounce is the trailing window of SetDebounced and MergeDebounced.
const writeDebounce = 10 * time.Millisecond

// Default size of canvases the app creates itself.
const (
	defaultCanvasWidth  = 800
	defaultCanvasHeight = 600
)

// surface binds one view to one canvas.
type surface struct {
	name    string
	view    Element
	canvas  *Canvas
	configs Props
	redraw  *debouncer
}

type subscriber struct {
	id uint64
	fn func(State)
}

// Option configures an App.
type Option func(*App)

// WithCanvas binds the surface with the given name to c. Single-view apps
// use the empty name.
func WithCanvas(name string, c *Canvas) Option {
	return func(a *App) { a.canvases[name] = c }
}

// WithSurfaceResolver resolves canvases for surfaces not supplied with
// WithCanvas.
func WithSurfaceResolver(fn func(name string) (*Canvas, error)) Option {
	return func(a *App) { a.resolve = fn }
}

// WithRegistry makes the app reconcile against reg instead of the default
// registry.
func WithRegistry(reg *Registry) Option {
	return func(a *App) { a.rec = NewReconciler(reg) }
}

// WithErrorHandler receives errors that have no caller to return to:
// debounced writes, animation frames and image loads.
func WithErrorHandler(fn func(error)) Option {
	return func(a *App) { a.onError = fn }
}

// WithImageLoader replaces the loader behind "$load".
func WithImageLoader(l ImageLoader) Option {
	return func(a *App) { a.loader = l }
}

// App owns the application state and keeps one or more canvases reconciled
// with it. Every method must be called from the game loop goroutine, except
// Post.
type App struct {
	state   State
	subs    []subscriber
	nextSub uint64

	surfaces  []*surface
	canvases  map[string]*Canvas
	resolve   func(name string) (*Canvas, error)
	rec       *Reconciler
	renderErr error

	writes  *debouncer
	pending []pendingWrite
	now     time.Duration

	anims   map[string]*AnimToken
	running []*tweenGroup

	images map[string]*ImageEntry
	loader ImageLoader
	loads  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc

	queueMu sync.Mutex
	queue   []func()

	runner          *TestRunner
	screenshotQueue []string
	// ScreenshotDir is where Screenshot writes PNG files. Empty means
	// "screenshots".
	ScreenshotDir string

	onError func(error)
	debug   bool
}

// NewApp creates an app rendering view onto a single canvas, configured from
// the "configs" state entry. The initial render happens before NewApp
// returns; its error, if any, is returned with the app.
func NewApp(view Element, initial Props, opts ...Option) (*App, error) {
	return newApp(map[string]Element{"": view}, initial, opts)
}

// NewMultiApp creates an app with one canvas per named view. Each canvas is
// configured from "configs.<name>".
func NewMultiApp(views map[string]Element, initial Props, opts ...Option) (*App, error) {
	return newApp(views, initial, opts)
}

func newApp(views map[string]Element, initial Props, opts []Option) (*App, error) {
	a := &App{
		canvases: make(map[string]*Canvas),
		rec:      defaultReconciler,
		writes:   newDebouncer(writeDebounce),
		anims:    make(map[string]*AnimToken),
		images:   make(map[string]*ImageEntry),
		loader:   DefaultImageLoader{},
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(a)
	}

	values := Props{
		"$state":     a,
		"$anim":      a.Anim,
		"$animColor": a.AnimColor,
		"$load":      ImageLoads{app: a},
	}
	maps.Copy(values, initial)
	a.state = NewState(values)

	for _, name := range slices.Sorted(maps.Keys(views)) {
		c, err := a.canvasFor(name)
		if err != nil {
			return nil, err
		}
		s := &surface{
			name:   name,
			view:   views[name],
			canvas: c,
			redraw: newDebouncer(0),
		}
		a.surfaces = append(a.surfaces, s)
		a.wireEvents(c)
	}

	a.Subscribe(a.renderAll)
	a.notify()
	err := a.renderErr
	a.renderErr = nil
	return a, err
}

func (a *App) canvasFor(name string) (*Canvas, error) {
	if c, ok := a.canvases[name]; ok {
		return c, nil
	}
	if a.resolve != nil {
		return a.resolve(name)
	}
	return NewCanvas(defaultCanvasWidth, defaultCanvasHeight), nil
}

// wireEvents registers one listener per recognized raw event. The listener
// calls the target's handler prop, falling back to its legacy alias.
func (a *App) wireEvents(c *Canvas) {
	for _, raw := range rawEventNames {
		prop := HandlerName(raw)
		legacy := legacyHandlerNames[prop]
		c.On(raw, func(e *Event) {
			if e.Target == nil {
				return
			}
			if h := e.Target.Handler(prop); h != nil {
				h(e)
				return
			}
			if legacy != "" {
				if h := e.Target.Handler(legacy); h != nil {
					h(e)
				}
			}
		})
	}
}

// --- State ---

// State returns the current snapshot.
func (a *App) State() State {
	return a.state
}

// Subscribe registers fn to be called with every new snapshot, after the
// subscribers registered before it. The returned func unsubscribes and may
// be called any number of times.
func (a *App) Subscribe(fn func(State)) (unsubscribe func()) {
	a.nextSub++
	id := a.nextSub
	a.subs = append(a.subs, subscriber{id: id, fn: fn})
	return func() {
		a.subs = slices.DeleteFunc(a.subs, func(s subscriber) bool { return s.id == id })
	}
}

// Set writes value at path and notifies subscribers. An empty path is a
// no-op. The returned error comes from the path or the render pass.
func (a *App) Set(path string, value any) error {
	if path == "" {
		return nil
	}
	s, err := a.state.with(path, value)
	if err != nil {
		return err
	}
	return a.commit(s)
}

// Merge shallow-merges partial into the state and notifies subscribers. A nil
// partial is a no-op; an empty one forces a re-render.
func (a *App) Merge(partial Props) error {
	if partial == nil {
		return nil
	}
	return a.commit(a.state.merged(partial))
}

// Refresh notifies subscribers without changing any value.
func (a *App) Refresh() error {
	return a.Merge(Props{})
}

// pendingWrite is one debounced write. A nil merge means a Set of path.
type pendingWrite struct {
	path  string
	value any
	merge Props
}

// SetDebounced schedules Set(path, value) after a 10ms quiet window. Pending
// writes to different paths all land together in one commit; a later write
// to the same path replaces the pending one.
func (a *App) SetDebounced(path string, value any) {
	if path == "" {
		return
	}
	a.queueWrite(pendingWrite{path: path, value: value})
}

// MergeDebounced schedules Merge(partial) with the same window as
// SetDebounced. A later debounced merge replaces a pending one.
func (a *App) MergeDebounced(partial Props) {
	if partial == nil {
		return
	}
	a.queueWrite(pendingWrite{merge: partial})
}

func (a *App) queueWrite(w pendingWrite) {
	a.pending = slices.DeleteFunc(a.pending, func(p pendingWrite) bool {
		return (p.merge != nil) == (w.merge != nil) && p.path == w.path
	})
	a.pending = append(a.pending, w)
	a.writes.schedule(a.now, a.applyWrites)
}

// applyWrites commits every pending write in the order it was last
// scheduled. Writes with an invalid path are reported and skipped.
func (a *App) applyWrites() {
	pending := a.pending
	a.pending = nil
	s := a.state
	for _, w := range pending {
		if w.merge != nil {
			s = s.merged(w.merge)
			continue
		}
		next, err := s.with(w.path, w.value)
		if err != nil {
			a.report(err)
			continue
		}
		s = next
	}
	if s.version == a.state.version {
		return
	}
	if err := a.commit(s); err != nil {
		a.report(err)
	}
}

// Flush performs the pending debounced writes immediately.
func (a *App) Flush() {
	a.writes.flush()
}

func (a *App) commit(s State) error {
	a.state = s
	a.notify()
	err := a.renderErr
	a.renderErr = nil
	return err
}

// notify calls subscribers in registration order over a copy of the list, so
// subscribing or unsubscribing during a notification takes effect next time.
func (a *App) notify() {
	s := a.state
	for _, sub := range slices.Clone(a.subs) {
		sub.fn(s)
	}
}

// --- Rendering ---

// renderAll is the first subscriber: it reconciles every surface with s.
func (a *App) renderAll(s State) {
	for _, sf := range a.surfaces {
		if err := a.renderSurface(sf, s); err != nil && a.renderErr == nil {
			a.renderErr = err
		}
	}
}

func (a *App) renderSurface(sf *surface, s State) error {
	path := "configs"
	if sf.name != "" {
		path += "." + sf.name
	}
	if cfg := s.Props(path); !deepEqual(cfg, sf.configs) {
		changed := Props{}
		for k, v := range cfg {
			if old, ok := sf.configs[k]; !ok || !deepEqual(old, v) {
				changed[k] = v
			}
		}
		sf.configs = cfg
		if err := sf.canvas.Configure(changed); err != nil {
			return err
		}
		sf.canvas.CalcOffset()
	}

	start := time.Now()
	stats, err := a.rec.Render(sf.view, sf.canvas, s)
	if err != nil {
		return err
	}

	// Top-level nodes nothing claimed this pass.
	var stale []*Node
	for _, n := range sf.canvas.Objects() {
		if n.shouldRemove {
			stale = append(stale, n)
		}
	}
	if len(stale) > 0 {
		sf.canvas.Remove(stale...)
		stats.Removed += len(stale)
	}

	if a.debug {
		debugLogRender(sf.name, stats, time.Since(start))
	}
	c := sf.canvas
	c.RequestRenderAll()
	sf.redraw.schedule(a.now, c.RenderAll)
	return nil
}

// --- Frame driving ---

// Update advances the app by one Ebitengine tick, polling real input.
func (a *App) Update() error {
	a.step(time.Second/time.Duration(ebiten.TPS()), true)
	return nil
}

// Advance advances the app by dt without polling input devices. Injected
// input, animations and debounced work still run.
func (a *App) Advance(dt time.Duration) {
	a.step(dt, false)
}

func (a *App) step(dt time.Duration, poll bool) {
	a.now += dt
	a.drainQueue()
	if a.runner != nil {
		a.runner.step(a)
	}
	for _, sf := range a.surfaces {
		sf.canvas.update(dt, poll)
	}
	// Writes scheduled last frame land before animations schedule new ones.
	a.writes.tick(a.now)
	a.tickAnimations(dt)
	for _, sf := range a.surfaces {
		sf.redraw.tick(a.now)
	}
}

// Draw paints every surface onto screen.
func (a *App) Draw(screen *ebiten.Image) {
	for _, sf := range a.surfaces {
		sf.canvas.Draw(screen)
	}
	a.flushScreenshots(screen)
}

// Post queues fn to run on the game loop at the start of the next frame.
// Safe to call from any goroutine.
func (a *App) Post(fn func()) {
	a.queueMu.Lock()
	a.queue = append(a.queue, fn)
	a.queueMu.Unlock()
}

func (a *App) drainQueue() {
	a.queueMu.Lock()
	q := a.queue
	a.queue = nil
	a.queueMu.Unlock()
	for _, fn := range q {
		fn()
	}
}

// Close cancels image loads still in flight.
func (a *App) Close() {
	a.cancel()
}

// --- Surfaces ---

// Canvas returns the canvas bound to the named surface, or nil. Single-view
// apps use the empty name.
func (a *App) Canvas(name string) *Canvas {
	for _, sf := range a.surfaces {
		if sf.name == name {
			return sf.canvas
		}
	}
	return nil
}

// Canvases returns every bound canvas in surface name order.
func (a *App) Canvases() []*Canvas {
	out := make([]*Canvas, len(a.surfaces))
	for i, sf := range a.surfaces {
		out[i] = sf.canvas
	}
	return out
}

// --- Diagnostics ---

// SetDebugMode toggles render statistics and error reports on stderr, and
// the tree sanity checks on every canvas.
func (a *App) SetDebugMode(enabled bool) {
	a.debug = enabled
	for _, sf := range a.surfaces {
		sf.canvas.SetDebugMode(enabled)
	}
}

// report hands an error without a caller to the error handler.
func (a *App) report(err error) {
	if a.debug {
		debugf("error: %v", err)
	}
	if a.onError != nil {
		a.onError(err)
	}
}
