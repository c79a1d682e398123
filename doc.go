// Package arbor is a declarative layer over a retained-mode 2D canvas for
// [Ebitengine].
//
// A view is a function of the application state that returns a tree of
// elements. Arbor keeps one or more canvases in step with that tree: every
// state change re-runs the view and reconciles the live nodes, creating,
// updating, moving and removing only what changed.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	view := arbor.Func(func(s arbor.State) arbor.Element {
//		return arbor.E("rect", arbor.Props{
//			"left": s.Float("x"), "width": 80, "height": 40, "fill": "tomato",
//		})
//	})
//	app, err := arbor.NewApp(view, arbor.Props{"x": 10})
//	if err != nil {
//		log.Fatal(err)
//	}
//	arbor.Run(app, arbor.RunConfig{Title: "My App", Width: 640, Height: 480})
//
// For full control, implement [ebiten.Game] yourself and call [App.Update]
// and [App.Draw] directly.
//
// # Elements
//
// [E] builds an element of a registered kind ("rect", "circle", "ellipse",
// "triangle", "line", "polygon", "polyline", "text", "image", "group").
// [BlockType] elements pass their props down to every leaf below them,
// [Func] elements read the state, and [Memo] components skip their view
// when their props are unchanged. Props named like onObjectMoving or
// onMouseDown are event handlers; "key" gives a node a stable identity
// across renders.
//
// # State
//
// [App.Set], [App.Merge] and their debounced variants replace the state
// snapshot and re-render. [App.Anim] and [App.AnimColor] tween a state
// value (via [gween]), writing it every frame.
//
// # Key features
//
// Arbor includes pointer, touch and pinch input with selection and drag,
// multi-surface apps configured from TOML, asynchronous image loading,
// YAML test scripts with screenshots, and ECS integration (via [Donburi]
// adapter in arbor/ecs).
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package arbor
