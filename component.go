package arbor

import "fmt"

// componentIDCounter is a plain counter only touched on the game loop.
var componentIDCounter uint64

// Component memoizes a view function behind a projection of state and props.
// When the projection is deep-equal to the previous one, the previously
// rendered tree is returned and the view is not called again.
//
// The cache is shared by every props instance of the same Component, so the
// view must return the same tree for equal projections.
type Component struct {
	id      string
	project func(State, Props) Props
	view    func(Props) Element

	cached   bool
	lastIn   Props
	lastTree Element
}

// Memo wraps view with an identity projection: the view re-runs only when the
// props passed to With change.
func Memo(view func(Props) Element) *Component {
	return MemoWith(nil, view)
}

// MemoWith wraps view with a projector computing the view's props from the
// current state and the props passed to With. A nil projector passes props
// through unchanged.
func MemoWith(project func(State, Props) Props, view func(Props) Element) *Component {
	if project == nil {
		project = func(_ State, p Props) Props { return p }
	}
	componentIDCounter++
	return &Component{
		id:      fmt.Sprintf("c_%d", componentIDCounter),
		project: project,
		view:    view,
	}
}

// ID returns the component's process-unique identifier.
func (c *Component) ID() string {
	return c.id
}

// With binds props and returns a function element for the tree.
func (c *Component) With(props Props) Func {
	return func(s State) Element {
		return c.render(s, props)
	}
}

func (c *Component) render(s State, props Props) Element {
	next := c.project(s, props)
	if c.cached && deepEqual(next, c.lastIn) {
		return c.lastTree
	}
	c.cached = true
	c.lastIn = next
	c.lastTree = c.view(next)
	return c.lastTree
}
