package arbor

import (
	"fmt"
)

// Parent is a container of live drawables that a declarative tree can be
// reconciled into. *Canvas and *Node (groups) implement it.
type Parent interface {
	Objects() []*Node
	Item(index int) *Node
	InsertAt(n *Node, index int)
	Remove(nodes ...*Node)
	SelectionEnabled() bool
}

// RenderStats counts what a render pass did.
type RenderStats struct {
	Created int
	Updated int
	Moved   int
	Skipped int
	Removed int
}

// Add accumulates o into s.
func (s *RenderStats) Add(o RenderStats) {
	s.Created += o.Created
	s.Updated += o.Updated
	s.Moved += o.Moved
	s.Skipped += o.Skipped
	s.Removed += o.Removed
}

// Changed reports whether the pass mutated the scene.
func (s RenderStats) Changed() bool {
	return s.Created+s.Updated+s.Moved+s.Removed > 0
}

// Reconciler converges a parent's live drawables to a declarative tree.
type Reconciler struct {
	Registry *Registry
}

// NewReconciler creates a reconciler resolving types through reg. A nil reg
// uses DefaultRegistry.
func NewReconciler(reg *Registry) *Reconciler {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Reconciler{Registry: reg}
}

var defaultReconciler = NewReconciler(nil)

// Render reconciles tree into parent using the built-in kinds.
func Render(tree Element, parent Parent, state State) (RenderStats, error) {
	return defaultReconciler.Render(tree, parent, state)
}

// Render flattens tree against state and reconciles the resulting leaves into
// parent: matching drawables are updated in place, missing ones are created
// at their list position and unclaimed ones are removed in one batch.
//
// An unsupported type or invalid property aborts the pass; mutations made for
// earlier leaves stay applied.
func (r *Reconciler) Render(tree Element, parent Parent, state State) (RenderStats, error) {
	if parent == nil {
		panic("arbor: render into nil parent")
	}
	leaves := flatten(tree, state, nil, nil)
	return r.reconcile(leaves, parent, state)
}

func (r *Reconciler) reconcile(leaves []leaf, parent Parent, state State) (RenderStats, error) {
	var stats RenderStats

	for _, obj := range parent.Objects() {
		obj.shouldRemove = true
	}

	for i, lf := range leaves {
		n, s, err := r.resolve(i, lf, parent, state)
		stats.Add(s)
		if err != nil {
			return stats, err
		}
		n.shouldRemove = false
	}

	var unclaimed []*Node
	for _, obj := range parent.Objects() {
		if obj.shouldRemove {
			unclaimed = append(unclaimed, obj)
		}
	}
	if len(unclaimed) > 0 {
		parent.Remove(unclaimed...)
		stats.Removed += len(unclaimed)
	}
	return stats, nil
}

// resolve finds or creates the drawable for leaf i and applies its props.
func (r *Reconciler) resolve(i int, lf leaf, parent Parent, state State) (*Node, RenderStats, error) {
	var stats RenderStats

	key, hasKey := lf.props["key"]
	if hasKey && key == nil {
		hasKey = false
	}
	ref := lf.props["ref"]

	props := withSelectionDefaults(lf.props, parent.SelectionEnabled())
	delete(props, "key")
	delete(props, "ref")

	kind, name, ok := r.Registry.Lookup(lf.typ)
	if !ok {
		return nil, stats, fmt.Errorf("element type %s is not supported: %w", name, ErrUnsupportedType)
	}

	var matched *Node
	if hasKey {
		for _, obj := range parent.Objects() {
			if obj.key != nil && keysEqual(obj.key, key) {
				matched = obj
				break
			}
		}
	} else {
		matched = parent.Item(i)
		key = i
	}

	var n *Node
	switch {
	case matched == nil || matched.typ != lf.typ || !keysEqual(matched.key, key):
		created, err := r.create(kind, name, props)
		if err != nil {
			return nil, stats, err
		}
		n = created
		n.key = key
		n.typ = lf.typ
		n.props = props
		parent.InsertAt(n, i)
		if g, ok := parent.(*Node); ok {
			g.childAdded = true
		}
		if matched != nil {
			parent.Remove(matched)
			stats.Removed++
		}
		if err := applyProps(kind, n, props); err != nil {
			return n, stats, err
		}
		n.SetCoords()
		stats.Created++

	default:
		n = matched
		if hasKey && parent.Item(i) != n {
			parent.InsertAt(n, i)
			stats.Moved++
		}
		if propsChanged(n.props, props) {
			if err := applyProps(kind, n, props); err != nil {
				return n, stats, err
			}
			n.props = props
			if touchesCoords(props) {
				n.SetCoords()
			}
			stats.Updated++
		} else {
			// Handlers compare by code, so refresh them to pick up new captures.
			if err := applyHandlers(kind, n, props); err != nil {
				return n, stats, err
			}
			n.props = props
			stats.Skipped++
		}
	}

	if kind.Container {
		s, err := r.reconcile(flattenChildren(lf.children, state), n, state)
		stats.Add(s)
		if err != nil {
			return n, stats, err
		}
		if n.childAdded {
			n.SetCoords()
		}
	}

	if fn, ok := ref.(func(*Node)); ok && fn != nil {
		fn(n)
	}
	return n, stats, nil
}

// create instantiates a drawable using the kind's constructor convention:
// containers start empty, text takes its content, image takes its source and
// everything else takes the structural props.
func (r *Reconciler) create(kind *Kind, name string, props Props) (*Node, error) {
	var arg any
	switch {
	case kind.Container:
	case name == "Text":
		arg = props["text"]
	case name == "Image":
		arg = props["src"]
	default:
		structural := make(Props, len(props))
		for k, v := range props {
			if !IsEventProp(k) {
				structural[k] = v
			}
		}
		arg = structural
	}
	n, err := kind.New(kind, arg)
	if err != nil {
		return nil, err
	}
	if n.Kind == nil {
		n.Kind = kind
	}
	return n, nil
}

// applyProps splits props into handlers and structural values and applies
// both to n.
func applyProps(kind *Kind, n *Node, props Props) error {
	if err := applyHandlers(kind, n, props); err != nil {
		return err
	}
	structural := make(Props, len(props))
	for k, v := range props {
		if !IsEventProp(k) {
			structural[k] = v
		}
	}
	return kind.apply(n, structural)
}

// applyHandlers stores every event prop of props as a handler on n.
func applyHandlers(kind *Kind, n *Node, props Props) error {
	for k, v := range props {
		if !IsEventProp(k) {
			continue
		}
		switch fn := v.(type) {
		case nil:
			n.SetHandler(k, nil)
		case func(*Event):
			n.SetHandler(k, fn)
		case func():
			if fn == nil {
				n.SetHandler(k, nil)
				break
			}
			n.SetHandler(k, func(*Event) { fn() })
		default:
			return fmt.Errorf("%w: %s.%s: handler of type %T", ErrInvalidProperty, kind.Name, k, v)
		}
	}
	return nil
}

// withSelectionDefaults copies props with selectable, controls and
// hoverCursor defaults merged beneath them.
func withSelectionDefaults(props Props, selectionEnabled bool) Props {
	selectable := selectionEnabled
	if v, ok := props["selectable"]; ok {
		if b, isBool := v.(bool); isBool && !b {
			selectable = false
		} else if truthy(v) {
			selectable = true
		}
	}
	cursor := "default"
	if selectable {
		cursor = "move"
	}
	out := Props{
		"selectable":  selectable,
		"controls":    selectable,
		"hoverCursor": cursor,
	}
	for k, v := range props {
		out[k] = v
	}
	return out
}

// propsChanged reports whether any key of next differs from prev.
func propsChanged(prev, next Props) bool {
	for k, v := range next {
		if !deepEqual(prev[k], v) {
			return true
		}
	}
	return false
}

func touchesCoords(props Props) bool {
	for _, k := range [...]string{"left", "top", "width", "height"} {
		if _, ok := props[k]; ok {
			return true
		}
	}
	return false
}

func flattenChildren(children []Element, state State) []leaf {
	var out []leaf
	for _, c := range children {
		out = flatten(c, state, nil, out)
	}
	return out
}
