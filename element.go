package arbor

// BlockType is the element type that groups children and injects its props
// into every descendant leaf without producing a drawable of its own.
const BlockType = "block"

// Element is a node of a declarative tree. It is a closed set: Func, List,
// *Block and *Leaf. A nil Element renders nothing.
type Element interface {
	element()
}

// Func is a function element, invoked with the current state on every render
// pass. It may return nil.
type Func func(State) Element

// List is an ordered sequence of sibling elements.
type List []Element

// Block injects Props into all leaves beneath it, until a nearer block or the
// leaf's own props override them.
type Block struct {
	Props    Props
	Children []Element
}

// Leaf describes one drawable. Type names a registered Kind ("rect",
// "circle", "group", ...). When Component is set the leaf is a typed
// component and Type is ignored: Component is called with Props and Children
// and its result is rendered in place of the leaf.
type Leaf struct {
	Type      string
	Component func(Props, ...Element) Element
	Props     Props
	Children  []Element
}

func (Func) element()   {}
func (List) element()   {}
func (*Block) element() {}
func (*Leaf) element()  {}

// E creates an element of the given type. No validation happens here;
// unknown types are reported when the tree is rendered. E(BlockType, ...)
// returns a *Block.
func E(typ string, props Props, children ...Element) Element {
	if props == nil {
		props = Props{}
	}
	if typ == BlockType {
		return &Block{Props: props, Children: children}
	}
	return &Leaf{Type: typ, Props: props, Children: children}
}

// C creates a typed component leaf.
func C(component func(Props, ...Element) Element, props Props, children ...Element) Element {
	if props == nil {
		props = Props{}
	}
	return &Leaf{Component: component, Props: props, Children: children}
}

// Group creates a "group" leaf whose children are reconciled into the group
// node.
func Group(props Props, children ...Element) Element {
	return E("group", props, children...)
}

// leaf is a flattened, renderable element.
type leaf struct {
	typ      string
	props    Props
	children []Element
}

// flatten walks tree depth-first and appends every drawable leaf to out,
// merging inherited block props beneath each leaf's own props.
func flatten(e Element, state State, inherited Props, out []leaf) []leaf {
	switch n := e.(type) {
	case nil:
		return out
	case Func:
		if n == nil {
			return out
		}
		return flatten(n(state), state, inherited, out)
	case List:
		for _, child := range n {
			out = flatten(child, state, inherited, out)
		}
		return out
	case *Block:
		if n == nil {
			return out
		}
		merged := inherited
		if len(n.Props) > 0 {
			merged = mergeProps(inherited, n.Props)
		}
		for _, child := range n.Children {
			out = flatten(child, state, merged, out)
		}
		return out
	case *Leaf:
		if n == nil {
			return out
		}
		if n.Component != nil {
			return flatten(n.Component(n.Props, n.Children...), state, inherited, out)
		}
		if n.Type == BlockType {
			return flatten(&Block{Props: n.Props, Children: n.Children}, state, inherited, out)
		}
		return append(out, leaf{
			typ:      n.Type,
			props:    mergeProps(inherited, n.Props),
			children: n.Children,
		})
	default:
		panic("arbor: unknown element type")
	}
}

// mergeProps returns a new Props with over applied on top of base.
func mergeProps(base, over Props) Props {
	out := make(Props, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
