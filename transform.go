package arbor

import "math"

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

const degToRad = math.Pi / 180

// computeLocalTransform computes the local affine matrix from the node's
// transform properties. Returns [a, b, c, d, tx, ty].
//
// Composition order:
//
//	Translate(-OriginX*Width, -OriginY*Height) -> Scale -> Skew -> Rotate -> Translate(Left, Top)
//
// so (0, 0) in local space is the node's top-left corner and Left/Top place
// the origin point.
func computeLocalTransform(n *Node) [6]float64 {
	sx := n.ScaleX
	sy := n.ScaleY

	sin, cos := math.Sincos(n.Angle * degToRad)

	var tanSkewX, tanSkewY float64
	if n.SkewX != 0 {
		tanSkewX = math.Tan(n.SkewX * degToRad)
	}
	if n.SkewY != 0 {
		tanSkewY = math.Tan(n.SkewY * degToRad)
	}

	a := sx
	b := tanSkewY * sx
	c := tanSkewX * sy
	d := sy

	px := n.OriginX * n.Width
	py := n.OriginY * n.Height
	preTx := -px*sx - tanSkewX*py*sy
	preTy := -tanSkewY*px*sx - py*sy

	ra := cos*a - sin*b
	rb := sin*a + cos*b
	rc := cos*c - sin*d
	rd := sin*c + cos*d
	rtx := cos*preTx - sin*preTy
	rty := sin*preTx + cos*preTy

	return [6]float64{ra, rb, rc, rd, rtx + n.Left, rty + n.Top}
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// updateWorldTransform recomputes a node's worldTransform, worldAlpha and
// corner coordinates. parentRecomputed forces recomputation of this node even
// if it's not dirty.
func updateWorldTransform(n *Node, parentTransform [6]float64, parentAlpha float64, parentRecomputed bool) {
	if n.childAdded {
		fitChildren(n)
	}
	recompute := n.transformDirty || parentRecomputed
	if recompute {
		local := computeLocalTransform(n)
		n.worldTransform = multiplyAffine(parentTransform, local)
		n.worldAlpha = parentAlpha * n.Opacity
		n.transformDirty = false
		w, h := n.Width, n.Height
		m := n.worldTransform
		n.coords[0].X, n.coords[0].Y = transformPoint(m, 0, 0)
		n.coords[1].X, n.coords[1].Y = transformPoint(m, w, 0)
		n.coords[2].X, n.coords[2].Y = transformPoint(m, w, h)
		n.coords[3].X, n.coords[3].Y = transformPoint(m, 0, h)
	}

	for _, child := range n.children {
		updateWorldTransform(child, n.worldTransform, n.worldAlpha, recompute)
	}
}

// fitChildren grows a container to enclose the local bounds of its children.
func fitChildren(n *Node) {
	n.childAdded = false
	var maxX, maxY float64
	for _, c := range n.children {
		m := computeLocalTransform(c)
		for _, p := range [4][2]float64{{0, 0}, {c.Width, 0}, {c.Width, c.Height}, {0, c.Height}} {
			x, y := transformPoint(m, p[0], p[1])
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}
	}
	if maxX != n.Width || maxY != n.Height {
		n.Width, n.Height = maxX, maxY
		n.transformDirty = true
	}
}

// --- Transform helpers ---

// SetPosition sets Left and Top and marks the node dirty.
func (n *Node) SetPosition(left, top float64) {
	n.Left = left
	n.Top = top
	n.transformDirty = true
}

// SetScale sets ScaleX and ScaleY and marks the node dirty.
func (n *Node) SetScale(sx, sy float64) {
	n.ScaleX = sx
	n.ScaleY = sy
	n.transformDirty = true
}

// SetAngle sets the rotation in degrees and marks the node dirty.
func (n *Node) SetAngle(deg float64) {
	n.Angle = deg
	n.transformDirty = true
}

// MarkDirty forces the node's transform to be recomputed on the next
// SetCoords. Useful after bulk-setting fields directly.
func (n *Node) MarkDirty() {
	n.transformDirty = true
}

// SetCoords recomputes the world transform and corner coordinates of the node
// and its subtree. Containers that gained children since the last call are
// first resized to enclose them.
func (n *Node) SetCoords() {
	parentT, parentA := identityTransform, 1.0
	if n.Parent != nil {
		parentT, parentA = n.Parent.worldTransform, n.Parent.worldAlpha
	} else if n.canvas != nil {
		parentT = n.canvas.viewportTransform()
	}
	n.transformDirty = true
	updateWorldTransform(n, parentT, parentA, false)
}

// Coords returns the node's corners in canvas space (top-left, top-right,
// bottom-right, bottom-left) as of the last SetCoords.
func (n *Node) Coords() [4]Vec2 {
	return n.coords
}

// Bounds returns the axis-aligned bounding box of the node's corners.
func (n *Node) Bounds() Rect {
	minX, minY := n.coords[0].X, n.coords[0].Y
	maxX, maxY := minX, minY
	for _, p := range n.coords[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// --- Coordinate conversion ---

// WorldToLocal converts a canvas-space point to this node's local space.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	inv := invertAffine(n.worldTransform)
	return transformPoint(inv, wx, wy)
}

// LocalToWorld converts a local-space point to canvas space.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return transformPoint(n.worldTransform, lx, ly)
}

// containsPoint reports whether the canvas-space point lies inside the node's
// local rectangle.
func (n *Node) containsPoint(wx, wy float64) bool {
	lx, ly := n.WorldToLocal(wx, wy)
	return lx >= 0 && ly >= 0 && lx <= n.Width && ly <= n.Height
}
