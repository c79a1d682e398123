package arbor

import (
	"image"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	ellipseSegments = 48
	handleSize      = 6.0
)

// whitePixel is the 1x1 source image for vector triangles, created on first
// paint.
var whitePixel *ebiten.Image

func whiteSubImage() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(3, 3)
		whitePixel.Fill(Color{1, 1, 1, 1}.toRGBA())
	}
	return whitePixel.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
}

// Draw paints the canvas onto screen at its offset. A pending render is
// performed first; the cached frame is repainted only after a RenderAll.
func (c *Canvas) Draw(screen *ebiten.Image) {
	if c.renderRequested {
		c.RenderAll()
	}
	w, h := int(math.Ceil(c.Width)), int(math.Ceil(c.Height))
	if w <= 0 || h <= 0 {
		b := screen.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	if c.frame == nil || c.frame.Bounds().Dx() != w || c.frame.Bounds().Dy() != h {
		if c.frame != nil {
			c.frame.Deallocate()
		}
		c.frame = ebiten.NewImage(w, h)
		c.paintDirty = true
	}
	if c.paintDirty {
		c.paint(c.frame)
		c.paintDirty = false
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(c.OffsetX, c.OffsetY)
	screen.DrawImage(c.frame, op)
}

// paint renders the whole tree and the selection into dst.
func (c *Canvas) paint(dst *ebiten.Image) {
	dst.Clear()
	if c.Background.A > 0 {
		dst.Fill(c.Background.toRGBA())
	}
	for _, n := range c.root.children {
		paintNode(dst, n)
	}
	for _, n := range c.active {
		c.paintSelection(dst, n)
	}
}

// paintNode draws n and its children in painter order.
func paintNode(dst *ebiten.Image, n *Node) {
	if !n.Visible || n.worldAlpha <= 0 {
		return
	}
	if n.Kind != nil && n.Kind.Paint != nil {
		n.Kind.Paint(dst, n)
	} else {
		paintBuiltin(dst, n)
	}
	for _, child := range n.children {
		paintNode(dst, child)
	}
}

func paintBuiltin(dst *ebiten.Image, n *Node) {
	name := ""
	if n.Kind != nil {
		name = n.Kind.Name
	}
	switch name {
	case "Text":
		paintText(dst, n)
	case "Image":
		paintImage(dst, n)
	case "Line":
		x0, y0 := math.Min(n.X1, n.X2), math.Min(n.Y1, n.Y2)
		pts := []Vec2{{n.X1 - x0, n.Y1 - y0}, {n.X2 - x0, n.Y2 - y0}}
		paintPath(dst, n, pts, false, ColorTransparent, n.Stroke)
	case "Polygon":
		paintPath(dst, n, n.Points, true, n.Fill, n.Stroke)
	case "Polyline":
		paintPath(dst, n, n.Points, false, n.Fill, n.Stroke)
	default:
		paintPath(dst, n, shapeOutline(n), true, n.Fill, n.Stroke)
	}
}

// shapeOutline returns the local outline of rect-like kinds.
func shapeOutline(n *Node) []Vec2 {
	w, h := n.Width, n.Height
	name := ""
	if n.Kind != nil {
		name = n.Kind.Name
	}
	switch name {
	case "Triangle":
		return []Vec2{{w / 2, 0}, {w, h}, {0, h}}
	case "Circle", "Ellipse":
		pts := make([]Vec2, ellipseSegments)
		for i := range pts {
			sin, cos := math.Sincos(2 * math.Pi * float64(i) / ellipseSegments)
			pts[i] = Vec2{w/2 + cos*w/2, h/2 + sin*h/2}
		}
		return pts
	}
	return []Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// paintPath fills and strokes a local outline through the node's world
// transform.
func paintPath(dst *ebiten.Image, n *Node, local []Vec2, closed bool, fill, stroke Color) {
	if len(local) < 2 {
		return
	}
	var path vector.Path
	for i, p := range local {
		x, y := transformPoint(n.worldTransform, p.X, p.Y)
		if i == 0 {
			path.MoveTo(float32(x), float32(y))
		} else {
			path.LineTo(float32(x), float32(y))
		}
	}
	if closed {
		path.Close()
	}

	if fill.A > 0 && len(local) > 2 {
		vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
		drawTriangles(dst, vs, is, fill, n.worldAlpha, ebiten.FillRuleNonZero)
	}
	if stroke.A > 0 && n.StrokeWidth > 0 {
		m := n.worldTransform
		scale := math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
		opts := &vector.StrokeOptions{
			Width:    float32(n.StrokeWidth * scale),
			LineJoin: vector.LineJoinMiter,
			LineCap:  vector.LineCapButt,
		}
		vs, is := path.AppendVerticesAndIndicesForStroke(nil, nil, opts)
		drawTriangles(dst, vs, is, stroke, n.worldAlpha, ebiten.FillRuleFillAll)
	}
}

func drawTriangles(dst *ebiten.Image, vs []ebiten.Vertex, is []uint16, col Color, alpha float64, rule ebiten.FillRule) {
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(col.R)
		vs[i].ColorG = float32(col.G)
		vs[i].ColorB = float32(col.B)
		vs[i].ColorA = float32(col.A * alpha)
	}
	dst.DrawTriangles(vs, is, whiteSubImage(), &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
		FillRule:  rule,
	})
}

// worldGeoM converts the node's world transform into an ebiten.GeoM.
func worldGeoM(n *Node) ebiten.GeoM {
	m := n.worldTransform
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(0, 1, m[2])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 0, m[1])
	g.SetElement(1, 1, m[3])
	g.SetElement(1, 2, m[5])
	return g
}

// paintText draws the node's text with the built-in glyphs, scaled to the
// font size and tinted with the fill color.
func paintText(dst *ebiten.Image, n *Node) {
	if n.Text == "" {
		return
	}
	if n.textCache == nil || n.textCacheOf != n.Text {
		if n.textCache != nil {
			n.textCache.Deallocate()
		}
		lines := strings.Split(n.Text, "\n")
		cols := 1
		for _, l := range lines {
			cols = max(cols, utf8.RuneCountInString(l))
		}
		n.textCache = ebiten.NewImage(cols*glyphW, len(lines)*glyphH)
		ebitenutil.DebugPrintAt(n.textCache, n.Text, 0, 0)
		n.textCacheOf = n.Text
	}
	op := &ebiten.DrawImageOptions{}
	s := n.FontSize / defaultFontSize
	op.GeoM.Scale(s, s)
	op.GeoM.Concat(worldGeoM(n))
	op.ColorScale.Scale(float32(n.Fill.R), float32(n.Fill.G), float32(n.Fill.B), 1)
	op.ColorScale.ScaleAlpha(float32(n.Fill.A * n.worldAlpha))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(n.textCache, op)
}

// paintImage draws the node's image stretched to its width and height.
func paintImage(dst *ebiten.Image, n *Node) {
	if n.Image == nil {
		return
	}
	if n.imageCache == nil || n.imageCacheOf != n.Image {
		releaseImageCache(n)
		if eimg, ok := n.Image.(*ebiten.Image); ok {
			n.imageCache = eimg
		} else {
			n.imageCache = ebiten.NewImageFromImage(n.Image)
		}
		n.imageCacheOf = n.Image
	}
	b := n.imageCache.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(n.Width/float64(b.Dx()), n.Height/float64(b.Dy()))
	op.GeoM.Concat(worldGeoM(n))
	op.ColorScale.ScaleAlpha(float32(n.worldAlpha))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(n.imageCache, op)
}

// paintSelection outlines a selected node and, when it has controls, draws
// its corner handles.
func (c *Canvas) paintSelection(dst *ebiten.Image, n *Node) {
	if !n.Visible {
		return
	}
	var path vector.Path
	for i, p := range n.coords {
		if i == 0 {
			path.MoveTo(float32(p.X), float32(p.Y))
		} else {
			path.LineTo(float32(p.X), float32(p.Y))
		}
	}
	path.Close()
	vs, is := path.AppendVerticesAndIndicesForStroke(nil, nil, &vector.StrokeOptions{Width: 1})
	drawTriangles(dst, vs, is, c.SelectionColor, 1, ebiten.FillRuleFillAll)

	if !n.Controls {
		return
	}
	for _, p := range n.coords {
		var sq vector.Path
		x, y := float32(p.X-handleSize/2), float32(p.Y-handleSize/2)
		sq.MoveTo(x, y)
		sq.LineTo(x+handleSize, y)
		sq.LineTo(x+handleSize, y+handleSize)
		sq.LineTo(x, y+handleSize)
		sq.Close()
		vs, is := sq.AppendVerticesAndIndicesForFilling(nil, nil)
		drawTriangles(dst, vs, is, c.SelectionColor, 1, ebiten.FillRuleNonZero)
	}
}

// releaseImageCache frees the node's converted image. Images supplied as
// *ebiten.Image belong to the caller and are left alone.
func releaseImageCache(n *Node) {
	if n.imageCache != nil && image.Image(n.imageCache) != n.imageCacheOf {
		n.imageCache.Deallocate()
	}
	n.imageCache = nil
}
