package geometry

// Rect is an axis-aligned rectangle anchored at its minimum corner.
type Rect struct {
	Origin Vec2
	Width  float64
	Height float64
}

func R(x, y, w, h float64) Rect {
	return Rect{Origin: Vec2{X: x, Y: y}, Width: w, Height: h}
}

func (r Rect) Center() Vec2 {
	return Vec2{X: r.Origin.X + r.Width/2, Y: r.Origin.Y + r.Height/2}
}

// HalfExtents returns half the rectangle's width and height,
// the per-axis range a query centered on the rectangle needs.
func (r Rect) HalfExtents() (x, y float64) {
	return r.Width / 2, r.Height / 2
}

func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Origin.X && p.X < r.Origin.X+r.Width &&
		p.Y >= r.Origin.Y && p.Y < r.Origin.Y+r.Height
}
