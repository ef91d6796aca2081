package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point is a vertex in image pixel coordinates
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by d
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between p and q
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// MarshalJSON writes the point as [x, y]
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON reads a point written as [x, y]
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point must be [x, y]: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Rect is an axis-aligned rectangle; Min is inclusive and Max is inclusive
type Rect struct {
	Min Point
	Max Point
}

// RectFromPoints returns the normalized rectangle spanned by two corners
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Contains reports whether p lies inside r or on its border
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Color is an RGBA colour persisted as [r, g, b, a]
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// RGBA returns a colour from its components
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// ColorFromInts builds a colour from a 3 or 4 element slice; alpha defaults to 255
func ColorFromInts(v []int) (Color, error) {
	if len(v) != 3 && len(v) != 4 {
		return Color{}, fmt.Errorf("color must have 3 or 4 components, got %d", len(v))
	}
	c := Color{A: 255}
	dst := []*uint8{&c.R, &c.G, &c.B, &c.A}
	for i, x := range v {
		if x < 0 || x > 255 {
			return Color{}, fmt.Errorf("color component %d out of range: %d", i, x)
		}
		*dst[i] = uint8(x)
	}
	return c, nil
}

// MarshalJSON writes the colour as [r, g, b, a]
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{int(c.R), int(c.G), int(c.B), int(c.A)})
}

// UnmarshalJSON reads a colour written as [r, g, b] or [r, g, b, a]
func (c *Color) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("color must be [r, g, b, a]: %w", err)
	}
	parsed, err := ColorFromInts(v)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// String formats the colour for logs
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%d)", c.R, c.G, c.B, c.A)
}

// ShapeType identifies the geometric kind of an annotation
type ShapeType string

// Supported shape types
const (
	Polygon   ShapeType = "polygon"
	Rectangle ShapeType = "rectangle"
	Circle    ShapeType = "circle"
	Line      ShapeType = "line"
	PointType ShapeType = "point"
	LineStrip ShapeType = "linestrip"
)

// ShapeTypes returns every supported shape type
func ShapeTypes() []ShapeType {
	return []ShapeType{Polygon, Rectangle, Circle, Line, PointType, LineStrip}
}

// Valid reports whether t is a known shape type
func (t ShapeType) Valid() bool {
	for _, known := range ShapeTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Open reports whether the type has no interior
func (t ShapeType) Open() bool {
	return t == Line || t == PointType || t == LineStrip
}
