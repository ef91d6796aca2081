// Package shape implements a single annotation: its vertices, label, style
// overrides and the geometry used for hit-testing.
package shape

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/menta2k/pair-labeler/pkg/types"
)

// Shape is one annotation drawn on an image pair.
//
// A Shape is under construction until Close succeeds; only closed shapes are
// accepted by a canvas.Collection.
type Shape struct {
	// ID is a transient identifier for shells that keep parallel indexes
	// (list widgets and the like). It is never persisted.
	ID     string
	Label  string
	Points []types.Point
	Type   types.ShapeType

	// LineColor and FillColor override the document default when non-nil
	LineColor *types.Color
	FillColor *types.Color

	Flags    map[string]bool
	Selected bool

	closed bool
}

// New creates an empty shape under construction; an empty type means polygon
func New(label string, shapeType types.ShapeType) *Shape {
	if shapeType == "" {
		shapeType = types.Polygon
	}
	return &Shape{
		ID:    uuid.NewString(),
		Label: label,
		Type:  shapeType,
		Flags: map[string]bool{},
	}
}

// FromPoints builds and closes a shape in one step
func FromPoints(label string, shapeType types.ShapeType, points ...types.Point) (*Shape, error) {
	s := New(label, shapeType)
	for _, p := range points {
		s.AddPoint(p)
	}
	if err := s.Close(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddPoint appends a vertex. Arity is only checked by Close.
func (s *Shape) AddPoint(p types.Point) {
	s.Points = append(s.Points, p)
}

// Close validates the vertex count for the shape type and marks the shape closed
func (s *Shape) Close() error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// IsClosed reports whether Close has succeeded
func (s *Shape) IsClosed() bool {
	return s.closed
}

// Validate checks the type and the vertex count without changing state
func (s *Shape) Validate() error {
	if !s.Type.Valid() {
		return &ConstructionError{Type: s.Type, Points: len(s.Points), Need: "a known shape type"}
	}
	lo, hi := arity(s.Type)
	n := len(s.Points)
	if n < lo || (hi > 0 && n > hi) {
		return &ConstructionError{Type: s.Type, Points: n, Need: describeArity(lo, hi)}
	}
	return nil
}

// MoveBy translates every vertex by delta
func (s *Shape) MoveBy(delta types.Point) {
	for i := range s.Points {
		s.Points[i] = s.Points[i].Add(delta)
	}
}

// MoveVertex replaces the vertex at index i
func (s *Shape) MoveVertex(i int, p types.Point) error {
	if i < 0 || i >= len(s.Points) {
		return fmt.Errorf("vertex index %d out of range [0,%d)", i, len(s.Points))
	}
	s.Points[i] = p
	return nil
}

// ContainsPoint reports whether p hits the shape.
// Shapes with an interior use it; open shapes use epsilon as a distance threshold.
func (s *Shape) ContainsPoint(p types.Point, epsilon float64) bool {
	switch s.Type {
	case types.Rectangle:
		if len(s.Points) != 2 {
			return false
		}
		return types.RectFromPoints(s.Points[0], s.Points[1]).Contains(p)
	case types.Circle:
		if len(s.Points) != 2 {
			return false
		}
		return p.Distance(s.Points[0]) <= s.Points[0].Distance(s.Points[1])
	case types.PointType:
		return len(s.Points) > 0 && p.Distance(s.Points[0]) <= epsilon
	case types.Line, types.LineStrip:
		return distanceToPolyline(p, s.Points) <= epsilon
	default:
		return pointInPolygon(p, s.Points)
	}
}

// NearestVertex returns the index of the closest vertex within epsilon
func (s *Shape) NearestVertex(p types.Point, epsilon float64) (int, bool) {
	best, bestDist := -1, epsilon
	for i, v := range s.Points {
		if d := v.Distance(p); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// BoundingBox returns the axis-aligned box around all vertices.
// A circle's box covers its full extent rather than just its two vertices.
func (s *Shape) BoundingBox() types.Rect {
	if len(s.Points) == 0 {
		return types.Rect{}
	}
	if s.Type == types.Circle && len(s.Points) == 2 {
		c, r := s.Points[0], s.Points[0].Distance(s.Points[1])
		return types.Rect{
			Min: types.Point{X: c.X - r, Y: c.Y - r},
			Max: types.Point{X: c.X + r, Y: c.Y + r},
		}
	}
	box := types.Rect{Min: s.Points[0], Max: s.Points[0]}
	for _, p := range s.Points[1:] {
		box.Min.X = min(box.Min.X, p.X)
		box.Min.Y = min(box.Min.Y, p.Y)
		box.Max.X = max(box.Max.X, p.X)
		box.Max.Y = max(box.Max.Y, p.Y)
	}
	return box
}

// Copy returns a deep copy that keeps the ID
func (s *Shape) Copy() *Shape {
	c := *s
	c.Points = slices.Clone(s.Points)
	c.Flags = maps.Clone(s.Flags)
	if c.Flags == nil {
		c.Flags = map[string]bool{}
	}
	if s.LineColor != nil {
		lc := *s.LineColor
		c.LineColor = &lc
	}
	if s.FillColor != nil {
		fc := *s.FillColor
		c.FillColor = &fc
	}
	return &c
}

// Duplicate returns a deep, unselected copy with a fresh ID
func (s *Shape) Duplicate() *Shape {
	c := s.Copy()
	c.ID = uuid.NewString()
	c.Selected = false
	return c
}

// ResolveColor picks the shape override when present, else the document default
func ResolveColor(own *types.Color, def types.Color) types.Color {
	if own != nil {
		return *own
	}
	return def
}

// arity returns the minimum and maximum vertex count; 0 max means unbounded
func arity(t types.ShapeType) (int, int) {
	switch t {
	case types.PointType:
		return 1, 1
	case types.Line, types.Rectangle, types.Circle:
		return 2, 2
	case types.LineStrip:
		return 2, 0
	default:
		return 3, 0
	}
}

func describeArity(lo, hi int) string {
	switch {
	case hi == 0:
		return fmt.Sprintf("at least %d points", lo)
	case lo == hi && lo == 1:
		return "exactly 1 point"
	case lo == hi:
		return fmt.Sprintf("exactly %d points", lo)
	default:
		return fmt.Sprintf("%d to %d points", lo, hi)
	}
}
