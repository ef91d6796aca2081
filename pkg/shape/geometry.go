package shape

import (
	"fmt"
	"math"

	"github.com/menta2k/pair-labeler/pkg/types"
)

// ConstructionError reports a shape that does not satisfy its type's arity rule.
// The shape must be discarded by the caller.
type ConstructionError struct {
	Type   types.ShapeType
	Points int
	Need   string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("invalid %s: has %d points, needs %s", e.Type, e.Points, e.Need)
}

// pointInPolygon applies the even-odd rule over the closed vertex ring
func pointInPolygon(p types.Point, poly []types.Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// distanceToPolyline returns the smallest distance from p to any segment
func distanceToPolyline(p types.Point, pts []types.Point) float64 {
	switch len(pts) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Distance(pts[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, distanceToSegment(p, pts[i-1], pts[i]))
	}
	return best
}

func distanceToSegment(p, a, b types.Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return p.Distance(a)
	}
	ap := p.Sub(a)
	t := (ap.X*ab.X + ap.Y*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	proj := types.Point{X: a.X + t*ab.X, Y: a.Y + t*ab.Y}
	return p.Distance(proj)
}
