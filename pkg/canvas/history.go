package canvas

import (
	"maps"

	"github.com/menta2k/pair-labeler/pkg/shape"
)

// Snapshot is one saved collection state: the shapes in z-order and the IDs
// of the shapes that were hidden at the time
type Snapshot struct {
	Shapes []*shape.Shape
	Hidden map[string]struct{}
}

// History is a bounded stack of whole-collection snapshots.
// Snapshots are deep copies owned by the history and never handed out directly.
type History struct {
	depth     int
	snapshots []Snapshot
}

// NewHistory creates a history keeping at most depth snapshots; depth < 1 means 1
func NewHistory(depth int) *History {
	if depth < 1 {
		depth = 1
	}
	return &History{depth: depth}
}

// Depth returns the maximum number of snapshots kept
func (h *History) Depth() int {
	return h.depth
}

// Len returns the number of snapshots available
func (h *History) Len() int {
	return len(h.snapshots)
}

// Push stores a deep copy of shapes and hidden, dropping the oldest snapshot
// when full
func (h *History) Push(shapes []*shape.Shape, hidden map[string]struct{}) {
	if len(h.snapshots) == h.depth {
		h.snapshots = h.snapshots[1:]
	}
	snap := Snapshot{Shapes: copyShapes(shapes), Hidden: maps.Clone(hidden)}
	if snap.Hidden == nil {
		snap.Hidden = make(map[string]struct{})
	}
	h.snapshots = append(h.snapshots, snap)
}

// Pop removes the newest snapshot and hands ownership of it to the caller
func (h *History) Pop() (Snapshot, bool) {
	n := len(h.snapshots)
	if n == 0 {
		return Snapshot{}, false
	}
	snap := h.snapshots[n-1]
	h.snapshots[n-1] = Snapshot{}
	h.snapshots = h.snapshots[:n-1]
	return snap, true
}

// Clear drops every snapshot
func (h *History) Clear() {
	h.snapshots = nil
}

func copyShapes(shapes []*shape.Shape) []*shape.Shape {
	out := make([]*shape.Shape, len(shapes))
	for i, s := range shapes {
		c := s.Copy()
		c.Selected = false
		out[i] = c
	}
	return out
}
