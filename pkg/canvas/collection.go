// Package canvas holds the mutable state behind an annotation canvas: the
// ordered shape list, the selection, per-shape visibility and undo history.
//
// Insertion order is z-order: the last shape is drawn on top and wins
// hit-tests. A Collection is not safe for concurrent use.
package canvas

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/menta2k/pair-labeler/pkg/shape"
	"github.com/menta2k/pair-labeler/pkg/types"
)

var (
	// ErrNothingToUndo is returned by Restore when the history is empty
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNotInCollection is returned when an operation names a foreign shape
	ErrNotInCollection = errors.New("shape is not part of the collection")
	// ErrAlreadyAdded is returned when the same shape is added twice
	ErrAlreadyAdded = errors.New("shape is already part of the collection")
)

// DefaultEpsilon is the hit-test tolerance in pixels
const DefaultEpsilon = 10.0

// Options configures a Collection
type Options struct {
	Epsilon   float64
	UndoDepth int
}

// Collection is the ordered set of shapes for one image pair
type Collection struct {
	shapes   []*shape.Shape
	selected map[*shape.Shape]struct{}
	hidden   map[string]struct{}
	history  *History
	bounds   *types.Rect
	epsilon  float64

	onPresence func(present bool)
}

// New creates an empty collection with default options
func New() *Collection {
	return NewWithOptions(Options{Epsilon: DefaultEpsilon, UndoDepth: 1})
}

// NewWithOptions creates an empty collection with custom options
func NewWithOptions(opts Options) *Collection {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	return &Collection{
		selected: make(map[*shape.Shape]struct{}),
		hidden:   make(map[string]struct{}),
		history:  NewHistory(opts.UndoDepth),
		epsilon:  opts.Epsilon,
	}
}

// Epsilon returns the configured hit-test tolerance
func (c *Collection) Epsilon() float64 {
	return c.epsilon
}

// OnPresenceChange registers a callback fired when the collection goes from
// empty to non-empty or back
func (c *Collection) OnPresenceChange(fn func(present bool)) {
	c.onPresence = fn
}

// SetBounds limits MoveSelected to the given image area
func (c *Collection) SetBounds(r types.Rect) {
	c.bounds = &r
}

// Len returns the number of shapes
func (c *Collection) Len() int {
	return len(c.shapes)
}

// Shapes returns the shapes in z-order. The slice is a copy; the shapes are not.
func (c *Collection) Shapes() []*shape.Shape {
	return slices.Clone(c.shapes)
}

// Contains reports whether s belongs to the collection
func (c *Collection) Contains(s *shape.Shape) bool {
	return slices.Contains(c.shapes, s)
}

// Reset replaces all shapes without recording history and clears selection
// and history. Used when a new image pair is loaded.
func (c *Collection) Reset(shapes []*shape.Shape) error {
	for _, s := range shapes {
		if err := commit(s); err != nil {
			return err
		}
	}
	had := len(c.shapes) > 0
	c.clearSelection()
	c.shapes = nil
	c.hidden = make(map[string]struct{})
	for _, s := range shapes {
		c.ensureID(s)
		c.shapes = append(c.shapes, s)
	}
	c.history.Clear()
	c.notifyPresence(had)
	return nil
}

// AddShape commits s on top of the z-order. A shape that fails its arity
// rule is rejected with a *shape.ConstructionError and never stored.
func (c *Collection) AddShape(s *shape.Shape) error {
	if err := commit(s); err != nil {
		return err
	}
	if c.Contains(s) {
		return ErrAlreadyAdded
	}
	had := len(c.shapes) > 0
	c.Snapshot()
	c.ensureID(s)
	c.shapes = append(c.shapes, s)
	c.notifyPresence(had)
	return nil
}

// DeleteSelected removes every selected shape and returns them so callers can
// update parallel indexes. It is a no-op when nothing is selected.
func (c *Collection) DeleteSelected() []*shape.Shape {
	if len(c.selected) == 0 {
		return nil
	}
	had := len(c.shapes) > 0
	c.Snapshot()

	removed := c.Selected()
	c.shapes = slices.DeleteFunc(c.shapes, func(s *shape.Shape) bool {
		_, ok := c.selected[s]
		return ok
	})
	for _, s := range removed {
		delete(c.hidden, s.ID)
	}
	c.clearSelection()
	c.notifyPresence(had)
	return removed
}

// CopySelected duplicates the selection translated by offset, appends the
// copies after the originals and selects them
func (c *Collection) CopySelected(offset types.Point) []*shape.Shape {
	if len(c.selected) == 0 {
		return nil
	}
	c.Snapshot()

	originals := c.Selected()
	copies := make([]*shape.Shape, 0, len(originals))
	for _, s := range originals {
		d := s.Duplicate()
		d.MoveBy(offset)
		copies = append(copies, d)
	}
	c.shapes = append(c.shapes, copies...)
	c.setSelection(copies)
	return copies
}

// MoveSelected translates the selection by delta. The move is rejected when
// nothing is selected or a vertex would leave the bounds.
func (c *Collection) MoveSelected(delta types.Point) bool {
	if len(c.selected) == 0 {
		return false
	}
	if c.bounds != nil {
		for s := range c.selected {
			for _, p := range s.Points {
				if !c.bounds.Contains(p.Add(delta)) {
					return false
				}
			}
		}
	}
	c.Snapshot()
	for s := range c.selected {
		s.MoveBy(delta)
	}
	return true
}

// MoveVertex replaces one vertex of s after recording a snapshot
func (c *Collection) MoveVertex(s *shape.Shape, index int, p types.Point) error {
	if !c.Contains(s) {
		return ErrNotInCollection
	}
	if index < 0 || index >= len(s.Points) {
		return s.MoveVertex(index, p)
	}
	c.Snapshot()
	return s.MoveVertex(index, p)
}

// ShapeAt returns the topmost visible shape hit by p within epsilon
func (c *Collection) ShapeAt(p types.Point, epsilon float64) *shape.Shape {
	for i := len(c.shapes) - 1; i >= 0; i-- {
		s := c.shapes[i]
		if !c.IsVisible(s) {
			continue
		}
		if _, ok := s.NearestVertex(p, epsilon); ok {
			return s
		}
		if s.ContainsPoint(p, epsilon) {
			return s
		}
	}
	return nil
}

// SelectAt selects the topmost shape under p, or clears the selection
func (c *Collection) SelectAt(p types.Point, epsilon float64) *shape.Shape {
	s := c.ShapeAt(p, epsilon)
	if s == nil {
		c.clearSelection()
		return nil
	}
	c.setSelection([]*shape.Shape{s})
	return s
}

// SelectInRect selects every visible shape whose bounding box lies inside r
func (c *Collection) SelectInRect(r types.Rect) []*shape.Shape {
	var hits []*shape.Shape
	for _, s := range c.shapes {
		if !c.IsVisible(s) || len(s.Points) == 0 {
			continue
		}
		box := s.BoundingBox()
		if r.Contains(box.Min) && r.Contains(box.Max) {
			hits = append(hits, s)
		}
	}
	c.setSelection(hits)
	return hits
}

// Select replaces the selection; shapes outside the collection are ignored
func (c *Collection) Select(shapes ...*shape.Shape) {
	members := make([]*shape.Shape, 0, len(shapes))
	for _, s := range shapes {
		if c.Contains(s) {
			members = append(members, s)
		}
	}
	c.setSelection(members)
}

// ClearSelection deselects everything
func (c *Collection) ClearSelection() {
	c.clearSelection()
}

// Selected returns the selected shapes in z-order
func (c *Collection) Selected() []*shape.Shape {
	var out []*shape.Shape
	for _, s := range c.shapes {
		if _, ok := c.selected[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// IsSelected reports whether s is selected
func (c *Collection) IsSelected(s *shape.Shape) bool {
	_, ok := c.selected[s]
	return ok
}

// SetVisible toggles rendering of s; the shape stays in the collection
func (c *Collection) SetVisible(s *shape.Shape, visible bool) error {
	if !c.Contains(s) {
		return ErrNotInCollection
	}
	if visible {
		delete(c.hidden, s.ID)
	} else {
		delete(c.selected, s)
		s.Selected = false
		c.hidden[s.ID] = struct{}{}
	}
	return nil
}

// IsVisible reports whether s is rendered
func (c *Collection) IsVisible(s *shape.Shape) bool {
	_, hidden := c.hidden[s.ID]
	return !hidden
}

// Visible returns the rendered shapes in z-order
func (c *Collection) Visible() []*shape.Shape {
	var out []*shape.Shape
	for _, s := range c.shapes {
		if c.IsVisible(s) {
			out = append(out, s)
		}
	}
	return out
}

// Snapshot pushes a deep copy of the current shapes onto the undo history
func (c *Collection) Snapshot() {
	c.history.Push(c.shapes, c.hidden)
}

// CanUndo reports whether Restore has a snapshot to apply
func (c *Collection) CanUndo() bool {
	return c.history.Len() > 0
}

// Restore replaces the shapes with the newest snapshot and clears the selection.
// Shapes brought back by the restore get the visibility they had when the
// snapshot was taken.
func (c *Collection) Restore() error {
	snap, ok := c.history.Pop()
	if !ok {
		return ErrNothingToUndo
	}
	had := len(c.shapes) > 0
	c.clearSelection()
	c.hidden = restoreHidden(c.shapes, c.hidden, snap)
	c.shapes = snap.Shapes
	c.notifyPresence(had)
	return nil
}

// restoreHidden keeps the current visibility of shapes that survive the
// restore and takes the snapshot's visibility for shapes that come back
func restoreHidden(current []*shape.Shape, hidden map[string]struct{}, snap Snapshot) map[string]struct{} {
	present := make(map[string]struct{}, len(current))
	for _, s := range current {
		present[s.ID] = struct{}{}
	}
	out := make(map[string]struct{})
	for _, s := range snap.Shapes {
		from := snap.Hidden
		if _, ok := present[s.ID]; ok {
			from = hidden
		}
		if _, ok := from[s.ID]; ok {
			out[s.ID] = struct{}{}
		}
	}
	return out
}

func (c *Collection) setSelection(shapes []*shape.Shape) {
	c.clearSelection()
	for _, s := range shapes {
		c.selected[s] = struct{}{}
		s.Selected = true
	}
}

func (c *Collection) clearSelection() {
	for s := range c.selected {
		s.Selected = false
	}
	clear(c.selected)
}

// ensureID gives s an identifier unique within the collection
func (c *Collection) ensureID(s *shape.Shape) {
	if s.ID != "" && !slices.ContainsFunc(c.shapes, func(o *shape.Shape) bool { return o.ID == s.ID }) {
		return
	}
	s.ID = uuid.NewString()
}

func (c *Collection) notifyPresence(had bool) {
	has := len(c.shapes) > 0
	if had != has && c.onPresence != nil {
		c.onPresence(has)
	}
}

func commit(s *shape.Shape) error {
	if s == nil {
		return errors.New("nil shape")
	}
	if s.IsClosed() {
		return s.Validate()
	}
	return s.Close()
}
