package session

import (
	"errors"
	"fmt"
	"maps"

	"github.com/menta2k/pair-labeler/pkg/canvas"
	"github.com/menta2k/pair-labeler/pkg/shape"
	"github.com/menta2k/pair-labeler/pkg/types"
)

// ErrOutOfBounds is returned when a move would push a vertex off the image
var ErrOutOfBounds = errors.New("move would leave the image")

// Op is an edit applied through Session.Apply. Every op that changes the
// pair records exactly one undo step.
type Op interface {
	apply(s *Session) (bool, error)
}

// AddShape commits a new shape on top of the others. The label is validated
// and the shape receives the flag defaults for its label.
type AddShape struct {
	Shape *shape.Shape
}

func (op *AddShape) apply(s *Session) (bool, error) {
	if op.Shape == nil {
		return false, errors.New("add shape: nil shape")
	}
	if err := s.validator.validate(op.Shape.Label); err != nil {
		return false, err
	}
	applyFlagDefaults(s.flagRules, op.Shape)
	if err := s.shapes.AddShape(op.Shape); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteShapes removes the selected shapes. Removed is filled with them so a
// shell can update its own indexes. With nothing selected it does nothing.
type DeleteShapes struct {
	Removed []*shape.Shape
}

func (op *DeleteShapes) apply(s *Session) (bool, error) {
	op.Removed = s.shapes.DeleteSelected()
	return len(op.Removed) > 0, nil
}

// MoveShapes translates the selected shapes by Delta
type MoveShapes struct {
	Delta types.Point
}

func (op *MoveShapes) apply(s *Session) (bool, error) {
	if len(s.shapes.Selected()) == 0 {
		return false, ErrNothingSelected
	}
	if op.Delta == (types.Point{}) {
		return false, nil
	}
	if !s.shapes.MoveSelected(op.Delta) {
		return false, ErrOutOfBounds
	}
	return true, nil
}

// MoveVertex moves one vertex of a shape
type MoveVertex struct {
	Shape *shape.Shape
	Index int
	To    types.Point
}

func (op *MoveVertex) apply(s *Session) (bool, error) {
	if err := s.shapes.MoveVertex(op.Shape, op.Index, op.To); err != nil {
		return false, err
	}
	return true, nil
}

// CopyShapes duplicates the selected shapes translated by Offset. The copies
// become the selection and are stored in Added.
type CopyShapes struct {
	Offset types.Point
	Added  []*shape.Shape
}

func (op *CopyShapes) apply(s *Session) (bool, error) {
	op.Added = s.shapes.CopySelected(op.Offset)
	return len(op.Added) > 0, nil
}

// ColorTarget selects the line or fill colour
type ColorTarget int

const (
	LineColor ColorTarget = iota
	FillColor
)

func (t ColorTarget) String() string {
	if t == FillColor {
		return "fill"
	}
	return "line"
}

// SetColor changes a colour. With no Shapes it sets the document default and
// Color must not be nil. Otherwise it sets the override of each shape; a nil
// Color makes them inherit the default again.
type SetColor struct {
	Target ColorTarget
	Color  *types.Color
	Shapes []*shape.Shape
}

func (op *SetColor) apply(s *Session) (bool, error) {
	if len(op.Shapes) == 0 {
		if op.Color == nil {
			return false, fmt.Errorf("set %s color: document default cannot be nil", op.Target)
		}
		current := &s.doc.lineColor
		if op.Target == FillColor {
			current = &s.doc.fillColor
		}
		if *current == *op.Color {
			return false, nil
		}
		s.shapes.Snapshot()
		*current = *op.Color
		return true, nil
	}

	if err := s.requireMembers(op.Shapes); err != nil {
		return false, err
	}
	changed := false
	for _, sh := range op.Shapes {
		if !sameColor(colorField(sh, op.Target), op.Color) {
			changed = true
			break
		}
	}
	if !changed {
		return false, nil
	}

	s.shapes.Snapshot()
	for _, sh := range op.Shapes {
		var c *types.Color
		if op.Color != nil {
			cc := *op.Color
			c = &cc
		}
		if op.Target == FillColor {
			sh.FillColor = c
		} else {
			sh.LineColor = c
		}
	}
	return true, nil
}

// SetFlags replaces the flags of Shape, or the image-level flags when Shape
// is nil
type SetFlags struct {
	Shape *shape.Shape
	Flags map[string]bool
}

func (op *SetFlags) apply(s *Session) (bool, error) {
	flags := maps.Clone(op.Flags)
	if flags == nil {
		flags = map[string]bool{}
	}

	if op.Shape == nil {
		if maps.Equal(s.doc.flags, flags) {
			return false, nil
		}
		s.shapes.Snapshot()
		s.doc.flags = flags
		return true, nil
	}

	if err := s.requireMembers([]*shape.Shape{op.Shape}); err != nil {
		return false, err
	}
	if maps.Equal(op.Shape.Flags, flags) {
		return false, nil
	}
	s.shapes.Snapshot()
	op.Shape.Flags = flags
	return true, nil
}

// SetLabel renames a shape after validating the new label
type SetLabel struct {
	Shape *shape.Shape
	Label string
}

func (op *SetLabel) apply(s *Session) (bool, error) {
	if err := s.requireMembers([]*shape.Shape{op.Shape}); err != nil {
		return false, err
	}
	if err := s.validator.validate(op.Label); err != nil {
		return false, err
	}
	if op.Shape.Label == op.Label {
		return false, nil
	}
	s.shapes.Snapshot()
	op.Shape.Label = op.Label
	return true, nil
}

func (s *Session) requireMembers(shapes []*shape.Shape) error {
	for _, sh := range shapes {
		if sh == nil || !s.shapes.Contains(sh) {
			return canvas.ErrNotInCollection
		}
	}
	return nil
}

func colorField(sh *shape.Shape, t ColorTarget) *types.Color {
	if t == FillColor {
		return sh.FillColor
	}
	return sh.LineColor
}

func sameColor(a, b *types.Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
