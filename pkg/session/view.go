package session

import (
	"maps"
	"slices"

	"github.com/menta2k/pair-labeler/internal/utils"
	"github.com/menta2k/pair-labeler/pkg/imageio"
	"github.com/menta2k/pair-labeler/pkg/labelfile"
	"github.com/menta2k/pair-labeler/pkg/shape"
	"github.com/menta2k/pair-labeler/pkg/types"
)

// Shapes returns the shapes in z-order. Edits must go through Apply so the
// session can track them.
func (s *Session) Shapes() []*shape.Shape {
	return s.shapes.Shapes()
}

// Visible returns the shapes that are rendered, in z-order
func (s *Session) Visible() []*shape.Shape {
	return s.shapes.Visible()
}

// SetVisible shows or hides a shape. Visibility is a view setting and does
// not make the session dirty.
func (s *Session) SetVisible(sh *shape.Shape, visible bool) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	return s.shapes.SetVisible(sh, visible)
}

// IsVisible reports whether sh is rendered
func (s *Session) IsVisible(sh *shape.Shape) bool {
	return s.shapes.IsVisible(sh)
}

// SelectAt selects the topmost shape under p using the configured tolerance
func (s *Session) SelectAt(p types.Point) *shape.Shape {
	return s.shapes.SelectAt(p, s.shapes.Epsilon())
}

// SelectInRect selects the visible shapes that lie inside r
func (s *Session) SelectInRect(r types.Rect) []*shape.Shape {
	return s.shapes.SelectInRect(r)
}

// Select replaces the selection
func (s *Session) Select(shapes ...*shape.Shape) {
	s.shapes.Select(shapes...)
}

// ClearSelection deselects everything
func (s *Session) ClearSelection() {
	s.shapes.ClearSelection()
}

// Selected returns the selected shapes in z-order
func (s *Session) Selected() []*shape.Shape {
	return s.shapes.Selected()
}

// OnShapesPresent registers a callback fired when the pair gains its first
// shape or loses its last one
func (s *Session) OnShapesPresent(fn func(present bool)) {
	s.shapes.OnPresenceChange(fn)
}

// LineColor returns the document default line colour
func (s *Session) LineColor() types.Color {
	return s.doc.lineColor
}

// FillColor returns the document default fill colour
func (s *Session) FillColor() types.Color {
	return s.doc.fillColor
}

// ShapeLineColor resolves the line colour sh is drawn with
func (s *Session) ShapeLineColor(sh *shape.Shape) types.Color {
	return shape.ResolveColor(sh.LineColor, s.doc.lineColor)
}

// ShapeFillColor resolves the fill colour sh is drawn with
func (s *Session) ShapeFillColor(sh *shape.Shape) types.Color {
	return shape.ResolveColor(sh.FillColor, s.doc.fillColor)
}

// Flags returns a copy of the image-level flags
func (s *Session) Flags() map[string]bool {
	return maps.Clone(s.doc.flags)
}

// OtherData returns a copy of the top-level keys carried through from the
// label file
func (s *Session) OtherData() labelfile.OtherData {
	return s.otherData.Clone()
}

// Images returns the decoded pair
func (s *Session) Images() (imageio.Image, imageio.Image) {
	return s.date1, s.date2
}

// ImagePaths returns the paths of both images
func (s *Session) ImagePaths() (string, string) {
	return s.date1Path, s.date2Path
}

// Size returns the effective image width and height
func (s *Session) Size() (int, int) {
	return s.width, s.height
}

// Diagnostics returns the dimension mismatches found by the last load or save
func (s *Session) Diagnostics() []imageio.Mismatch {
	return slices.Clone(s.diagnostics)
}

// Filename returns the label file of the last successful load or save
func (s *Session) Filename() string {
	return s.filename
}

// LabelFile returns the document of the last successful load or save, nil
// when the pair has never been saved
func (s *Session) LabelFile() *labelfile.LabelFile {
	return s.labelFile
}

// LabelPath returns where Save writes by default: the current file, or a
// path derived from the first image
func (s *Session) LabelPath() string {
	if s.filename != "" {
		return s.filename
	}
	return utils.LabelFileFor(s.date1Path, s.opts.OutputDir)
}
