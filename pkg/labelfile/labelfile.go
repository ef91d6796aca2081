// Package labelfile reads and writes the JSON label file stored next to an
// image pair.
//
// A label file carries the shapes of one pair, the relative paths of both
// images, optionally their base64 encoded bytes, document level colours and
// flags, and every top-level key it does not recognize (kept verbatim so that
// newer fields survive a load and save by this version).
package labelfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/menta2k/pair-labeler/pkg/imageio"
	"github.com/menta2k/pair-labeler/pkg/shape"
	"github.com/menta2k/pair-labeler/pkg/types"
)

// Version is written into every saved label file
const Version = "1.0.0"

// Suffix is the extension of label files
const Suffix = ".json"

// Top-level keys understood by this package, in output order
const (
	keyVersion   = "version"
	keyFlags     = "flags"
	keyShapes    = "shapes"
	keyLineColor = "lineColor"
	keyFillColor = "fillColor"
	keyDate1Path = "image_date1Path"
	keyDate2Path = "image_date2Path"
	keyDate1Data = "image_date1Data"
	keyDate2Data = "image_date2Data"
	keyHeight    = "imageHeight"
	keyWidth     = "imageWidth"
)

var recognizedKeys = []string{
	keyVersion, keyFlags, keyShapes, keyLineColor, keyFillColor,
	keyDate1Path, keyDate2Path, keyDate1Data, keyDate2Data, keyHeight, keyWidth,
}

// ErrMissingImage is returned when a file has neither embedded data nor image paths
var ErrMissingImage = errors.New("label file has neither image data nor image paths")

// LabelFileError wraps every failure of Load and Save together with its cause
type LabelFileError struct {
	Op   string
	Path string
	Err  error
}

func (e *LabelFileError) Error() string {
	return fmt.Sprintf("label file %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LabelFileError) Unwrap() error {
	return e.Err
}

// IsLabelFile reports whether path has the label file extension
func IsLabelFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Suffix)
}

// IsRecognizedKey reports whether key is a top-level key this package owns
func IsRecognizedKey(key string) bool {
	for _, k := range recognizedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// LabelFile is the in-memory form of one label file
type LabelFile struct {
	// Filename is the path of the last successful load or save
	Filename string
	Version  string

	Flags     map[string]bool
	Shapes    []ShapeRecord
	LineColor *types.Color
	FillColor *types.Color

	// Image paths are relative to the label file's directory
	Date1Path string
	Date2Path string

	// Date1 and Date2 hold the decoded images. Their Data is embedded on
	// save when both are non-nil.
	Date1 imageio.Image
	Date2 imageio.Image

	// Embedded reports whether the loaded file carried image data
	Embedded bool

	// ImageHeight and ImageWidth are the effective dimensions; 0 means unknown
	ImageHeight int
	ImageWidth  int

	OtherData OtherData

	// Diagnostics lists declared dimensions that disagreed with the images
	Diagnostics []imageio.Mismatch
}

// New creates an empty label file for the given image paths
func New(date1Path, date2Path string) *LabelFile {
	return &LabelFile{
		Version:   Version,
		Flags:     map[string]bool{},
		Date1Path: date1Path,
		Date2Path: date2Path,
	}
}

// Records iterates over the shape records once, in file order
func (lf *LabelFile) Records() iter.Seq[ShapeRecord] {
	return func(yield func(ShapeRecord) bool) {
		for _, r := range lf.Shapes {
			if !yield(r) {
				return
			}
		}
	}
}

// ShapeRecord is the persisted form of one shape
type ShapeRecord struct {
	Label     string          `json:"label"`
	Points    []types.Point   `json:"points"`
	LineColor *types.Color    `json:"line_color"`
	FillColor *types.Color    `json:"fill_color"`
	ShapeType types.ShapeType `json:"shape_type"`
	Flags     map[string]bool `json:"flags"`
}

// UnmarshalJSON accepts records written by older versions: a missing
// shape_type means polygon and missing flags or colours are empty.
func (r *ShapeRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		Label     *string          `json:"label"`
		Points    *[]types.Point   `json:"points"`
		LineColor *types.Color     `json:"line_color"`
		FillColor *types.Color     `json:"fill_color"`
		ShapeType *types.ShapeType `json:"shape_type"`
		Flags     map[string]bool  `json:"flags"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Label == nil {
		return errors.New("shape is missing label")
	}
	if wire.Points == nil {
		return errors.New("shape is missing points")
	}

	*r = ShapeRecord{
		Label:     *wire.Label,
		Points:    *wire.Points,
		LineColor: wire.LineColor,
		FillColor: wire.FillColor,
		ShapeType: types.Polygon,
		Flags:     wire.Flags,
	}
	if wire.ShapeType != nil && *wire.ShapeType != "" {
		r.ShapeType = *wire.ShapeType
	}
	if r.Flags == nil {
		r.Flags = map[string]bool{}
	}
	if r.Points == nil {
		r.Points = []types.Point{}
	}
	return nil
}

// Shape builds a closed shape from the record
func (r ShapeRecord) Shape() (*shape.Shape, error) {
	s := shape.New(r.Label, r.ShapeType)
	for _, p := range r.Points {
		s.AddPoint(p)
	}
	if err := s.Close(); err != nil {
		return nil, err
	}
	s.LineColor = copyColor(r.LineColor)
	s.FillColor = copyColor(r.FillColor)
	for k, v := range r.Flags {
		s.Flags[k] = v
	}
	return s, nil
}

// RecordFromShape converts a shape for saving. A colour equal to the document
// default is written as null so the shape keeps inheriting it.
func RecordFromShape(s *shape.Shape, lineDefault, fillDefault *types.Color) ShapeRecord {
	r := ShapeRecord{
		Label:     s.Label,
		Points:    append([]types.Point{}, s.Points...),
		ShapeType: s.Type,
		Flags:     map[string]bool{},
	}
	for k, v := range s.Flags {
		r.Flags[k] = v
	}
	if s.LineColor != nil && (lineDefault == nil || *s.LineColor != *lineDefault) {
		r.LineColor = copyColor(s.LineColor)
	}
	if s.FillColor != nil && (fillDefault == nil || *s.FillColor != *fillDefault) {
		r.FillColor = copyColor(s.FillColor)
	}
	return r
}

func copyColor(c *types.Color) *types.Color {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}
