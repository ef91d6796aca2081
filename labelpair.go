// Package labelpair is the annotation core for pairs of images taken at two
// dates of the same scene.
//
// A shell (desktop, web or command line) opens a pair, edits its shapes and
// saves them to a JSON label file stored next to the images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		"github.com/menta2k/pair-labeler"
//		"github.com/menta2k/pair-labeler/pkg/session"
//		"github.com/menta2k/pair-labeler/pkg/shape"
//		"github.com/menta2k/pair-labeler/pkg/types"
//	)
//
//	func main() {
//		labeler := labelpair.New()
//
//		// Opens site.json instead when it already exists
//		s, err := labeler.OpenPair("site.d1.jpg", "site.d2.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		roof, _ := shape.FromPoints("roof", types.Rectangle,
//			types.Point{X: 10, Y: 10}, types.Point{X: 50, Y: 40})
//		if err := s.Apply(&session.AddShape{Shape: roof}); err != nil {
//			log.Fatal(err)
//		}
//
//		if err := s.Save(""); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The module consists of these components:
//
// 1. Shape (pkg/shape): a single annotation and its hit-testing geometry
// 2. Canvas (pkg/canvas): ordered shapes, selection, visibility and undo
// 3. Label file (pkg/labelfile): the JSON codec, keeping unknown keys intact
// 4. Session (pkg/session): the open pair, its edits and its dirty state
//
// Images are decoded with their EXIF orientation applied (pkg/imageio).
// Declared image dimensions in a label file are advisory: when they disagree
// with the decoded images the actual size is used and a diagnostic is kept.
package labelpair

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/menta2k/pair-labeler/pkg/labelfile"
	"github.com/menta2k/pair-labeler/pkg/session"
)

// Version of the label file format written by this library
const Version = labelfile.Version

// Labeler opens sessions that share a filesystem, options and logger. It
// remembers the last opened session for keep-previous mode. A Labeler is not
// safe for concurrent use.
type Labeler struct {
	fs     afero.Fs
	opts   session.Options
	logger *zap.Logger

	keepPrevious bool
	last         *session.Session
}

// New creates a Labeler on the OS filesystem with default options
func New() *Labeler {
	return NewWithOptions(nil, session.DefaultOptions(), nil)
}

// NewWithOptions creates a Labeler with custom options. A nil fs means the OS
// filesystem and a nil logger disables logging.
func NewWithOptions(fs afero.Fs, opts session.Options, logger *zap.Logger) *Labeler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Labeler{fs: fs, opts: opts, logger: logger}
}

// Options returns the session options
func (l *Labeler) Options() session.Options {
	return l.opts
}

// SetKeepPrevious toggles keep-previous mode: a pair opened without shapes
// starts with copies of the shapes of the last opened session
func (l *Labeler) SetKeepPrevious(keep bool) {
	l.keepPrevious = keep
}

// KeepPrevious reports whether keep-previous mode is on
func (l *Labeler) KeepPrevious() bool {
	return l.keepPrevious
}

// NewSession creates an empty session
func (l *Labeler) NewSession() (*session.Session, error) {
	return session.New(l.fs, l.opts, l.logger)
}

// OpenPair opens two images as a new session, loading the pair's label file
// when one exists
func (l *Labeler) OpenPair(date1Path, date2Path string) (*session.Session, error) {
	s, err := l.NewSession()
	if err != nil {
		return nil, err
	}
	if err := s.OpenPair(date1Path, date2Path); err != nil {
		return nil, err
	}
	if l.keepPrevious && l.last != nil && len(s.Shapes()) == 0 {
		if err := s.CarryShapes(l.last.Shapes()); err != nil {
			return nil, err
		}
	}
	l.last = s
	return s, nil
}

// OpenLabelFile opens an existing label file as a new session
func (l *Labeler) OpenLabelFile(path string) (*session.Session, error) {
	s, err := l.NewSession()
	if err != nil {
		return nil, err
	}
	if err := s.OpenLabelFile(path); err != nil {
		return nil, err
	}
	l.last = s
	return s, nil
}

// Open opens a label file when given one path with the label file extension,
// or an image pair when given two paths
func (l *Labeler) Open(paths ...string) (*session.Session, error) {
	switch {
	case len(paths) == 1 && labelfile.IsLabelFile(paths[0]):
		return l.OpenLabelFile(paths[0])
	case len(paths) == 2:
		return l.OpenPair(paths[0], paths[1])
	default:
		return nil, &OpenError{Paths: paths}
	}
}

// OpenError reports arguments Open cannot interpret
type OpenError struct {
	Paths []string
}

func (e *OpenError) Error() string {
	return "open needs one label file or two image paths"
}

// LabelFileCodec returns a codec on the Labeler's filesystem for direct
// access to label files
func (l *Labeler) LabelFileCodec() *labelfile.Codec {
	return labelfile.NewCodec(l.fs, nil, l.logger)
}
