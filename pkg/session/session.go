// Package session binds an image pair, its shapes and its label file into the
// unit a shell opens, edits and saves.
//
// A Session moves through Empty, Loading, Clean, Dirty and Closed. Loading
// failures return it to Empty; Close refuses to drop unsaved edits. A Session
// is owned by one goroutine and is not internally synchronized.
package session

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/menta2k/pair-labeler/internal/utils"
	"github.com/menta2k/pair-labeler/pkg/canvas"
	"github.com/menta2k/pair-labeler/pkg/imageio"
	"github.com/menta2k/pair-labeler/pkg/labelfile"
	"github.com/menta2k/pair-labeler/pkg/shape"
	"github.com/menta2k/pair-labeler/pkg/types"
)

// State is the lifecycle state of a Session
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateClean
	StateDirty
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrNotLoaded is returned by operations that need an open pair
	ErrNotLoaded = errors.New("no image pair loaded")
	// ErrAlreadyOpen is returned when opening a pair in a session that has one
	ErrAlreadyOpen = errors.New("session already has an image pair")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("session is closed")
	// ErrUnsavedChanges is returned by Close while edits are unsaved
	ErrUnsavedChanges = errors.New("session has unsaved changes")
	// ErrPairMismatch is returned when two images do not share a base name
	ErrPairMismatch = errors.New("images do not form a pair")
	// ErrNotImage is returned when a pair path lacks an image extension
	ErrNotImage = errors.New("not an image file")
	// ErrHasShapes is returned by CarryShapes when the pair already has shapes
	ErrHasShapes = errors.New("pair already has shapes")
	// ErrNothingSelected is returned by operations that act on the selection
	ErrNothingSelected = errors.New("no shapes selected")
	// ErrNothingToUndo is returned by Undo when there is no edit to revert
	ErrNothingToUndo = canvas.ErrNothingToUndo
)

// Default document colours
var (
	DefaultLineColor = types.RGBA(0, 255, 0, 128)
	DefaultFillColor = types.RGBA(255, 0, 0, 128)
)

// Options configures a Session
type Options struct {
	// Epsilon is the hit-test tolerance in pixels
	Epsilon float64
	// UndoDepth is the number of edits Undo can revert
	UndoDepth int

	// LabelFlags maps a label pattern to the flags seeded on matching shapes
	LabelFlags   map[string][]string
	ValidateMode ValidateMode
	KnownLabels  []string

	// StoreData embeds the image bytes in saved label files
	StoreData bool
	// OutputDir holds label files instead of the first image's directory
	OutputDir string
	// AutoSave writes the label file after every edit
	AutoSave bool

	LineColor   types.Color
	FillColor   types.Color
	JPEGQuality int
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Epsilon:     canvas.DefaultEpsilon,
		UndoDepth:   1,
		StoreData:   true,
		LineColor:   DefaultLineColor,
		FillColor:   DefaultFillColor,
		JPEGQuality: imageio.DefaultJPEGQuality,
	}
}

// docState is the part of a session that lives outside the shape collection.
// gen identifies the edit that produced the state; 0 is the loaded document.
type docState struct {
	lineColor types.Color
	fillColor types.Color
	flags     map[string]bool
	gen       int
}

// Session is one open image pair with its annotations
type Session struct {
	opts      Options
	fs        afero.Fs
	images    *imageio.Codec
	codec     *labelfile.Codec
	logger    *zap.Logger
	validator labelValidator
	flagRules []flagRule

	state  State
	shapes *canvas.Collection

	date1Path string
	date2Path string
	date1     imageio.Image
	date2     imageio.Image
	width     int
	height    int

	// filename is the label file of the last successful load or save
	filename  string
	labelFile *labelfile.LabelFile

	doc        docState
	docHistory []docState
	// lastGen is the newest edit generation handed out, savedGen the one on disk
	lastGen  int
	savedGen int

	otherData   labelfile.OtherData
	diagnostics []imageio.Mismatch
}

// New creates an empty session. A nil fs means the OS filesystem and a nil
// logger disables logging.
func New(fs afero.Fs, opts Options, logger *zap.Logger) (*Session, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UndoDepth < 1 {
		opts.UndoDepth = 1
	}

	rules, err := compileFlagRules(opts.LabelFlags)
	if err != nil {
		return nil, err
	}
	if _, err := ParseValidateMode(string(opts.ValidateMode)); err != nil {
		return nil, err
	}

	images := imageio.NewWithOptions(imageio.Options{JPEGQuality: opts.JPEGQuality})
	s := &Session{
		opts:      opts,
		fs:        fs,
		images:    images,
		codec:     labelfile.NewCodec(fs, images, logger),
		logger:    logger,
		validator: labelValidator{mode: opts.ValidateMode, known: opts.KnownLabels},
		flagRules: rules,
		state:     StateEmpty,
	}
	s.resetDocument()
	return s, nil
}

// State returns the lifecycle state
func (s *Session) State() State {
	return s.state
}

// Loaded reports whether a pair is open
func (s *Session) Loaded() bool {
	return s.state == StateClean || s.state == StateDirty
}

// Dirty reports whether there are edits since the last load or save
func (s *Session) Dirty() bool {
	return s.state == StateDirty
}

// OpenPair loads two images. When a label file for the pair already exists it
// is loaded instead, together with its shapes.
func (s *Session) OpenPair(date1Path, date2Path string) error {
	if err := s.beginLoad(); err != nil {
		return err
	}
	for _, p := range []string{date1Path, date2Path} {
		if !utils.IsImageFile(p) {
			s.failLoad(ErrNotImage)
			return fmt.Errorf("%w: %s", ErrNotImage, p)
		}
	}
	if !utils.SamePair(date1Path, date2Path) {
		s.failLoad(ErrPairMismatch)
		return fmt.Errorf("%w: %s and %s", ErrPairMismatch, date1Path, date2Path)
	}

	labelPath := utils.LabelFileFor(date1Path, s.opts.OutputDir)
	if utils.FileExists(s.fs, labelPath) {
		s.logger.Debug("found existing label file", zap.String("path", labelPath))
		return s.finishLabelLoad(labelPath)
	}

	date1, date2, err := s.images.LoadPair(s.fs, date1Path, date2Path)
	if err != nil {
		s.failLoad(err)
		return err
	}

	s.date1Path, s.date2Path = date1Path, date2Path
	s.date1, s.date2 = date1, date2
	s.width, s.height = date1.Width(), date1.Height()
	s.labelFile = nil
	s.filename = ""
	s.resetDocument()
	s.finishLoad()
	return nil
}

// OpenLabelFile loads an existing label file and the images it references
func (s *Session) OpenLabelFile(path string) error {
	if err := s.beginLoad(); err != nil {
		return err
	}
	return s.finishLabelLoad(path)
}

func (s *Session) finishLabelLoad(path string) error {
	lf, err := s.codec.Load(path)
	if err != nil {
		s.failLoad(err)
		return err
	}

	shapes := make([]*shape.Shape, 0, len(lf.Shapes))
	for r := range lf.Records() {
		sh, err := r.Shape()
		if err != nil {
			err = &labelfile.LabelFileError{Op: "load", Path: path, Err: err}
			s.failLoad(err)
			return err
		}
		applyFlagDefaults(s.flagRules, sh)
		shapes = append(shapes, sh)
	}

	collection := s.newCollection()
	if err := collection.Reset(shapes); err != nil {
		s.failLoad(err)
		return err
	}

	dir := filepath.Dir(path)
	s.shapes = collection
	s.date1Path = resolve(dir, lf.Date1Path)
	s.date2Path = resolve(dir, lf.Date2Path)
	s.date1, s.date2 = lf.Date1, lf.Date2
	s.width, s.height = lf.ImageWidth, lf.ImageHeight
	s.labelFile = lf
	s.filename = path
	s.doc = docState{
		lineColor: colorOr(lf.LineColor, s.opts.LineColor),
		fillColor: colorOr(lf.FillColor, s.opts.FillColor),
		flags:     maps.Clone(lf.Flags),
	}
	if s.doc.flags == nil {
		s.doc.flags = map[string]bool{}
	}
	s.docHistory = nil
	s.otherData = lf.OtherData.Clone()
	s.diagnostics = lf.Diagnostics
	s.finishLoad()
	return nil
}

func (s *Session) beginLoad() error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateEmpty:
	default:
		return ErrAlreadyOpen
	}
	s.transition(StateLoading)
	s.shapes = s.newCollection()
	return nil
}

func (s *Session) failLoad(err error) {
	s.logger.Error("failed to open image pair", zap.Error(err))
	s.shapes = s.newCollection()
	s.date1Path, s.date2Path = "", ""
	s.date1, s.date2 = imageio.Image{}, imageio.Image{}
	s.width, s.height = 0, 0
	s.labelFile = nil
	s.filename = ""
	s.diagnostics = nil
	s.resetDocument()
	s.transition(StateEmpty)
}

func (s *Session) finishLoad() {
	if s.width > 0 && s.height > 0 {
		s.shapes.SetBounds(types.Rect{
			Max: types.Point{X: float64(s.width - 1), Y: float64(s.height - 1)},
		})
	}
	s.logger.Info("image pair opened",
		zap.String("date1", s.date1Path),
		zap.String("date2", s.date2Path),
		zap.Int("width", s.width),
		zap.Int("height", s.height),
		zap.Int("shapes", s.shapes.Len()))
	s.savedGen = s.doc.gen
	s.transition(StateClean)
}

func (s *Session) newCollection() *canvas.Collection {
	return canvas.NewWithOptions(canvas.Options{Epsilon: s.opts.Epsilon, UndoDepth: s.opts.UndoDepth})
}

func (s *Session) resetDocument() {
	s.doc = docState{
		lineColor: s.opts.LineColor,
		fillColor: s.opts.FillColor,
		flags:     map[string]bool{},
	}
	s.docHistory = nil
	s.otherData = labelfile.OtherData{}
	if s.shapes == nil {
		s.shapes = s.newCollection()
	}
}

func (s *Session) transition(to State) {
	if s.state == to {
		return
	}
	s.logger.Debug("session state changed",
		zap.Stringer("from", s.state),
		zap.Stringer("to", to))
	s.state = to
}

func (s *Session) requireLoaded() error {
	switch s.state {
	case StateClean, StateDirty:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotLoaded
	}
}

// Apply runs op against the pair. Edits that change nothing leave the session
// clean and record no undo step.
func (s *Session) Apply(op Op) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	before := s.snapshotDoc()
	changed, err := op.apply(s)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.pushDoc(before)
	s.lastGen++
	s.doc.gen = s.lastGen
	s.syncDirty()
	return s.autoSave()
}

// Undo reverts the most recent edit. Undoing back to the last loaded or
// saved content leaves the session clean.
func (s *Session) Undo() error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if err := s.shapes.Restore(); err != nil {
		return err
	}
	if n := len(s.docHistory); n > 0 {
		s.doc = s.docHistory[n-1]
		s.docHistory = s.docHistory[:n-1]
	}
	s.syncDirty()
	return s.autoSave()
}

// CanUndo reports whether Undo has an edit to revert
func (s *Session) CanUndo() bool {
	return s.Loaded() && s.shapes.CanUndo()
}

func (s *Session) snapshotDoc() docState {
	return docState{
		lineColor: s.doc.lineColor,
		fillColor: s.doc.fillColor,
		flags:     maps.Clone(s.doc.flags),
		gen:       s.doc.gen,
	}
}

func (s *Session) pushDoc(d docState) {
	s.docHistory = append(s.docHistory, d)
	if len(s.docHistory) > s.opts.UndoDepth {
		s.docHistory = s.docHistory[len(s.docHistory)-s.opts.UndoDepth:]
	}
}

func (s *Session) syncDirty() {
	if s.doc.gen == s.savedGen {
		s.transition(StateClean)
		return
	}
	s.transition(StateDirty)
}

func (s *Session) autoSave() error {
	if !s.opts.AutoSave {
		return nil
	}
	if err := s.Save(""); err != nil {
		return fmt.Errorf("auto save failed: %w", err)
	}
	return nil
}

// SetStoreData controls whether later saves embed the image bytes
func (s *Session) SetStoreData(store bool) {
	s.opts.StoreData = store
}

// Save writes the label file to path. An empty path reuses the current file,
// or derives one from the first image. Missing directories are created. On
// failure the session keeps its state and current file.
func (s *Session) Save(path string) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if path == "" {
		path = s.LabelPath()
	}

	lf := s.buildLabelFile(path)
	if err := utils.EnsureDir(s.fs, filepath.Dir(path)); err != nil {
		return &labelfile.LabelFileError{Op: "save", Path: path, Err: err}
	}
	if err := s.codec.Save(path, lf); err != nil {
		return err
	}

	s.labelFile = lf
	s.filename = path
	s.diagnostics = lf.Diagnostics
	s.savedGen = s.doc.gen
	s.transition(StateClean)
	return nil
}

func (s *Session) buildLabelFile(path string) *labelfile.LabelFile {
	dir := filepath.Dir(path)
	lf := labelfile.New(utils.RelativeTo(dir, s.date1Path), utils.RelativeTo(dir, s.date2Path))
	lf.Flags = maps.Clone(s.doc.flags)

	lineColor, fillColor := s.doc.lineColor, s.doc.fillColor
	lf.LineColor, lf.FillColor = &lineColor, &fillColor
	for _, sh := range s.shapes.Shapes() {
		lf.Shapes = append(lf.Shapes, labelfile.RecordFromShape(sh, &lineColor, &fillColor))
	}

	if s.opts.StoreData {
		lf.Date1, lf.Date2 = s.date1, s.date2
	} else {
		lf.Date1 = imageio.Image{Raster: s.date1.Raster}
		lf.Date2 = imageio.Image{Raster: s.date2.Raster}
	}
	lf.ImageWidth, lf.ImageHeight = s.width, s.height
	lf.OtherData = s.otherData.Clone()
	return lf
}

// CarryShapes seeds a freshly opened pair that has no shapes with copies of
// shapes, usually those of the previously open pair. The copies get new IDs.
// The session becomes dirty since the carried shapes are not on disk yet, and
// carrying records no undo step.
func (s *Session) CarryShapes(shapes []*shape.Shape) error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if len(shapes) == 0 {
		return nil
	}
	if s.shapes.Len() > 0 {
		return ErrHasShapes
	}

	copies := make([]*shape.Shape, 0, len(shapes))
	for _, sh := range shapes {
		c := sh.Duplicate()
		applyFlagDefaults(s.flagRules, c)
		copies = append(copies, c)
	}
	if err := s.shapes.Reset(copies); err != nil {
		return err
	}
	s.docHistory = nil
	s.lastGen++
	s.doc.gen = s.lastGen
	s.logger.Debug("carried shapes from previous pair", zap.Int("shapes", len(copies)))
	s.syncDirty()
	return nil
}

// DeleteLabelFile removes the pair's label file from disk and drops every
// annotation, image flag and unknown key. The images stay open and the session
// is clean afterwards. Nothing happens when the file does not exist.
func (s *Session) DeleteLabelFile() error {
	if err := s.requireLoaded(); err != nil {
		return err
	}
	path := s.LabelPath()
	if !utils.FileExists(s.fs, path) {
		return nil
	}
	if err := s.fs.Remove(path); err != nil {
		return &labelfile.LabelFileError{Op: "delete", Path: path, Err: err}
	}
	s.logger.Info("label file removed", zap.String("path", path))

	if err := s.shapes.Reset(nil); err != nil {
		return err
	}
	s.resetDocument()
	s.labelFile = nil
	s.filename = ""
	s.diagnostics = nil
	s.savedGen = s.doc.gen
	s.transition(StateClean)
	return nil
}

// Close ends the session. It fails with ErrUnsavedChanges while edits are
// unsaved; call Save or Discard first.
func (s *Session) Close() error {
	switch s.state {
	case StateClosed:
		return nil
	case StateDirty:
		return ErrUnsavedChanges
	}
	s.transition(StateClosed)
	return nil
}

// Discard drops unsaved edits and closes the session
func (s *Session) Discard() {
	if s.state == StateDirty {
		s.logger.Info("discarding unsaved changes", zap.String("date1", s.date1Path))
	}
	s.transition(StateClosed)
}

func colorOr(c *types.Color, def types.Color) types.Color {
	if c == nil {
		return def
	}
	return *c
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}
