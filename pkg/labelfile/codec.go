package labelfile

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/menta2k/pair-labeler/pkg/imageio"
	"github.com/menta2k/pair-labeler/pkg/types"
)

// ImageSource decodes the images referenced by a label file
type ImageSource interface {
	FromData(data []byte, source string) (imageio.Image, error)
	LoadPair(fs afero.Fs, date1Path, date2Path string) (imageio.Image, imageio.Image, error)
}

// Codec loads and saves label files through a filesystem
type Codec struct {
	fs     afero.Fs
	images ImageSource
	logger *zap.Logger
}

// NewCodec creates a codec. Nil arguments select the OS filesystem, the
// default image codec and a no-op logger.
func NewCodec(fs afero.Fs, images ImageSource, logger *zap.Logger) *Codec {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if images == nil {
		images = imageio.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{fs: fs, images: images, logger: logger}
}

// Fs returns the filesystem the codec reads and writes
func (c *Codec) Fs() afero.Fs {
	return c.fs
}

type wireDocument struct {
	Version     string          `json:"version"`
	Flags       map[string]bool `json:"flags"`
	Shapes      []ShapeRecord   `json:"shapes"`
	LineColor   *types.Color    `json:"lineColor"`
	FillColor   *types.Color    `json:"fillColor"`
	Date1Path   *string         `json:"image_date1Path"`
	Date2Path   *string         `json:"image_date2Path"`
	Date1Data   *string         `json:"image_date1Data"`
	Date2Data   *string         `json:"image_date2Data"`
	ImageHeight *int            `json:"imageHeight"`
	ImageWidth  *int            `json:"imageWidth"`
}

// Load reads the label file at path and the images it references.
// Every failure is returned as a *LabelFileError.
func (c *Codec) Load(path string) (*LabelFile, error) {
	lf, err := c.load(path)
	if err != nil {
		return nil, &LabelFileError{Op: "load", Path: path, Err: err}
	}
	c.logger.Info("label file loaded",
		zap.String("path", path),
		zap.Int("shapes", len(lf.Shapes)),
		zap.Bool("embedded", lf.Embedded))
	return lf, nil
}

func (c *Codec) load(path string) (*LabelFile, error) {
	raw, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, err
	}

	fields, err := readFields(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	var doc wireDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid label file: %w", err)
	}

	lf := &LabelFile{
		Version:   doc.Version,
		Flags:     doc.Flags,
		Shapes:    doc.Shapes,
		LineColor: doc.LineColor,
		FillColor: doc.FillColor,
	}
	if lf.Flags == nil {
		lf.Flags = map[string]bool{}
	}
	if lf.Shapes == nil {
		lf.Shapes = []ShapeRecord{}
	}
	if doc.Date1Path != nil {
		lf.Date1Path = *doc.Date1Path
	}
	if doc.Date2Path != nil {
		lf.Date2Path = *doc.Date2Path
	}

	if doc.Date1Data != nil && doc.Date2Data != nil {
		if err := c.loadEmbedded(lf, *doc.Date1Data, *doc.Date2Data); err != nil {
			return nil, err
		}
	} else {
		if lf.Date1Path == "" || lf.Date2Path == "" {
			return nil, ErrMissingImage
		}
		dir := filepath.Dir(path)
		date1, date2, err := c.images.LoadPair(c.fs, resolve(dir, lf.Date1Path), resolve(dir, lf.Date2Path))
		if err != nil {
			return nil, err
		}
		lf.Date1, lf.Date2 = date1, date2
	}

	lf.ImageHeight, lf.ImageWidth, lf.Diagnostics = c.checkDimensions(path, lf.Date1, lf.Date2, doc.ImageHeight, doc.ImageWidth)

	for _, f := range fields {
		if !IsRecognizedKey(f.Key) {
			lf.OtherData.Set(f.Key, f.Value)
		}
	}

	lf.Filename = path
	return lf, nil
}

func (c *Codec) loadEmbedded(lf *LabelFile, date1B64, date2B64 string) error {
	data1, err := base64.StdEncoding.DecodeString(date1B64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", keyDate1Data, err)
	}
	data2, err := base64.StdEncoding.DecodeString(date2B64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", keyDate2Data, err)
	}
	date1, err := c.images.FromData(data1, keyDate1Data)
	if err != nil {
		return err
	}
	date2, err := c.images.FromData(data2, keyDate2Data)
	if err != nil {
		return err
	}
	lf.Date1, lf.Date2 = date1, date2
	lf.Embedded = true
	return nil
}

// checkDimensions validates the declared size against both images. The
// decoded size of date1 is returned; mismatches are logged and collected.
func (c *Codec) checkDimensions(path string, date1, date2 imageio.Image, declaredHeight, declaredWidth *int) (int, int, []imageio.Mismatch) {
	height, width, diags := imageio.CheckDimensions("date1", date1, declaredHeight, declaredWidth)
	_, _, diags2 := imageio.CheckDimensions("date2", date2, declaredHeight, declaredWidth)
	diags = append(diags, diags2...)

	for _, m := range diags {
		c.logger.Error("image dimension mismatch, using actual image size",
			zap.String("path", path),
			zap.String("image", m.Image),
			zap.String("field", m.Field),
			zap.Int("declared", m.Declared),
			zap.Int("actual", m.Actual))
	}
	return height, width, diags
}

// Save writes lf to path. Image data is embedded when both images carry
// bytes; otherwise the data keys are written as null and both image paths
// must be set, or Save fails with ErrMissingImage. On failure lf and the file
// at path are left unchanged and the error is a *LabelFileError.
func (c *Codec) Save(path string, lf *LabelFile) error {
	height, width := lf.ImageHeight, lf.ImageWidth
	var diags []imageio.Mismatch
	var date1B64, date2B64 *string

	if lf.Date1.Data != nil && lf.Date2.Data != nil {
		date1, err := c.images.FromData(lf.Date1.Data, keyDate1Data)
		if err != nil {
			return &LabelFileError{Op: "save", Path: path, Err: err}
		}
		date2, err := c.images.FromData(lf.Date2.Data, keyDate2Data)
		if err != nil {
			return &LabelFileError{Op: "save", Path: path, Err: err}
		}
		height, width, diags = c.checkDimensions(path, date1, date2, optionalInt(height), optionalInt(width))

		s1 := base64.StdEncoding.EncodeToString(lf.Date1.Data)
		s2 := base64.StdEncoding.EncodeToString(lf.Date2.Data)
		date1B64, date2B64 = &s1, &s2
	} else if lf.Date1Path == "" || lf.Date2Path == "" {
		return &LabelFileError{Op: "save", Path: path, Err: ErrMissingImage}
	}

	out, err := c.encode(lf, height, width, date1B64, date2B64)
	if err != nil {
		return &LabelFileError{Op: "save", Path: path, Err: err}
	}
	if err := afero.WriteFile(c.fs, path, out, 0o644); err != nil {
		return &LabelFileError{Op: "save", Path: path, Err: err}
	}

	lf.Filename = path
	lf.Version = Version
	lf.ImageHeight, lf.ImageWidth = height, width
	lf.Embedded = date1B64 != nil
	lf.Diagnostics = diags
	c.logger.Info("label file saved",
		zap.String("path", path),
		zap.Int("shapes", len(lf.Shapes)),
		zap.Bool("embedded", lf.Embedded))
	return nil
}

// encode renders the document with recognized keys first, in a fixed order,
// followed by the passthrough keys. Recognized keys win over passthrough keys
// with the same name.
func (c *Codec) encode(lf *LabelFile, height, width int, date1B64, date2B64 *string) ([]byte, error) {
	flags := lf.Flags
	if flags == nil {
		flags = map[string]bool{}
	}
	shapes := lf.Shapes
	if shapes == nil {
		shapes = []ShapeRecord{}
	}

	values := []struct {
		key   string
		value any
	}{
		{keyVersion, Version},
		{keyFlags, flags},
		{keyShapes, shapes},
		{keyLineColor, lf.LineColor},
		{keyFillColor, lf.FillColor},
		{keyDate1Path, lf.Date1Path},
		{keyDate2Path, lf.Date2Path},
		{keyDate1Data, date1B64},
		{keyDate2Data, date2B64},
		{keyHeight, optionalInt(height)},
		{keyWidth, optionalInt(width)},
	}

	fields := make([]Field, 0, len(values)+lf.OtherData.Len())
	for _, v := range values {
		raw, err := marshal(v.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", v.key, err)
		}
		fields = append(fields, Field{Key: v.key, Value: raw})
	}
	for key, value := range lf.OtherData.All() {
		if IsRecognizedKey(key) {
			continue
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return writeObject(fields)
}

// writeObject prints fields as an indented JSON object, two spaces per level
func writeObject(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, f := range fields {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, f.Value, "  ", "  "); err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", f.Key, err)
		}
	}
	if len(fields) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// marshal encodes v without HTML escaping so labels stay readable
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func optionalInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

// resolve joins a path stored in a label file with the file's directory
func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
