// Package imageio decodes and normalizes the two images of a pair.
//
// Decoding always applies the EXIF orientation. Images loaded from disk are
// re-encoded to a canonical format (JPEG when both sources are JPEG, PNG
// otherwise) so that embedded data has a consistent representation whatever
// the source format was.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used for canonical JPEG re-encoding
const DefaultJPEGQuality = 95

// Image is one decoded image of a pair
type Image struct {
	// Data holds the encoded bytes used for embedding
	Data []byte
	// Raster is the decoded, orientation-corrected image
	Raster image.Image
}

// Width returns the raster width, 0 for an empty image
func (i Image) Width() int {
	if i.Raster == nil {
		return 0
	}
	return i.Raster.Bounds().Dx()
}

// Height returns the raster height, 0 for an empty image
func (i Image) Height() int {
	if i.Raster == nil {
		return 0
	}
	return i.Raster.Bounds().Dy()
}

// Empty reports whether no image has been loaded
func (i Image) Empty() bool {
	return i.Raster == nil
}

// DecodeError reports image bytes that could not be decoded
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Options configures a Codec
type Options struct {
	JPEGQuality int
}

// Codec decodes, orients and re-encodes images
type Codec struct {
	opts Options
}

// New creates a Codec with default options
func New() *Codec {
	return NewWithOptions(Options{JPEGQuality: DefaultJPEGQuality})
}

// NewWithOptions creates a Codec with custom options
func NewWithOptions(opts Options) *Codec {
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	return &Codec{opts: opts}
}

// Decode decodes data and applies its EXIF orientation
func (c *Codec) Decode(data []byte, source string) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("empty image data")}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	if webpImg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return webpImg, nil
	}
	return nil, &DecodeError{Source: source, Err: err}
}

// Encode writes img in the given format
func (c *Codec) Encode(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case imaging.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.opts.JPEGQuality))
	case imaging.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, fmt.Errorf("unsupported canonical format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// FromData decodes embedded bytes and keeps them as they are
func (c *Codec) FromData(data []byte, source string) (Image, error) {
	img, err := c.Decode(data, source)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, Raster: img}, nil
}

// LoadImage reads path from fs, decodes it and re-encodes it in format
func (c *Codec) LoadImage(fs afero.Fs, path string, format imaging.Format) (Image, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open image file: %w", err)
	}
	img, err := c.Decode(data, path)
	if err != nil {
		return Image{}, err
	}
	canonical, err := c.Encode(img, format)
	if err != nil {
		return Image{}, &DecodeError{Source: path, Err: err}
	}
	return Image{Data: canonical, Raster: img}, nil
}

// LoadPair loads both images of a pair. Loading is all-or-nothing: when
// either image fails, neither is returned.
func (c *Codec) LoadPair(fs afero.Fs, date1Path, date2Path string) (Image, Image, error) {
	format := CanonicalFormat(date1Path, date2Path)

	date1, err := c.LoadImage(fs, date1Path, format)
	if err != nil {
		return Image{}, Image{}, fmt.Errorf("failed opening image pair: %w", err)
	}
	date2, err := c.LoadImage(fs, date2Path, format)
	if err != nil {
		return Image{}, Image{}, fmt.Errorf("failed opening image pair: %w", err)
	}
	return date1, date2, nil
}

// CanonicalFormat returns JPEG when every path has a JPEG extension, PNG otherwise
func CanonicalFormat(paths ...string) imaging.Format {
	if len(paths) == 0 {
		return imaging.PNG
	}
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".jpg", ".jpeg":
		default:
			return imaging.PNG
		}
	}
	return imaging.JPEG
}
