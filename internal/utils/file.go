package utils

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LabelSuffix is the extension of label files
const LabelSuffix = ".json"

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(fs afero.Fs, dir string) error {
	if dir == "" || dir == "." || DirExists(fs, dir) {
		return nil
	}
	return fs.MkdirAll(dir, 0755)
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	ext := GetFileExtension(filename)
	imageExts := []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp"}

	for _, imgExt := range imageExts {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// PairKey returns the part of the base name before the first dot. Both images
// of a pair share it, e.g. "site.d1.png" and "site.d2.png" give "site".
func PairKey(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// SamePair reports whether two image paths belong to the same pair
func SamePair(date1, date2 string) bool {
	return PairKey(date1) == PairKey(date2)
}

// LabelFileFor returns the label file path for a pair. The file sits next to
// the first image unless outputDir is set.
func LabelFileFor(date1Path, outputDir string) string {
	name := PairKey(date1Path) + LabelSuffix
	if outputDir != "" {
		return filepath.Join(outputDir, name)
	}
	return filepath.Join(filepath.Dir(date1Path), name)
}

// RelativeTo returns target relative to the directory dir, or target itself
// when no relative path exists
func RelativeTo(dir, target string) string {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// FileExists checks if a file exists and is not a directory
func FileExists(fs afero.Fs, filename string) bool {
	info, err := fs.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(fs afero.Fs, dirname string) bool {
	info, err := fs.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}
