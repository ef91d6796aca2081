package imageio

import (
	"fmt"
)

// Dimension field names as they appear in label files
const (
	FieldHeight = "imageHeight"
	FieldWidth  = "imageWidth"
)

// Mismatch records a declared dimension that disagrees with the decoded image.
// It is a diagnostic, not an error: the actual value always wins.
type Mismatch struct {
	Image    string
	Field    string
	Declared int
	Actual   int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s does not match with image data (declared %d, actual %d), using actual",
		m.Image, m.Field, m.Declared, m.Actual)
}

// CheckDimensions compares declared dimensions with img. Nil declared values
// are not checked. The returned height and width are the decoded ones.
func CheckDimensions(name string, img Image, declaredHeight, declaredWidth *int) (int, int, []Mismatch) {
	height, width := img.Height(), img.Width()

	var mismatches []Mismatch
	if declaredHeight != nil && *declaredHeight != height {
		mismatches = append(mismatches, Mismatch{Image: name, Field: FieldHeight, Declared: *declaredHeight, Actual: height})
	}
	if declaredWidth != nil && *declaredWidth != width {
		mismatches = append(mismatches, Mismatch{Image: name, Field: FieldWidth, Declared: *declaredWidth, Actual: width})
	}
	return height, width, mismatches
}
