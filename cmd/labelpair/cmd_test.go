package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/menta2k/pair-labeler/internal/config"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 90, 255})
		}
	}
	return img
}

// writePair writes a 64x48 PNG pair into dir and returns both paths
func writePair(t *testing.T, dir string) (string, string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(64, 48)); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	date1 := filepath.Join(dir, "site.d1.png")
	date2 := filepath.Join(dir, "site.d2.png")
	for _, p := range []string{date1, date2} {
		if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
	return date1, date2
}

// resetFlags restores command state between tests
func resetFlags() {
	appFs = afero.NewOsFs()
	appConfig = config.Default()
	infoJSON = false
	createOutput = ""
	createEmbed = false
	resaveOutput = ""
	resaveEmbed = false
	resaveStrip = false
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("%s is not JSON: %v", path, err)
	}
	return doc
}

func TestCreateCommand(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	date1, date2 := writePair(t, dir)

	cmd, out := newTestCmd()
	if err := runCreate(cmd, []string{date1, date2}); err != nil {
		t.Fatalf("create command failed: %v", err)
	}

	label := filepath.Join(dir, "site.json")
	if !strings.Contains(out.String(), "Created "+label) {
		t.Errorf("Unexpected output: %s", out.String())
	}
	doc := readDoc(t, label)
	if doc["image_date1Path"] != "site.d1.png" {
		t.Errorf("Expected relative image path, got %v", doc["image_date1Path"])
	}
	if doc["image_date1Data"] == nil {
		t.Error("Expected embedded data with default store_data")
	}
	if doc["imageWidth"] != float64(64) || doc["imageHeight"] != float64(48) {
		t.Errorf("Expected 64x48, got %vx%v", doc["imageWidth"], doc["imageHeight"])
	}

	if err := runCreate(cmd, []string{date1, date2}); err == nil {
		t.Error("Expected error when the label file already exists")
	}
}

func TestCreateWithoutData(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	date1, date2 := writePair(t, dir)
	appConfig.Image.StoreData = false
	createOutput = filepath.Join(dir, "labels", "pair.json")

	cmd, _ := newTestCmd()
	if err := runCreate(cmd, []string{date1, date2}); err != nil {
		t.Fatalf("create command failed: %v", err)
	}
	doc := readDoc(t, createOutput)
	if doc["image_date1Data"] != nil || doc["image_date2Data"] != nil {
		t.Error("Expected null image data")
	}
	if doc["image_date2Path"] != "../site.d2.png" {
		t.Errorf("Expected path relative to the label file, got %v", doc["image_date2Path"])
	}
}

func TestCreateRejectsMismatchedPair(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	date1, date2 := writePair(t, dir)
	other := filepath.Join(dir, "other.d2.png")
	if err := os.Rename(date2, other); err != nil {
		t.Fatal(err)
	}

	cmd, _ := newTestCmd()
	if err := runCreate(cmd, []string{date1, other}); err == nil {
		t.Error("Expected error for images that do not pair")
	}
}

func TestInfoCommand(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	writePair(t, dir)
	label := filepath.Join(dir, "site.json")
	doc := `{
  "flags": {"cloudy": true},
  "shapes": [
    {"label": "roof", "points": [[1, 1], [10, 10]], "shape_type": "rectangle"},
    {"label": "roof", "points": [[20, 20], [30, 30]], "shape_type": "rectangle"},
    {"label": "tree", "points": [[5, 5]], "shape_type": "point"}
  ],
  "image_date1Path": "site.d1.png",
  "image_date2Path": "site.d2.png",
  "imageHeight": 100,
  "imageWidth": 64,
  "reviewer": "kim"
}`
	if err := os.WriteFile(label, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cmd, out := newTestCmd()
	if err := runInfo(cmd, []string{label}); err != nil {
		t.Fatalf("info command failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Shapes:    3", "Size:      64x48", "cloudy", "reviewer", "Warning: "} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}

	infoJSON = true
	cmd, out = newTestCmd()
	if err := runInfo(cmd, []string{label}); err != nil {
		t.Fatalf("info --json failed: %v", err)
	}
	var summary labelSummary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("info --json output is not JSON: %v", err)
	}
	if summary.ByLabel["roof"] != 2 || summary.ByType["point"] != 1 {
		t.Errorf("Unexpected counts %+v", summary)
	}
	if summary.Height != 48 || len(summary.Diagnostics) == 0 {
		t.Errorf("Expected corrected height and diagnostics, got %+v", summary)
	}
}

func TestResaveCommand(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	date1, date2 := writePair(t, dir)

	cmd, _ := newTestCmd()
	if err := runCreate(cmd, []string{date1, date2}); err != nil {
		t.Fatalf("create command failed: %v", err)
	}
	label := filepath.Join(dir, "site.json")

	resaveStrip = true
	cmd, out := newTestCmd()
	if err := runResave(cmd, []string{label}); err != nil {
		t.Fatalf("resave --strip failed: %v", err)
	}
	if !strings.Contains(out.String(), "embedded: false") {
		t.Errorf("Unexpected output: %s", out.String())
	}
	if readDoc(t, label)["image_date1Data"] != nil {
		t.Error("Expected image data to be stripped")
	}

	resaveStrip = false
	resaveEmbed = true
	resaveOutput = filepath.Join(dir, "archive", "site.json")
	cmd, _ = newTestCmd()
	if err := runResave(cmd, []string{label}); err != nil {
		t.Fatalf("resave --embed failed: %v", err)
	}
	archived := readDoc(t, resaveOutput)
	if archived["image_date1Data"] == nil {
		t.Error("Expected image data to be embedded")
	}
	if archived["image_date1Path"] != "../site.d1.png" {
		t.Errorf("Expected path relative to the new location, got %v", archived["image_date1Path"])
	}
}

func TestResaveStripWithoutPaths(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	date1, _ := writePair(t, dir)
	raw, err := os.ReadFile(date1)
	if err != nil {
		t.Fatal(err)
	}
	data := base64.StdEncoding.EncodeToString(raw)
	label := filepath.Join(dir, "embedded.json")
	doc := `{"shapes": [], "image_date1Data": "` + data + `", "image_date2Data": "` + data + `"}`
	if err := os.WriteFile(label, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	resaveStrip = true
	cmd, _ := newTestCmd()
	if err := runResave(cmd, []string{label}); err == nil {
		t.Fatal("Expected resave --strip to fail for a file without image paths")
	}
	after, err := os.ReadFile(label)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != doc {
		t.Error("Expected the label file to be left untouched")
	}
}

func TestDeleteCommand(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	date1, date2 := writePair(t, dir)

	cmd, out := newTestCmd()
	if err := runDelete(cmd, []string{date1, date2}); err != nil {
		t.Fatalf("delete without label file failed: %v", err)
	}
	if !strings.Contains(out.String(), "No label file") {
		t.Errorf("Unexpected output: %s", out.String())
	}

	if err := runCreate(cmd, []string{date1, date2}); err != nil {
		t.Fatalf("create command failed: %v", err)
	}
	label := filepath.Join(dir, "site.json")

	cmd, out = newTestCmd()
	if err := runDelete(cmd, []string{date1, date2}); err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted "+label) {
		t.Errorf("Unexpected output: %s", out.String())
	}
	if _, err := os.Stat(label); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be removed, got %v", label, err)
	}
	for _, p := range []string{date1, date2} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected image %s to be kept: %v", p, err)
		}
	}
}

func TestInitAppWithConfig(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("canvas:\n  epsilon: 3\n  keep_previous: true\nlog:\n  mode: release\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfgFile = path
	defer func() { cfgFile = "" }()
	if err := initApp(rootCmd, nil); err != nil {
		t.Fatalf("initApp failed: %v", err)
	}
	if appConfig.Canvas.Epsilon != 3 {
		t.Errorf("Expected epsilon 3 from config, got %v", appConfig.Canvas.Epsilon)
	}

	labeler, err := newLabeler()
	if err != nil {
		t.Fatalf("newLabeler failed: %v", err)
	}
	if labeler.Options().Epsilon != 3 {
		t.Errorf("Expected labeler epsilon 3, got %v", labeler.Options().Epsilon)
	}
	if !labeler.KeepPrevious() {
		t.Error("Expected keep-previous mode from config")
	}
}
