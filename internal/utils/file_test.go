package utils

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestPairKey(t *testing.T) {
	cases := map[string]string{
		"/data/site.d1.png":    "site",
		"site.png":             "site",
		"/data/dir.v2/a.b.jpg": "a",
		"noext":                "noext",
	}
	for in, want := range cases {
		if got := PairKey(in); got != want {
			t.Errorf("PairKey(%q): expected %q, got %q", in, want, got)
		}
	}

	if !SamePair("/a/site.d1.png", "/b/site.d2.jpg") {
		t.Error("Expected site.d1 and site.d2 to pair")
	}
	if SamePair("/a/site.d1.png", "/a/other.d2.png") {
		t.Error("Expected site and other not to pair")
	}
}

func TestLabelFileFor(t *testing.T) {
	got := LabelFileFor("/data/pairs/site.d1.png", "")
	if got != filepath.Join("/data/pairs", "site.json") {
		t.Errorf("Expected label next to image, got %s", got)
	}

	got = LabelFileFor("/data/pairs/site.d1.png", "/labels")
	if got != filepath.Join("/labels", "site.json") {
		t.Errorf("Expected label in output dir, got %s", got)
	}
}

func TestRelativeTo(t *testing.T) {
	if got := RelativeTo("/data/labels", "/data/pairs/a.png"); got != "../pairs/a.png" {
		t.Errorf("Expected ../pairs/a.png, got %s", got)
	}
	if got := RelativeTo("/data", "/data/a.png"); got != "a.png" {
		t.Errorf("Expected a.png, got %s", got)
	}
}

func TestIsImageFile(t *testing.T) {
	valid := []string{"a.jpg", "a.JPEG", "a.png", "a.tif", "a.webp"}
	for _, name := range valid {
		if !IsImageFile(name) {
			t.Errorf("Expected %s to be an image file", name)
		}
	}
	if IsImageFile("a.json") || IsImageFile("noext") {
		t.Error("Expected non-image files to be rejected")
	}
}

func TestFileHelpers(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := EnsureDir(fs, "/out/labels"); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if !DirExists(fs, "/out/labels") {
		t.Error("Expected directory to exist")
	}
	if err := EnsureDir(fs, "/out/labels"); err != nil {
		t.Errorf("EnsureDir on existing dir failed: %v", err)
	}

	_ = afero.WriteFile(fs, "/out/labels/a.json", []byte("{}"), 0644)
	if !FileExists(fs, "/out/labels/a.json") {
		t.Error("Expected file to exist")
	}
	if FileExists(fs, "/out/labels") {
		t.Error("A directory is not a file")
	}
	if FileExists(fs, "/missing") || DirExists(fs, "/missing") {
		t.Error("Expected missing path to be reported as absent")
	}

	if err := EnsureDir(fs, "/out/labels/a.json"); err == nil {
		t.Error("Expected EnsureDir to fail when a file has the directory's name")
	}
}

func TestNewLogger(t *testing.T) {
	for _, mode := range []string{"release", "debug"} {
		logger, err := NewLogger(mode)
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", mode, err)
		}
		logger.Debug("test entry")
		Sync(logger)
	}
}
