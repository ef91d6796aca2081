package types

import (
	"encoding/json"
	"testing"
)

func TestPointJSON(t *testing.T) {
	data, err := json.Marshal(Point{X: 1.5, Y: 2})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "[1.5,2]" {
		t.Errorf("Expected [1.5,2], got %s", data)
	}

	var p Point
	if err := json.Unmarshal([]byte("[3, 4.25]"), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if p.X != 3 || p.Y != 4.25 {
		t.Errorf("Expected (3, 4.25), got %+v", p)
	}

	for _, bad := range []string{"[1]", "[1,2,3]", `{"x":1}`, `"1,2"`} {
		if err := json.Unmarshal([]byte(bad), &p); err == nil {
			t.Errorf("Expected error for %s", bad)
		}
	}
}

func TestPointMath(t *testing.T) {
	a := Point{X: 1, Y: 1}
	b := Point{X: 4, Y: 5}
	if got := a.Distance(b); got != 5 {
		t.Errorf("Expected distance 5, got %v", got)
	}
	if got := b.Sub(a); got != (Point{X: 3, Y: 4}) {
		t.Errorf("Expected (3, 4), got %+v", got)
	}
	if got := a.Add(Point{X: -1, Y: 2}); got != (Point{X: 0, Y: 3}) {
		t.Errorf("Expected (0, 3), got %+v", got)
	}
}

func TestRect(t *testing.T) {
	r := RectFromPoints(Point{X: 10, Y: 2}, Point{X: 0, Y: 8})
	if r.Min != (Point{X: 0, Y: 2}) || r.Max != (Point{X: 10, Y: 8}) {
		t.Fatalf("Expected normalized rect, got %+v", r)
	}
	if r.Width() != 10 || r.Height() != 6 {
		t.Errorf("Expected 10x6, got %vx%v", r.Width(), r.Height())
	}
	if r.Empty() {
		t.Error("Expected non-empty rect")
	}
	if !(Rect{}).Empty() {
		t.Error("Expected zero rect to be empty")
	}

	tests := []struct {
		p    Point
		want bool
	}{
		{Point{X: 5, Y: 5}, true},
		{Point{X: 0, Y: 2}, true},
		{Point{X: 10, Y: 8}, true},
		{Point{X: 10.01, Y: 8}, false},
		{Point{X: 5, Y: 1}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%+v) = %v, expected %v", tt.p, got, tt.want)
		}
	}
}

func TestColorFromInts(t *testing.T) {
	c, err := ColorFromInts([]int{10, 20, 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != RGBA(10, 20, 30, 255) {
		t.Errorf("Expected opaque colour, got %s", c)
	}

	c, err = ColorFromInts([]int{0, 255, 0, 128})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.A != 128 {
		t.Errorf("Expected alpha 128, got %d", c.A)
	}

	for _, bad := range [][]int{{1, 2}, {1, 2, 3, 4, 5}, {256, 0, 0}, {0, -1, 0}} {
		if _, err := ColorFromInts(bad); err == nil {
			t.Errorf("Expected error for %v", bad)
		}
	}
}

func TestColorJSON(t *testing.T) {
	data, err := json.Marshal(RGBA(255, 0, 0, 128))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "[255,0,0,128]" {
		t.Errorf("Expected [255,0,0,128], got %s", data)
	}

	var c Color
	if err := json.Unmarshal([]byte("[1, 2, 3]"), &c); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if c != RGBA(1, 2, 3, 255) {
		t.Errorf("Expected rgba(1,2,3,255), got %s", c)
	}
	if err := json.Unmarshal([]byte("[1, 2, 300]"), &c); err == nil {
		t.Error("Expected error for out of range component")
	}
	if c.String() != "rgba(1,2,3,255)" {
		t.Errorf("Expected failed unmarshal to leave colour unchanged, got %s", c)
	}
}

func TestShapeType(t *testing.T) {
	for _, st := range ShapeTypes() {
		if !st.Valid() {
			t.Errorf("Expected %s to be valid", st)
		}
	}
	if ShapeType("ellipse").Valid() {
		t.Error("Expected ellipse to be invalid")
	}

	open := map[ShapeType]bool{Line: true, PointType: true, LineStrip: true}
	for _, st := range ShapeTypes() {
		if st.Open() != open[st] {
			t.Errorf("Open() for %s = %v, expected %v", st, st.Open(), open[st])
		}
	}
}
