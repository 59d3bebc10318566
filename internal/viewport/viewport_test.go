package viewport

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClampTranslate(t *testing.T) {
	v := New(800, 600)

	tests := []struct {
		name  string
		x, y  float64
		scale float64
		wantX float64
		wantY float64
	}{
		{"identity pinned to origin", 100, -50, 1, 0, 0},
		{"below min scale pinned", 40, 40, 0.5, 0, 0},
		{"in bounds unchanged", -100, -50, 2, -100, -50},
		{"positive clamped to zero", 50, 80, 2, 0, 0},
		{"beyond coverage clamped", -2000, -2000, 2, -800, -600},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := v.ClampTranslate(tc.x, tc.y, tc.scale)
			if !almostEqual(x, tc.wantX) || !almostEqual(y, tc.wantY) {
				t.Fatalf("ClampTranslate(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tc.x, tc.y, tc.scale, x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestClampTranslateIdempotent(t *testing.T) {
	v := New(800, 600)
	for _, scale := range []float64{1, 1.5, 2, 4, 6} {
		x, y := v.ClampTranslate(-431.7, 212.9, scale)
		x2, y2 := v.ClampTranslate(x, y, scale)
		if !almostEqual(x, x2) || !almostEqual(y, y2) {
			t.Fatalf("scale %v: clamp not idempotent: (%v, %v) -> (%v, %v)", scale, x, y, x2, y2)
		}
	}
}

func TestClampTranslateInvalidViewport(t *testing.T) {
	for _, v := range []*Viewport{New(0, 600), New(800, 0), New(math.NaN(), 600), New(800, math.Inf(1))} {
		if x, y := v.ClampTranslate(-100, -100, 3); x != 0 || y != 0 {
			t.Fatalf("ClampTranslate on invalid viewport = (%v, %v), want (0, 0)", x, y)
		}
	}
}

func TestZoomInAnchorsPointer(t *testing.T) {
	v := New(800, 600)
	start := Identity()

	got := v.Zoom(start, 400, 300, -1)
	if got.Scale != 1.12 {
		t.Fatalf("Scale = %v, want 1.12", got.Scale)
	}

	// The anchored point maps to the same screen position before and after.
	imgX := (400 - start.TranslateX) / start.Scale
	imgY := (300 - start.TranslateY) / start.Scale
	screenX := imgX*got.Scale + got.TranslateX
	screenY := imgY*got.Scale + got.TranslateY
	if !almostEqual(screenX, 400) || !almostEqual(screenY, 300) {
		t.Fatalf("anchor moved to (%v, %v), want (400, 300)", screenX, screenY)
	}
}

func TestZoomOutAtMinScaleIsNoOp(t *testing.T) {
	v := New(800, 600)
	start := Identity()
	if got := v.Zoom(start, 100, 100, 1); got != start {
		t.Fatalf("Zoom out at min scale changed transform: %+v", got)
	}
}

func TestZoomClampsAtMaxScale(t *testing.T) {
	v := New(800, 600)
	current := Identity()
	for i := 0; i < 60; i++ {
		current = v.Zoom(current, 400, 300, -1)
	}
	if current.Scale != MaxScale {
		t.Fatalf("Scale after repeated zoom = %v, want %v", current.Scale, MaxScale)
	}

	// Once clamped, further zooming in changes nothing.
	if got := v.Zoom(current, 400, 300, -1); got != current {
		t.Fatalf("Zoom at max scale changed transform: %+v", got)
	}
}

func TestZoomScaleRoundedToThreeDecimals(t *testing.T) {
	v := New(800, 600)
	current := v.Zoom(Identity(), 0, 0, -1)
	current = v.Zoom(current, 0, 0, -1)
	if current.Scale != 1.254 {
		t.Fatalf("Scale = %v, want 1.254", current.Scale)
	}
}

func TestZoomPointerOutsideViewportClamped(t *testing.T) {
	v := New(800, 600)
	got := v.Zoom(Identity(), 5000, -200, -1)
	// Anchor clamps to the bottom-right/top-left corners; translation stays in bounds.
	x, y := v.ClampTranslate(got.TranslateX, got.TranslateY, got.Scale)
	if !almostEqual(x, got.TranslateX) || !almostEqual(y, got.TranslateY) {
		t.Fatalf("Zoom produced out-of-bounds translation (%v, %v)", got.TranslateX, got.TranslateY)
	}
}

func TestDrag(t *testing.T) {
	v := New(800, 600)

	if v.DragStart(Identity(), 10, 10) {
		t.Fatalf("DragStart at scale 1 should be refused")
	}
	if v.Dragging() {
		t.Fatalf("Dragging() = true after refused start")
	}

	zoomed := Transform{Scale: 2, TranslateX: -400, TranslateY: -300}
	if !v.DragStart(zoomed, 100, 100) {
		t.Fatalf("DragStart at scale 2 should begin")
	}

	moved := v.DragMove(zoomed, 150, 80)
	if !almostEqual(moved.TranslateX, -350) || !almostEqual(moved.TranslateY, -320) {
		t.Fatalf("DragMove = (%v, %v), want (-350, -320)", moved.TranslateX, moved.TranslateY)
	}

	// Dragging far past the edge clamps to coverage bounds.
	pinned := v.DragMove(zoomed, 5000, 5000)
	if !almostEqual(pinned.TranslateX, 0) || !almostEqual(pinned.TranslateY, 0) {
		t.Fatalf("DragMove past edge = (%v, %v), want (0, 0)", pinned.TranslateX, pinned.TranslateY)
	}

	v.DragEnd()
	if v.Dragging() {
		t.Fatalf("Dragging() = true after DragEnd")
	}
	if got := v.DragMove(zoomed, 0, 0); got != zoomed {
		t.Fatalf("DragMove without active drag changed transform: %+v", got)
	}
}

func TestReset(t *testing.T) {
	v := New(800, 600)
	v.DragStart(Transform{Scale: 3}, 10, 10)

	got := v.Reset()
	if got != Identity() {
		t.Fatalf("Reset() = %+v, want identity", got)
	}
	if v.Dragging() {
		t.Fatalf("Dragging() = true after Reset")
	}
}
