// Package viewport implements the zoom/pan transform for inspecting a
// generated image. All coordinates are in viewport pixels; the transform is
// applied with a top-left origin.
package viewport

import "math"

const (
	MinScale = 1.0
	MaxScale = 6.0

	// zoomStep is the scale change per wheel tick.
	zoomStep = 0.12
)

// Transform is the current scale and translation of the previewed image.
// At scale 1 the translation is always (0, 0).
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Identity is the reset transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Viewport holds the visible area dimensions and transient drag state.
type Viewport struct {
	W, H float64

	dragging bool
	startX   float64
	startY   float64
	startTX  float64
	startTY  float64
}

// New creates a viewport of the given size.
func New(w, h float64) *Viewport {
	return &Viewport{W: w, H: h}
}

// Zoom applies one wheel tick anchored at the pointer position. Positive
// deltaY zooms out, otherwise in. The point under the pointer stays fixed,
// then the translation is clamped to the coverage bounds.
func (v *Viewport) Zoom(t Transform, pointerX, pointerY, deltaY float64) Transform {
	direction := 1.0
	if deltaY > 0 {
		direction = -1.0
	}

	px := clamp(pointerX, 0, v.W)
	py := clamp(pointerY, 0, v.H)

	next := clamp(round3(t.Scale*(1+zoomStep*direction)), MinScale, MaxScale)
	if next == t.Scale {
		return t
	}

	ratio := next / t.Scale
	x := px - (px-t.TranslateX)*ratio
	y := py - (py-t.TranslateY)*ratio
	x, y = v.ClampTranslate(x, y, next)

	return Transform{Scale: next, TranslateX: x, TranslateY: y}
}

// ClampTranslate bounds a translation so the scaled image always covers the
// whole viewport. At or below scale 1 the only legal translation is (0, 0).
// The function is idempotent.
func (v *Viewport) ClampTranslate(x, y, scale float64) (float64, float64) {
	if !isFinite(v.W) || !isFinite(v.H) || v.W <= 0 || v.H <= 0 {
		return 0, 0
	}
	if scale <= 1 {
		return 0, 0
	}

	minX := v.W - v.W*scale
	minY := v.H - v.H*scale
	return clamp(x, minX, 0), clamp(y, minY, 0)
}

// DragStart begins a pan gesture at the pointer position. Panning is
// disabled entirely at scale 1 or below; the return reports whether a drag
// actually started.
func (v *Viewport) DragStart(t Transform, pointerX, pointerY float64) bool {
	if t.Scale <= 1 {
		return false
	}
	v.dragging = true
	v.startX = pointerX
	v.startY = pointerY
	v.startTX = t.TranslateX
	v.startTY = t.TranslateY
	return true
}

// DragMove translates by the pointer delta since DragStart, clamped to the
// coverage bounds. Without an active drag the transform is returned as is.
func (v *Viewport) DragMove(t Transform, pointerX, pointerY float64) Transform {
	if !v.dragging {
		return t
	}
	x := v.startTX + (pointerX - v.startX)
	y := v.startTY + (pointerY - v.startY)
	x, y = v.ClampTranslate(x, y, t.Scale)
	return Transform{Scale: t.Scale, TranslateX: x, TranslateY: y}
}

// DragEnd finishes the active pan gesture, if any.
func (v *Viewport) DragEnd() {
	v.dragging = false
}

// Dragging reports whether a pan gesture is active.
func (v *Viewport) Dragging() bool {
	return v.dragging
}

// Reset clears the drag state and returns the identity transform. Called
// whenever the previewed image changes or the viewer reopens, so stale
// zoom/pan state never carries over.
func (v *Viewport) Reset() Transform {
	v.dragging = false
	return Identity()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
