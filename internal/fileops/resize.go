package fileops

import "math"

// PlanResize returns the dimensions that fit width x height inside a square of
// maxEdge while keeping the aspect ratio. When the longer edge already fits,
// the input dimensions come back unchanged. Otherwise both edges are scaled by
// the same factor and rounded independently, so the ratio may drift by one
// pixel per axis.
//
// The result is not clamped: a zero input edge, or an extreme aspect ratio
// with a small maxEdge, can produce a zero dimension. Callers decide how to
// treat that.
func PlanResize(width, height, maxEdge uint32) (uint32, uint32) {
	longer := max(width, height)
	if longer <= maxEdge {
		return width, height
	}

	scale := float64(maxEdge) / float64(longer)
	newWidth := uint32(math.Round(float64(width) * scale))
	newHeight := uint32(math.Round(float64(height) * scale))
	return newWidth, newHeight
}
