package processor

import (
	"math"

	"github.com/aliskhannn/downscaler/internal/model"
)

// maxSide bounds a scaled side so the result always fits in an int.
const maxSide = math.MaxInt32

// NewDimensions scales both sides of m by scale, rounding to the nearest
// pixel. Sides that would round to zero are clamped to one pixel, and sides
// beyond maxSide are clamped to it.
func NewDimensions(m model.Metadata, scale float64) model.Metadata {
	return model.Metadata{
		Width:  scaleSide(m.Width, scale),
		Height: scaleSide(m.Height, scale),
	}
}

func scaleSide(n int, scale float64) int {
	v := math.Round(float64(n) * scale)
	switch {
	case v < 1:
		return 1
	case v > maxSide:
		return maxSide
	}
	return int(v)
}

// shrinks reports whether to is smaller than from on at least one side and
// larger on none.
func shrinks(from, to model.Metadata) bool {
	if to.Width > from.Width || to.Height > from.Height {
		return false
	}
	return to != from
}

// pixels returns the pixel count of m without overflowing.
func pixels(m model.Metadata) int64 {
	return int64(m.Width) * int64(m.Height)
}
