// Package imagetest provides synthetic images for tests.
package imagetest

import (
	"image"
	"math/rand"
)

// Noise returns an opaque image of random pixels, which compresses badly.
// The same seed always yields the same pixels.
func Noise(w, h int, seed int64) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = 0xff
	}
	return img
}
