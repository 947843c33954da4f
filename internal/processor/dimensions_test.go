package processor

import (
	"math"
	"testing"

	"github.com/aliskhannn/downscaler/internal/model"
)

func TestNewDimensions(t *testing.T) {
	tests := []struct {
		name  string
		in    model.Metadata
		scale float64
		want  model.Metadata
	}{
		{"half", model.Metadata{Width: 1000, Height: 600}, 0.5, model.Metadata{Width: 500, Height: 300}},
		{"identity", model.Metadata{Width: 123, Height: 45}, 1, model.Metadata{Width: 123, Height: 45}},
		{"double", model.Metadata{Width: 7, Height: 3}, 2, model.Metadata{Width: 14, Height: 6}},
		{"rounds half up", model.Metadata{Width: 5, Height: 3}, 0.5, model.Metadata{Width: 3, Height: 2}},
		{"rounds down", model.Metadata{Width: 10, Height: 10}, 0.33, model.Metadata{Width: 3, Height: 3}},
		{"clamps to one pixel", model.Metadata{Width: 4, Height: 1000}, 0.01, model.Metadata{Width: 1, Height: 10}},
		{"single pixel", model.Metadata{Width: 1, Height: 1}, 0.5, model.Metadata{Width: 1, Height: 1}},
		{"clamps huge scale", model.Metadata{Width: 4, Height: 4}, 2.5e17, model.Metadata{Width: math.MaxInt32, Height: math.MaxInt32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDimensions(tt.in, tt.scale); got != tt.want {
				t.Errorf("NewDimensions(%v, %v) = %v, want %v", tt.in, tt.scale, got, tt.want)
			}
		})
	}
}

func TestNewDimensions_MatchesRounding(t *testing.T) {
	scales := []float64{0.05, 0.1, 0.25, 0.333, 0.5, 0.75, 0.9, 1, 1.1, 1.5, 2, 3.7}

	for _, f := range scales {
		for w := 1; w <= 400; w += 13 {
			for h := 1; h <= 400; h += 17 {
				got := NewDimensions(model.Metadata{Width: w, Height: h}, f)

				wantW := int(math.Round(float64(w) * f))
				wantH := int(math.Round(float64(h) * f))
				if wantW >= 1 && got.Width != wantW {
					t.Fatalf("w=%d f=%v: width %d, want %d", w, f, got.Width, wantW)
				}
				if wantH >= 1 && got.Height != wantH {
					t.Fatalf("h=%d f=%v: height %d, want %d", h, f, got.Height, wantH)
				}
				if got.Width < 1 || got.Height < 1 {
					t.Fatalf("w=%d h=%d f=%v: got degenerate %v", w, h, f, got)
				}
			}
		}
	}
}
