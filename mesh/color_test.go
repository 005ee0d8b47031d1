package mesh

import (
	"image/color"
	"testing"
)

func TestDarken(t *testing.T) {
	tests := []struct {
		in     color.RGBA
		amount uint8
		want   color.RGBA
	}{
		{color.RGBA{R: 100, G: 150, B: 200, A: 255}, 0, color.RGBA{R: 100, G: 150, B: 200, A: 255}},
		{color.RGBA{R: 100, G: 150, B: 200, A: 255}, 50, color.RGBA{R: 50, G: 100, B: 150, A: 255}},
		{color.RGBA{R: 10, G: 150, B: 200, A: 7}, 100, color.RGBA{R: 0, G: 50, B: 100, A: 7}},
		{color.RGBA{R: 255, G: 255, B: 255, A: 0}, 255, color.RGBA{R: 0, G: 0, B: 0, A: 0}},
		{color.RGBA{R: 30, G: 30, B: 30, A: 128}, 30, color.RGBA{R: 0, G: 0, B: 0, A: 128}},
	}
	for _, tt := range tests {
		if got := Darken(tt.in, tt.amount); got != tt.want {
			t.Errorf("Darken(%v, %d) = %v, want %v", tt.in, tt.amount, got, tt.want)
		}
	}
}

func TestFaceShadeTopBrightest(t *testing.T) {
	for _, f := range Faces[1:] {
		if FaceShade(f) <= FaceShade(Top) {
			t.Errorf("%v shade %d not darker than top", f, FaceShade(f))
		}
	}
}
