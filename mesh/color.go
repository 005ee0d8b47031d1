package mesh

import "image/color"

// Darken subtracts amount from the red, green and blue channels, stopping at
// zero. Alpha is left alone.
func Darken(c color.RGBA, amount uint8) color.RGBA {
	return color.RGBA{
		R: darken(c.R, amount),
		G: darken(c.G, amount),
		B: darken(c.B, amount),
		A: c.A,
	}
}

func darken(v, amount uint8) uint8 {
	if amount <= v {
		return v - amount
	}
	return 0
}

// FaceShade is how much a face is darkened in the flat colored format.
func FaceShade(f Face) uint8 {
	switch f {
	case Top:
		return 0
	case Bottom:
		return 64
	case Left, Right:
		return 32
	case Front, Back:
		return 16
	}
	return 0
}
