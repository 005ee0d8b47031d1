package mesh

import (
	"github.com/pkg/errors"
)

// AtlasCoord addresses one cell of the texture atlas, in cells.
type AtlasCoord struct {
	X, Y uint8
}

// Atlas describes a square texture atlas. Texture coordinates are 16 bit
// fixed point, 0..65535 covering the whole atlas.
type Atlas struct {
	Texels     uint32 // atlas side in texels
	CellTexels uint32 // cell side in texels
}

// DefaultAtlas is a 64 texel atlas of 16 texel cells.
var DefaultAtlas = Atlas{Texels: 64, CellTexels: 16}

func NewAtlas(texels, cellTexels uint32) (Atlas, error) {
	a := Atlas{Texels: texels, CellTexels: cellTexels}
	return a, a.Validate()
}

func (a Atlas) Validate() error {
	if a.Texels == 0 || a.Texels&(a.Texels-1) != 0 {
		return errors.Errorf("atlas size %d is not a power of two", a.Texels)
	}
	if a.Texels > 0x10000 {
		return errors.Errorf("atlas size %d exceeds 65536 texels", a.Texels)
	}
	if a.CellTexels == 0 || a.CellTexels > a.Texels || a.Texels%a.CellTexels != 0 {
		return errors.Errorf("cell size %d does not divide atlas size %d", a.CellTexels, a.Texels)
	}
	return nil
}

// Cells is the number of cells along one side.
func (a Atlas) Cells() int {
	return int(a.Texels / a.CellTexels)
}

// TexelSpan is the fixed point width of one texel.
func (a Atlas) TexelSpan() uint16 {
	return uint16(0x10000 / a.Texels)
}

// CellSpan is the fixed point width of one cell.
func (a Atlas) CellSpan() uint16 {
	return uint16(uint32(a.TexelSpan()) * a.CellTexels)
}

// Contains reports whether c addresses a cell inside the atlas.
func (a Atlas) Contains(c AtlasCoord) bool {
	n := a.Cells()
	return int(c.X) < n && int(c.Y) < n
}

// Origin returns the fixed point coordinate of the cell's first corner.
func (a Atlas) Origin(c AtlasCoord) [2]uint16 {
	span := a.CellSpan()
	return [2]uint16{uint16(c.X) * span, uint16(c.Y) * span}
}
