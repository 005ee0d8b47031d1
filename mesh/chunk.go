package mesh

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// BlockID identifies a block type. Zero is empty space.
type BlockID uint16

// Voxel is one cell of a chunk as the world layer hands it to the mesher,
// with face visibility and light already computed.
type Voxel struct {
	ID      BlockID
	Visible uint8 // bit i set: face i is visible
	Light   [6]LightLevel
}

func (v Voxel) IsEmpty() bool {
	return v.ID == 0
}

func (v Voxel) IsVisible(f Face) bool {
	return v.Visible&(1<<f) != 0
}

func (v *Voxel) SetVisible(f Face, visible bool) {
	if visible {
		v.Visible |= 1 << f
	} else {
		v.Visible &^= 1 << f
	}
}

func (v Voxel) FaceLight(f Face) LightLevel {
	return v.Light[f]
}

// Pos is an integer position in world space.
type Pos struct {
	X, Y, Z int
}

// Chunk is a read only cubic grid of voxels. Side must not exceed 255 so
// that every corner fits in a vertex position byte. Voxel is only called
// with coordinates in [0, Side).
type Chunk interface {
	Origin() Pos
	Side() int
	Voxel(x, y, z int) Voxel
}

// BlockTexture holds the atlas cell of every face of a block type, and the
// base color used by the flat colored format.
type BlockTexture struct {
	Faces [6]AtlasCoord
	Color color.RGBA
}

func (t *BlockTexture) Face(f Face) AtlasCoord {
	return t.Faces[f]
}

// Registry maps block types to their textures. It must know every block id
// that appears in a chunk handed to the mesher.
type Registry interface {
	Lookup(id BlockID) (*BlockTexture, bool)
}

// Translation places a chunk at its origin.
func Translation(origin Pos) mgl32.Mat4 {
	return mgl32.Translate3D(float32(origin.X), float32(origin.Y), float32(origin.Z))
}
