package mesh

import "fmt"

// Face is one of the six axis aligned sides of a voxel.
type Face uint8

const (
	Top Face = iota
	Bottom
	Left
	Right
	Front
	Back
)

// Faces lists every face in dispatch order.
var Faces = [...]Face{Top, Bottom, Left, Right, Front, Back}

func (f Face) String() string {
	switch f {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	case Front:
		return "front"
	case Back:
		return "back"
	}
	return fmt.Sprintf("face(%d)", uint8(f))
}

// Normal returns the outward unit normal of the face.
func (f Face) Normal() [3]int {
	switch f {
	case Top:
		return [3]int{0, 1, 0}
	case Bottom:
		return [3]int{0, -1, 0}
	case Left:
		return [3]int{-1, 0, 0}
	case Right:
		return [3]int{1, 0, 0}
	case Front:
		return [3]int{0, 0, 1}
	case Back:
		return [3]int{0, 0, -1}
	}
	panic(fmt.Sprintf("bad face %d", uint8(f)))
}

// corner is one emitted vertex of a face, relative to the voxel's minimum
// corner. du and dv select the far edge of the atlas cell.
type corner struct {
	dx, dy, dz uint8
	du, dv     uint8
}

// faceQuad holds the two triangles of a face. The order is fixed per face:
// the GPU culls back faces by winding.
type faceQuad [6]corner

var (
	topQuad = faceQuad{
		{0, 1, 1, 0, 1},
		{1, 1, 1, 1, 1},
		{0, 1, 0, 0, 0},

		{1, 1, 1, 1, 1},
		{1, 1, 0, 1, 0},
		{0, 1, 0, 0, 0},
	}
	bottomQuad = faceQuad{
		{0, 0, 1, 0, 1},
		{0, 0, 0, 0, 0},
		{1, 0, 1, 1, 1},

		{0, 0, 0, 0, 0},
		{1, 0, 0, 1, 0},
		{1, 0, 1, 1, 1},
	}
	leftQuad = faceQuad{
		{0, 0, 0, 0, 0},
		{0, 0, 1, 1, 0},
		{0, 1, 0, 0, 1},

		{0, 0, 1, 1, 0},
		{0, 1, 1, 1, 1},
		{0, 1, 0, 0, 1},
	}
	rightQuad = faceQuad{
		{1, 0, 0, 0, 0},
		{1, 1, 0, 0, 1},
		{1, 0, 1, 1, 0},

		{1, 1, 0, 0, 1},
		{1, 1, 1, 1, 1},
		{1, 0, 1, 1, 0},
	}
	frontQuad = faceQuad{
		{0, 0, 1, 0, 0},
		{1, 0, 1, 1, 0},
		{0, 1, 1, 0, 1},

		{1, 0, 1, 1, 0},
		{1, 1, 1, 1, 1},
		{0, 1, 1, 0, 1},
	}
	backQuad = faceQuad{
		{0, 0, 0, 0, 0},
		{0, 1, 0, 0, 1},
		{1, 0, 0, 1, 0},

		{0, 1, 0, 0, 1},
		{1, 1, 0, 1, 1},
		{1, 0, 0, 1, 0},
	}
)

func (f Face) quad() *faceQuad {
	switch f {
	case Top:
		return &topQuad
	case Bottom:
		return &bottomQuad
	case Left:
		return &leftQuad
	case Right:
		return &rightQuad
	case Front:
		return &frontQuad
	case Back:
		return &backQuad
	}
	panic(fmt.Sprintf("bad face %d", uint8(f)))
}

// AppendFace appends the six vertices of face f of the voxel whose minimum
// corner is origin. tex is the atlas cell origin in fixed point units and span
// the offset that reaches the opposite edge of the cell.
func AppendFace(dst []Vertex, f Face, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	l := light.Pack()
	for _, c := range f.quad() {
		dst = append(dst, Vertex{
			Position: [4]uint8{origin[0] + c.dx, origin[1] + c.dy, origin[2] + c.dz, l},
			UV:       [2]uint16{tex[0] + uint16(c.du)*span, tex[1] + uint16(c.dv)*span},
		})
	}
	return dst
}

// AppendColorFace is AppendFace for the flat colored format.
func AppendColorFace(dst []ColorVertex, f Face, origin [3]uint8, col [4]uint8, light LightLevel) []ColorVertex {
	l := light.Pack()
	for _, c := range f.quad() {
		dst = append(dst, ColorVertex{
			Position: [4]uint8{origin[0] + c.dx, origin[1] + c.dy, origin[2] + c.dz, l},
			Color:    col,
		})
	}
	return dst
}

func AppendTop(dst []Vertex, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	return AppendFace(dst, Top, origin, tex, span, light)
}

func AppendBottom(dst []Vertex, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	return AppendFace(dst, Bottom, origin, tex, span, light)
}

func AppendLeft(dst []Vertex, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	return AppendFace(dst, Left, origin, tex, span, light)
}

func AppendRight(dst []Vertex, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	return AppendFace(dst, Right, origin, tex, span, light)
}

func AppendFront(dst []Vertex, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	return AppendFace(dst, Front, origin, tex, span, light)
}

func AppendBack(dst []Vertex, origin [3]uint8, tex [2]uint16, span uint16, light LightLevel) []Vertex {
	return AppendFace(dst, Back, origin, tex, span, light)
}
