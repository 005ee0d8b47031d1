package main

import "github.com/icexin/chunkmesh/mesh"

// faceOutline lists the corners of each face of a unit block in drawing
// order around the face, relative to the block's minimum corner.
var faceOutline = [6][4][3]float32{
	mesh.Top:    {{0, 1, 0}, {1, 1, 0}, {1, 1, 1}, {0, 1, 1}},
	mesh.Bottom: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	mesh.Left:   {{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}},
	mesh.Right:  {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	mesh.Front:  {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	mesh.Back:   {{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
}

// makeWireFrameData appends line segments outlining the shown faces of a
// block centered on the origin.
func makeWireFrameData(vertices []float32, show [6]bool) []float32 {
	for _, f := range mesh.Faces {
		if !show[f] {
			continue
		}
		corners := faceOutline[f]
		for i := range corners {
			a, b := corners[i], corners[(i+1)%len(corners)]
			vertices = append(vertices,
				a[0]-0.5, a[1]-0.5, a[2]-0.5,
				b[0]-0.5, b[1]-0.5, b[2]-0.5,
			)
		}
	}
	return vertices
}

// blockFaces reports which faces of the block at id border a transparent
// block.
func (w *World) blockFaces(id Vec3) [6]bool {
	var show [6]bool
	for _, f := range mesh.Faces {
		show[f] = IsTransparent(w.Block(id.Neighbor(f)))
	}
	return show
}
