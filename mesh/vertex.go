package mesh

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// VertexSize is the encoded size of both vertex formats in bytes.
const VertexSize = 8

// LightLevel is the light reaching one face: sky light and block light, each
// meaningful in the range 0..15.
type LightLevel struct {
	Sky, Block uint8
}

// Pack stores both levels in one byte, sky in the high nibble. Levels above 15
// are truncated to their low four bits.
func (l LightLevel) Pack() uint8 {
	return (l.Sky&0xf)<<4 | l.Block&0xf
}

// UnpackLight is the inverse of LightLevel.Pack.
func UnpackLight(b uint8) LightLevel {
	return LightLevel{Sky: b >> 4, Block: b & 0xf}
}

// Vertex is the textured vertex: chunk local position, packed light in the
// fourth position byte and a 16 bit normalized atlas coordinate.
type Vertex struct {
	Position [4]uint8
	UV       [2]uint16
}

// ColorVertex is the flat colored vertex. Color is RGBA, normalized on upload.
type ColorVertex struct {
	Position [4]uint8
	Color    [4]uint8
}

// EncodeVertices appends the little endian wire form of vs to dst.
func EncodeVertices(dst []byte, vs []Vertex) []byte {
	var b [VertexSize]byte
	for _, v := range vs {
		copy(b[:4], v.Position[:])
		binary.LittleEndian.PutUint16(b[4:], v.UV[0])
		binary.LittleEndian.PutUint16(b[6:], v.UV[1])
		dst = append(dst, b[:]...)
	}
	return dst
}

func EncodeColorVertices(dst []byte, vs []ColorVertex) []byte {
	for _, v := range vs {
		dst = append(dst, v.Position[:]...)
		dst = append(dst, v.Color[:]...)
	}
	return dst
}

func DecodeVertices(b []byte) ([]Vertex, error) {
	if len(b)%VertexSize != 0 {
		return nil, errors.Errorf("vertex data length %d not a multiple of %d", len(b), VertexSize)
	}
	vs := make([]Vertex, 0, len(b)/VertexSize)
	for ; len(b) > 0; b = b[VertexSize:] {
		var v Vertex
		copy(v.Position[:], b[:4])
		v.UV[0] = binary.LittleEndian.Uint16(b[4:])
		v.UV[1] = binary.LittleEndian.Uint16(b[6:])
		vs = append(vs, v)
	}
	return vs, nil
}

func DecodeColorVertices(b []byte) ([]ColorVertex, error) {
	if len(b)%VertexSize != 0 {
		return nil, errors.Errorf("vertex data length %d not a multiple of %d", len(b), VertexSize)
	}
	vs := make([]ColorVertex, 0, len(b)/VertexSize)
	for ; len(b) > 0; b = b[VertexSize:] {
		var v ColorVertex
		copy(v.Position[:], b[:4])
		copy(v.Color[:], b[4:8])
		vs = append(vs, v)
	}
	return vs, nil
}
