package mesh

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Format selects the vertex format a Mesher emits.
type Format uint8

const (
	Textured Format = iota
	FlatColor
)

func (f Format) String() string {
	switch f {
	case Textured:
		return "textured"
	case FlatColor:
		return "flat"
	}
	return "unknown"
}

// ParseFormat is the inverse of Format.String.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "textured", "":
		return Textured, nil
	case "flat":
		return FlatColor, nil
	}
	return 0, errors.Errorf("unknown vertex format %q", s)
}

// Layout tells a Factory how to read the vertex bytes.
type Layout struct {
	Format Format
	Stride int
}

type Primitive uint8

const (
	TriangleList Primitive = iota
)

// Slice is the draw range of a vertex buffer. There is no index buffer.
type Slice struct {
	Start     int
	Count     int
	Primitive Primitive
}

// SliceOf returns the slice drawing every vertex of data.
func SliceOf(data []byte, layout Layout) Slice {
	return Slice{Count: len(data) / layout.Stride, Primitive: TriangleList}
}

// Buffer is a GPU resident vertex buffer.
type Buffer interface {
	Release()
}

// Factory creates GPU vertex buffers. data is only valid during the call.
type Factory interface {
	CreateVertexBufferWithSlice(data []byte, layout Layout) (Buffer, Slice, error)
}

// Model is the renderable result of meshing one chunk.
type Model struct {
	Buffer    Buffer
	Slice     Slice
	Transform mgl32.Mat4
}

func (m *Model) Faces() int {
	return m.Slice.Count / 6
}

func (m *Model) Release() {
	if m.Buffer != nil {
		m.Buffer.Release()
		m.Buffer = nil
	}
}

// Mesher turns chunks into models. It is safe for concurrent use; every
// Build owns its vertex accumulator.
type Mesher struct {
	format Format
	atlas  Atlas
	log    *zap.Logger

	verts  sync.Pool
	colors sync.Pool
	bytes  sync.Pool
}

type Option func(*Mesher)

func WithFormat(f Format) Option {
	return func(m *Mesher) { m.format = f }
}

func WithAtlas(a Atlas) Option {
	return func(m *Mesher) { m.atlas = a }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Mesher) { m.log = l }
}

func New(opts ...Option) *Mesher {
	m := &Mesher{
		format: Textured,
		atlas:  DefaultAtlas,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.verts.New = func() interface{} {
		s := make([]Vertex, 0, 6*6*64)
		return &s
	}
	m.colors.New = func() interface{} {
		s := make([]ColorVertex, 0, 6*6*64)
		return &s
	}
	m.bytes.New = func() interface{} {
		s := make([]byte, 0, VertexSize*6*6*64)
		return &s
	}
	return m
}

func (m *Mesher) Format() Format {
	return m.format
}

func (m *Mesher) Atlas() Atlas {
	return m.atlas
}

func (m *Mesher) Layout() Layout {
	return Layout{Format: m.format, Stride: VertexSize}
}

// Append appends the encoded vertices of every visible face of c to dst.
// It panics if r has no texture for a non-empty voxel.
func (m *Mesher) Append(dst []byte, c Chunk, r Registry) []byte {
	if m.format == FlatColor {
		p := m.colors.Get().(*[]ColorVertex)
		vs := m.appendColor((*p)[:0], c, r)
		dst = EncodeColorVertices(dst, vs)
		*p = vs[:0]
		m.colors.Put(p)
		return dst
	}
	p := m.verts.Get().(*[]Vertex)
	vs := m.appendTextured((*p)[:0], c, r)
	dst = EncodeVertices(dst, vs)
	*p = vs[:0]
	m.verts.Put(p)
	return dst
}

func (m *Mesher) appendTextured(vs []Vertex, c Chunk, r Registry) []Vertex {
	side := c.Side()
	span := m.atlas.CellSpan() - 1
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				v := c.Voxel(x, y, z)
				if v.IsEmpty() {
					continue
				}
				tex := m.lookup(r, v.ID, c, x, y, z)
				origin := [3]uint8{uint8(x), uint8(y), uint8(z)}
				for _, f := range Faces {
					if !v.IsVisible(f) {
						continue
					}
					uv := m.atlas.Origin(tex.Face(f))
					light := v.FaceLight(f)
					switch f {
					case Top:
						vs = AppendTop(vs, origin, uv, span, light)
					case Bottom:
						vs = AppendBottom(vs, origin, uv, span, light)
					case Left:
						vs = AppendLeft(vs, origin, uv, span, light)
					case Right:
						vs = AppendRight(vs, origin, uv, span, light)
					case Front:
						vs = AppendFront(vs, origin, uv, span, light)
					case Back:
						vs = AppendBack(vs, origin, uv, span, light)
					}
				}
			}
		}
	}
	return vs
}

func (m *Mesher) appendColor(vs []ColorVertex, c Chunk, r Registry) []ColorVertex {
	side := c.Side()
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				v := c.Voxel(x, y, z)
				if v.IsEmpty() {
					continue
				}
				tex := m.lookup(r, v.ID, c, x, y, z)
				origin := [3]uint8{uint8(x), uint8(y), uint8(z)}
				for _, f := range Faces {
					if !v.IsVisible(f) {
						continue
					}
					col := Darken(tex.Color, FaceShade(f))
					vs = AppendColorFace(vs, f, origin, [4]uint8{col.R, col.G, col.B, col.A}, v.FaceLight(f))
				}
			}
		}
	}
	return vs
}

func (m *Mesher) lookup(r Registry, id BlockID, c Chunk, x, y, z int) *BlockTexture {
	tex, ok := r.Lookup(id)
	if !ok || tex == nil {
		m.log.Panic("no texture for block",
			zap.Uint16("id", uint16(id)),
			zap.Any("chunk", c.Origin()),
			zap.Int("x", x), zap.Int("y", y), zap.Int("z", z))
	}
	return tex
}

// Build meshes c and uploads the vertices through f. A chunk without any
// visible face yields a nil model and a nil error.
func (m *Mesher) Build(f Factory, c Chunk, r Registry) (*Model, error) {
	p := m.bytes.Get().(*[]byte)
	defer m.bytes.Put(p)

	data := m.Append((*p)[:0], c, r)
	*p = data[:0]
	if len(data) == 0 {
		return nil, nil
	}

	buf, slice, err := f.CreateVertexBufferWithSlice(data, m.Layout())
	if err != nil {
		return nil, errors.Wrapf(err, "create vertex buffer for chunk %v", c.Origin())
	}
	m.log.Debug("chunk meshed",
		zap.Any("origin", c.Origin()),
		zap.Int("faces", slice.Count/6),
		zap.Int("bytes", len(data)))
	return &Model{
		Buffer:    buf,
		Slice:     slice,
		Transform: Translation(c.Origin()),
	}, nil
}
