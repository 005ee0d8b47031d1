package mesh

import (
	"bytes"
	"errors"
	"image/color"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type testChunk struct {
	origin Pos
	side   int
	voxels []Voxel
}

func newTestChunk(origin Pos, side int) *testChunk {
	return &testChunk{origin: origin, side: side, voxels: make([]Voxel, side*side*side)}
}

func (c *testChunk) Origin() Pos { return c.origin }
func (c *testChunk) Side() int   { return c.side }

func (c *testChunk) Voxel(x, y, z int) Voxel {
	return c.voxels[(x*c.side+y)*c.side+z]
}

func (c *testChunk) set(x, y, z int, v Voxel) {
	c.voxels[(x*c.side+y)*c.side+z] = v
}

type testRegistry map[BlockID]*BlockTexture

func (r testRegistry) Lookup(id BlockID) (*BlockTexture, bool) {
	t, ok := r[id]
	return t, ok
}

type recordBuffer struct {
	released bool
}

func (b *recordBuffer) Release() { b.released = true }

type recordFactory struct {
	mu      sync.Mutex
	calls   int
	data    []byte
	layout  Layout
	buffers []*recordBuffer
	err     error
}

func (f *recordFactory) CreateVertexBufferWithSlice(data []byte, layout Layout) (Buffer, Slice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, Slice{}, f.err
	}
	f.data = append([]byte(nil), data...)
	f.layout = layout
	b := &recordBuffer{}
	f.buffers = append(f.buffers, b)
	return b, SliceOf(data, layout), nil
}

func (f *recordFactory) vertices(t *testing.T) []Vertex {
	t.Helper()
	vs, err := DecodeVertices(f.data)
	if err != nil {
		t.Fatal(err)
	}
	return vs
}

var allVisible = uint8(1<<len(Faces) - 1)

func solid(id BlockID) Voxel {
	return Voxel{ID: id, Visible: allVisible}
}

func stoneRegistry() testRegistry {
	return testRegistry{
		1: {Color: color.RGBA{R: 128, G: 128, B: 128, A: 255}},
	}
}

func TestBuildEmptyChunk(t *testing.T) {
	f := &recordFactory{}
	m, err := New().Build(f, newTestChunk(Pos{}, 4), stoneRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("empty chunk: got model with %d faces", m.Faces())
	}
	if f.calls != 0 {
		t.Fatalf("empty chunk: factory called %d times", f.calls)
	}
}

func TestBuildNoVisibleFaces(t *testing.T) {
	c := newTestChunk(Pos{}, 4)
	c.set(1, 1, 1, Voxel{ID: 1})
	f := &recordFactory{}
	m, err := New().Build(f, c, stoneRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil || f.calls != 0 {
		t.Fatalf("hidden voxel: got model %v, %d factory calls", m, f.calls)
	}
}

func TestBuildFaceCount(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := newTestChunk(Pos{X: 32}, 16)
	want := 0
	for x := 0; x < c.side; x++ {
		for y := 0; y < c.side; y++ {
			for z := 0; z < c.side; z++ {
				if rng.Intn(3) != 0 {
					continue
				}
				v := Voxel{ID: 1, Visible: uint8(rng.Intn(64))}
				if rng.Intn(4) == 0 {
					// flags on an empty voxel never produce faces
					v.ID = 0
				}
				c.set(x, y, z, v)
				if v.ID == 0 {
					continue
				}
				for _, f := range Faces {
					if v.IsVisible(f) {
						want++
					}
				}
			}
		}
	}

	f := &recordFactory{}
	m, err := New().Build(f, c, stoneRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if m.Faces() != want {
		t.Fatalf("faces: got %d, want %d", m.Faces(), want)
	}
	if len(f.data)%(6*VertexSize) != 0 {
		t.Fatalf("vertex bytes %d not a multiple of one face", len(f.data))
	}
	if m.Slice.Count != want*6 || m.Slice.Primitive != TriangleList || m.Slice.Start != 0 {
		t.Fatalf("slice: got %+v", m.Slice)
	}
	if f.layout != (Layout{Format: Textured, Stride: VertexSize}) {
		t.Fatalf("layout: got %+v", f.layout)
	}
}

func TestTopFaceAtOrigin(t *testing.T) {
	c := newTestChunk(Pos{}, 2)
	v := Voxel{ID: 1}
	v.SetVisible(Top, true)
	c.set(0, 0, 0, v)

	f := &recordFactory{}
	if _, err := New().Build(f, c, stoneRegistry()); err != nil {
		t.Fatal(err)
	}
	want := [][3]uint8{{0, 1, 1}, {1, 1, 1}, {0, 1, 0}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}}
	vs := f.vertices(t)
	if len(vs) != len(want) {
		t.Fatalf("got %d vertices, want %d", len(vs), len(want))
	}
	for i, v := range vs {
		got := [3]uint8{v.Position[0], v.Position[1], v.Position[2]}
		if got != want[i] {
			t.Errorf("vertex %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestFaceWinding(t *testing.T) {
	origin := [3]uint8{3, 5, 7}
	for _, f := range Faces {
		vs := AppendFace(nil, f, origin, [2]uint16{}, 1, LightLevel{})
		if len(vs) != 6 {
			t.Fatalf("%v: got %d vertices", f, len(vs))
		}
		n := f.Normal()
		normal := mgl32.Vec3{float32(n[0]), float32(n[1]), float32(n[2])}

		// every corner lies on the face plane
		axis, offset := 0, 0
		for i, c := range n {
			if c != 0 {
				axis = i
				if c > 0 {
					offset = 1
				}
			}
		}
		for i, v := range vs {
			if int(v.Position[axis]) != int(origin[axis])+offset {
				t.Errorf("%v vertex %d: %v off plane", f, i, v.Position)
			}
			for k := 0; k < 3; k++ {
				d := int(v.Position[k]) - int(origin[k])
				if d < 0 || d > 1 {
					t.Errorf("%v vertex %d: %v outside voxel", f, i, v.Position)
				}
			}
		}

		for tri := 0; tri < 2; tri++ {
			a, b, c := pos(vs[tri*3]), pos(vs[tri*3+1]), pos(vs[tri*3+2])
			cross := b.Sub(a).Cross(c.Sub(a))
			if !cross.ApproxEqual(normal) {
				t.Errorf("%v triangle %d: winding normal %v, want %v", f, tri, cross, normal)
			}
		}
	}
}

func pos(v Vertex) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.Position[0]), float32(v.Position[1]), float32(v.Position[2])}
}

func TestFaceRoutinesFixedOrder(t *testing.T) {
	// regression tables: corner positions relative to the origin, then the
	// atlas cell edge each corner samples
	want := map[Face][6][3]uint8{
		Top:    {{0, 1, 1}, {1, 1, 1}, {0, 1, 0}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
		Bottom: {{0, 0, 1}, {0, 0, 0}, {1, 0, 1}, {0, 0, 0}, {1, 0, 0}, {1, 0, 1}},
		Left:   {{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
		Right:  {{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
		Front:  {{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		Back:   {{0, 0, 0}, {0, 1, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
	}
	wantUV := map[Face][6][2]uint16{
		Top:    {{0, 1}, {1, 1}, {0, 0}, {1, 1}, {1, 0}, {0, 0}},
		Bottom: {{0, 1}, {0, 0}, {1, 1}, {0, 0}, {1, 0}, {1, 1}},
		Left:   {{0, 0}, {1, 0}, {0, 1}, {1, 0}, {1, 1}, {0, 1}},
		Right:  {{0, 0}, {0, 1}, {1, 0}, {0, 1}, {1, 1}, {1, 0}},
		Front:  {{0, 0}, {1, 0}, {0, 1}, {1, 0}, {1, 1}, {0, 1}},
		Back:   {{0, 0}, {0, 1}, {1, 0}, {0, 1}, {1, 1}, {1, 0}},
	}
	routines := map[Face]func([]Vertex, [3]uint8, [2]uint16, uint16, LightLevel) []Vertex{
		Top: AppendTop, Bottom: AppendBottom, Left: AppendLeft,
		Right: AppendRight, Front: AppendFront, Back: AppendBack,
	}
	const span = 7
	for f, routine := range routines {
		vs := routine(nil, [3]uint8{10, 20, 30}, [2]uint16{100, 200}, span, LightLevel{})
		if len(vs) != 6 {
			t.Fatalf("%v: got %d vertices", f, len(vs))
		}
		for i, v := range vs {
			got := [3]uint8{v.Position[0] - 10, v.Position[1] - 20, v.Position[2] - 30}
			if got != want[f][i] {
				t.Errorf("%v vertex %d: got %v, want %v", f, i, got, want[f][i])
			}
			uv := [2]uint16{(v.UV[0] - 100) / span, (v.UV[1] - 200) / span}
			if uv != wantUV[f][i] || (v.UV[0]-100)%span != 0 || (v.UV[1]-200)%span != 0 {
				t.Errorf("%v vertex %d: uv %v, want cell edge %v", f, i, v.UV, wantUV[f][i])
			}
		}
	}
}

func TestTextureCoordinates(t *testing.T) {
	span := DefaultAtlas.CellSpan()
	if span != 16384 {
		t.Fatalf("cell span: got %d, want 16384", span)
	}
	c := newTestChunk(Pos{}, 1)
	v := Voxel{ID: 1}
	v.SetVisible(Front, true)
	c.set(0, 0, 0, v)
	tex := &BlockTexture{}
	tex.Faces[Front] = AtlasCoord{X: 2, Y: 3}

	f := &recordFactory{}
	if _, err := New().Build(f, c, testRegistry{1: tex}); err != nil {
		t.Fatal(err)
	}
	vs := f.vertices(t)
	origin := [2]uint16{2 * span, 3 * span}
	if vs[0].UV != origin {
		t.Fatalf("origin corner: got %v, want %v", vs[0].UV, origin)
	}
	// front: corner 4 is the opposite corner, 1 and 2 the single axis ones
	if want := [2]uint16{origin[0] + span - 1, origin[1] + span - 1}; vs[4].UV != want {
		t.Errorf("opposite corner: got %v, want %v", vs[4].UV, want)
	}
	if want := [2]uint16{origin[0] + span - 1, origin[1]}; vs[1].UV != want {
		t.Errorf("u corner: got %v, want %v", vs[1].UV, want)
	}
	if want := [2]uint16{origin[0], origin[1] + span - 1}; vs[2].UV != want {
		t.Errorf("v corner: got %v, want %v", vs[2].UV, want)
	}
}

func TestBuildLight(t *testing.T) {
	c := newTestChunk(Pos{}, 1)
	v := Voxel{ID: 1}
	v.SetVisible(Left, true)
	v.SetVisible(Right, true)
	v.Light[Left] = LightLevel{Sky: 5, Block: 9}
	v.Light[Right] = LightLevel{Sky: 16, Block: 3}
	c.set(0, 0, 0, v)

	f := &recordFactory{}
	if _, err := New().Build(f, c, stoneRegistry()); err != nil {
		t.Fatal(err)
	}
	vs := f.vertices(t)
	// faces are emitted in Faces order: left first
	for i := 0; i < 6; i++ {
		if vs[i].Position[3] != 0x59 {
			t.Errorf("left vertex %d: light %#x, want 0x59", i, vs[i].Position[3])
		}
	}
	for i := 6; i < 12; i++ {
		if vs[i].Position[3] != 0x03 {
			t.Errorf("right vertex %d: light %#x, want 0x03", i, vs[i].Position[3])
		}
	}
}

func TestBuildTranslation(t *testing.T) {
	for _, origin := range []Pos{{0, 0, 0}, {16, 0, 32}, {-32, -64, 96}} {
		c := newTestChunk(origin, 1)
		c.set(0, 0, 0, solid(1))
		m, err := New().Build(&recordFactory{}, c, stoneRegistry())
		if err != nil {
			t.Fatal(err)
		}
		want := mgl32.Ident4()
		want.SetCol(3, mgl32.Vec4{float32(origin.X), float32(origin.Y), float32(origin.Z), 1})
		if m.Transform != want {
			t.Errorf("origin %v: transform %v, want %v", origin, m.Transform, want)
		}
		if m.Transform.Mat3() != mgl32.Ident3() {
			t.Errorf("origin %v: transform has rotation or scale", origin)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newTestChunk(Pos{Y: 32}, 8)
	for i := range c.voxels {
		if rng.Intn(2) == 0 {
			c.voxels[i] = Voxel{ID: 1, Visible: uint8(rng.Intn(64))}
			c.voxels[i].Light[Top] = LightLevel{Sky: uint8(rng.Intn(16)), Block: uint8(rng.Intn(16))}
		}
	}
	m := New()
	f1, f2 := &recordFactory{}, &recordFactory{}
	if _, err := m.Build(f1, c, stoneRegistry()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Build(f2, c, stoneRegistry()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f1.data, f2.data) {
		t.Fatal("two builds of the same chunk differ")
	}
}

func TestBuildConcurrent(t *testing.T) {
	c := newTestChunk(Pos{}, 8)
	for i := range c.voxels {
		if i%3 == 0 {
			c.voxels[i] = solid(1)
		}
	}
	m := New()
	ref := &recordFactory{}
	if _, err := m.Build(ref, c, stoneRegistry()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]*recordFactory, 8)
	for i := range results {
		results[i] = &recordFactory{}
		wg.Add(1)
		go func(f *recordFactory) {
			defer wg.Done()
			if _, err := m.Build(f, c, stoneRegistry()); err != nil {
				t.Error(err)
			}
		}(results[i])
	}
	wg.Wait()
	for i, f := range results {
		if !bytes.Equal(f.data, ref.data) {
			t.Errorf("build %d differs from the sequential build", i)
		}
	}
}

func TestBuildUnknownBlockPanics(t *testing.T) {
	c := newTestChunk(Pos{}, 2)
	c.set(1, 0, 1, solid(7))
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for unknown block id")
		}
		if !strings.Contains(r.(string), "no texture") {
			t.Fatalf("panic message: %v", r)
		}
	}()
	New().Build(&recordFactory{}, c, stoneRegistry())
}

func TestBuildFactoryError(t *testing.T) {
	c := newTestChunk(Pos{}, 1)
	c.set(0, 0, 0, solid(1))
	boom := errors.New("out of memory")
	_, err := New().Build(&recordFactory{err: boom}, c, stoneRegistry())
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("got %v, want wrapped factory error", err)
	}
}

func TestBuildFlatColor(t *testing.T) {
	c := newTestChunk(Pos{}, 1)
	c.set(0, 0, 0, solid(1))
	f := &recordFactory{}
	m, err := New(WithFormat(FlatColor)).Build(f, c, stoneRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if m.Faces() != 6 {
		t.Fatalf("faces: got %d, want 6", m.Faces())
	}
	if f.layout.Format != FlatColor || f.layout.Stride != VertexSize {
		t.Fatalf("layout: got %+v", f.layout)
	}
	vs, err := DecodeColorVertices(f.data)
	if err != nil {
		t.Fatal(err)
	}
	for i, face := range Faces {
		want := Darken(color.RGBA{R: 128, G: 128, B: 128, A: 255}, FaceShade(face))
		got := vs[i*6].Color
		if got != [4]uint8{want.R, want.G, want.B, want.A} {
			t.Errorf("%v: color %v, want %v", face, got, want)
		}
	}
}

func TestModelRelease(t *testing.T) {
	c := newTestChunk(Pos{}, 1)
	c.set(0, 0, 0, solid(1))
	f := &recordFactory{}
	m, err := New().Build(f, c, stoneRegistry())
	if err != nil {
		t.Fatal(err)
	}
	m.Release()
	m.Release()
	if !f.buffers[0].released {
		t.Fatal("buffer not released")
	}
}

func BenchmarkBuild(b *testing.B) {
	c := newTestChunk(Pos{}, 32)
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			for y := 0; y < 16; y++ {
				v := Voxel{ID: 1}
				if y == 15 {
					v.SetVisible(Top, true)
				}
				c.set(x, y, z, v)
			}
		}
	}
	m := New()
	r := stoneRegistry()
	f := &recordFactory{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Build(f, c, r)
	}
}
