package main

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/icexin/chunkmesh/mesh"
)

const (
	ChunkWidth = 32
)

// versionSeq hands out chunk versions. Two edits inside the same clock tick
// must still produce different versions.
var versionSeq int64

func nextVersion() int64 {
	return atomic.AddInt64(&versionSeq, 1)
}

type Vec3 struct {
	X, Y, Z int
}

func (v Vec3) Left() Vec3 {
	return Vec3{v.X - 1, v.Y, v.Z}
}
func (v Vec3) Right() Vec3 {
	return Vec3{v.X + 1, v.Y, v.Z}
}
func (v Vec3) Up() Vec3 {
	return Vec3{v.X, v.Y + 1, v.Z}
}
func (v Vec3) Down() Vec3 {
	return Vec3{v.X, v.Y - 1, v.Z}
}
func (v Vec3) Front() Vec3 {
	return Vec3{v.X, v.Y, v.Z + 1}
}
func (v Vec3) Back() Vec3 {
	return Vec3{v.X, v.Y, v.Z - 1}
}

// Neighbor returns the block on the other side of face f.
func (v Vec3) Neighbor(f mesh.Face) Vec3 {
	n := f.Normal()
	return Vec3{v.X + n[0], v.Y + n[1], v.Z + n[2]}
}

func (v Vec3) Chunkid() Vec3 {
	return Vec3{
		floorDiv(v.X, ChunkWidth),
		floorDiv(v.Y, ChunkWidth),
		floorDiv(v.Z, ChunkWidth),
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// NearBlock returns the block containing pos. Blocks span [x, x+1) on every
// axis.
func NearBlock(pos mgl32.Vec3) Vec3 {
	return Vec3{
		int(math.Floor(float64(pos.X()))),
		int(math.Floor(float64(pos.Y()))),
		int(math.Floor(float64(pos.Z()))),
	}
}

type Chunk struct {
	id Vec3

	mu       sync.RWMutex
	blocks   [ChunkWidth * ChunkWidth * ChunkWidth]uint16
	count    int
	emitters map[Vec3]struct{}
	// highest opaque local y per column, -1 if none
	heights [ChunkWidth * ChunkWidth]int8

	version int64
}

func NewChunk(id Vec3) *Chunk {
	c := &Chunk{
		id:       id,
		emitters: make(map[Vec3]struct{}),
		version:  nextVersion(),
	}
	for i := range c.heights {
		c.heights[i] = -1
	}
	return c
}

func (c *Chunk) Version() int64 {
	return atomic.LoadInt64(&c.version)
}

// UpdateVersion marks the chunk as changed so that cached meshes get rebuilt.
func (c *Chunk) UpdateVersion() {
	atomic.StoreInt64(&c.version, nextVersion())
}

func (c *Chunk) Id() Vec3 {
	return c.id
}

// Origin is the world position of the chunk's minimum corner.
func (c *Chunk) Origin() mesh.Pos {
	return mesh.Pos{X: c.id.X * ChunkWidth, Y: c.id.Y * ChunkWidth, Z: c.id.Z * ChunkWidth}
}

func (c *Chunk) local(id Vec3) (int, int, int) {
	if id.Chunkid() != c.id {
		Sugar.Panicf("id %v chunk %v", id, c.id)
	}
	return id.X - c.id.X*ChunkWidth, id.Y - c.id.Y*ChunkWidth, id.Z - c.id.Z*ChunkWidth
}

func blockIndex(x, y, z int) int {
	return (x*ChunkWidth+y)*ChunkWidth + z
}

func (c *Chunk) Block(id Vec3) int {
	x, y, z := c.local(id)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(c.blocks[blockIndex(x, y, z)])
}

func (c *Chunk) Add(id Vec3, w int) {
	if w == 0 {
		c.Del(id)
		return
	}
	x, y, z := c.local(id)
	c.mu.Lock()
	c.set(x, y, z, w)
	c.mu.Unlock()
	c.UpdateVersion()
}

func (c *Chunk) Del(id Vec3) {
	x, y, z := c.local(id)
	c.mu.Lock()
	c.set(x, y, z, 0)
	c.mu.Unlock()
	c.UpdateVersion()
}

// set stores w at a local position. Caller holds the write lock.
func (c *Chunk) set(x, y, z, w int) {
	i := blockIndex(x, y, z)
	old := int(c.blocks[i])
	if old == w {
		return
	}
	c.blocks[i] = uint16(w)
	switch {
	case old == 0:
		c.count++
	case w == 0:
		c.count--
	}

	p := Vec3{x, y, z}
	if IsEmissive(old) {
		delete(c.emitters, p)
	}
	if IsEmissive(w) {
		c.emitters[p] = struct{}{}
	}

	col := x*ChunkWidth + z
	h := int(c.heights[col])
	switch {
	case !IsTransparent(w) && y > h:
		c.heights[col] = int8(y)
	case IsTransparent(w) && y == h:
		c.heights[col] = -1
		for yy := y - 1; yy >= 0; yy-- {
			if !IsTransparent(int(c.blocks[blockIndex(x, yy, z)])) {
				c.heights[col] = int8(yy)
				break
			}
		}
	}
}

// Filter removes every block whose type fails keep and returns how many
// were removed.
func (c *Chunk) Filter(keep func(w int) bool) int {
	c.mu.Lock()
	n := 0
	for x := 0; x < ChunkWidth; x++ {
		for y := 0; y < ChunkWidth; y++ {
			for z := 0; z < ChunkWidth; z++ {
				w := int(c.blocks[blockIndex(x, y, z)])
				if w != 0 && !keep(w) {
					c.set(x, y, z, 0)
					n++
				}
			}
		}
	}
	c.mu.Unlock()
	if n != 0 {
		c.UpdateVersion()
	}
	return n
}

// Len is the number of non air blocks.
func (c *Chunk) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Top returns the local y of the highest opaque block in column x, z, or -1.
func (c *Chunk) Top(x, z int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int(c.heights[x*ChunkWidth+z])
}

// Emitters returns the world positions of the light emitting blocks.
func (c *Chunk) Emitters() []Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o := c.Origin()
	ret := make([]Vec3, 0, len(c.emitters))
	for p := range c.emitters {
		ret = append(ret, Vec3{o.X + p.X, o.Y + p.Y, o.Z + p.Z})
	}
	return ret
}

// RangeBlocks calls f for every non air block. f must not modify c.
func (c *Chunk) RangeBlocks(f func(id Vec3, w int)) {
	o := c.Origin()
	c.mu.RLock()
	defer c.mu.RUnlock()
	for x := 0; x < ChunkWidth; x++ {
		for y := 0; y < ChunkWidth; y++ {
			for z := 0; z < ChunkWidth; z++ {
				w := c.blocks[blockIndex(x, y, z)]
				if w != 0 {
					f(Vec3{o.X + x, o.Y + y, o.Z + z}, int(w))
				}
			}
		}
	}
}

// copyBlocks returns the chunk's blocks and version as of one instant.
func (c *Chunk) copyBlocks(dst *[ChunkWidth * ChunkWidth * ChunkWidth]uint16) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	*dst = c.blocks
	return c.Version()
}
