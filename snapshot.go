package main

import (
	"sync/atomic"

	"github.com/icexin/chunkmesh/mesh"
)

const (
	maxLight = 15
	// no opaque block in the column
	noHeight = -1 << 31
)

// Snapshot is an immutable copy of a chunk with face visibility and light
// resolved, ready to be meshed off the world's locks.
type Snapshot struct {
	id      Vec3
	origin  mesh.Pos
	version int64
	voxels  []mesh.Voxel
	faces   int
}

func (s *Snapshot) Id() Vec3 {
	return s.id
}

func (s *Snapshot) Version() int64 {
	return s.version
}

func (s *Snapshot) Origin() mesh.Pos {
	return s.origin
}

func (s *Snapshot) Side() int {
	return ChunkWidth
}

func (s *Snapshot) Voxel(x, y, z int) mesh.Voxel {
	return s.voxels[blockIndex(x, y, z)]
}

// Faces is the number of visible faces.
func (s *Snapshot) Faces() int {
	return s.faces
}

// Bake resolves visibility and light of every block in c. A face is
// visible when the block beside it is transparent and of another type;
// blocks in chunks that are not loaded count as transparent.
func (w *World) Bake(c *Chunk) *Snapshot {
	var blocks [ChunkWidth * ChunkWidth * ChunkWidth]uint16
	version := c.copyBlocks(&blocks)
	o := c.Origin()
	s := &Snapshot{
		id:      c.Id(),
		origin:  o,
		version: version,
		voxels:  make([]mesh.Voxel, len(blocks)),
	}

	block := func(p Vec3) int {
		if p.X >= 0 && p.X < ChunkWidth && p.Y >= 0 && p.Y < ChunkWidth && p.Z >= 0 && p.Z < ChunkWidth {
			return int(blocks[blockIndex(p.X, p.Y, p.Z)])
		}
		return w.Block(Vec3{o.X + p.X, o.Y + p.Y, o.Z + p.Z})
	}

	var (
		heights  []int
		emitters []Vec3
	)
	for x := 0; x < ChunkWidth; x++ {
		for y := 0; y < ChunkWidth; y++ {
			for z := 0; z < ChunkWidth; z++ {
				i := blockIndex(x, y, z)
				tp := int(blocks[i])
				if tp == 0 {
					continue
				}
				if heights == nil {
					heights = w.columnHeights(c.Id())
					emitters = w.emittersAround(c.Id())
				}
				v := &s.voxels[i]
				v.ID = mesh.BlockID(tp)
				p := Vec3{x, y, z}
				for _, f := range mesh.Faces {
					n := p.Neighbor(f)
					nb := block(n)
					if !IsTransparent(nb) || nb == tp {
						continue
					}
					v.SetVisible(f, true)
					s.faces++
					wp := Vec3{o.X + n.X, o.Y + n.Y, o.Z + n.Z}
					v.Light[f] = mesh.LightLevel{
						Sky:   skyLight(heights[(n.X+1)*(ChunkWidth+2)+n.Z+1], wp.Y),
						Block: blockLight(emitters, wp),
					}
				}
			}
		}
	}
	return s
}

// skyLight is full above the column's highest opaque block and fades by one
// per block below it.
func skyLight(height, y int) uint8 {
	if y > height {
		return maxLight
	}
	l := maxLight - (height - y)
	if l < 0 {
		return 0
	}
	return uint8(l)
}

func blockLight(emitters []Vec3, p Vec3) uint8 {
	best := 0
	for _, e := range emitters {
		l := maxLight - (iabs(p.X-e.X) + iabs(p.Y-e.Y) + iabs(p.Z-e.Z))
		if l > best {
			best = l
		}
	}
	return uint8(best)
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// columnHeights returns the world y of the highest opaque loaded block of
// every column of the chunk and the ring of columns around it, indexed by
// (x+1)*(ChunkWidth+2) + z+1 in chunk local coordinates.
func (w *World) columnHeights(cid Vec3) []int {
	const side = ChunkWidth + 2
	heights := make([]int, side*side)
	cache := make(map[Vec3]*Chunk)
	lookup := func(id Vec3) *Chunk {
		c, ok := cache[id]
		if !ok {
			c = w.loaded(id)
			cache[id] = c
		}
		return c
	}

	minY, maxY := int(atomic.LoadInt64(&w.minY)), int(atomic.LoadInt64(&w.maxY))
	ox, oz := cid.X*ChunkWidth, cid.Z*ChunkWidth
	for x := -1; x <= ChunkWidth; x++ {
		for z := -1; z <= ChunkWidth; z++ {
			h := noHeight
			wx, wz := ox+x, oz+z
			col := Vec3{wx, 0, wz}.Chunkid()
			lx, lz := wx-col.X*ChunkWidth, wz-col.Z*ChunkWidth
			for cy := maxY; cy >= minY; cy-- {
				c := lookup(Vec3{col.X, cy, col.Z})
				if c == nil {
					continue
				}
				if t := c.Top(lx, lz); t >= 0 {
					h = cy*ChunkWidth + t
					break
				}
			}
			heights[(x+1)*side+z+1] = h
		}
	}
	return heights
}

// emittersAround returns every light emitter in the 3x3x3 chunk
// neighbourhood of cid.
func (w *World) emittersAround(cid Vec3) []Vec3 {
	var ret []Vec3
	for _, id := range chunkCube(cid) {
		if c := w.loaded(id); c != nil {
			ret = append(ret, c.Emitters()...)
		}
	}
	return ret
}
