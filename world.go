package main

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Block types.
const (
	Air = iota
	Grass
	Sand
	Stone
	Brick
	Wood
	Cement
	Dirt
	Plank
	Snow
	Glass
	Cobble
	LightStone
	DarkStone
	Chest
	Leaves
	Cloud
)

type World struct {
	chunks sync.Map

	store    *Store
	remote   *Remote
	textures *TextureRegistry
	gen      func(c *Chunk)

	// loaded chunk y range, used by the sky light column scan
	minY, maxY int64
}

// NewWorld creates an empty world. store and textures may be nil.
func NewWorld(store *Store, textures *TextureRegistry) *World {
	return &World{
		store:    store,
		textures: textures,
		gen:      generate,
	}
}

// SetRemote makes chunk loads and block edits go through a gocraft server.
// Call it before the first chunk is loaded.
func (w *World) SetRemote(r *Remote) {
	w.remote = r
}

func (w *World) Collide(pos mgl32.Vec3) (mgl32.Vec3, bool) {
	// blocks are centered on x+0.5
	half := mgl32.Vec3{0.5, 0.5, 0.5}
	pos = pos.Sub(half)
	x, y, z := pos.X(), pos.Y(), pos.Z()
	nx, ny, nz := round(pos.X()), round(pos.Y()), round(pos.Z())
	const pad = 0.25

	head := Vec3{int(nx), int(ny), int(nz)}
	foot := head.Down()

	stop := false
	for _, b := range []Vec3{foot, head} {
		if IsObstacle(w.Block(b.Left())) && x < nx && nx-x > pad {
			x = nx - pad
		}
		if IsObstacle(w.Block(b.Right())) && x > nx && x-nx > pad {
			x = nx + pad
		}
		if IsObstacle(w.Block(b.Down())) && y < ny && ny-y > pad {
			y = ny - pad
			stop = true
		}
		if IsObstacle(w.Block(b.Up())) && y > ny && y-ny > pad {
			y = ny + pad
			stop = true
		}
		if IsObstacle(w.Block(b.Back())) && z < nz && nz-z > pad {
			z = nz - pad
		}
		if IsObstacle(w.Block(b.Front())) && z > nz && z-nz > pad {
			z = nz + pad
		}
	}
	return mgl32.Vec3{x, y, z}.Add(half), stop
}

func (w *World) HitTest(pos mgl32.Vec3, vec mgl32.Vec3) (*Vec3, *Vec3) {
	var (
		maxLen = float32(8.0)
		step   = float32(0.125)

		block, prev Vec3
		pprev       *Vec3
	)

	for len := float32(0); len < maxLen; len += step {
		block = NearBlock(pos.Add(vec.Mul(len)))
		if prev != block && w.HasBlock(block) {
			return &block, pprev
		}
		prev = block
		pprev = &prev
	}
	return nil, nil
}

// Block returns the block type at id, or -1 when its chunk is not loaded.
func (w *World) Block(id Vec3) int {
	chunk := w.BlockChunk(id)
	if chunk == nil {
		return -1
	}
	return chunk.Block(id)
}

func (w *World) BlockChunk(block Vec3) *Chunk {
	return w.loaded(block.Chunkid())
}

func (w *World) loaded(cid Vec3) *Chunk {
	chunk, ok := w.chunks.Load(cid)
	if !ok {
		return nil
	}
	return chunk.(*Chunk)
}

func IsTransparent(tp int) bool {
	switch tp {
	case -1, Air, Glass, Leaves:
		return true
	default:
		return false
	}
}

func IsObstacle(tp int) bool {
	switch tp {
	case -1:
		return true
	case Air, Cloud:
		return false
	default:
		return true
	}
}

// IsEmissive reports whether the block type gives off block light.
func IsEmissive(tp int) bool {
	return tp == LightStone
}

func (w *World) HasBlock(id Vec3) bool {
	tp := w.Block(id)
	return tp != -1 && tp != 0
}

// Chunk returns the chunk with the given id, loading it if needed: the
// generated terrain first, then local edits from the store, then the
// server's blocks.
func (w *World) Chunk(id Vec3) *Chunk {
	p, ok := w.chunks.Load(id)
	if ok {
		return p.(*Chunk)
	}
	chunk := w.loadChunk(id)
	p, loaded := w.chunks.LoadOrStore(id, chunk)
	if !loaded {
		w.trackY(id.Y)
		// neighbours meshed before this chunk existed treated it as air
		w.touch(faceNeighbors(id)...)
	}
	return p.(*Chunk)
}

func (w *World) loadChunk(id Vec3) *Chunk {
	chunk := NewChunk(id)
	if w.gen != nil {
		w.gen(chunk)
		if n := chunk.Filter(w.known); n != 0 {
			Sugar.Warnf("chunk %v: dropped %d generated blocks without a texture", id, n)
		}
	}
	if w.store != nil {
		dropped := 0
		err := w.store.RangeBlocks(id, func(bid Vec3, tp int) {
			if !w.known(tp) {
				dropped++
				return
			}
			chunk.Add(bid, tp)
		})
		if err != nil {
			Sugar.Warnf("load chunk %v from store: %v", id, err)
		}
		if dropped != 0 {
			Sugar.Warnf("chunk %v: dropped %d stored blocks without a texture", id, dropped)
		}
	}
	if w.remote != nil {
		err := w.remote.FetchChunk(id, func(bid Vec3, tp int) {
			chunk.Add(bid, tp)
			if w.store != nil {
				if err := w.store.UpdateBlock(bid, tp); err != nil {
					Sugar.Warnf("store block %v: %v", bid, err)
				}
			}
		})
		if err != nil {
			Sugar.Warnf("fetch chunk %v: %v", id, err)
		}
	}
	return chunk
}

// known reports whether blocks of type tp can be meshed. Air always can.
func (w *World) known(tp int) bool {
	return tp == 0 || w.textures == nil || w.textures.Has(tp)
}

func (w *World) trackY(y int) {
	for {
		old := atomic.LoadInt64(&w.maxY)
		if int64(y) <= old || atomic.CompareAndSwapInt64(&w.maxY, old, int64(y)) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&w.minY)
		if int64(y) >= old || atomic.CompareAndSwapInt64(&w.minY, old, int64(y)) {
			break
		}
	}
}

func (w *World) Chunks(ids []Vec3) []*Chunk {
	ch := make(chan *Chunk)
	var chunks []*Chunk
	for _, id := range ids {
		id := id
		go func() {
			ch <- w.Chunk(id)
		}()
	}
	for range ids {
		chunk := <-ch
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// UpdateBlock places tp at id, zero removes the block. The edit is saved
// to the store and sent to the server. Types without a texture are dropped.
func (w *World) UpdateBlock(id Vec3, tp int) {
	if !w.applyBlock(id, tp) {
		return
	}
	if w.remote != nil {
		if err := w.remote.UpdateBlock(id, tp); err != nil {
			Sugar.Warnf("send block %v: %v", id, err)
		}
	}
}

// applyBlock is UpdateBlock without telling the server, for edits that
// came from it.
func (w *World) applyBlock(id Vec3, tp int) bool {
	if !w.known(tp) {
		Sugar.Warnf("drop block %v with unknown type %d", id, tp)
		return false
	}
	cid := id.Chunkid()
	chunk := w.Chunk(cid)
	old := chunk.Block(id)
	chunk.Add(id, tp)
	if w.store != nil {
		if err := w.store.UpdateBlock(id, tp); err != nil {
			Sugar.Warnf("store block %v: %v", id, err)
		}
	}
	w.dirtyBlock(id, old, tp)
	return true
}

// dirtyBlock bumps the version of every other loaded chunk whose mesh
// depends on the block at id.
func (w *World) dirtyBlock(id Vec3, old, tp int) {
	cid := id.Chunkid()
	var ids []Vec3
	for _, n := range []Vec3{id.Left(), id.Right(), id.Up(), id.Down(), id.Front(), id.Back()} {
		if n.Chunkid() != cid {
			ids = append(ids, n.Chunkid())
		}
	}
	if IsEmissive(old) || IsEmissive(tp) {
		ids = append(ids, chunkCube(cid)...)
	}
	if IsTransparent(old) != IsTransparent(tp) {
		// sky light below the block and beside its column
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				for y := atomic.LoadInt64(&w.minY); y <= int64(cid.Y); y++ {
					ids = append(ids, Vec3{cid.X + dx, int(y), cid.Z + dz})
				}
			}
		}
	}
	w.touch(ids...)
}

func (w *World) touch(ids ...Vec3) {
	for _, id := range ids {
		if c := w.loaded(id); c != nil {
			c.UpdateVersion()
		}
	}
}

func faceNeighbors(cid Vec3) []Vec3 {
	return []Vec3{cid.Left(), cid.Right(), cid.Up(), cid.Down(), cid.Front(), cid.Back()}
}

// chunkCube returns the 3x3x3 chunk neighbourhood of cid, cid included.
func chunkCube(cid Vec3) []Vec3 {
	ids := make([]Vec3, 0, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				ids = append(ids, Vec3{cid.X + dx, cid.Y + dy, cid.Z + dz})
			}
		}
	}
	return ids
}
