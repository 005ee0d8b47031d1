package main

import (
	"sort"
	"sync"
	"time"

	"github.com/faiface/glhf"
	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/icexin/chunkmesh/mesh"
)

// worldChunksHigh is the number of chunk layers, from y=0 up, that the
// viewer keeps meshed.
const worldChunksHigh = 3

// block shader uniforms
const (
	uniformMatrix = iota
	uniformModel
	uniformCamera
	uniformFogdis
)

type BlockRender struct {
	shader  *glhf.Shader
	texture *glhf.Texture
	game    *Game
	cfg     RenderConfig

	cache *ModelCache
	pool  *MeshPool
	// chunk versions submitted to the pool, owned by UpdateLoop
	pending map[Vec3]int64

	mu      sync.Mutex
	viewMat mgl32.Mat4
	center  Vec3

	stat Stat
}

func NewBlockRender(game *Game, cfg *Config, pix []uint8, atlas mesh.Atlas, textures *TextureRegistry) (*BlockRender, error) {
	format, err := mesh.ParseFormat(cfg.Render.Format)
	if err != nil {
		return nil, err
	}
	r := &BlockRender{
		game:    game,
		cfg:     cfg.Render,
		pending: make(map[Vec3]int64),
	}
	mesher := mesh.New(
		mesh.WithFormat(format),
		mesh.WithAtlas(atlas),
		mesh.WithLogger(Log.Named("mesh")),
	)

	mainthread.Call(func() {
		r.shader, err = newBlockShader(mesher.Format())
		if err != nil {
			return
		}
		if pix != nil {
			side := int(mesher.Atlas().Texels)
			r.texture = glhf.NewTexture(side, side, false, pix)
		}
	})
	if err != nil {
		return nil, err
	}

	r.cache, err = NewModelCache(cfg.Render.CacheSize)
	if err != nil {
		return nil, err
	}
	r.pool = NewMeshPool(cfg.Render.Workers, cfg.Render.Queue, game.world, mesher, &glFactory{shader: r.shader}, textures)
	return r, nil
}

// call on mainthread
func newBlockShader(format mesh.Format) (*glhf.Shader, error) {
	vertexFmt := glhf.AttrFormat{
		glhf.Attr{Name: "pos", Type: glhf.Vec4},
		glhf.Attr{Name: "tex", Type: glhf.Vec2},
	}
	vs, fs := blockVertexSource, blockFragmentSource
	if format == mesh.FlatColor {
		vertexFmt = glhf.AttrFormat{
			glhf.Attr{Name: "pos", Type: glhf.Vec4},
			glhf.Attr{Name: "color", Type: glhf.Vec4},
		}
		vs, fs = flatVertexSource, flatFragmentSource
	}
	return glhf.NewShader(vertexFmt, glhf.AttrFormat{
		glhf.Attr{Name: "matrix", Type: glhf.Mat4},
		glhf.Attr{Name: "model", Type: glhf.Mat4},
		glhf.Attr{Name: "camera", Type: glhf.Vec3},
		glhf.Attr{Name: "fogdis", Type: glhf.Float},
	}, vs, fs)
}

func frustumPlanes(mat *mgl32.Mat4) []mgl32.Vec4 {
	c1, c2, c3, c4 := mat.Rows()
	return []mgl32.Vec4{
		c4.Add(c1),          // left
		c4.Sub(c1),          // right
		c4.Sub(c2),          // top
		c4.Add(c2),          // bottom
		c4.Mul(0.1).Add(c3), // front
		c4.Mul(320).Sub(c3), // back
	}
}

func isChunkVisiable(planes []mgl32.Vec4, id Vec3) bool {
	p := mgl32.Vec3{float32(id.X * ChunkWidth), float32(id.Y * ChunkWidth), float32(id.Z * ChunkWidth)}
	const m = ChunkWidth

	points := []mgl32.Vec3{
		{p.X(), p.Y(), p.Z()},
		{p.X() + m, p.Y(), p.Z()},
		{p.X() + m, p.Y(), p.Z() + m},
		{p.X(), p.Y(), p.Z() + m},

		{p.X(), p.Y() + m, p.Z()},
		{p.X() + m, p.Y() + m, p.Z()},
		{p.X() + m, p.Y() + m, p.Z() + m},
		{p.X(), p.Y() + m, p.Z() + m},
	}
	for _, plane := range planes {
		var in, out int
		for _, point := range points {
			if plane.Dot(point.Vec4(1)) < 0 {
				out++
			} else {
				in++
			}
			if in != 0 && out != 0 {
				break
			}
		}
		if in == 0 {
			return false
		}
	}
	return true
}

// fog closes in where the camera stops seeing
func (r *BlockRender) fogDistance() float32 {
	return r.game.Camera.Far()
}

// call on mainthread
func (r *BlockRender) get3dmat() mgl32.Mat4 {
	width, height := r.game.win.GetSize()
	return r.game.Camera.ViewProjection(width, height)
}

// chunksAround returns the chunks of the columns within radius of center,
// worldChunksHigh layers each.
func chunksAround(center Vec3, radius int) []Vec3 {
	var keys []Vec3
	for dx := -radius; dx < radius; dx++ {
		for dz := -radius; dz < radius; dz++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			for y := 0; y < worldChunksHigh; y++ {
				keys = append(keys, Vec3{center.X + dx, y, center.Z + dz})
			}
		}
	}
	return keys
}

// neededChunks returns the chunks within the render radius of center, the
// visible ones first and then by distance.
func neededChunks(center Vec3, radius int, mat mgl32.Mat4) []Vec3 {
	keys := chunksAround(center, radius)
	planes := frustumPlanes(&mat)
	dist := func(id Vec3) int {
		dx, dy, dz := id.X-center.X, id.Y-center.Y, id.Z-center.Z
		return dx*dx + dy*dy + dz*dz
	}
	sort.SliceStable(keys, func(i, j int) bool {
		v1 := isChunkVisiable(planes, keys[i])
		v2 := isChunkVisiable(planes, keys[j])
		if v1 != v2 {
			return v1
		}
		return dist(keys[i]) < dist(keys[j])
	})
	return keys
}

func (r *BlockRender) stale(c *Chunk) bool {
	v := c.Version()
	if p, ok := r.pending[c.Id()]; ok && p == v {
		return false
	}
	if m, ok := r.cache.Peek(c.Id()); ok && m.Version == v {
		return false
	}
	return true
}

func (r *BlockRender) updateMeshCache() {
	r.mu.Lock()
	mat, center := r.viewMat, r.center
	r.mu.Unlock()

	var (
		stale   []*Chunk
		missing []Vec3
	)
	for _, id := range neededChunks(center, r.cfg.Radius, mat) {
		if len(stale)+len(missing) >= r.cfg.Batch {
			break
		}
		c := r.game.world.loaded(id)
		if c == nil {
			missing = append(missing, id)
			continue
		}
		if r.stale(c) {
			stale = append(stale, c)
		}
	}
	stale = append(stale, r.game.world.Chunks(missing)...)
	if n := r.cache.DropOutside(center, r.cfg.Radius+1); n != 0 {
		Sugar.Debugf("dropped %d models around %v", n, center)
	}

	for _, c := range stale {
		if !r.pool.Submit(MeshJob{Chunk: c}) {
			break
		}
		r.pending[c.Id()] = c.Version()
	}
}

func (r *BlockRender) handleResult(res MeshResult) {
	if v, ok := r.pending[res.Id]; ok && v <= res.Version {
		delete(r.pending, res.Id)
	}
	if res.Err != nil {
		Sugar.Errorf("mesh chunk %v: %v", res.Id, res.Err)
		return
	}
	if r.cache.Put(&CachedModel{Id: res.Id, Version: res.Version, Model: res.Model}) {
		Sugar.Debugf("add cache %v faces:%d", res.Id, res.Faces)
	}
}

// UpdateLoop submits stale chunks for meshing and caches the results until
// done is closed.
func (r *BlockRender) UpdateLoop(done <-chan struct{}) {
	tick := time.NewTicker(time.Second / 60)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			r.updateMeshCache()
		case res := <-r.pool.Results():
			r.handleResult(res)
		case <-done:
			return
		}
	}
}

// Close stops meshing and releases every cached model.
func (r *BlockRender) Close() {
	r.pool.Shutdown()
	r.cache.Purge()
}

// call on mainthread
func (r *BlockRender) drawChunks() {
	mat := r.get3dmat()
	r.mu.Lock()
	r.viewMat = mat
	r.center = NearBlock(r.game.Camera.Pos()).Chunkid()
	r.mu.Unlock()

	r.shader.SetUniformAttr(uniformMatrix, mat)
	r.shader.SetUniformAttr(uniformCamera, r.game.Camera.Pos())
	r.shader.SetUniformAttr(uniformFogdis, r.fogDistance())

	planes := frustumPlanes(&mat)
	stat := Stat{}
	r.cache.Range(func(m *CachedModel) bool {
		stat.CacheChunks++
		if m.Model == nil || !isChunkVisiable(planes, m.Id) {
			return true
		}
		buf, ok := m.Model.Buffer.(*glBuffer)
		if !ok {
			return true
		}
		stat.RendingChunks++
		stat.Faces += m.Model.Faces()
		r.shader.SetUniformAttr(uniformModel, m.Model.Transform)
		buf.Draw(m.Model.Slice)
		return true
	})
	r.stat = stat
}

// call on mainthread
func (r *BlockRender) Draw() {
	r.shader.Begin()
	if r.texture != nil {
		r.texture.Begin()
	}

	r.drawChunks()

	if r.texture != nil {
		r.texture.End()
	}
	r.shader.End()
}

type Stat struct {
	Faces         int
	CacheChunks   int
	RendingChunks int
}

func (r *BlockRender) Stat() Stat {
	return r.stat
}

type Lines struct {
	vao, vbo uint32
	shader   *glhf.Shader
	nvertex  int
}

// call on mainthread
func NewLines(shader *glhf.Shader, data []float32) *Lines {
	l := new(Lines)
	l.shader = shader
	l.nvertex = len(data) / 3
	gl.GenVertexArrays(1, &l.vao)
	gl.GenBuffers(1, &l.vbo)
	gl.BindVertexArray(l.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, l.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)

	loc := uint32(gl.GetAttribLocation(shader.ID(), gl.Str("pos\x00")))
	gl.VertexAttribPointer(loc, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(loc)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return l
}

func (l *Lines) Draw(mat mgl32.Mat4) {
	if l.vao != 0 {
		l.shader.SetUniformAttr(0, mat)
		gl.BindVertexArray(l.vao)
		gl.DrawArrays(gl.LINES, 0, int32(l.nvertex))
		gl.BindVertexArray(0)
	}
}

func (l *Lines) Release() {
	if l.vao != 0 {
		gl.DeleteVertexArrays(1, &l.vao)
		gl.DeleteBuffers(1, &l.vbo)
		l.vao = 0
		l.vbo = 0
	}
}

// LineRender draws the crosshair and the outline of the targeted block.
type LineRender struct {
	game      *Game
	shader    *glhf.Shader
	cross     *Lines
	wireFrame *Lines
	lastBlock Vec3
	lastShow  [6]bool
}

func NewLineRender(game *Game) (*LineRender, error) {
	r := &LineRender{
		game: game,
	}
	var err error
	mainthread.Call(func() {
		r.shader, err = glhf.NewShader(glhf.AttrFormat{
			glhf.Attr{Name: "pos", Type: glhf.Vec3},
		}, glhf.AttrFormat{
			glhf.Attr{Name: "matrix", Type: glhf.Mat4},
		}, lineVertexSource, lineFragmentSource)

		if err != nil {
			return
		}
		r.cross = NewLines(r.shader, []float32{
			-0.5, 0, 0, 0.5, 0, 0,
			0, -0.5, 0, 0, 0.5, 0,
		})
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *LineRender) drawCross() {
	width, height := r.game.win.GetFramebufferSize()
	project := mgl32.Ortho2D(0, float32(width), float32(height), 0)
	model := mgl32.Translate3D(float32(width/2), float32(height/2), 0)
	model = model.Mul4(mgl32.Scale3D(float32(height/30), float32(height/30), 0))
	r.cross.Draw(project.Mul4(model))
}

func (r *LineRender) drawWireFrame(mat mgl32.Mat4) {
	g := r.game
	block, _ := g.world.HitTest(g.Camera.Pos(), g.Camera.Front())
	if block == nil {
		return
	}

	mat = mat.Mul4(mgl32.Translate3D(float32(block.X)+0.5, float32(block.Y)+0.5, float32(block.Z)+0.5))
	mat = mat.Mul4(mgl32.Scale3D(1.06, 1.06, 1.06))
	show := g.world.blockFaces(*block)
	if r.wireFrame != nil && *block == r.lastBlock && show == r.lastShow {
		r.wireFrame.Draw(mat)
		return
	}

	vertices := makeWireFrameData(nil, show)
	if len(vertices) == 0 {
		return
	}
	r.lastBlock, r.lastShow = *block, show
	if r.wireFrame != nil {
		r.wireFrame.Release()
	}
	r.wireFrame = NewLines(r.shader, vertices)
	r.wireFrame.Draw(mat)
}

// call on mainthread
func (r *LineRender) Draw() {
	width, height := r.game.win.GetSize()
	mat := r.game.Camera.ViewProjection(width, height)

	r.shader.Begin()
	r.drawCross()
	r.drawWireFrame(mat)
	r.shader.End()
}
