package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"net/http"
	_ "net/http/pprof"

	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.2/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
)

type Game struct {
	cfg *Config
	win *glfw.Window

	Camera   *Camera
	lx, ly   float64
	vy       float32
	prevtime float64

	blockRender *BlockRender
	lineRender  *LineRender

	world   *World
	store   *Store
	remote  *Remote
	items   []int
	itemidx int
	item    int
	frames  frameCounter

	exclusiveMouse bool
	closed         bool
	done           chan struct{}
}

func initGL(cfg WindowConfig, visible bool) (*glfw.Window, error) {
	err := glfw.Init()
	if err != nil {
		return nil, errors.Wrap(err, "glfw init")
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, gl.TRUE)
	if !visible {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, "chunkmesh", nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	win.MakeContextCurrent()
	err = gl.Init()
	if err != nil {
		return nil, errors.Wrap(err, "gl init")
	}
	if cfg.VSync {
		glfw.SwapInterval(1)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	return win, nil
}

// loadTextures reads the atlas and the block textures. Without
// requireImage a missing atlas image is replaced by a blank 256 texel
// atlas and pix is nil.
func loadTextures(cfg *Config, requireImage bool) ([]uint8, *TextureRegistry, error) {
	pix, atlas, err := LoadAtlas(cfg.Texture.Atlas, cfg.Texture.CellTexels)
	if err != nil {
		if requireImage {
			return nil, nil, err
		}
		Sugar.Warnf("%v, using a blank atlas", err)
		atlas, err = mesh.NewAtlas(256, cfg.Texture.CellTexels)
		if err != nil {
			return nil, nil, err
		}
	}
	var textures *TextureRegistry
	if cfg.Texture.Desc != "" {
		textures, err = LoadTextureDesc(cfg.Texture.Desc, atlas)
	} else {
		textures, err = DefaultTextures(atlas)
	}
	if err != nil {
		return nil, nil, err
	}
	return pix, textures, nil
}

// openWorld opens the store and, when a server is configured, connects
// the world to it.
func openWorld(cfg *Config, textures *TextureRegistry) (*World, *Store, *Remote, error) {
	store, err := NewStore(cfg.Store.Path, cfg.Store.NoSync)
	if err != nil {
		return nil, nil, nil, err
	}
	world := NewWorld(store, textures)
	if cfg.Server.Addr == "" {
		return world, store, nil, nil
	}
	remote, err := DialRemote(cfg.Server, world)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	world.SetRemote(remote)
	return world, store, remote, nil
}

func NewGame(cfg *Config) (*Game, error) {
	var (
		err  error
		game *Game
	)
	game = &Game{
		cfg:  cfg,
		done: make(chan struct{}),
	}

	format, err := mesh.ParseFormat(cfg.Render.Format)
	if err != nil {
		return nil, err
	}
	pix, textures, err := loadTextures(cfg, format == mesh.Textured)
	if err != nil {
		return nil, err
	}
	for _, id := range textures.IDs() {
		game.items = append(game.items, int(id))
	}
	if len(game.items) == 0 {
		return nil, errors.New("no block types registered")
	}
	game.item = game.items[0]

	mainthread.Call(func() {
		var win *glfw.Window
		win, err = initGL(cfg.Window, true)
		if err != nil {
			return
		}
		win.SetMouseButtonCallback(game.onMouseButtonCallback)
		win.SetCursorPosCallback(game.onCursorPosCallback)
		win.SetFramebufferSizeCallback(game.onFrameBufferSizeCallback)
		win.SetKeyCallback(game.onKeyCallback)
		game.win = win
	})
	if err != nil {
		return nil, err
	}

	game.world, game.store, game.remote, err = openWorld(cfg, textures)
	if err != nil {
		return nil, err
	}
	game.Camera = NewCamera(mgl32.Vec3{0, 64, 0}, float32(cfg.Render.Radius*ChunkWidth))
	game.Camera.Restore(game.store.GetPlayerState(game.Camera.State()))

	game.blockRender, err = NewBlockRender(game, cfg, pix, textures.Atlas(), textures)
	if err != nil {
		return nil, err
	}
	game.lineRender, err = NewLineRender(game)
	if err != nil {
		return nil, err
	}
	go game.blockRender.UpdateLoop(game.done)
	return game, nil
}

func (g *Game) setExclusiveMouse(exclusive bool) {
	if exclusive {
		g.win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		g.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	g.exclusiveMouse = exclusive
}

func (g *Game) onMouseButtonCallback(win *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if !g.exclusiveMouse {
		g.setExclusiveMouse(true)
		return
	}
	head := NearBlock(g.Camera.Pos())
	foot := head.Down()
	block, prev := g.world.HitTest(g.Camera.Pos(), g.Camera.Front())
	if button == glfw.MouseButton2 && action == glfw.Press {
		if prev != nil && *prev != head && *prev != foot {
			g.world.UpdateBlock(*prev, g.item)
		}
	}
	if button == glfw.MouseButton1 && action == glfw.Press {
		if block != nil {
			g.world.UpdateBlock(*block, 0)
		}
	}
}

func (g *Game) onFrameBufferSizeCallback(window *glfw.Window, width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (g *Game) onCursorPosCallback(win *glfw.Window, xpos float64, ypos float64) {
	if !g.exclusiveMouse {
		return
	}
	if g.lx == 0 && g.ly == 0 {
		g.lx, g.ly = xpos, ypos
		return
	}
	dx, dy := xpos-g.lx, g.ly-ypos
	g.lx, g.ly = xpos, ypos
	g.Camera.Turn(float32(dx), float32(dy))
}

func (g *Game) onKeyCallback(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		g.setExclusiveMouse(false)
	case glfw.KeyTab:
		g.Camera.ToggleFlying()
	case glfw.KeySpace:
		if g.world.HasBlock(g.CurrentBlockid().Down().Down()) {
			g.vy = jumpSpeed
		}
	case glfw.KeyE:
		g.selectItem(1)
	case glfw.KeyR:
		g.selectItem(-1)
	}
}

// selectItem steps through the placeable block types.
func (g *Game) selectItem(step int) {
	n := len(g.items)
	g.itemidx = ((g.itemidx+step)%n + n) % n
	g.item = g.items[g.itemidx]
}

// in blocks per second
const (
	walkSpeed = 6
	flySpeed  = 60
	jumpSpeed = 8
	gravity   = 20
	maxFall   = 50
)

var moveKeys = []struct {
	key             glfw.Key
	forward, strafe float32
}{
	{glfw.KeyW, 1, 0},
	{glfw.KeyS, -1, 0},
	{glfw.KeyA, 0, -1},
	{glfw.KeyD, 0, 1},
}

func (g *Game) handleKeyInput(dt float32) {
	var forward, strafe float32
	for _, k := range moveKeys {
		if g.win.GetKey(k.key) == glfw.Press {
			forward += k.forward
			strafe += k.strafe
		}
	}
	speed := float32(walkSpeed)
	if g.Camera.Flying() {
		speed = flySpeed
	}
	g.Camera.Move(forward, strafe, speed*dt)

	pos := g.Camera.Pos()
	if !g.Camera.Flying() {
		g.vy = mgl32.Clamp(g.vy-gravity*dt, -maxFall, jumpSpeed)
		pos = pos.Add(mgl32.Vec3{0, g.vy * dt, 0})
	}
	pos, stop := g.world.Collide(pos)
	if stop {
		g.vy = 0
	}
	g.Camera.SetPos(pos)
}

func (g *Game) CurrentBlockid() Vec3 {
	pos := g.Camera.Pos()
	return NearBlock(pos)
}

func (g *Game) ShouldClose() bool {
	return g.closed
}

func (g *Game) renderStat() {
	fps := g.frames.Tick(time.Now())
	p := g.Camera.Pos()
	cid := NearBlock(p).Chunkid()
	stat := g.blockRender.Stat()
	name := g.world.textures.Name(mesh.BlockID(g.item))
	title := fmt.Sprintf("[%.2f %.2f %.2f] %v [%d/%d %d] %s %d", p.X(), p.Y(), p.Z(),
		cid, stat.RendingChunks, stat.CacheChunks, stat.Faces, name, fps)
	g.win.SetTitle(title)
}

func (g *Game) Update() {
	mainthread.Call(func() {
		now := glfw.GetTime()
		g.handleKeyInput(frameDelta(g.prevtime, now))
		g.prevtime = now

		gl.ClearColor(0.57, 0.71, 0.77, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		g.blockRender.Draw()
		g.lineRender.Draw()

		g.renderStat()

		g.win.SwapBuffers()
		glfw.PollEvents()
		g.closed = g.win.ShouldClose()
	})
}

// Close stops meshing, saves the camera and closes the store.
func (g *Game) Close() {
	close(g.done)
	g.blockRender.Close()
	if err := g.store.UpdatePlayerState(g.Camera.State()); err != nil {
		Sugar.Warnf("save player state: %v", err)
	}
	if g.remote != nil {
		g.remote.Close()
	}
	if err := g.store.Close(); err != nil {
		Sugar.Warnf("close store: %v", err)
	}
}

// frameDelta is the seconds since the previous frame, zero for the first
// frame and capped so that a stall does not move the camera through walls.
func frameDelta(prev, now float64) float32 {
	if prev == 0 {
		return 0
	}
	dt := now - prev
	if dt > 0.02 {
		dt = 0.02
	}
	return float32(dt)
}

// frameCounter measures frames per second over windows of at least a
// second.
type frameCounter struct {
	start  time.Time
	frames int
	fps    int
}

// Tick counts a frame drawn at now and returns the last measured rate.
func (f *frameCounter) Tick(now time.Time) int {
	if f.start.IsZero() {
		f.start = now
	}
	f.frames++
	if d := now.Sub(f.start); d >= time.Second {
		f.fps = int(float64(f.frames) / d.Seconds())
		f.frames = 0
		f.start = now
	}
	return f.fps
}

func runGame(cfg *Config) error {
	if cfg.Render.Backend != "gl" {
		return errors.Errorf("the viewer draws with gl, use -bake for the %s backend", cfg.Render.Backend)
	}
	game, err := NewGame(cfg)
	if err != nil {
		return err
	}
	defer game.Close()

	tick := time.NewTicker(time.Second / 60)
	defer tick.Stop()
	for !game.ShouldClose() {
		<-tick.C
		game.Update()
	}
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := InitLogger(cfg.Logging, true); err != nil {
		log.Fatal(err)
	}
	defer SyncLogger()
	SetSeed(cfg.World.Seed)

	go func() {
		if cfg.Pprof != "" {
			Sugar.Fatal(http.ListenAndServe(cfg.Pprof, nil))
		}
	}()

	mainthread.Run(func() {
		if *bake {
			err = runBake(cfg)
		} else {
			err = runGame(cfg)
		}
	})
	if err != nil {
		SyncLogger()
		log.Fatal(err)
	}
}
