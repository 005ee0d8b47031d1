package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/glhf"
	"github.com/faiface/mainthread"
	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// countingFactory records every upload and passes it on to next, if set.
// With a nil next it stands in for a GPU.
type countingFactory struct {
	next mesh.Factory

	buffers  int64
	vertices int64
	bytes    int64
	live     int64
}

type countingBuffer struct {
	f    *countingFactory
	next mesh.Buffer
	once sync.Once
}

func (f *countingFactory) CreateVertexBufferWithSlice(data []byte, layout mesh.Layout) (mesh.Buffer, mesh.Slice, error) {
	if len(data)%layout.Stride != 0 {
		return nil, mesh.Slice{}, errors.Errorf("vertex data length %d is not a multiple of %d", len(data), layout.Stride)
	}
	var (
		next  mesh.Buffer
		slice = mesh.SliceOf(data, layout)
		err   error
	)
	if f.next != nil {
		next, slice, err = f.next.CreateVertexBufferWithSlice(data, layout)
		if err != nil {
			return nil, mesh.Slice{}, err
		}
	}
	atomic.AddInt64(&f.buffers, 1)
	atomic.AddInt64(&f.vertices, int64(slice.Count))
	atomic.AddInt64(&f.bytes, int64(len(data)))
	atomic.AddInt64(&f.live, 1)
	return &countingBuffer{f: f, next: next}, slice, nil
}

func (b *countingBuffer) Release() {
	b.once.Do(func() {
		atomic.AddInt64(&b.f.live, -1)
		if b.next != nil {
			b.next.Release()
		}
	})
}

func (f *countingFactory) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("buffers", atomic.LoadInt64(&f.buffers)),
		zap.Int64("vertices", atomic.LoadInt64(&f.vertices)),
		zap.Int64("bytes", atomic.LoadInt64(&f.bytes)),
		zap.Int64("live", atomic.LoadInt64(&f.live)),
	}
}

// gpuFactory opens the configured backend. release is never nil.
func gpuFactory(cfg *Config, format mesh.Format) (mesh.Factory, func(), error) {
	switch cfg.Render.Backend {
	case "webgpu":
		f, err := newWGPUFactory()
		if err != nil {
			return nil, nil, err
		}
		return f, f.Release, nil
	case "gl":
		var (
			shader *glhf.Shader
			err    error
		)
		mainthread.Call(func() {
			if _, err = initGL(cfg.Window, false); err != nil {
				return
			}
			shader, err = newBlockShader(format)
		})
		if err != nil {
			return nil, nil, err
		}
		return &glFactory{shader: shader}, func() {}, nil
	}
	return nil, func() {}, nil
}

// runBake meshes the chunks around the origin once, logs what every chunk
// cost and exits.
func runBake(cfg *Config) error {
	format, err := mesh.ParseFormat(cfg.Render.Format)
	if err != nil {
		return err
	}
	_, textures, err := loadTextures(cfg, false)
	if err != nil {
		return err
	}
	world, store, remote, err := openWorld(cfg, textures)
	if err != nil {
		return err
	}
	defer store.Close()
	if remote != nil {
		defer remote.Close()
	}

	mesher := mesh.New(
		mesh.WithFormat(format),
		mesh.WithAtlas(textures.Atlas()),
		mesh.WithLogger(Log.Named("mesh")),
	)
	next, release, err := gpuFactory(cfg, mesher.Format())
	if err != nil {
		return errors.Wrapf(err, "backend %s", cfg.Render.Backend)
	}
	defer release()
	counter := &countingFactory{next: next}

	pool := NewMeshPool(cfg.Render.Workers, cfg.Render.Queue, world, mesher, counter, textures)
	defer pool.Shutdown()

	start := time.Now()
	chunks := world.Chunks(chunksAround(Vec3{}, cfg.Render.Radius))
	Log.Info("chunks loaded", zap.Int("chunks", len(chunks)), zap.Duration("elapsed", time.Since(start)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for _, c := range chunks {
			if err := pool.SubmitBlocking(ctx, MeshJob{Chunk: c}); err != nil {
				return
			}
		}
	}()

	start = time.Now()
	var meshed, empty, failed, faces int
	for range chunks {
		res := <-pool.Results()
		switch {
		case res.Err != nil:
			failed++
			Log.Error("mesh chunk", zap.Any("chunk", res.Id), zap.Error(res.Err))
		case res.Model == nil:
			empty++
		default:
			meshed++
			faces += res.Model.Faces()
			Log.Debug("chunk baked",
				zap.Any("chunk", res.Id),
				zap.Int("faces", res.Model.Faces()),
				zap.Int("vertices", res.Model.Slice.Count),
				zap.Int("bytes", res.Model.Slice.Count*mesh.VertexSize))
			res.Model.Release()
		}
	}

	fields := append([]zap.Field{
		zap.String("backend", cfg.Render.Backend),
		zap.Stringer("format", format),
		zap.Int("meshed", meshed),
		zap.Int("empty", empty),
		zap.Int("failed", failed),
		zap.Int("faces", faces),
		zap.Duration("elapsed", time.Since(start)),
	}, counter.fields()...)
	Log.Info("bake done", fields...)
	if failed != 0 {
		return errors.Errorf("%d chunks failed to mesh", failed)
	}
	return nil
}
