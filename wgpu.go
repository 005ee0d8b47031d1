package main

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
)

// wgpuFactory keeps chunk vertex buffers on a WebGPU device. It runs
// without a surface; the bake command uses it to measure uploads.
type wgpuFactory struct {
	mu       sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	seq      int
}

type wgpuBuffer struct {
	buf    *wgpu.Buffer
	layout wgpu.VertexBufferLayout
	once   sync.Once
}

func newWGPUFactory() (*wgpuFactory, error) {
	f := &wgpuFactory{
		instance: wgpu.CreateInstance(nil),
	}
	a, err := f.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		f.instance.Release()
		return nil, errors.Wrap(err, "request adapter")
	}
	f.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "chunkmesh device",
	})
	if err != nil {
		a.Release()
		f.instance.Release()
		return nil, errors.Wrap(err, "request device")
	}
	f.device = d
	f.queue = d.GetQueue()
	return f, nil
}

func (f *wgpuFactory) CreateVertexBufferWithSlice(data []byte, layout mesh.Layout) (mesh.Buffer, mesh.Slice, error) {
	if len(data)%layout.Stride != 0 {
		return nil, mesh.Slice{}, errors.Errorf("vertex data length %d is not a multiple of %d", len(data), layout.Stride)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	buf, err := uploadVertices(func() (*wgpu.Buffer, error) {
		return f.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            fmt.Sprintf("chunk vertex buffer %d", f.seq),
			Size:             uint64(len(data)),
			Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
	}, func(buf *wgpu.Buffer) error {
		return f.queue.WriteBuffer(buf, 0, data)
	})
	if err != nil {
		return nil, mesh.Slice{}, err
	}
	return &wgpuBuffer{
		buf:    buf,
		layout: vertexBufferLayout(layout.Format),
	}, mesh.SliceOf(data, layout), nil
}

// uploadVertices creates a buffer and fills it with write. A buffer that
// could not be filled is released.
func uploadVertices[B interface{ Release() }](create func() (B, error), write func(B) error) (B, error) {
	buf, err := create()
	if err != nil {
		return buf, errors.Wrap(err, "create buffer")
	}
	if err := write(buf); err != nil {
		buf.Release()
		var zero B
		return zero, errors.Wrap(err, "write buffer")
	}
	return buf, nil
}

func (b *wgpuBuffer) Release() {
	b.once.Do(b.buf.Release)
}

func (f *wgpuFactory) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue.Release()
	f.device.Release()
	f.adapter.Release()
	f.instance.Release()
}

// vertexBufferLayout describes the 8 byte chunk vertex: position and
// packed light as four plain bytes at location 0, then the payload at
// location 1.
func vertexBufferLayout(format mesh.Format) wgpu.VertexBufferLayout {
	payload := wgpu.VertexFormatUnorm16x2
	if format == mesh.FlatColor {
		payload = wgpu.VertexFormatUnorm8x4
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: mesh.VertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatUint8x4, Offset: 0, ShaderLocation: 0},
			{Format: payload, Offset: 4, ShaderLocation: 1},
		},
	}
}
