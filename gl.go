package main

import (
	"github.com/faiface/glhf"
	"github.com/faiface/mainthread"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
)

// glFactory uploads chunk vertices to OpenGL buffers. It must not be called
// from the main thread: every GL call is sent there.
type glFactory struct {
	shader *glhf.Shader
}

type glBuffer struct {
	vao, vbo uint32
}

func (f *glFactory) CreateVertexBufferWithSlice(data []byte, layout mesh.Layout) (mesh.Buffer, mesh.Slice, error) {
	if len(data)%layout.Stride != 0 {
		return nil, mesh.Slice{}, errors.Errorf("vertex data length %d is not a multiple of %d", len(data), layout.Stride)
	}
	var (
		buf *glBuffer
		err error
	)
	mainthread.Call(func() {
		buf, err = f.upload(data, layout)
	})
	if err != nil {
		return nil, mesh.Slice{}, err
	}
	return buf, mesh.SliceOf(data, layout), nil
}

// call on mainthread
func (f *glFactory) upload(data []byte, layout mesh.Layout) (*glBuffer, error) {
	b := new(glBuffer)
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)

	stride := int32(layout.Stride)
	// x, y, z and packed light, read as plain numbers
	f.attrib("pos", 4, gl.UNSIGNED_BYTE, false, stride, 0)
	switch layout.Format {
	case mesh.Textured:
		f.attrib("tex", 2, gl.UNSIGNED_SHORT, true, stride, 4)
	case mesh.FlatColor:
		f.attrib("color", 4, gl.UNSIGNED_BYTE, true, stride, 4)
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		b.free()
		return nil, errors.Errorf("upload vertex buffer: gl error 0x%x", code)
	}
	return b, nil
}

func (f *glFactory) attrib(name string, size int32, xtype uint32, normalized bool, stride int32, offset int) {
	loc := gl.GetAttribLocation(f.shader.ID(), gl.Str(name+"\x00"))
	if loc < 0 {
		return
	}
	gl.VertexAttribPointer(uint32(loc), size, xtype, normalized, stride, gl.PtrOffset(offset))
	gl.EnableVertexAttribArray(uint32(loc))
}

// call on mainthread
func (b *glBuffer) Draw(s mesh.Slice) {
	if b.vao != 0 {
		gl.BindVertexArray(b.vao)
		gl.DrawArrays(gl.TRIANGLES, int32(s.Start), int32(s.Count))
		gl.BindVertexArray(0)
	}
}

// Release frees the buffer on the main thread without waiting for it.
func (b *glBuffer) Release() {
	mainthread.CallNonBlock(b.free)
}

func (b *glBuffer) free() {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
		b.vao = 0
		b.vbo = 0
	}
}
