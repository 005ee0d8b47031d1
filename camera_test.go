package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCameraTurn(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 100)
	if !c.Front().ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("front = %v", c.Front())
	}
	c.Turn(0, 150)
	c.Turn(0, 150)
	c.Turn(0, 150)
	if got := c.State().Pitch; got != maxPitch {
		t.Errorf("pitch = %v, want %v", got, maxPitch)
	}
	yaw := c.State().Yaw
	c.Turn(maxTurn+1, 0)
	if c.State().Yaw != yaw {
		t.Error("cursor jump turned the camera")
	}
}

func TestCameraMove(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 10, 0}, 100)
	c.Turn(0, 100)

	c.Move(1, 0, 2)
	if p := c.Pos(); p.Y() != 10 || !mgl32.FloatEqualThreshold(p.Z(), -2, 1e-5) {
		t.Errorf("walked to %v", p)
	}
	c.Move(1, 1, 1)
	if d := c.Pos().Sub(mgl32.Vec3{0, 10, -2}).Len(); !mgl32.FloatEqualThreshold(d, 1, 1e-5) {
		t.Errorf("diagonal step of %v", d)
	}
	c.Move(0, 0, 5)

	c.ToggleFlying()
	y := c.Pos().Y()
	c.Move(1, 0, 1)
	if c.Pos().Y() <= y {
		t.Error("flying forward while looking up did not climb")
	}
}

func TestCameraState(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 100)
	c.Restore(PlayerState{X: 1, Y: 2, Z: 3, Yaw: 10, Pitch: 120})
	s := c.State()
	if s.Pitch != maxPitch || s.Yaw != 10 || c.Pos() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("state = %+v", s)
	}

	data, err := s.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	var got PlayerState
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("decoded %+v, want %+v", got, s)
	}
	if err := got.UnmarshalBinary(data[:5]); err == nil {
		t.Error("no error for a short state")
	}
}

func TestCameraFar(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, 64)
	mat := c.ViewProjection(800, 600)
	near := mat.Mul4x1(mgl32.Vec4{0, 0, -60, 1})
	far := mat.Mul4x1(mgl32.Vec4{0, 0, -70, 1})
	if z := near.Z() / near.W(); z > 1 {
		t.Errorf("point inside the far plane clipped, z = %v", z)
	}
	if z := far.Z() / far.W(); z <= 1 {
		t.Errorf("point beyond the far plane kept, z = %v", z)
	}
}
