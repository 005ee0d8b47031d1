package main

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraFov  = 45
	cameraNear = 0.01
	maxPitch   = 89
	// cursor jumps larger than this, in pixels, are dropped
	maxTurn = 200
)

// PlayerState is the camera as saved in the store.
type PlayerState struct {
	X, Y, Z    float32
	Yaw, Pitch float32
}

func (s PlayerState) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *PlayerState) UnmarshalBinary(data []byte) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, s)
}

// Camera is the viewer's eye. It sees as far as the meshed chunks reach.
type Camera struct {
	pos        mgl32.Vec3
	yaw, pitch float32 // degrees
	far        float32
	flying     bool

	Sens float32

	front, right, up mgl32.Vec3
	// front flattened onto the ground, for walking
	ahead mgl32.Vec3
}

func NewCamera(pos mgl32.Vec3, far float32) *Camera {
	c := &Camera{
		pos:  pos,
		yaw:  -90,
		far:  far,
		Sens: 0.14,
	}
	c.updateAngles()
	return c
}

func (c *Camera) Restore(s PlayerState) {
	c.pos = mgl32.Vec3{s.X, s.Y, s.Z}
	c.yaw = s.Yaw
	c.pitch = mgl32.Clamp(s.Pitch, -maxPitch, maxPitch)
	c.updateAngles()
}

func (c *Camera) State() PlayerState {
	return PlayerState{
		X:     c.pos.X(),
		Y:     c.pos.Y(),
		Z:     c.pos.Z(),
		Yaw:   c.yaw,
		Pitch: c.pitch,
	}
}

// ViewProjection maps world positions to clip space for a width x height
// viewport.
func (c *Camera) ViewProjection(width, height int) mgl32.Mat4 {
	if height == 0 {
		height = 1
	}
	proj := mgl32.Perspective(mgl32.DegToRad(cameraFov), float32(width)/float32(height), cameraNear, c.far)
	return proj.Mul4(mgl32.LookAtV(c.pos, c.pos.Add(c.front), c.up))
}

func (c *Camera) Far() float32 {
	return c.far
}

func (c *Camera) SetPos(pos mgl32.Vec3) {
	c.pos = pos
}

func (c *Camera) Pos() mgl32.Vec3 {
	return c.pos
}

func (c *Camera) Front() mgl32.Vec3 {
	return c.front
}

func (c *Camera) ToggleFlying() {
	c.flying = !c.flying
}

func (c *Camera) Flying() bool {
	return c.flying
}

// Turn applies a cursor movement of dx, dy pixels.
func (c *Camera) Turn(dx, dy float32) {
	if mgl32.Abs(dx) > maxTurn || mgl32.Abs(dy) > maxTurn {
		return
	}
	c.yaw += dx * c.Sens
	c.pitch = mgl32.Clamp(c.pitch+dy*c.Sens, -maxPitch, maxPitch)
	c.updateAngles()
}

// Move moves dist along forward and strafe, each in [-1, 1]. Walking stays
// level, flying follows the view.
func (c *Camera) Move(forward, strafe, dist float32) {
	ahead := c.ahead
	if c.flying {
		ahead = c.front
	}
	dir := ahead.Mul(forward).Add(c.right.Mul(strafe))
	if dir.Len() == 0 {
		return
	}
	c.pos = c.pos.Add(dir.Normalize().Mul(dist))
}

func (c *Camera) updateAngles() {
	yaw := float64(mgl32.DegToRad(c.yaw))
	pitch := float64(mgl32.DegToRad(c.pitch))
	c.front = mgl32.Vec3{
		float32(math.Cos(pitch) * math.Cos(yaw)),
		float32(math.Sin(pitch)),
		float32(math.Cos(pitch) * math.Sin(yaw)),
	}.Normalize()
	c.right = c.front.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	c.up = c.right.Cross(c.front).Normalize()
	c.ahead = mgl32.Vec3{0, 1, 0}.Cross(c.right).Normalize()
}
