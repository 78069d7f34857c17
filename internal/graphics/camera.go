package graphics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera orbits a target point. Yaw and pitch are in degrees.
type Camera struct {
	Target   mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Distance float32

	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32
}

const (
	minPitch    = -89
	maxPitch    = 89
	minDistance = 2
	maxDistance = 2000
)

func NewCamera(width, height int) *Camera {
	return &Camera{
		Yaw:         45,
		Pitch:       35,
		Distance:    80,
		AspectRatio: float32(width) / float32(height),
		FOV:         60.0,
		NearPlane:   0.1,
		FarPlane:    2000.0,
	}
}

// Position returns the eye position on the orbit sphere.
func (c *Camera) Position() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	dir := mgl32.Vec3{
		float32(math.Cos(pitch) * math.Cos(yaw)),
		float32(math.Sin(pitch)),
		float32(math.Cos(pitch) * math.Sin(yaw)),
	}
	return c.Target.Add(dir.Mul(c.Distance))
}

// Orbit rotates the camera around its target.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw+dYaw), 360))
	c.Pitch = mgl32.Clamp(c.Pitch+dPitch, minPitch, maxPitch)
}

// Zoom scales the orbit distance by factor.
func (c *Camera) Zoom(factor float32) {
	c.Distance = mgl32.Clamp(c.Distance*factor, minDistance, maxDistance)
}

// Pan moves the target in the horizontal plane, relative to the view direction.
func (c *Camera) Pan(right, forward float32) {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	// Forward points from the eye toward the target.
	fwd := mgl32.Vec3{-float32(math.Cos(yaw)), 0, -float32(math.Sin(yaw))}
	side := mgl32.Vec3{-fwd.Z(), 0, fwd.X()}
	c.Target = c.Target.Add(fwd.Mul(forward)).Add(side.Mul(right))
}

// SetViewport updates the aspect ratio after a resize.
func (c *Camera) SetViewport(width, height int) {
	if height > 0 {
		c.AspectRatio = float32(width) / float32(height)
	}
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}
