// Package vec provides the float32 2D vector used by the weapon simulation.
// All angles are in degrees, measured counter-clockwise from the positive x axis.
package vec

import "math"

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Vec2 is a 2D vector. The zero value is the origin.
type Vec2 struct {
	X, Y float32
}

// New returns the vector (x, y).
func New(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// Set overwrites both components and returns the receiver for chaining.
func (v *Vec2) Set(x, y float32) *Vec2 {
	v.X, v.Y = x, y
	return v
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Len returns the euclidean length of v.
func (v Vec2) Len() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// SetLength returns v rescaled to the given length, keeping its direction. A zero vector has no
// direction, so it is pointed along the positive x axis.
func (v Vec2) SetLength(length float32) Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{X: length}
	}
	return v.Scale(length / l)
}

// Angle returns the direction of v in degrees, in [0, 360).
func (v Vec2) Angle() float32 {
	a := math.Atan2(float64(v.Y), float64(v.X)) * radToDeg
	if a < 0 {
		a += 360
	}
	return float32(a)
}

// Rotate returns v rotated counter-clockwise by deg degrees.
func (v Vec2) Rotate(deg float32) Vec2 {
	sin, cos := math.Sincos(float64(deg) * degToRad)
	x, y := float64(v.X), float64(v.Y)
	return Vec2{
		X: float32(x*cos - y*sin),
		Y: float32(x*sin + y*cos),
	}
}

// Trns returns a vector of the given length pointing at angle degrees.
func Trns(angle, length float32) Vec2 {
	return Vec2{X: length}.Rotate(angle)
}

// TrnsXY returns the vector (x, y) rotated by angle degrees.
func TrnsXY(angle, x, y float32) Vec2 {
	return Vec2{X: x, Y: y}.Rotate(angle)
}

// AngleBetween returns the direction in degrees from (x1, y1) to (x2, y2).
func AngleBetween(x1, y1, x2, y2 float32) float32 {
	return Vec2{X: x2 - x1, Y: y2 - y1}.Angle()
}
