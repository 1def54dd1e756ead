// Package geom holds small plane-geometry helpers over r2.Vec.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Clamp functions for common value ranges

// Clamp clamps v between minVal and maxVal.
func Clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// NormalizeAngle wraps an angle to [-Pi, Pi].
func NormalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// Vector helpers

// Unit returns p scaled to length 1, or the zero vector when p has no length.
// r2.Unit divides by the norm unconditionally.
func Unit(p r2.Vec) r2.Vec {
	n := r2.Norm(p)
	if n < 1e-12 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, p)
}

// FromAngle returns the unit vector at angle a (radians).
func FromAngle(a float64) r2.Vec {
	s, c := math.Sincos(a)
	return r2.Vec{X: c, Y: s}
}

// Angle returns the direction of p in radians.
func Angle(p r2.Vec) float64 {
	return math.Atan2(p.Y, p.X)
}

// AngleBetween returns the unsigned angle between a and b in [0, Pi].
// Zero-length inputs yield 0.
func AngleBetween(a, b r2.Vec) float64 {
	na, nb := r2.Norm(a), r2.Norm(b)
	if na < 1e-12 || nb < 1e-12 {
		return 0
	}
	c := Clamp(r2.Dot(a, b)/(na*nb), -1, 1)
	return math.Acos(c)
}

// Rotate rotates p by alpha around the origin.
func Rotate(p r2.Vec, alpha float64) r2.Vec {
	return r2.Rotate(p, alpha, r2.Vec{})
}

// ClampLength limits the distance of p from origin to maxLen.
func ClampLength(origin, p r2.Vec, maxLen float64) r2.Vec {
	d := r2.Sub(p, origin)
	n := r2.Norm(d)
	if n <= maxLen || n < 1e-12 {
		return p
	}
	return r2.Add(origin, r2.Scale(maxLen/n, d))
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// Distance returns |a-b|.
func Distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// ClosestOnSegment returns the point on segment ab closest to p and its
// parameter t in [0, 1].
func ClosestOnSegment(a, b, p r2.Vec) (r2.Vec, float64) {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 < 1e-18 {
		return a, 0
	}
	t := Clamp(r2.Dot(r2.Sub(p, a), ab)/l2, 0, 1)
	return r2.Add(a, r2.Scale(t, ab)), t
}

// SegmentCircle returns the parameter t in [0, 1] of the first point where
// segment ab enters the circle (center, radius). A segment starting inside
// the circle hits at t=0.
func SegmentCircle(a, b, center r2.Vec, radius float64) (float64, bool) {
	d := r2.Sub(b, a)
	f := r2.Sub(a, center)
	r2sq := radius * radius
	if r2.Norm2(f) <= r2sq {
		return 0, true
	}
	qa := r2.Dot(d, d)
	if qa < 1e-18 {
		return 0, false
	}
	qb := 2 * r2.Dot(f, d)
	qc := r2.Dot(f, f) - r2sq
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return 0, false
	}
	t := (-qb - math.Sqrt(disc)) / (2 * qa)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
