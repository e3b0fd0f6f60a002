package planeta

import "math"

// Vector3 is a float vector for normals and for math that ends up
// re-projected onto the sphere.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3) Mul(f float64) Vector3 {
	return Vector3{v.X * f, v.Y * f, v.Z * f}
}

func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Vector3l is a position in the 64-bit fixed-point surface frame: float
// world coordinates multiplied by 2^scale.
type Vector3l struct {
	X, Y, Z int64
}

func (v Vector3l) Add(o Vector3l) Vector3l {
	return Vector3l{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3l) Float() Vector3 {
	return Vector3{float64(v.X), float64(v.Y), float64(v.Z)}
}

func Vector3lFrom(v Vector3) Vector3l {
	return Vector3l{int64(v.X), int64(v.Y), int64(v.Z)}
}

// Pow2 is the fixed-point conversion factor for a scale exponent.
func Pow2(scale int) int64 {
	return int64(1) << scale
}

func absdelta(lhs, rhs int64) uint64 {
	lhsPositive := lhs > 0
	rhsPositive := rhs > 0
	if lhsPositive && !rhsPositive {
		return uint64(lhs) + uint64(-rhs)
	} else if !lhsPositive && rhsPositive {
		return uint64(-lhs) + uint64(rhs)
	}
	// same sign, no risk of overflow
	if lhs > rhs {
		return uint64(lhs - rhs)
	}
	return uint64(rhs - lhs)
}

// 1431655765 = sqrt(2^64)/3 = max per-axis delta with no overflow risk in
// the sum of squares below
const deltaMax = uint64(1431655765)

// IsDistanceNear reports (distance between a and b) < threshold without
// overflowing; deltas too large to square safely are just "far". Naive
// squared distance overflows int64 at planetary scale, hence the dance.
func IsDistanceNear(a, b Vector3l, threshold uint64) bool {
	dx := absdelta(a.X, b.X)
	dy := absdelta(a.Y, b.Y)
	dz := absdelta(a.Z, b.Z)

	if dx > deltaMax || dy > deltaMax || dz > deltaMax {
		return false
	}

	// threshold*threshold would overflow; it exceeds any magnitude that
	// passed the per-axis guard
	if threshold >= 1<<32 {
		return true
	}

	magnitudeSqr := dx*dx + dy*dy + dz*dz

	return magnitudeSqr < threshold*threshold
}
