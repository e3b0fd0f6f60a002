package planeta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsdelta(t *testing.T) {
	assert.Equal(t, uint64(0), absdelta(5, 5))
	assert.Equal(t, uint64(3), absdelta(5, 2))
	assert.Equal(t, uint64(3), absdelta(2, 5))
	assert.Equal(t, uint64(7), absdelta(-3, 4))
	assert.Equal(t, uint64(7), absdelta(4, -3))
	assert.Equal(t, uint64(1), absdelta(-4, -3))

	// opposite extremes span nearly the whole uint64 range; a plain int64
	// subtraction would overflow
	assert.Equal(t,
		uint64(math.MaxInt64)+uint64(math.MaxInt64),
		absdelta(math.MaxInt64, -math.MaxInt64))
}

func TestIsDistanceNear(t *testing.T) {
	origin := Vector3l{}

	assert.True(t, IsDistanceNear(origin, Vector3l{X: 3, Y: 4, Z: 0}, 6))
	assert.False(t, IsDistanceNear(origin, Vector3l{X: 3, Y: 4, Z: 0}, 5))

	// any per-axis delta beyond the safe square root is reported far, even
	// against a huge threshold
	far := Vector3l{X: int64(deltaMax) + 1}
	assert.False(t, IsDistanceNear(origin, far, math.MaxUint64))

	// just inside the guard still computes
	near := Vector3l{X: int64(deltaMax)}
	assert.True(t, IsDistanceNear(origin, near, math.MaxUint64))
}

func TestIsDistanceNearPlanetaryScale(t *testing.T) {
	// two points on opposite sides of a 2^10-scaled 600km-ish sphere
	a := Vector3l{X: 600_000 << 10}
	b := Vector3l{X: -600_000 << 10}

	assert.False(t, IsDistanceNear(a, b, 1000<<10))
	assert.True(t, IsDistanceNear(a, b, 1_300_000<<10))
}
