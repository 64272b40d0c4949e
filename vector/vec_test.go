package vector

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

//Vector module testing
func TestVecAdd(t *testing.T) {
	x := mgl32.Vec3{1.0, 1.0, 1.0}
	y := mgl32.Vec3{1, 1, 1}

	assert.Equal(t, mgl32.Vec3{2, 2, 2}, Add(x, y))
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, Sub(x, y))
	assert.Equal(t, mgl32.Vec2{3, 5}, AddScaled(mgl32.Vec2{1, 1}, mgl32.Vec2{1, 2}, 2))
}

func TestVecDot(t *testing.T) {
	x := mgl32.Vec3{1, 2, 3}
	y := mgl32.Vec3{1, 1, 1}

	assert.Equal(t, float32(6.0), Dot(x, y))
	assert.Equal(t, x.Dot(y), Dot(x, y))
	assert.Equal(t, float32(14), Length2(x))
}

func TestDim(t *testing.T) {
	assert.Equal(t, 2, Dim[mgl32.Vec2]())
	assert.Equal(t, 3, Dim[mgl32.Vec3]())
	assert.Equal(t, mgl32.Vec2{1, 0}, Unit[mgl32.Vec2]())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, Unit[mgl32.Vec3]())
	assert.Equal(t, mgl32.Vec3{4, 4, 4}, Splat[mgl32.Vec3](4))
}

func TestDistance(t *testing.T) {
	a := mgl32.Vec3{2, 2, 2}
	b := mgl32.Vec3{0, 0, 0}

	assert.InDelta(t, math.Sqrt(12), Length(a), 1e-6)
	assert.InDelta(t, math.Sqrt(12), Distance(a, b), 1e-6)
	assert.Equal(t, float32(12), Distance2(a, b))
}

func TestDirectionFallback(t *testing.T) {
	p := mgl32.Vec2{3, 4}

	dir := Direction(p, p, 0)
	assert.Equal(t, mgl32.Vec2{1, 0}, dir)

	dir = Direction(mgl32.Vec2{3, 4}, mgl32.Vec2{0, 0}, 5)
	assert.InDelta(t, 0.6, dir[0], 1e-6)
	assert.InDelta(t, 0.8, dir[1], 1e-6)
	assert.True(t, IsFinite(dir))

	assert.Equal(t, mgl32.Vec3{1, 0, 0}, Normalize(mgl32.Vec3{}))
}

func TestCell(t *testing.T) {
	assert.Equal(t, [3]int32{0, 0, 0}, Cell(mgl32.Vec2{0.5, 0.99}, 1))
	assert.Equal(t, [3]int32{-1, 2, 0}, Cell(mgl32.Vec2{-0.5, 2.1}, 1))
	assert.Equal(t, [3]int32{-2, 0, 4}, Cell(mgl32.Vec3{-1.5, 0.2, 4.4}, 1))
}

func TestFromSlice(t *testing.T) {
	v, err := FromSlice[mgl32.Vec3]([]float32{1, 2, 3})
	assert.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v)

	_, err = FromSlice[mgl32.Vec2]([]float32{1, 2, 3})
	assert.Error(t, err)
}

func TestMinMax(t *testing.T) {
	a := mgl32.Vec2{1, 5}
	b := mgl32.Vec2{3, 2}
	assert.Equal(t, mgl32.Vec2{1, 2}, Min(a, b))
	assert.Equal(t, mgl32.Vec2{3, 5}, Max(a, b))
	assert.Equal(t, "[ 1.000000, 5.000000]", String(a))
}

func TestIsFinite(t *testing.T) {
	nan := float32(math.NaN())
	assert.False(t, IsFinite(mgl32.Vec2{nan, 0}))
	assert.False(t, IsFinite(mgl32.Vec3{0, float32(math.Inf(1)), 0}))
}
