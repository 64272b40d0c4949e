package vector

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

//Vector helpers shared by the 2D and 3D solvers. The solver is instantiated
//once per dimension so every helper here is generic over the two mgl32 vector
//types rather than dispatching on a runtime dimension value.

//Vec constrains a type parameter to the fixed size float32 vectors the fluid
//solver runs on. Indexing and len() are valid for both members of the set
type Vec interface {
	mgl32.Vec2 | mgl32.Vec3
}

//EPSILON is the distance below which two points are treated as coincident
const EPSILON = 1e-6

//Dim returns the dimensionality of V (2 or 3)
func Dim[T Vec]() int {
	var v T
	return len(v)
}

//Splat returns a vector with every component set to a
func Splat[T Vec](a float32) T {
	var v T
	for i := 0; i < len(v); i++ {
		v[i] = a
	}
	return v
}

//Unit returns the fixed fallback direction (1, 0[, 0])
func Unit[T Vec]() T {
	var v T
	v[0] = 1
	return v
}

//Add - component wise sum
func Add[T Vec](a T, b T) T {
	for i := 0; i < len(a); i++ {
		a[i] += b[i]
	}
	return a
}

//Sub - component wise difference a - b
func Sub[T Vec](a T, b T) T {
	for i := 0; i < len(a); i++ {
		a[i] -= b[i]
	}
	return a
}

//Scale - Scales vector by scalar s
func Scale[T Vec](a T, s float32) T {
	for i := 0; i < len(a); i++ {
		a[i] *= s
	}
	return a
}

//AddScaled returns a + b*s, the integration primitive used for velocities and positions
func AddScaled[T Vec](a T, b T, s float32) T {
	for i := 0; i < len(a); i++ {
		a[i] += b[i] * s
	}
	return a
}

func Dot[T Vec](a T, b T) float32 {
	d := float32(0)
	for i := 0; i < len(a); i++ {
		d += a[i] * b[i]
	}
	return d
}

func Length2[T Vec](a T) float32 {
	return Dot(a, a)
}

func Length[T Vec](a T) float32 {
	return float32(math.Sqrt(float64(Length2(a))))
}

//Distance2 is the squared distance between a and b. Neighbor predicates compare
//against radius squared so the square root is only taken for accepted pairs
func Distance2[T Vec](a T, b T) float32 {
	d := float32(0)
	for i := 0; i < len(a); i++ {
		x := a[i] - b[i]
		d += x * x
	}
	return d
}

func Distance[T Vec](a T, b T) float32 {
	return float32(math.Sqrt(float64(Distance2(a, b))))
}

//Direction returns the unit vector from b towards a given their precomputed
//distance. Coincident points fall back to Unit so callers dividing by the
//distance never see a NaN
func Direction[T Vec](a T, b T, distance float32) T {
	if distance < EPSILON {
		return Unit[T]()
	}
	return Scale(Sub(a, b), 1/distance)
}

//Normalize returns a unit length copy of a, Unit for the zero vector
func Normalize[T Vec](a T) T {
	var zero T
	return Direction(a, zero, Length(a))
}

//Cell returns the integer cell coordinate of p on a uniform grid with cells of
//side h. Unused trailing components stay zero in 2D
func Cell[T Vec](p T, h float32) [3]int32 {
	var c [3]int32
	for i := 0; i < len(p); i++ {
		c[i] = int32(math.Floor(float64(p[i] / h)))
	}
	return c
}

//Min and Max are component wise
func Min[T Vec](a T, b T) T {
	for i := 0; i < len(a); i++ {
		if b[i] < a[i] {
			a[i] = b[i]
		}
	}
	return a
}

func Max[T Vec](a T, b T) T {
	for i := 0; i < len(a); i++ {
		if b[i] > a[i] {
			a[i] = b[i]
		}
	}
	return a
}

//FromSlice builds a vector from the first Dim components of xs
func FromSlice[T Vec](xs []float32) (T, error) {
	var v T
	if len(xs) != len(v) {
		return v, fmt.Errorf("vector needs %d components, got %d", len(v), len(xs))
	}
	for i := 0; i < len(v); i++ {
		v[i] = xs[i]
	}
	return v, nil
}

//IsFinite reports false when any component is NaN or Inf
func IsFinite[T Vec](a T) bool {
	for i := 0; i < len(a); i++ {
		f := float64(a[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func String[T Vec](a T) string {
	s := "["
	for i := 0; i < len(a); i++ {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(" %f", a[i])
	}
	return s + "]"
}
