package geometry

import (
	"errors"
	"fmt"

	V "flu.com/flu/vector"
)

//flu geometry library - the axis aligned confinement volume of the fluid and
//the helper shapes a renderer needs to draw it. Particle encasement itself lives
//with the solver since it also reflects velocities.

var ErrInvalidBox = errors.New("geometry: invalid bounding box")

//Box is an axis aligned bounding box
type Box[T V.Vec] struct {
	Min T
	Max T
}

//Segment is one edge of a box wireframe
type Segment[T V.Vec] struct {
	A T
	B T
}

//DefaultBox returns the +-15 box the solver starts with
func DefaultBox[T V.Vec]() Box[T] {
	return Box[T]{V.Splat[T](-15), V.Splat[T](15)}
}

//CenteredBox returns a box of the given full extent around origin
func CenteredBox[T V.Vec](origin T, size T) Box[T] {
	half := V.Scale(size, 0.5)
	return Box[T]{V.Sub(origin, half), V.Add(origin, half)}
}

//Validate fails when any axis is empty or inverted or a corner is not finite
func (b Box[T]) Validate() error {
	if !V.IsFinite(b.Min) || !V.IsFinite(b.Max) {
		return fmt.Errorf("%w: non finite corner %s %s", ErrInvalidBox, V.String(b.Min), V.String(b.Max))
	}
	for i := 0; i < len(b.Min); i++ {
		if b.Min[i] >= b.Max[i] {
			return fmt.Errorf("%w: axis %d min %g >= max %g", ErrInvalidBox, i, b.Min[i], b.Max[i])
		}
	}
	return nil
}

func (b Box[T]) Size() T {
	return V.Sub(b.Max, b.Min)
}

func (b Box[T]) Center() T {
	return V.Scale(V.Add(b.Min, b.Max), 0.5)
}

//Contains reports whether p lies inside the box shrunk by margin on every face
func (b Box[T]) Contains(p T, margin float32) bool {
	for i := 0; i < len(p); i++ {
		if p[i]-margin < b.Min[i] || p[i]+margin > b.Max[i] {
			return false
		}
	}
	return true
}

//Edges returns the wireframe of the box: 4 segments in 2D, 12 in 3D
func (b Box[T]) Edges() []Segment[T] {
	dim := len(b.Min)
	corners := 1 << dim
	corner := func(mask int) T {
		var c T
		for i := 0; i < dim; i++ {
			if mask&(1<<i) != 0 {
				c[i] = b.Max[i]
			} else {
				c[i] = b.Min[i]
			}
		}
		return c
	}

	//Corners differing in exactly one bit share an edge
	edges := make([]Segment[T], 0, dim*corners/2)
	for mask := 0; mask < corners; mask++ {
		for i := 0; i < dim; i++ {
			other := mask | (1 << i)
			if other != mask {
				edges = append(edges, Segment[T]{corner(mask), corner(other)})
			}
		}
	}
	return edges
}
