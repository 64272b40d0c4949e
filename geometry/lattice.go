package geometry

import (
	"fmt"

	V "flu.com/flu/vector"
	"golang.org/x/exp/rand"
)

//Lattice describes a block of particles laid out on a regular grid, the
//starting layout of a simulation. Counts holds particles per axis
type Lattice[T V.Vec] struct {
	Center  T
	Counts  []int
	Spacing float32
	Jitter  float32 //Max random offset per axis, 0 for an exact grid
	Seed    uint64
}

//Validate checks the per axis counts against the dimension of T
func (l *Lattice[T]) Validate() error {
	if len(l.Counts) != V.Dim[T]() {
		return fmt.Errorf("lattice needs %d counts, got %d", V.Dim[T](), len(l.Counts))
	}
	for i, c := range l.Counts {
		if c < 0 {
			return fmt.Errorf("lattice count %d on axis %d is negative", c, i)
		}
	}
	if l.Spacing <= 0 {
		return fmt.Errorf("lattice spacing must be positive, is %g", l.Spacing)
	}
	if l.Jitter < 0 {
		return fmt.Errorf("lattice jitter must not be negative, is %g", l.Jitter)
	}
	return nil
}

//Len is the number of particles the lattice produces
func (l *Lattice[T]) Len() int {
	n := 1
	for _, c := range l.Counts {
		n *= c
	}
	return n
}

//Positions lays the lattice out centered on Center. The first axis varies fastest
func (l *Lattice[T]) Positions() ([]T, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	n := l.Len()
	out := make([]T, 0, n)
	var gen *rand.Rand
	if l.Jitter > 0 {
		gen = rand.New(rand.NewSource(l.Seed))
	}

	var origin T
	for i := 0; i < len(origin); i++ {
		origin[i] = l.Center[i] - 0.5*float32(l.Counts[i]-1)*l.Spacing
	}

	idx := make([]int, len(l.Counts))
	for k := 0; k < n; k++ {
		rem := k
		for i := range idx {
			idx[i] = rem % l.Counts[i]
			rem /= l.Counts[i]
		}

		var p T
		for i := 0; i < len(p); i++ {
			p[i] = origin[i] + float32(idx[i])*l.Spacing
			if gen != nil {
				p[i] += (2*gen.Float32() - 1) * l.Jitter
			}
		}
		out = append(out, p)
	}
	return out, nil
}
