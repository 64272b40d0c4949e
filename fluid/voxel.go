//Voxel Field - density samples on a regular grid of voxel centers covering the
//bounding box. Used for density heat maps and occupancy statistics
package fluid

import (
	"fmt"

	G "flu.com/flu/geometry"
	V "flu.com/flu/vector"
)

const MAX_DIVISIONS = 256

//VoxelField holds Divisions^dim samples, first axis fastest
type VoxelField[T V.Vec] struct {
	Box         G.Box[T]
	Divisions   int
	Density     []float32
	NearDensity []float32
}

//NewVoxelField allocates an empty field over box
func NewVoxelField[T V.Vec](box G.Box[T], divisions int) (*VoxelField[T], error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if divisions < 1 || divisions > MAX_DIVISIONS {
		return nil, fmt.Errorf("voxel divisions must be in [1, %d], got %d", MAX_DIVISIONS, divisions)
	}
	n := 1
	for i := 0; i < V.Dim[T](); i++ {
		n *= divisions
	}
	return &VoxelField[T]{
		Box:         box,
		Divisions:   divisions,
		Density:     make([]float32, n),
		NearDensity: make([]float32, n),
	}, nil
}

func (v *VoxelField[T]) Len() int {
	return len(v.Density)
}

//Center returns the world position of voxel idx
func (v *VoxelField[T]) Center(idx int) T {
	size := v.Box.Size()
	var c T
	for k := 0; k < len(c); k++ {
		cell := idx % v.Divisions
		idx /= v.Divisions
		c[k] = v.Box.Min[k] + (float32(cell)+0.5)*size[k]/float32(v.Divisions)
	}
	return c
}

//Index returns the voxel containing p, false when p is outside the box
func (v *VoxelField[T]) Index(p T) (int, bool) {
	size := v.Box.Size()
	idx, stride := 0, 1
	for k := 0; k < len(p); k++ {
		t := (p[k] - v.Box.Min[k]) / size[k]
		if t < 0 || t > 1 {
			return 0, false
		}
		cell := int(t * float32(v.Divisions))
		if cell == v.Divisions {
			cell--
		}
		idx += cell * stride
		stride *= v.Divisions
	}
	return idx, true
}

//Occupied counts voxels whose density is at least threshold
func (v *VoxelField[T]) Occupied(threshold float32) int {
	count := 0
	for _, d := range v.Density {
		if d >= threshold {
			count++
		}
	}
	return count
}

//SampleField fills field with the density at every voxel center. Call between steps
func (s *Solver[T]) SampleField(field *VoxelField[T]) {
	s.UpdateLookup()
	for idx := range field.Density {
		field.Density[idx], field.NearDensity[idx] = s.densityAt(field.Center(idx))
	}
}
