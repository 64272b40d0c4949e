package utils

import (
	"fmt"

	V "flu.com/flu/vector"
)

//Application Specific Positional Data Transfer. Packs vectors into a flat float32
//stream laid out the way a vertex buffer expects, dim floats per vector.
//dst is reused when it has room
func PackPositions[T V.Vec](dst []float32, pos []T) []float32 {
	dim := V.Dim[T]()
	n := len(pos) * dim
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i, p := range pos {
		for k := 0; k < dim; k++ {
			dst[i*dim+k] = p[k]
		}
	}
	return dst
}

//UnpackPositions reads back a stream written by PackPositions
func UnpackPositions[T V.Vec](stream []float32) ([]T, error) {
	dim := V.Dim[T]()
	if len(stream)%dim != 0 {
		return nil, fmt.Errorf("stream of %d floats is not a multiple of dimension %d", len(stream), dim)
	}
	out := make([]T, len(stream)/dim)
	for i := range out {
		for k := 0; k < dim; k++ {
			out[i][k] = stream[i*dim+k]
		}
	}
	return out, nil
}

//Scales Position List Points Around an Origin
func ScalePositions[T V.Vec](pos []T, origin T, scale float32) {
	for i, p := range pos {
		pos[i] = V.AddScaled(origin, V.Sub(p, origin), scale)
	}
}
