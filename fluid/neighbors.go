package fluid

import V "flu.com/flu/vector"

//BruteForceSearch tests every pair. It is the reference the grid is checked against
type BruteForceSearch[T V.Vec] struct {
	positions []T
	radius    float32
}

func (b *BruteForceSearch[T]) Update(positions []T, radius float32) {
	b.positions = positions
	b.radius = radius
}

func (b *BruteForceSearch[T]) Method() SearchMethod {
	return BruteForce
}

func (b *BruteForceSearch[T]) ForEachPair(fn PairFunc) {
	b.ForEachPairFrom(0, len(b.positions), fn)
}

func (b *BruteForceSearch[T]) ForEachPairFrom(lo int, hi int, fn PairFunc) {
	lo, hi = clampRange(lo, hi, len(b.positions))
	r2 := b.radius * b.radius
	for i := lo; i < hi; i++ {
		pi := b.positions[i]
		for j := i + 1; j < len(b.positions); j++ {
			if d2 := V.Distance2(pi, b.positions[j]); d2 < r2 {
				fn(i, j, sqrt32(d2))
			}
		}
	}
}

func (b *BruteForceSearch[T]) ForEachNeighbor(p T, fn NeighborFunc) {
	r2 := b.radius * b.radius
	for j, pj := range b.positions {
		if d2 := V.Distance2(p, pj); d2 < r2 {
			fn(j, sqrt32(d2))
		}
	}
}

func (b *BruteForceSearch[T]) Candidates() int {
	n := len(b.positions)
	return n * (n - 1) / 2
}

//clampRange restricts [lo, hi) to [0, n)
func clampRange(lo int, hi int, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}
