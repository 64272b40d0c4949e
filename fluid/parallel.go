package fluid

import (
	V "flu.com/flu/vector"
	"golang.org/x/sync/errgroup"
)

//scratch is the accumulation target of one pair visitor. The serial path
//aliases the solver arrays, parallel workers each own a zeroed copy
type scratch[T V.Vec] struct {
	densities     []float32
	nearDensities []float32
	accelerations []T
}

func (b *scratch[T]) reset(n int) {
	if cap(b.densities) < n {
		b.densities = make([]float32, n)
		b.nearDensities = make([]float32, n)
		b.accelerations = make([]T, n)
	}
	b.densities = b.densities[:n]
	b.nearDensities = b.nearDensities[:n]
	b.accelerations = b.accelerations[:n]

	var zero T
	for i := 0; i < n; i++ {
		b.densities[i] = 0
		b.nearDensities[i] = 0
		b.accelerations[i] = zero
	}
}

func (b *scratch[T]) mergeInto(p *Particles[T]) {
	for i := range p.Densities {
		p.Densities[i] += b.densities[i]
		p.NearDensities[i] += b.nearDensities[i]
		p.Accelerations[i] = V.Add(p.Accelerations[i], b.accelerations[i])
	}
}

//workerRanges splits [0, n) into at most workers contiguous ranges
func workerRanges(n int, workers int) [][2]int {
	if workers > n {
		workers = n
	}
	ranges := make([][2]int, 0, workers)
	size := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		ranges = append(ranges, [2]int{lo, hi})
	}
	return ranges
}

//forEachPair runs a pair phase over the lookup. With more than one worker the
//lower pair index is split into ranges; workers write only their own scratch
//and the scratches are folded into the ensemble in worker order afterwards
func (s *Solver[T]) forEachPair(visit func(buf *scratch[T]) PairFunc) {
	n := s.data.Len()
	workers := s.settings.Workers
	if workers <= 1 || n < 2*workers {
		direct := scratch[T]{s.data.Densities, s.data.NearDensities, s.data.Accelerations}
		s.lookup.ForEachPair(visit(&direct))
		return
	}

	ranges := workerRanges(n, workers)
	for len(s.scratch) < len(ranges) {
		s.scratch = append(s.scratch, &scratch[T]{})
	}

	var g errgroup.Group
	for w, r := range ranges {
		buf, lo, hi := s.scratch[w], r[0], r[1]
		buf.reset(n)
		g.Go(func() error {
			s.lookup.ForEachPairFrom(lo, hi, visit(buf))
			return nil
		})
	}
	g.Wait()

	for w := range ranges {
		s.scratch[w].mergeInto(&s.data)
	}
}
