package fluid

import (
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomPositions3(n int, extent float32, seed uint64) []mgl32.Vec3 {
	rnd := rand.New(rand.NewSource(seed))
	ps := make([]mgl32.Vec3, n)
	for i := range ps {
		ps[i] = mgl32.Vec3{
			(2*rnd.Float32() - 1) * extent,
			(2*rnd.Float32() - 1) * extent,
			(2*rnd.Float32() - 1) * extent,
		}
	}
	return ps
}

func randomPositions2(n int, extent float32, seed uint64) []mgl32.Vec2 {
	rnd := rand.New(rand.NewSource(seed))
	ps := make([]mgl32.Vec2, n)
	for i := range ps {
		ps[i] = mgl32.Vec2{(2*rnd.Float32() - 1) * extent, (2*rnd.Float32() - 1) * extent}
	}
	return ps
}

type pair struct{ I, J int }

func collectPairs(s interface{ ForEachPair(PairFunc) }) map[pair]float32 {
	out := map[pair]float32{}
	s.ForEachPair(func(i int, j int, d float32) {
		out[pair{i, j}] = d
	})
	return out
}

func TestSearchersAgree3D(t *testing.T) {
	ps := randomPositions3(2000, 6, 295275912632)
	brute := NewSearcher[mgl32.Vec3](BruteForce)
	grid := NewSearcher[mgl32.Vec3](Grid)
	brute.Update(ps, 1)
	grid.Update(ps, 1)

	want := collectPairs(brute)
	got := collectPairs(grid)
	require.NotEmpty(t, want)
	assert.Equal(t, len(want), len(got))
	for p, d := range want {
		gd, ok := got[p]
		if assert.True(t, ok, "pair %v missing from grid", p) {
			assert.Equal(t, d, gd)
		}
		assert.Less(t, p.I, p.J)
	}
	//The grid has to test far fewer pairs to get there
	assert.Less(t, grid.Candidates(), brute.Candidates()/10)
}

func TestSearchersAgree2D(t *testing.T) {
	ps := randomPositions2(800, 8, 42)
	brute := NewSearcher[mgl32.Vec2](BruteForce)
	grid := NewSearcher[mgl32.Vec2](Grid)
	for _, r := range []float32{0.3, 1, 2.5} {
		brute.Update(ps, r)
		grid.Update(ps, r)
		assert.Equal(t, collectPairs(brute), collectPairs(grid), "radius %g", r)
	}
}

//At small N the modulo reduction makes distant cells share a bucket. The
//aliased particles show up as candidates but never as pairs
func TestGridAliasing(t *testing.T) {
	ps := []mgl32.Vec2{{0.5, 0.5}, {10.5, 0.5}}
	grid := &HashGrid[mgl32.Vec2]{}
	grid.Update(ps, 1)

	require.Equal(t, grid.Key(ps[0]), grid.Key(ps[1]), "cells (0,0) and (10,0) alias at N=2")
	assert.Equal(t, 1, grid.Candidates())
	assert.Empty(t, collectPairs(grid))

	//Same layout padded with particles far away: N changes and so do the buckets
	padded := append([]mgl32.Vec2{}, ps...)
	for i := 0; i < 61; i++ {
		padded = append(padded, mgl32.Vec2{-50 + 3*float32(i), 40})
	}
	grid.Update(padded, 1)
	brute := NewSearcher[mgl32.Vec2](BruteForce)
	brute.Update(padded, 1)
	assert.Equal(t, collectPairs(brute), collectPairs(grid))
}

func TestGridNegativeCells(t *testing.T) {
	//Points straddling zero sit in cells -1 and 0 and must still pair
	ps := []mgl32.Vec3{{-0.1, -0.1, -0.1}, {0.1, 0.1, 0.1}, {-3, 0, 0}}
	grid := NewSearcher[mgl32.Vec3](Grid)
	grid.Update(ps, 1)
	pairs := collectPairs(grid)
	require.Len(t, pairs, 1)
	assert.InDelta(t, mgl32.Vec3{0.2, 0.2, 0.2}.Len(), pairs[pair{0, 1}], 1e-6)
}

func TestLookupIdempotent(t *testing.T) {
	ps := randomPositions3(500, 4, 7)
	for _, method := range []SearchMethod{BruteForce, Grid} {
		s := NewSearcher[mgl32.Vec3](method)
		var first, second []pair
		s.Update(ps, 1)
		s.ForEachPair(func(i int, j int, d float32) { first = append(first, pair{i, j}) })
		s.Update(ps, 1)
		s.ForEachPair(func(i int, j int, d float32) { second = append(second, pair{i, j}) })
		assert.Equal(t, first, second, "%s", method)
	}
}

func TestPairRanges(t *testing.T) {
	ps := randomPositions2(300, 5, 11)
	for _, method := range []SearchMethod{BruteForce, Grid} {
		s := NewSearcher[mgl32.Vec2](method)
		s.Update(ps, 1)
		all := collectPairs(s)

		split := map[pair]float32{}
		for _, r := range workerRanges(len(ps), 4) {
			s.ForEachPairFrom(r[0], r[1], func(i int, j int, d float32) {
				assert.True(t, i >= r[0] && i < r[1])
				_, seen := split[pair{i, j}]
				assert.False(t, seen)
				split[pair{i, j}] = d
			})
		}
		assert.Equal(t, all, split, "%s", method)
	}
}

func TestNeighborQuery(t *testing.T) {
	ps := randomPositions3(1000, 5, 3)
	brute := NewSearcher[mgl32.Vec3](BruteForce)
	grid := NewSearcher[mgl32.Vec3](Grid)
	brute.Update(ps, 1.5)
	grid.Update(ps, 1.5)

	query := func(s Searcher[mgl32.Vec3], p mgl32.Vec3) []int {
		var out []int
		s.ForEachNeighbor(p, func(j int, d float32) {
			assert.Less(t, d, float32(1.5))
			out = append(out, j)
		})
		sort.Ints(out)
		return out
	}
	for _, p := range randomPositions3(50, 5, 99) {
		assert.Equal(t, query(brute, p), query(grid, p))
	}
	//A particle finds itself
	assert.Contains(t, query(grid, ps[17]), 17)
}

func TestEmptyLookup(t *testing.T) {
	for _, method := range []SearchMethod{BruteForce, Grid} {
		s := NewSearcher[mgl32.Vec2](method)
		s.Update(nil, 1)
		s.ForEachPair(func(i int, j int, d float32) { t.Fatal("pair in empty lookup") })
		s.ForEachNeighbor(mgl32.Vec2{}, func(j int, d float32) { t.Fatal("neighbor in empty lookup") })
		assert.Zero(t, s.Candidates())
		assert.Equal(t, method, s.Method())
	}

	grid := &HashGrid[mgl32.Vec3]{}
	grid.Update(nil, 1)
	assert.NotPanics(t, func() {
		assert.Equal(t, uint32(0), grid.Key(mgl32.Vec3{1, 1, 1}))
	})
	assert.Equal(t, uint32(0), Hash([3]int32{-3, 4, 5}, 3, 0))
}

func BenchmarkGridPairs(b *testing.B) {
	ps := randomPositions3(10000, 12, 295275912632)
	grid := NewSearcher[mgl32.Vec3](Grid)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		grid.Update(ps, 1)
		count := 0
		grid.ForEachPair(func(i int, j int, d float32) { count++ })
	}
}
