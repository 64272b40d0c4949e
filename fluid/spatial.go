package fluid

import (
	"math"
	"sort"

	V "flu.com/flu/vector"
)

//Cell hash primes, one per axis
const (
	HASH_P1 = 15823
	HASH_P2 = 9737333
	HASH_P3 = 440817757
)

const noStart = -1

//Spatial Hash Grid - buckets particles into cells of side radius and hashes the
//integer cell coordinate into a key reduced modulo the particle count. The
//(index, key) array is sorted by key so every bucket is one contiguous run and
//start[key] points at its first entry.
//
//Distinct cells may alias to the same key when the particle count is small. An
//aliased bucket only adds candidates that fail the distance test, so the pair
//set is always the brute force pair set; the cost is the extra tests.
type HashGrid[T V.Vec] struct {
	positions []T
	radius    float32
	entries   []gridEntry
	start     []int
}

type gridEntry struct {
	Index int
	Key   uint32
}

func (g *HashGrid[T]) Method() SearchMethod {
	return Grid
}

//Hash returns the bucket key of an integer cell coordinate for a table of n
//buckets. An empty table has the single key 0
func Hash(cell [3]int32, dim int, n int) uint32 {
	if n <= 0 {
		return 0
	}
	h := uint32(cell[0])*HASH_P1 + uint32(cell[1])*HASH_P2
	if dim == 3 {
		h += uint32(cell[2]) * HASH_P3
	}
	return h % uint32(n)
}

//Key returns the bucket of a position in the current grid
func (g *HashGrid[T]) Key(p T) uint32 {
	return Hash(V.Cell(p, g.radius), len(p), len(g.positions))
}

//Update rebuilds the sorted entry array and the start index table
func (g *HashGrid[T]) Update(positions []T, radius float32) {
	g.positions = positions
	g.radius = radius
	n := len(positions)

	if cap(g.entries) < n {
		g.entries = make([]gridEntry, n)
		g.start = make([]int, n)
	}
	g.entries = g.entries[:n]
	g.start = g.start[:n]
	if n == 0 {
		return
	}

	for i, p := range positions {
		g.entries[i] = gridEntry{i, g.Key(p)}
	}
	sort.Slice(g.entries, func(a, b int) bool {
		return g.entries[a].Key < g.entries[b].Key
	})

	for k := range g.start {
		g.start[k] = noStart
	}
	for i, e := range g.entries {
		if i == 0 || e.Key != g.entries[i-1].Key {
			g.start[e.Key] = i
		}
	}
}

//neighborKeys collects the distinct keys of the 3^D cells around p into buf
func (g *HashGrid[T]) neighborKeys(p T, buf []uint32) []uint32 {
	dim := len(p)
	center := V.Cell(p, g.radius)
	n := len(g.positions)
	buf = buf[:0]

	zRange := int32(0)
	if dim == 3 {
		zRange = 1
	}
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := -zRange; dz <= zRange; dz++ {
				cell := [3]int32{center[0] + dx, center[1] + dy, center[2] + dz}
				key := Hash(cell, dim, n)
				if !containsKey(buf, key) {
					buf = append(buf, key)
				}
			}
		}
	}
	return buf
}

func containsKey(keys []uint32, key uint32) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

//forEachCandidate visits every particle sharing a bucket with the neighborhood of p
func (g *HashGrid[T]) forEachCandidate(p T, keys []uint32, fn func(j int)) []uint32 {
	keys = g.neighborKeys(p, keys)
	for _, key := range keys {
		first := g.start[key]
		if first == noStart {
			continue
		}
		for s := first; s < len(g.entries) && g.entries[s].Key == key; s++ {
			fn(g.entries[s].Index)
		}
	}
	return keys
}

func (g *HashGrid[T]) ForEachPair(fn PairFunc) {
	g.ForEachPairFrom(0, len(g.positions), fn)
}

func (g *HashGrid[T]) ForEachPairFrom(lo int, hi int, fn PairFunc) {
	lo, hi = clampRange(lo, hi, len(g.positions))
	r2 := g.radius * g.radius
	keys := make([]uint32, 0, 27)
	for i := lo; i < hi; i++ {
		pi := g.positions[i]
		keys = g.forEachCandidate(pi, keys, func(j int) {
			if j <= i {
				return
			}
			if d2 := V.Distance2(pi, g.positions[j]); d2 < r2 {
				fn(i, j, sqrt32(d2))
			}
		})
	}
}

func (g *HashGrid[T]) ForEachNeighbor(p T, fn NeighborFunc) {
	if len(g.positions) == 0 {
		return
	}
	r2 := g.radius * g.radius
	g.forEachCandidate(p, make([]uint32, 0, 27), func(j int) {
		if d2 := V.Distance2(p, g.positions[j]); d2 < r2 {
			fn(j, sqrt32(d2))
		}
	})
}

func (g *HashGrid[T]) Candidates() int {
	count := 0
	keys := make([]uint32, 0, 27)
	for i, p := range g.positions {
		keys = g.forEachCandidate(p, keys, func(j int) {
			if j > i {
				count++
			}
		})
	}
	return count
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
