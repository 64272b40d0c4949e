package fluid

import V "flu.com/flu/vector"

//PairFunc receives one unordered neighbor pair, i < j, and their distance
type PairFunc func(i int, j int, distance float32)

//NeighborFunc receives one particle within range of a query point
type NeighborFunc func(j int, distance float32)

//Searcher - neighbor search over a position set rebuilt once per step. Both
//implementations answer the same predicate, squared distance below radius squared
type Searcher[T V.Vec] interface {
	//Update rebuilds the structure. positions is retained until the next Update
	Update(positions []T, radius float32)
	//ForEachPair visits every unordered pair within radius exactly once
	ForEachPair(fn PairFunc)
	//ForEachPairFrom visits the pairs whose lower index lies in [lo, hi)
	ForEachPairFrom(lo int, hi int, fn PairFunc)
	//ForEachNeighbor visits every particle within radius of p, including one at p
	ForEachNeighbor(p T, fn NeighborFunc)
	//Candidates counts the pairs that would be distance tested by ForEachPair
	Candidates() int
	Method() SearchMethod
}

//NewSearcher returns an empty searcher for the given method
func NewSearcher[T V.Vec](method SearchMethod) Searcher[T] {
	if method == BruteForce {
		return &BruteForceSearch[T]{}
	}
	return &HashGrid[T]{}
}
