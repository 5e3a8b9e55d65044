package fertile

import "math"

// giniImpurity returns the Gini impurity of a partition described by the
// sum and sum of squares of its per-class weights. 0 denotes a perfectly
// pure partition; empty partitions score 0 so the measure stays
// well-defined while a branch has received no examples.
func giniImpurity(sum, square float64) float64 {
	if sum <= 0 {
		return 0
	}
	return 1.0 - square/(sum*sum)
}

// weightedGini scales the impurity of a partition by its weight mass so
// that the scores of the two branches of a split can be added together.
func weightedGini(sum, square float64) float64 {
	return sum * giniImpurity(sum, square)
}

// runningGini keeps per-split running sums and sums of squares of
// weighted class counts for one side of the candidate splits, so scoring
// does not recompute them from raw counts on every check.
type runningGini struct {
	sums    []float64
	squares []float64
}

func newRunningGini() *runningGini {
	return &runningGini{}
}

func (rg *runningGini) addSplit() {
	rg.sums = append(rg.sums, 0)
	rg.squares = append(rg.squares, 0)
}

func (rg *runningGini) removeSplit(index int) {
	rg.sums = append(rg.sums[:index], rg.sums[index+1:]...)
	rg.squares = append(rg.squares[:index], rg.squares[index+1:]...)
}

// update accumulates weight added to a class whose count on this side was
// oldCount before the addition.
func (rg *runningGini) update(index int, oldCount, weight float64) {
	rg.sums[index] += weight
	newCount := oldCount + weight
	rg.squares[index] += newCount*newCount - oldCount*oldCount
}

func (rg *runningGini) sum(index int) float64 {
	return rg.sums[index]
}

func (rg *runningGini) square(index int) float64 {
	return rg.squares[index]
}

func (rg *runningGini) reset() {
	for i := range rg.sums {
		rg.sums[i] = 0
		rg.squares[i] = 0
	}
}

// twoBest returns the scores and indices of the two lowest-scoring live
// candidates. It expects n >= 2.
func twoBest(n int, score func(int) float64) (bestScore float64, bestIndex int, secondScore float64, secondIndex int) {
	bestScore = math.Inf(1)
	secondScore = math.Inf(1)
	bestIndex = -1
	secondIndex = -1
	for i := 0; i < n; i++ {
		s := score(i)
		if s < bestScore {
			secondScore = bestScore
			secondIndex = bestIndex
			bestScore = s
			bestIndex = i
		} else if s < secondScore {
			secondScore = s
			secondIndex = i
		}
	}
	return bestScore, bestIndex, secondScore, secondIndex
}
