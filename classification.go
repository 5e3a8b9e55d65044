package fertile

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/split"
)

// classCounts is implemented by the dense and sparse accumulators to give
// the shared classification engine access to their class count storage.
type classCounts interface {
	addSplitCounts()
	removeSplitCounts(index int)
	leftCount(split, class int) float64
	rightCount(split, class int) float64
	addLeftExample(split, class int, weight float64)
	addTotalExample(class int, weight float64)
	giniScore(split int) (score, leftSum, rightSum float64)
	classesSeen() int
	forEachClass(fn func(class int))
}

// classificationStats is the engine shared by the dense and sparse
// classification accumulators: it owns the finish and prune policies,
// the optional running impurity cache and the private random stream the
// bootstrap finish test draws from.
type classificationStats struct {
	growthContext

	finish FinishPolicy
	prune  PrunePolicy

	finishEarly      bool
	minSplitSamples  float64
	finishCheckEvery float64
	finishNextDue    float64
	dominateFraction float64

	pruneCheckEvery float64
	pruneNextDue    float64
	pruneFraction   float64
	halfLnDominate  float64

	leftGini  *runningGini
	rightGini *runningGini

	rng    *rand.Rand
	counts classCounts
}

func (c *classificationStats) init(p Params, depth int, rng *rand.Rand, counts classCounts) error {
	if err := c.growthContext.init(p, depth, c); err != nil {
		return err
	}
	c.counts = counts
	c.finish = p.Finish
	c.prune = p.Prune
	c.rng = rng

	switch p.Finish {
	case FinishBasic:
		c.minSplitSamples = c.splitAfterSamples
	case FinishDominateHoeffding, FinishDominateBootstrap:
		c.dominateFraction = p.DominateFraction.resolve(depth)
		if c.dominateFraction <= 0 || c.dominateFraction > 1.0 {
			return fmt.Errorf("finish policy %v: dominate_fraction %g outside (0, 1]", p.Finish, c.dominateFraction)
		}
		c.minSplitSamples = p.MinSplitSamples.resolve(depth)
		if c.minSplitSamples <= 0 {
			return fmt.Errorf("finish policy %v: min_split_samples is required", p.Finish)
		}
		c.finishCheckEvery = p.FinishCheckEvery.resolve(depth)
		if c.finishCheckEvery <= 0 {
			return fmt.Errorf("finish policy %v: finish_check_every is required", p.Finish)
		}
		c.finishNextDue = math.Floor(c.minSplitSamples/c.finishCheckEvery) * c.finishCheckEvery
	default:
		return fmt.Errorf("unknown finish policy %d", int(p.Finish))
	}
	if p.Finish == FinishDominateBootstrap && rng == nil {
		return fmt.Errorf("finish policy %v: a random source is required", p.Finish)
	}

	if p.Prune != PruneNone {
		c.pruneCheckEvery = p.PruneCheckEvery.resolve(depth)
		if c.pruneCheckEvery <= 0 {
			return fmt.Errorf("prune policy %v: prune_check_every is required", p.Prune)
		}
		c.pruneNextDue = c.pruneCheckEvery
		switch p.Prune {
		case PruneHalf:
			c.pruneFraction = 0.5
		case PruneQuarter:
			c.pruneFraction = 0.25
		case PruneTenPercent:
			c.pruneFraction = 0.10
		case PruneHoeffding:
			c.dominateFraction = p.DominateFraction.resolve(depth)
			if c.dominateFraction <= 0 || c.dominateFraction > 1.0 {
				return fmt.Errorf("prune policy %v: dominate_fraction %g outside (0, 1]", p.Prune, c.dominateFraction)
			}
			c.halfLnDominate = 0.5 * math.Log(1.0/(1.0-c.dominateFraction))
		default:
			return fmt.Errorf("unknown prune policy %d", int(p.Prune))
		}
	}

	if p.UseRunningStats {
		c.leftGini = newRunningGini()
		c.rightGini = newRunningGini()
	}
	return nil
}

func (c *classificationStats) addSplitStorage() {
	if c.leftGini != nil {
		c.leftGini.addSplit()
		c.rightGini.addSplit()
	}
	c.counts.addSplitCounts()
}

func (c *classificationStats) removeSplitStorage(index int) {
	if c.leftGini != nil {
		c.leftGini.removeSplit(index)
		c.rightGini.removeSplit(index)
	}
	c.counts.removeSplitCounts(index)
}

/*
IsFinished returns true when the leaf has accumulated SplitAfterSamples
weight and observed more than one distinct class, or when an early-finish
test has certified the leading candidate.
*/
func (c *classificationStats) IsFinished() bool {
	basic := c.weightSum >= c.splitAfterSamples && c.counts.classesSeen() > 1
	return basic || c.finishEarly
}

/*
ObserveExample routes the example through every live candidate evaluator,
accumulating its weight into the left counts of the candidates that route
it left and into the leaf totals, and then runs the epoch-gated finish
and prune checks.
*/
func (c *classificationStats) ObserveExample(in dataset.Inputs, tg dataset.Targets, example int) error {
	label := tg.ClassIndex(example)
	weight := tg.Weight(example)
	ex := in.Example(example)

	for i := 0; i < len(c.candidates); i++ {
		decision, err := c.candidates[i].eval.Decide(ex)
		if err != nil {
			return fmt.Errorf("observing example %d: %v", example, err)
		}
		if decision == split.Left {
			if c.leftGini != nil {
				c.leftGini.update(i, c.counts.leftCount(i, label), weight)
			}
			c.counts.addLeftExample(i, label, weight)
		} else if c.rightGini != nil {
			c.rightGini.update(i, c.counts.rightCount(i, label), weight)
		}
	}

	c.counts.addTotalExample(label, weight)
	c.weightSum += weight

	c.checkFinishEarly()
	c.checkPrune()
	return nil
}

// cachedGiniScore scores a candidate from the running cache when it is
// enabled, and recomputes from raw counts otherwise.
func (c *classificationStats) cachedGiniScore(index int) (score, leftSum, rightSum float64) {
	if c.leftGini == nil {
		return c.counts.giniScore(index)
	}
	leftSum = c.leftGini.sum(index)
	left := weightedGini(leftSum, c.leftGini.square(index))
	rightSum = c.rightGini.sum(index)
	right := weightedGini(rightSum, c.rightGini.square(index))
	return left + right, leftSum, rightSum
}

// initRunningCounts rebuilds the running cache from the raw counts after
// a slot restore.
func (c *classificationStats) initRunningCounts() {
	if c.leftGini == nil {
		return
	}
	for len(c.leftGini.sums) < len(c.candidates) {
		c.leftGini.addSplit()
		c.rightGini.addSplit()
	}
	c.leftGini.reset()
	c.rightGini.reset()
	for i := range c.candidates {
		c.counts.forEachClass(func(class int) {
			if l := c.counts.leftCount(i, class); l != 0 {
				c.leftGini.update(i, 0, l)
			}
			if r := c.counts.rightCount(i, class); r != 0 {
				c.rightGini.update(i, 0, r)
			}
		})
	}
}

// rebaseCheckSchedule advances the finish and prune thresholds past the
// restored weight sum. Without it a restored context would run one
// check per example until the thresholds caught up with the persisted
// weight.
func (c *classificationStats) rebaseCheckSchedule() {
	if c.finishCheckEvery > 0 && c.finishNextDue <= c.weightSum {
		steps := math.Floor((c.weightSum-c.finishNextDue)/c.finishCheckEvery) + 1
		c.finishNextDue += steps * c.finishCheckEvery
	}
	if c.pruneCheckEvery > 0 && c.pruneNextDue <= c.weightSum {
		steps := math.Floor((c.weightSum-c.pruneNextDue)/c.pruneCheckEvery) + 1
		c.pruneNextDue += steps * c.pruneCheckEvery
	}
}

// checkFinishEarly dispatches to the configured dominate test once the
// leaf holds at least minSplitSamples weight, at most once per check
// cadence. The next due threshold advances monotonically so a single
// large-weight example cannot trigger more than one check.
func (c *classificationStats) checkFinishEarly() {
	if c.finish == FinishBasic || c.finishEarly {
		return
	}
	if c.weightSum < c.minSplitSamples || c.weightSum < c.finishNextDue {
		return
	}
	c.finishNextDue += c.finishCheckEvery

	if c.NumSplits() < 2 {
		return
	}
	switch c.finish {
	case FinishDominateHoeffding:
		c.checkFinishEarlyHoeffding()
	case FinishDominateBootstrap:
		c.checkFinishEarlyBootstrap()
	}
}

func (c *classificationStats) checkFinishEarlyHoeffding() {
	// Each term in the Gini impurity can range from 0 to 0.5 * 0.5.
	scoreRange := 0.25 * float64(c.numOutputs) * c.weightSum
	bound := scoreRange * math.Sqrt(math.Log(1.0/(1.0-c.dominateFraction))/(2.0*c.weightSum))

	bestScore, _, secondScore, _ := twoBest(c.NumSplits(), func(i int) float64 {
		s, _, _ := c.cachedGiniScore(i)
		return s
	})

	c.finishEarly = (secondScore - bestScore) > bound
}

// bootstrapWeights returns the Laplace-smoothed per-class probabilities
// of the left and right distributions of a candidate, the sampling
// weights for its bootstrap trials.
func (c *classificationStats) bootstrapWeights(index int) []float64 {
	n := math.Floor(c.weightSum)
	denom := n + float64(c.numOutputs)
	weights := make([]float64, 2*c.numOutputs)
	for i := 0; i < c.numOutputs; i++ {
		weights[i] = (c.counts.leftCount(index, i) + 1.0) / denom
		weights[c.numOutputs+i] = (c.counts.rightCount(index, i) + 1.0) / denom
	}
	return weights
}

// numBootstrapTrials returns the minimal number of trials k such that
// (1 - dominateFraction) <= 2^-k. A dominate fraction of exactly 1
// would double forever; a single trial already satisfies the rule.
func (c *classificationStats) numBootstrapTrials() int {
	p := 1.0 - c.dominateFraction
	if p <= 0 {
		return 1
	}
	trials := 1
	for p < 1.0 {
		trials++
		p = p * 2
	}
	return trials
}

func (c *classificationStats) checkFinishEarlyBootstrap() {
	_, bestIndex, _, secondIndex := twoBest(c.NumSplits(), func(i int) float64 {
		s, _, _ := c.cachedGiniScore(i)
		return s
	})

	leader := newMultinomial(c.bootstrapWeights(bestIndex), c.rng)
	runnerUp := newMultinomial(c.bootstrapWeights(secondIndex), c.rng)

	trials := c.numBootstrapTrials()
	n := int(c.weightSum)
	bins := 2 * c.numOutputs

	worstLeader := math.Inf(-1)
	for i := 0; i < trials; i++ {
		worstLeader = math.Max(worstLeader, bootstrapGini(n, bins, leader))
	}

	bestRunnerUp := math.Inf(1)
	for i := 0; i < trials; i++ {
		bestRunnerUp = math.Min(bestRunnerUp, bootstrapGini(n, bins, runnerUp))
	}

	c.finishEarly = worstLeader < bestRunnerUp
}

// checkPrune discards weak candidates once per prune cadence while the
// leaf is not yet finished.
func (c *classificationStats) checkPrune() {
	if c.prune == PruneNone {
		return
	}
	if c.IsFinished() || c.weightSum < c.pruneNextDue {
		return
	}
	c.pruneNextDue += c.pruneCheckEvery

	if c.prune == PruneHoeffding {
		c.checkPruneHoeffding()
		return
	}

	toRemove := int(float64(c.NumSplits()) * c.pruneFraction)
	if toRemove <= 0 {
		return
	}

	// Keep the toRemove worst-scoring candidates on a bounded min-heap:
	// its top is the least bad of the kept ones and is evicted whenever a
	// worse candidate shows up.
	worst := &worstSplitHeap{}
	for i := 0; i < c.NumSplits(); i++ {
		score, _, _ := c.cachedGiniScore(i)
		if worst.Len() < toRemove {
			heap.Push(worst, scoredSplit{score, i})
		} else if (*worst)[0].score < score {
			heap.Pop(worst)
			heap.Push(worst, scoredSplit{score, i})
		}
	}

	indices := make([]int, 0, worst.Len())
	for _, ss := range *worst {
		indices = append(indices, ss.index)
	}
	// Remove from the back so earlier removals do not shift later indices.
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, i := range indices {
		c.Discard(i)
	}
}

func (c *classificationStats) checkPruneHoeffding() {
	scores := make([]float64, c.NumSplits())
	bestScore := math.Inf(1)
	for i := range scores {
		scores[i], _, _ = c.cachedGiniScore(i)
		if scores[i] < bestScore {
			bestScore = scores[i]
		}
	}

	// The bound applies to the difference between the best score and the
	// i-th score. Raw Gini ranges from 0 to 1 - (1/n), but the scores are
	// weighted.
	giniDiffRange := c.weightSum * (1.0 - 1.0/float64(c.numOutputs))
	epsilon := giniDiffRange * math.Sqrt(c.halfLnDominate/c.weightSum)
	for i := c.NumSplits() - 1; i >= 0; i-- {
		if scores[i]-bestScore > epsilon {
			c.Discard(i)
		}
	}
}

type scoredSplit struct {
	score float64
	index int
}

// worstSplitHeap is a min-heap of scored candidates ordered by score.
type worstSplitHeap []scoredSplit

func (h worstSplitHeap) Len() int            { return len(h) }
func (h worstSplitHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h worstSplitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *worstSplitHeap) Push(x interface{}) { *h = append(*h, x.(scoredSplit)) }
func (h *worstSplitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// multinomial draws bin indices from a weighted distribution via its
// cumulative weights.
type multinomial struct {
	cum []float64
	rng *rand.Rand
}

func newMultinomial(weights []float64, rng *rand.Rand) *multinomial {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return &multinomial{cum, rng}
}

func (m *multinomial) sample() int {
	target := m.rng.Float64() * m.cum[len(m.cum)-1]
	return sort.SearchFloat64s(m.cum, target)
}

// bootstrapGini draws n examples from the given distribution over the
// left and right class bins of a candidate and returns the Gini impurity
// of the resampled counts.
func bootstrapGini(n, bins int, m *multinomial) float64 {
	if n <= 0 {
		return 0
	}
	counts := make([]float64, bins)
	for i := 0; i < n; i++ {
		counts[m.sample()]++
	}
	square := 0.0
	for _, c := range counts {
		square += c * c
	}
	return 1.0 - square/(float64(n)*float64(n))
}
