/*
Package fertile implements the online statistics a decision forest keeps
for its fertile leaves: the leaves still accumulating per-candidate-split
sufficient statistics toward a split decision. For each leaf a growth
context scores its split candidates by impurity or variance as examples
stream in, applies confidence-bound early-finish and pruning heuristics,
and ultimately nominates the best split.

A growth context corresponds to exactly one leaf and is not safe for
concurrent mutation: calls on the same context must be serialized by
the caller. Distinct leaves are fully independent and are the intended
unit of parallelism across a forest.
*/
package fertile

import (
	"fmt"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/slot"
	"github.com/jmaravall/fertile/split"
)

/*
GrowStats is the contract of a growth context, implemented by the
task-specific accumulators DenseClassificationStats,
SparseClassificationStats and RegressionStats.

Register appends a split candidate proposed by the caller, constructing
its decision evaluator and allocating matching per-split statistics.

Discard removes the candidate at the given index together with its
evaluator and statistics; remaining candidates preserve their relative
order. Multiple discards in one pass must be applied from the highest
index downward.

ObserveExample routes one training example through every live candidate
and updates per-split and leaf-total statistics. It must not be
interleaved with other mutations of the same context.

IsFinished reports whether the leaf has gathered enough evidence to
split.

SelectBestSplit returns the winning candidate with the statistics for
both resulting branches, or false when no candidate qualifies; callers
must then treat the leaf as not yet splittable and keep accumulating.

FromSlot and ToSlot map the accumulated state from and to its persisted
representation at checkpoint boundaries only.
*/
type GrowStats interface {
	Register(s split.Split) error
	Discard(index int) error
	ObserveExample(in dataset.Inputs, tg dataset.Targets, example int) error
	IsFinished() bool
	SelectBestSplit() (*Winner, bool)
	WeightSum() float64
	NumSplits() int
	FullOfSplits() bool
	FromSlot(s *slot.Slot) error
	ToSlot() *slot.Slot
}

/*
Winner is the outcome of SelectBestSplit: the nominated split and the
statistics accumulated for the examples each branch would have received,
ready to seed the two new leaves.
*/
type Winner struct {
	Split split.Split
	Left  *slot.Stats
	Right *slot.Stats
}

// candidate bundles a split definition with its decision evaluator so the
// two cannot desynchronize; the per-split statistics live at the same
// index in the owning accumulator.
type candidate struct {
	split split.Split
	eval  split.Evaluator
}

// splitStorage is implemented by accumulators to grow and shrink their
// per-split statistics in lockstep with the candidate list.
type splitStorage interface {
	addSplitStorage()
	removeSplitStorage(index int)
}

// growthContext is the base every accumulator embeds: the candidate
// registry and the hyperparameters resolved for the leaf's depth.
type growthContext struct {
	depth               int
	numOutputs          int
	splitAfterSamples   float64
	numSplitsToConsider int
	weightSum           float64
	candidates          []candidate
	storage             splitStorage
}

func (g *growthContext) init(p Params, depth int, storage splitStorage) error {
	if p.NumOutputs <= 0 {
		return fmt.Errorf("initializing growth context: num_outputs must be positive, got %d", p.NumOutputs)
	}
	g.depth = depth
	g.numOutputs = p.NumOutputs
	g.splitAfterSamples = p.SplitAfterSamples.resolve(depth)
	g.numSplitsToConsider = int(p.NumSplitsToConsider.resolve(depth))
	g.storage = storage
	return nil
}

/*
Register appends the given split to the candidate list, constructs its
decision evaluator and allocates matching per-split statistics, or
returns an error if no evaluator can be built for the split. The three
parallel structures always grow together.
*/
func (g *growthContext) Register(s split.Split) error {
	ev, err := split.NewEvaluator(s)
	if err != nil {
		return fmt.Errorf("registering split: %v", err)
	}
	g.candidates = append(g.candidates, candidate{s, ev})
	g.storage.addSplitStorage()
	return nil
}

/*
Discard removes the split at the given index together with its evaluator
and per-split statistics, preserving the relative order of the remaining
candidates, or returns an error if the index is out of range.
*/
func (g *growthContext) Discard(index int) error {
	if index < 0 || index >= len(g.candidates) {
		return fmt.Errorf("discarding split: index %d out of range [0, %d)", index, len(g.candidates))
	}
	g.candidates = append(g.candidates[:index], g.candidates[index+1:]...)
	g.storage.removeSplitStorage(index)
	return nil
}

// Depth returns the tree depth of the leaf the context grows.
func (g *growthContext) Depth() int {
	return g.depth
}

// WeightSum returns the total weight of the examples accumulated so far.
func (g *growthContext) WeightSum() float64 {
	return g.weightSum
}

// NumSplits returns the number of live split candidates.
func (g *growthContext) NumSplits() int {
	return len(g.candidates)
}

// NumOutputs returns the number of classes or output dimensions.
func (g *growthContext) NumOutputs() int {
	return g.numOutputs
}

// Split returns the split definition of the candidate at the given index.
func (g *growthContext) Split(index int) split.Split {
	return g.candidates[index].split
}

// FullOfSplits reports whether the context already holds as many
// candidates as it was configured to consider; callers proposing splits
// should stop once it returns true.
func (g *growthContext) FullOfSplits() bool {
	return len(g.candidates) >= g.numSplitsToConsider
}
