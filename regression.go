package fertile

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/slot"
	"github.com/jmaravall/fertile/split"
)

/*
RegressionStats accumulates least-squares regression statistics: per
output dimension, the sum and sum of squares of the outputs of all
examples the leaf has seen and, per candidate, of the examples routed
left, together with a scalar left example count. The weight sum is the
plain example count: every example counts equally, irrespective of any
external weight.
*/
type RegressionStats struct {
	growthContext

	totalSum        []float64
	totalSumSquares []float64
	leftSums        [][]float64
	leftSquares     [][]float64
	leftCounts      []float64

	// scratch vectors reused on every observed example
	outputs []float64
	squares []float64
}

/*
NewRegressionStats takes the growth parameters and the tree depth of the
leaf and returns an empty accumulator, or an error if the configuration
is unusable. The random source parameter is accepted for symmetry with
the classification constructors and is unused: regression has no
early-stopping heuristic.
*/
func NewRegressionStats(p Params, depth int, _ *rand.Rand) (*RegressionStats, error) {
	r := &RegressionStats{}
	if err := r.growthContext.init(p, depth, r); err != nil {
		return nil, err
	}
	r.totalSum = make([]float64, r.numOutputs)
	r.totalSumSquares = make([]float64, r.numOutputs)
	r.outputs = make([]float64, r.numOutputs)
	r.squares = make([]float64, r.numOutputs)
	return r, nil
}

func (r *RegressionStats) addSplitStorage() {
	r.leftSums = append(r.leftSums, make([]float64, r.numOutputs))
	r.leftSquares = append(r.leftSquares, make([]float64, r.numOutputs))
	r.leftCounts = append(r.leftCounts, 0)
}

func (r *RegressionStats) removeSplitStorage(index int) {
	r.leftSums = append(r.leftSums[:index], r.leftSums[index+1:]...)
	r.leftSquares = append(r.leftSquares[:index], r.leftSquares[index+1:]...)
	r.leftCounts = append(r.leftCounts[:index], r.leftCounts[index+1:]...)
}

/*
ObserveExample routes the example through every live candidate evaluator,
accumulating its outputs and their squares into the left statistics of
the candidates that route it left and into the leaf totals. The weight
sum increments by exactly 1.
*/
func (r *RegressionStats) ObserveExample(in dataset.Inputs, tg dataset.Targets, example int) error {
	for j := 0; j < r.numOutputs; j++ {
		r.outputs[j] = tg.Continuous(example, j)
	}
	floats.MulTo(r.squares, r.outputs, r.outputs)

	ex := in.Example(example)
	for i := 0; i < len(r.candidates); i++ {
		decision, err := r.candidates[i].eval.Decide(ex)
		if err != nil {
			return fmt.Errorf("observing example %d: %v", example, err)
		}
		if decision != split.Left {
			continue
		}
		floats.Add(r.leftSums[i], r.outputs)
		floats.Add(r.leftSquares[i], r.squares)
		r.leftCounts[i]++
	}

	floats.Add(r.totalSum, r.outputs)
	floats.Add(r.totalSumSquares, r.squares)
	r.weightSum++
	return nil
}

/*
IsFinished reports whether the leaf has seen SplitAfterSamples examples.
Regression applies no early-stopping heuristic.
*/
func (r *RegressionStats) IsFinished() bool {
	return r.weightSum >= r.splitAfterSamples
}

/*
SplitVariance returns the total variance a candidate leaves in its two
branches, summed over all output dimensions. Lower is better, equivalent
to minimizing the weighted sum of child variances.
*/
func (r *RegressionStats) SplitVariance(index int) float64 {
	leftCount := r.leftCounts[index]
	rightCount := r.weightSum - leftCount
	total := 0.0
	for j := 0; j < r.numOutputs; j++ {
		leftMean := r.leftSums[index][j] / leftCount
		leftMeanOfSquares := r.leftSquares[index][j] / leftCount
		total += leftMeanOfSquares - leftMean*leftMean

		rightMean := (r.totalSum[j] - r.leftSums[index][j]) / rightCount
		rightMeanOfSquares := (r.totalSumSquares[j] - r.leftSquares[index][j]) / rightCount
		total += rightMeanOfSquares - rightMean*rightMean
	}
	return total
}

/*
SelectBestSplit scans the live candidates for the lowest total variance,
skipping any candidate with zero examples on either side, and returns
the winner with the per-output sums of both branches, or false when no
candidate qualifies.
*/
func (r *RegressionStats) SelectBestSplit() (*Winner, bool) {
	minScore := math.Inf(1)
	bestIndex := -1
	for i := 0; i < r.NumSplits(); i++ {
		if r.leftCounts[i] <= 0 || r.weightSum-r.leftCounts[i] <= 0 {
			continue
		}
		if score := r.SplitVariance(i); score < minScore {
			minScore = score
			bestIndex = i
		}
	}

	// This can happen when all remaining candidates are degenerate.
	if bestIndex < 0 {
		return nil, false
	}

	leftSums := append([]float64(nil), r.leftSums[bestIndex]...)
	rightSums := make([]float64, r.numOutputs)
	floats.SubTo(rightSums, r.totalSum, r.leftSums[bestIndex])
	return &Winner{
		Split: r.candidates[bestIndex].split,
		Left:  &slot.Stats{WeightSum: r.leftCounts[bestIndex], Sums: leftSums},
		Right: &slot.Stats{WeightSum: r.weightSum - r.leftCounts[bestIndex], Sums: rightSums},
	}, true
}

/*
FromSlot restores the accumulator from its persisted representation:
the leaf example count, the total sums and sums of squares, and every
persisted candidate with its left sums, squares and example count. It
returns an error if a persisted candidate cannot be registered or its
statistics do not match the configured number of outputs.
*/
func (r *RegressionStats) FromSlot(s *slot.Slot) error {
	r.weightSum = s.WeightSum
	r.totalSum = make([]float64, r.numOutputs)
	r.totalSumSquares = make([]float64, r.numOutputs)
	r.leftSums = nil
	r.leftSquares = nil
	r.leftCounts = nil
	r.candidates = nil

	if s.Leaf != nil {
		if len(s.Leaf.Sums) != r.numOutputs || len(s.Leaf.Squares) != r.numOutputs {
			return fmt.Errorf("restoring slot %s: leaf has %d sums and %d squares, want %d", s.ID, len(s.Leaf.Sums), len(s.Leaf.Squares), r.numOutputs)
		}
		copy(r.totalSum, s.Leaf.Sums)
		copy(r.totalSumSquares, s.Leaf.Squares)
	}

	for _, cand := range s.Candidates {
		if err := r.Register(cand.Split); err != nil {
			return fmt.Errorf("restoring slot %s: %v", s.ID, err)
		}
		if cand.Left == nil {
			continue
		}
		if len(cand.Left.Sums) != r.numOutputs || len(cand.Left.Squares) != r.numOutputs {
			return fmt.Errorf("restoring slot %s: candidate has %d sums and %d squares, want %d", s.ID, len(cand.Left.Sums), len(cand.Left.Squares), r.numOutputs)
		}
		i := r.NumSplits() - 1
		copy(r.leftSums[i], cand.Left.Sums)
		copy(r.leftSquares[i], cand.Left.Squares)
		r.leftCounts[i] = cand.Left.WeightSum
	}
	return nil
}

/*
ToSlot packs the accumulated state into its persisted representation:
the leaf example count, the total sums and sums of squares, and every
live candidate with its left sums, squares and example count.
*/
func (r *RegressionStats) ToSlot() *slot.Slot {
	s := &slot.Slot{
		WeightSum: r.weightSum,
		Leaf: &slot.Stats{
			WeightSum: r.weightSum,
			Sums:      append([]float64(nil), r.totalSum...),
			Squares:   append([]float64(nil), r.totalSumSquares...),
		},
	}
	for i := range r.candidates {
		s.Candidates = append(s.Candidates, &slot.Candidate{
			Split: r.candidates[i].split,
			Left: &slot.Stats{
				WeightSum: r.leftCounts[i],
				Sums:      append([]float64(nil), r.leftSums[i]...),
				Squares:   append([]float64(nil), r.leftSquares[i]...),
			},
		})
	}
	return s
}
