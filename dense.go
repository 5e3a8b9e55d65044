package fertile

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/jmaravall/fertile/slot"
)

/*
DenseClassificationStats accumulates classification statistics with
per-class arrays sized to the configured number of outputs: the total
class counts of the leaf and, per candidate, the class counts of the
examples routed left. Right counts are never stored, they are derived as
total minus left.
*/
type DenseClassificationStats struct {
	classificationStats

	totalCounts []float64
	left        [][]float64
	seen        int
}

/*
NewDenseClassificationStats takes the growth parameters, the tree depth
of the leaf and a random source for the bootstrap finish test and returns
an empty accumulator, or an error if the configuration is unusable. The
random source may be nil unless the dominate-bootstrap finish policy is
selected; tests should inject a fixed source for deterministic bootstrap
trials.
*/
func NewDenseClassificationStats(p Params, depth int, rng *rand.Rand) (*DenseClassificationStats, error) {
	d := &DenseClassificationStats{}
	if err := d.classificationStats.init(p, depth, rng, d); err != nil {
		return nil, err
	}
	d.totalCounts = make([]float64, d.numOutputs)
	return d, nil
}

func (d *DenseClassificationStats) addSplitCounts() {
	d.left = append(d.left, make([]float64, d.numOutputs))
}

func (d *DenseClassificationStats) removeSplitCounts(index int) {
	d.left = append(d.left[:index], d.left[index+1:]...)
}

func (d *DenseClassificationStats) leftCount(split, class int) float64 {
	return d.left[split][class]
}

func (d *DenseClassificationStats) rightCount(split, class int) float64 {
	return d.totalCounts[class] - d.left[split][class]
}

func (d *DenseClassificationStats) addLeftExample(split, class int, weight float64) {
	d.left[split][class] += weight
}

func (d *DenseClassificationStats) addTotalExample(class int, weight float64) {
	if d.totalCounts[class] == 0 && weight != 0 {
		d.seen++
	}
	d.totalCounts[class] += weight
}

func (d *DenseClassificationStats) classesSeen() int {
	return d.seen
}

func (d *DenseClassificationStats) forEachClass(fn func(class int)) {
	for class := range d.totalCounts {
		fn(class)
	}
}

// giniScore combines the weighted impurity of both branches of a
// candidate in a single pass over all class ids. Lower is better; 0 is
// pure.
func (d *DenseClassificationStats) giniScore(split int) (score, leftSum, rightSum float64) {
	var leftSquare, rightSquare float64
	for class := 0; class < d.numOutputs; class++ {
		left := d.left[split][class]
		leftSum += left
		leftSquare += left * left
		right := d.totalCounts[class] - left
		rightSum += right
		rightSquare += right * right
	}
	return weightedGini(leftSum, leftSquare) + weightedGini(rightSum, rightSquare), leftSum, rightSum
}

/*
SelectBestSplit scans the live candidates for the lowest impurity score,
skipping any candidate with zero weight on either side, and returns the
winner with the per-class counts of both branches, or false when no
candidate qualifies.
*/
func (d *DenseClassificationStats) SelectBestSplit() (*Winner, bool) {
	minScore := math.Inf(1)
	bestIndex := -1
	var bestLeftSum, bestRightSum float64

	for i := 0; i < d.NumSplits(); i++ {
		score, leftSum, rightSum := d.cachedGiniScore(i)
		if leftSum > 0 && rightSum > 0 && score < minScore {
			minScore = score
			bestIndex = i
			bestLeftSum = leftSum
			bestRightSum = rightSum
		}
	}

	// This can happen when all remaining candidates are degenerate.
	if bestIndex < 0 {
		return nil, false
	}

	leftCounts := append([]float64(nil), d.left[bestIndex]...)
	rightCounts := make([]float64, d.numOutputs)
	for class := range rightCounts {
		rightCounts[class] = d.totalCounts[class] - d.left[bestIndex][class]
	}
	return &Winner{
		Split: d.candidates[bestIndex].split,
		Left:  &slot.Stats{WeightSum: bestLeftSum, DenseCounts: leftCounts},
		Right: &slot.Stats{WeightSum: bestRightSum, DenseCounts: rightCounts},
	}, true
}

/*
FromSlot restores the accumulator from its persisted representation:
the leaf weight and total counts, and every persisted candidate with its
left counts. It returns an error if a persisted candidate cannot be
registered or its counts do not match the configured number of outputs.
*/
func (d *DenseClassificationStats) FromSlot(s *slot.Slot) error {
	d.weightSum = s.WeightSum
	d.totalCounts = make([]float64, d.numOutputs)
	d.left = nil
	d.candidates = nil
	d.seen = 0

	if s.Leaf != nil {
		if len(s.Leaf.DenseCounts) != d.numOutputs {
			return fmt.Errorf("restoring slot %s: leaf has %d dense counts, want %d", s.ID, len(s.Leaf.DenseCounts), d.numOutputs)
		}
		copy(d.totalCounts, s.Leaf.DenseCounts)
		for _, count := range d.totalCounts {
			if count != 0 {
				d.seen++
			}
		}
	}

	for _, cand := range s.Candidates {
		if err := d.Register(cand.Split); err != nil {
			return fmt.Errorf("restoring slot %s: %v", s.ID, err)
		}
		if cand.Left == nil {
			continue
		}
		if len(cand.Left.DenseCounts) != d.numOutputs {
			return fmt.Errorf("restoring slot %s: candidate has %d dense counts, want %d", s.ID, len(cand.Left.DenseCounts), d.numOutputs)
		}
		copy(d.left[d.NumSplits()-1], cand.Left.DenseCounts)
	}
	d.rebaseCheckSchedule()
	d.initRunningCounts()
	return nil
}

/*
ToSlot packs the accumulated state into its persisted representation:
the leaf weight and total counts, and every live candidate with its left
counts.
*/
func (d *DenseClassificationStats) ToSlot() *slot.Slot {
	s := &slot.Slot{
		WeightSum: d.weightSum,
		Leaf: &slot.Stats{
			WeightSum:   d.weightSum,
			DenseCounts: append([]float64(nil), d.totalCounts...),
		},
	}
	for i := range d.candidates {
		leftSum := 0.0
		for _, count := range d.left[i] {
			leftSum += count
		}
		s.Candidates = append(s.Candidates, &slot.Candidate{
			Split: d.candidates[i].split,
			Left: &slot.Stats{
				WeightSum:   leftSum,
				DenseCounts: append([]float64(nil), d.left[i]...),
			},
		})
	}
	return s
}
