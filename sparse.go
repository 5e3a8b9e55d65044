package fertile

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/jmaravall/fertile/slot"
)

/*
SparseClassificationStats accumulates classification statistics with
class-id-to-weight mappings holding only the observed classes, supporting
output spaces far larger than what is actually observed. An absent class
id means a zero count.
*/
type SparseClassificationStats struct {
	classificationStats

	totalCounts map[int]float64
	left        []map[int]float64
}

/*
NewSparseClassificationStats takes the growth parameters, the tree depth
of the leaf and a random source for the bootstrap finish test and returns
an empty accumulator, or an error if the configuration is unusable. The
random source may be nil unless the dominate-bootstrap finish policy is
selected.
*/
func NewSparseClassificationStats(p Params, depth int, rng *rand.Rand) (*SparseClassificationStats, error) {
	s := &SparseClassificationStats{}
	if err := s.classificationStats.init(p, depth, rng, s); err != nil {
		return nil, err
	}
	s.totalCounts = make(map[int]float64)
	return s, nil
}

func (s *SparseClassificationStats) addSplitCounts() {
	s.left = append(s.left, make(map[int]float64))
}

func (s *SparseClassificationStats) removeSplitCounts(index int) {
	s.left = append(s.left[:index], s.left[index+1:]...)
}

func (s *SparseClassificationStats) leftCount(split, class int) float64 {
	return s.left[split][class]
}

func (s *SparseClassificationStats) rightCount(split, class int) float64 {
	return s.totalCounts[class] - s.left[split][class]
}

func (s *SparseClassificationStats) addLeftExample(split, class int, weight float64) {
	s.left[split][class] += weight
}

func (s *SparseClassificationStats) addTotalExample(class int, weight float64) {
	// A zero-weight example must not make its class count as seen.
	if weight == 0 {
		return
	}
	s.totalCounts[class] += weight
}

func (s *SparseClassificationStats) classesSeen() int {
	return len(s.totalCounts)
}

func (s *SparseClassificationStats) forEachClass(fn func(class int)) {
	for class := range s.totalCounts {
		fn(class)
	}
}

// giniScore combines the weighted impurity of both branches of a
// candidate iterating only over the observed class ids.
func (s *SparseClassificationStats) giniScore(split int) (score, leftSum, rightSum float64) {
	var leftSquare, rightSquare float64
	for class, total := range s.totalCounts {
		left, ok := s.left[split][class]
		right := total
		if ok {
			right = total - left
		}
		leftSum += left
		leftSquare += left * left
		rightSum += right
		rightSquare += right * right
	}
	return weightedGini(leftSum, leftSquare) + weightedGini(rightSum, rightSquare), leftSum, rightSum
}

/*
SelectBestSplit scans the live candidates for the lowest impurity score,
skipping any candidate with zero weight on either side, and returns the
winner with the per-class counts of both branches. Classes whose derived
right count is exactly zero are omitted from the right map to keep the
representation compact. It returns false when no candidate qualifies.
*/
func (s *SparseClassificationStats) SelectBestSplit() (*Winner, bool) {
	minScore := math.Inf(1)
	bestIndex := -1
	var bestLeftSum, bestRightSum float64

	for i := 0; i < s.NumSplits(); i++ {
		score, leftSum, rightSum := s.cachedGiniScore(i)
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

	leftCounts := make(map[int]float64)
	rightCounts := make(map[int]float64)
	for class, total := range s.totalCounts {
		left, ok := s.left[bestIndex][class]
		if !ok {
			rightCounts[class] = total
			continue
		}
		leftCounts[class] = left
		if right := total - left; right > 0 {
			rightCounts[class] = right
		}
	}
	return &Winner{
		Split: s.candidates[bestIndex].split,
		Left:  &slot.Stats{WeightSum: bestLeftSum, SparseCounts: leftCounts},
		Right: &slot.Stats{WeightSum: bestRightSum, SparseCounts: rightCounts},
	}, true
}

/*
FromSlot restores the accumulator from its persisted representation:
the leaf weight and total counts, and every persisted candidate with its
left counts. It returns an error if a persisted candidate cannot be
registered.
*/
func (s *SparseClassificationStats) FromSlot(sl *slot.Slot) error {
	s.weightSum = sl.WeightSum
	s.totalCounts = make(map[int]float64)
	s.left = nil
	s.candidates = nil

	if sl.Leaf != nil {
		for class, count := range sl.Leaf.SparseCounts {
			s.totalCounts[class] = count
		}
	}

	for _, cand := range sl.Candidates {
		if err := s.Register(cand.Split); err != nil {
			return fmt.Errorf("restoring slot %s: %v", sl.ID, err)
		}
		if cand.Left == nil {
			continue
		}
		for class, count := range cand.Left.SparseCounts {
			s.left[s.NumSplits()-1][class] = count
		}
	}
	s.rebaseCheckSchedule()
	s.initRunningCounts()
	return nil
}

/*
ToSlot packs the accumulated state into its persisted representation:
the leaf weight and total counts, and every live candidate with its left
counts.
*/
func (s *SparseClassificationStats) ToSlot() *slot.Slot {
	totals := make(map[int]float64, len(s.totalCounts))
	leafSum := 0.0
	for class, count := range s.totalCounts {
		totals[class] = count
		leafSum += count
	}
	sl := &slot.Slot{
		WeightSum: s.weightSum,
		Leaf: &slot.Stats{
			WeightSum:    leafSum,
			SparseCounts: totals,
		},
	}
	for i := range s.candidates {
		leftCounts := make(map[int]float64, len(s.left[i]))
		leftSum := 0.0
		for class, count := range s.left[i] {
			leftCounts[class] = count
			leftSum += count
		}
		sl.Candidates = append(sl.Candidates, &slot.Candidate{
			Split: s.candidates[i].split,
			Left: &slot.Stats{
				WeightSum:    leftSum,
				SparseCounts: leftCounts,
			},
		})
	}
	return sl
}
