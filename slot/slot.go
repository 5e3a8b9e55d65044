/*
Package slot defines the persisted representation of the state of a leaf
under active growth: its accumulated leaf statistics, its live split
candidates and the left-branch statistics gathered for each of them.

Growth contexts map their state to and from slots at checkpoint
boundaries only, never on the per-example path.
*/
package slot

import (
	"fmt"

	"github.com/jmaravall/fertile/split"
)

/*
Stats holds the sufficient statistics accumulated for a partition of the
examples seen by a leaf: either the whole leaf, or the left or right branch
of a split candidate.

For classification exactly one of DenseCounts and SparseCounts is set:
DenseCounts is indexed by class id, while SparseCounts holds only the
observed classes. For regression Sums and Squares hold the accumulated
output values and their squares, one entry per output dimension.
*/
type Stats struct {
	WeightSum    float64
	DenseCounts  []float64
	SparseCounts map[int]float64
	Sums         []float64
	Squares      []float64
}

/*
Candidate is a split candidate as persisted on a slot: the split rule and
the statistics accumulated for the examples it routed left. Right-branch
statistics are never persisted, they are derived from the leaf totals.
*/
type Candidate struct {
	Split split.Split
	Left  *Stats
}

/*
Slot is the persisted state of one leaf under active growth.
*/
type Slot struct {
	// An ID to identify the slot on a Store
	ID string
	// The total weight of the examples the leaf has accumulated
	WeightSum float64
	// The statistics accumulated for the whole leaf
	Leaf *Stats
	// The live split candidates, in registration order
	Candidates []*Candidate
}

func (s *Slot) String() string {
	return fmt.Sprintf("{Slot %s weight:%g candidates:%d}", s.ID, s.WeightSum, len(s.Candidates))
}
