package fertile

import (
	"math"
	"reflect"
	"testing"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/split"
)

// regressionTable builds an in-memory stream with a single continuous
// feature x and one continuous output per example.
func regressionTable(t *testing.T, x, outputs []float64) (*dataset.Table, *split.ContinuousFeature) {
	t.Helper()
	f := split.NewContinuousFeature("x")
	table := dataset.New([]split.Feature{f})
	for i := range x {
		err := table.Add(map[string]interface{}{"x": x[i]}, 0, []float64{outputs[i]}, 1.0)
		if err != nil {
			t.Fatalf("adding example %d: %v", i, err)
		}
	}
	return table, f
}

func TestRegressionSplitVariance(t *testing.T) {
	table, f := regressionTable(t,
		[]float64{1, 2, 5, 6},
		[]float64{1, 3, 5, 7})
	r, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0))
	observeAll(t, r, table)

	// Left outputs {1, 3}: variance 1. Right outputs {5, 7}: variance 1.
	if got := r.SplitVariance(0); math.Abs(got-2.0) > tolerance {
		t.Errorf("SplitVariance: got %g, want 2", got)
	}
}

func TestRegressionObserveAccounting(t *testing.T) {
	f := split.NewContinuousFeature("x")
	table := dataset.New([]split.Feature{f})
	// Weights are ignored for regression: every example counts as 1.
	table.Add(map[string]interface{}{"x": 1.0}, 0, []float64{2.0}, 5.0)
	table.Add(map[string]interface{}{"x": 5.0}, 0, []float64{4.0}, 0.25)

	r, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0))
	observeAll(t, r, table)

	if r.WeightSum() != 2.0 {
		t.Errorf("WeightSum: got %g, want 2", r.WeightSum())
	}
	s := r.ToSlot()
	if !reflect.DeepEqual(s.Leaf.Sums, []float64{6.0}) {
		t.Errorf("leaf sums: got %v, want [6]", s.Leaf.Sums)
	}
	if !reflect.DeepEqual(s.Leaf.Squares, []float64{20.0}) {
		t.Errorf("leaf squares: got %v, want [20]", s.Leaf.Squares)
	}
	if !reflect.DeepEqual(s.Candidates[0].Left.Sums, []float64{2.0}) {
		t.Errorf("candidate left sums: got %v, want [2]", s.Candidates[0].Left.Sums)
	}
	if s.Candidates[0].Left.WeightSum != 1.0 {
		t.Errorf("candidate left count: got %g, want 1", s.Candidates[0].Left.WeightSum)
	}
}

func TestRegressionMultiOutput(t *testing.T) {
	f := split.NewContinuousFeature("x")
	table := dataset.New([]split.Feature{f})
	table.Add(map[string]interface{}{"x": 1.0}, 0, []float64{1.0, 10.0}, 1.0)
	table.Add(map[string]interface{}{"x": 2.0}, 0, []float64{3.0, 10.0}, 1.0)
	table.Add(map[string]interface{}{"x": 5.0}, 0, []float64{5.0, 20.0}, 1.0)
	table.Add(map[string]interface{}{"x": 6.0}, 0, []float64{7.0, 20.0}, 1.0)

	r, err := NewRegressionStats(basicParams(2), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0))
	observeAll(t, r, table)

	// Output 0 leaves variance 1 on each side, output 1 leaves none.
	if got := r.SplitVariance(0); math.Abs(got-2.0) > tolerance {
		t.Errorf("SplitVariance: got %g, want 2", got)
	}
}

func TestRegressionSelectBestSplit(t *testing.T) {
	table, f := regressionTable(t,
		[]float64{1, 2, 5, 6},
		[]float64{1, 3, 5, 7})
	r, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0)) // separates the output clusters
	r.Register(split.NewThresholdSplit(f, 1.5)) // leaves {3, 5, 7} together
	r.Register(split.NewThresholdSplit(f, 0.0)) // routes everything right
	observeAll(t, r, table)

	winner, ok := r.SelectBestSplit()
	if !ok {
		t.Fatal("SelectBestSplit found no candidate")
	}
	if winner.Split.(split.ThresholdSplit).Pivot() != 3.0 {
		t.Errorf("winner pivot: got %g, want 3", winner.Split.(split.ThresholdSplit).Pivot())
	}
	if !reflect.DeepEqual(winner.Left.Sums, []float64{4.0}) {
		t.Errorf("winner left sums: got %v, want [4]", winner.Left.Sums)
	}
	if !reflect.DeepEqual(winner.Right.Sums, []float64{12.0}) {
		t.Errorf("winner right sums: got %v, want [12]", winner.Right.Sums)
	}
	if winner.Left.WeightSum != 2.0 || winner.Right.WeightSum != 2.0 {
		t.Errorf("branch counts: got %g, %g, want 2, 2", winner.Left.WeightSum, winner.Right.WeightSum)
	}
}

func TestRegressionSelectBestSplitRejectsOneSided(t *testing.T) {
	table, f := regressionTable(t,
		[]float64{1, 2, 5, 6},
		[]float64{1, 3, 5, 7})
	r, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 0.0))  // routes everything right
	r.Register(split.NewThresholdSplit(f, 10.0)) // routes everything left
	observeAll(t, r, table)

	if winner, ok := r.SelectBestSplit(); ok {
		t.Errorf("SelectBestSplit accepted a one-sided candidate: %v", winner.Split)
	}
}

func TestRegressionIsFinished(t *testing.T) {
	p := basicParams(1)
	p.SplitAfterSamples = Constant(4)
	table, f := regressionTable(t,
		[]float64{1, 2, 5, 6},
		[]float64{1, 3, 5, 7})
	r, err := NewRegressionStats(p, 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0))
	for i := 0; i < 3; i++ {
		r.ObserveExample(table, table, i)
	}
	if r.IsFinished() {
		t.Error("leaf finished before seeing split_after_samples examples")
	}
	r.ObserveExample(table, table, 3)
	if !r.IsFinished() {
		t.Error("leaf with enough examples is not finished")
	}
}

func TestRegressionSlotRoundTrip(t *testing.T) {
	table, f := regressionTable(t,
		[]float64{1, 2, 5, 6, 3, 4},
		[]float64{1, 3, 5, 7, 2, 6})
	r, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0))
	r.Register(split.NewThresholdSplit(f, 4.5))
	observeAll(t, r, table)

	restored, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building restored stats: %v", err)
	}
	if err := restored.FromSlot(r.ToSlot()); err != nil {
		t.Fatalf("restoring slot: %v", err)
	}

	if restored.WeightSum() != r.WeightSum() {
		t.Errorf("restored WeightSum: got %g, want %g", restored.WeightSum(), r.WeightSum())
	}
	if !reflect.DeepEqual(restored.ToSlot(), r.ToSlot()) {
		t.Errorf("restored slot differs:\n got %+v\nwant %+v", restored.ToSlot(), r.ToSlot())
	}
	for i := 0; i < r.NumSplits(); i++ {
		if got, want := restored.SplitVariance(i), r.SplitVariance(i); math.Abs(got-want) > tolerance {
			t.Errorf("candidate %d: restored SplitVariance %g, want %g", i, got, want)
		}
	}
}

func TestRegressionFromSlotRejectsMismatchedOutputs(t *testing.T) {
	table, f := regressionTable(t, []float64{1, 5}, []float64{1, 5})
	r, err := NewRegressionStats(basicParams(1), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	r.Register(split.NewThresholdSplit(f, 3.0))
	observeAll(t, r, table)

	other, err := NewRegressionStats(basicParams(2), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	if err := other.FromSlot(r.ToSlot()); err == nil {
		t.Error("restoring sums sized for another output space: expected an error")
	}
}
