package fertile

import (
	"testing"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/split"
)

var (
	_ GrowStats = (*DenseClassificationStats)(nil)
	_ GrowStats = (*SparseClassificationStats)(nil)
	_ GrowStats = (*RegressionStats)(nil)
)

// classTable builds an in-memory stream with a single continuous feature
// x taking the given values, labeled with the given class indices, every
// example weighing 1.
func classTable(t *testing.T, x []float64, classes []int) (*dataset.Table, *split.ContinuousFeature) {
	t.Helper()
	f := split.NewContinuousFeature("x")
	table := dataset.New([]split.Feature{f})
	for i := range x {
		err := table.Add(map[string]interface{}{"x": x[i]}, classes[i], nil, 1.0)
		if err != nil {
			t.Fatalf("adding example %d: %v", i, err)
		}
	}
	return table, f
}

func observeAll(t *testing.T, stats GrowStats, table *dataset.Table) {
	t.Helper()
	for i := 0; i < table.Count(); i++ {
		if err := stats.ObserveExample(table, table, i); err != nil {
			t.Fatalf("observing example %d: %v", i, err)
		}
	}
}

func basicParams(numOutputs int) Params {
	return Params{
		SplitAfterSamples:   Constant(10),
		NumSplitsToConsider: Constant(5),
		NumOutputs:          numOutputs,
	}
}

func TestRegisterAndDiscard(t *testing.T) {
	d, err := NewDenseClassificationStats(basicParams(2), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	f := split.NewContinuousFeature("x")
	for _, pivot := range []float64{1.0, 2.0, 3.0} {
		if err := d.Register(split.NewThresholdSplit(f, pivot)); err != nil {
			t.Fatalf("registering split with pivot %g: %v", pivot, err)
		}
	}
	if d.NumSplits() != 3 {
		t.Fatalf("NumSplits: got %d, want 3", d.NumSplits())
	}

	if err := d.Discard(1); err != nil {
		t.Fatalf("discarding split 1: %v", err)
	}
	if d.NumSplits() != 2 {
		t.Fatalf("NumSplits after discard: got %d, want 2", d.NumSplits())
	}
	pivots := []float64{
		d.Split(0).(split.ThresholdSplit).Pivot(),
		d.Split(1).(split.ThresholdSplit).Pivot(),
	}
	if pivots[0] != 1.0 || pivots[1] != 3.0 {
		t.Errorf("surviving pivots: got %v, want [1 3]", pivots)
	}

	if err := d.Discard(2); err == nil {
		t.Error("discarding out-of-range index: expected an error")
	}
	if err := d.Discard(-1); err == nil {
		t.Error("discarding negative index: expected an error")
	}
}

func TestRegisterRejectsUnknownSplit(t *testing.T) {
	d, err := NewDenseClassificationStats(basicParams(2), 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	if err := d.Register(nil); err == nil {
		t.Error("registering a nil split: expected an error")
	}
	if d.NumSplits() != 0 {
		t.Errorf("NumSplits after failed register: got %d, want 0", d.NumSplits())
	}
}

func TestFullOfSplits(t *testing.T) {
	p := basicParams(2)
	p.NumSplitsToConsider = Constant(2)
	d, err := NewDenseClassificationStats(p, 0, nil)
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	f := split.NewContinuousFeature("x")
	if d.FullOfSplits() {
		t.Error("empty accumulator reports full of splits")
	}
	d.Register(split.NewThresholdSplit(f, 1.0))
	d.Register(split.NewThresholdSplit(f, 2.0))
	if !d.FullOfSplits() {
		t.Error("accumulator with NumSplitsToConsider candidates does not report full")
	}
	d.Discard(0)
	if d.FullOfSplits() {
		t.Error("accumulator reports full after a discard")
	}
}

func TestNewStatsRejectsBadConfig(t *testing.T) {
	if _, err := NewDenseClassificationStats(Params{}, 0, nil); err == nil {
		t.Error("zero num_outputs: expected an error")
	}

	p := basicParams(2)
	p.Finish = FinishPolicy(42)
	if _, err := NewDenseClassificationStats(p, 0, nil); err == nil {
		t.Error("unknown finish policy: expected an error")
	}

	p = basicParams(2)
	p.Prune = PrunePolicy(42)
	p.PruneCheckEvery = Constant(5)
	if _, err := NewDenseClassificationStats(p, 0, nil); err == nil {
		t.Error("unknown prune policy: expected an error")
	}

	p = basicParams(2)
	p.Prune = PruneHalf
	if _, err := NewDenseClassificationStats(p, 0, nil); err == nil {
		t.Error("pruning without prune_check_every: expected an error")
	}

	p = basicParams(2)
	p.Finish = FinishDominateHoeffding
	p.MinSplitSamples = Constant(5)
	p.FinishCheckEvery = Constant(5)
	if _, err := NewDenseClassificationStats(p, 0, nil); err == nil {
		t.Error("dominate finish without dominate_fraction: expected an error")
	}

	p.DominateFraction = Constant(1.5)
	if _, err := NewDenseClassificationStats(p, 0, nil); err == nil {
		t.Error("dominate_fraction above 1: expected an error")
	}

	p = basicParams(2)
	p.Finish = FinishDominateBootstrap
	p.MinSplitSamples = Constant(5)
	p.FinishCheckEvery = Constant(5)
	p.DominateFraction = Constant(0.99)
	if _, err := NewDenseClassificationStats(p, 0, nil); err == nil {
		t.Error("bootstrap finish without a random source: expected an error")
	}
}
