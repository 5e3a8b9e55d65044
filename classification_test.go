package fertile

import (
	"container/heap"
	"math"
	"math/rand"
	"testing"

	"github.com/jmaravall/fertile/split"
)

func TestNumBootstrapTrials(t *testing.T) {
	p := basicParams(2)
	p.SplitAfterSamples = Constant(1000)
	p.Finish = FinishDominateBootstrap
	p.MinSplitSamples = Constant(10)
	p.FinishCheckEvery = Constant(10)

	testCases := []struct {
		dominate float64
		want     int
	}{
		{0.5, 2},
		{0.75, 3},
		{0.95, 6},
		{0.99, 8},
		{1.0, 1},
	}
	for _, tc := range testCases {
		p.DominateFraction = Constant(tc.dominate)
		d, err := NewDenseClassificationStats(p, 0, rand.New(rand.NewSource(1)))
		if err != nil {
			t.Fatalf("building stats with dominate fraction %g: %v", tc.dominate, err)
		}
		if got := d.numBootstrapTrials(); got != tc.want {
			t.Errorf("trials for dominate fraction %g: got %d, want %d", tc.dominate, got, tc.want)
		}
	}
}

func TestBootstrapWeights(t *testing.T) {
	p := basicParams(2)
	p.SplitAfterSamples = Constant(1000)
	p.Finish = FinishDominateBootstrap
	p.MinSplitSamples = Constant(10)
	p.FinishCheckEvery = Constant(10)
	p.DominateFraction = Constant(0.95)

	table, f := classTable(t,
		[]float64{1, 5, 1, 5, 1, 5, 1, 5},
		[]int{0, 1, 0, 1, 0, 1, 0, 1})
	d, err := NewDenseClassificationStats(p, 0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("building stats: %v", err)
	}
	d.Register(split.NewThresholdSplit(f, 3.0))
	observeAll(t, d, table)

	// Left counts [4 0], right counts [0 4], Laplace-smoothed over
	// weight 8 plus one pseudo-count per class.
	want := []float64{5.0 / 10.0, 1.0 / 10.0, 1.0 / 10.0, 5.0 / 10.0}
	got := d.bootstrapWeights(0)
	if len(got) != len(want) {
		t.Fatalf("weights: got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("weight %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestMultinomialSample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	m := newMultinomial([]float64{0, 0, 1}, rng)
	for i := 0; i < 100; i++ {
		if bin := m.sample(); bin != 2 {
			t.Fatalf("sampling a degenerate distribution: got bin %d, want 2", bin)
		}
	}

	m = newMultinomial([]float64{1, 1}, rng)
	seen := make(map[int]int)
	for i := 0; i < 1000; i++ {
		bin := m.sample()
		if bin < 0 || bin > 1 {
			t.Fatalf("sample out of range: %d", bin)
		}
		seen[bin]++
	}
	if seen[0] == 0 || seen[1] == 0 {
		t.Errorf("uniform distribution never sampled one of its bins: %v", seen)
	}
}

func TestBootstrapGini(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	m := newMultinomial([]float64{1, 0}, rng)
	if got := bootstrapGini(10, 2, m); got != 0.0 {
		t.Errorf("degenerate distribution: got impurity %g, want 0", got)
	}

	if got := bootstrapGini(0, 2, m); got != 0.0 {
		t.Errorf("no examples: got impurity %g, want 0", got)
	}

	m = newMultinomial([]float64{1, 1, 1, 1}, rng)
	got := bootstrapGini(1000, 4, m)
	if got < 0.5 || got > 0.8 {
		t.Errorf("uniform distribution over 4 bins: got impurity %g, want about 0.75", got)
	}
}

func TestWorstSplitHeap(t *testing.T) {
	scores := []float64{3.0, 7.0, 1.0, 9.0, 5.0}
	keep := 2

	worst := &worstSplitHeap{}
	for i, score := range scores {
		if worst.Len() < keep {
			heap.Push(worst, scoredSplit{score, i})
		} else if (*worst)[0].score < score {
			heap.Pop(worst)
			heap.Push(worst, scoredSplit{score, i})
		}
	}

	kept := make(map[int]bool)
	for _, ss := range *worst {
		kept[ss.index] = true
	}
	if !kept[1] || !kept[3] || len(kept) != 2 {
		t.Errorf("kept candidates %v, want the two highest-scoring ones (1 and 3)", kept)
	}
}
