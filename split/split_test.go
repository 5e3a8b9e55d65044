package split

import "testing"

func TestDiscreteFeatureValid(t *testing.T) {
	f := NewDiscreteFeature("color", []string{"red", "green", "blue"})

	testCases := []struct {
		value interface{}
		valid bool
		err   bool
	}{
		{"red", true, false},
		{"blue", true, false},
		{nil, true, false},
		{"yellow", false, true},
		{4.5, false, true},
	}
	for _, tc := range testCases {
		valid, err := f.Valid(tc.value)
		if valid != tc.valid {
			t.Errorf("Valid(%v): got %v, want %v", tc.value, valid, tc.valid)
		}
		if (err != nil) != tc.err {
			t.Errorf("Valid(%v): got error %v", tc.value, err)
		}
	}
}

func TestContinuousFeatureValid(t *testing.T) {
	f := NewContinuousFeature("age")

	if valid, err := f.Valid(3.2); !valid || err != nil {
		t.Errorf("Valid(3.2): got %v, %v", valid, err)
	}
	if valid, err := f.Valid(nil); !valid || err != nil {
		t.Errorf("Valid(nil): got %v, %v", valid, err)
	}
	if valid, err := f.Valid("3.2"); valid || err == nil {
		t.Errorf("Valid(\"3.2\"): got %v, %v", valid, err)
	}
}

type mapExample map[string]interface{}

func (me mapExample) ValueFor(f Feature) (interface{}, error) {
	return me[f.Name()], nil
}

func TestThresholdEvaluator(t *testing.T) {
	f := NewContinuousFeature("age")
	e, err := NewEvaluator(NewThresholdSplit(f, 30.0))
	if err != nil {
		t.Fatalf("building evaluator: %v", err)
	}

	testCases := []struct {
		value    interface{}
		decision Decision
		err      bool
	}{
		{10.0, Left, false},
		{30.0, Left, false},
		{30.5, Right, false},
		{nil, Right, false},
		{"thirty", Right, true},
	}
	for _, tc := range testCases {
		d, err := e.Decide(mapExample{"age": tc.value})
		if d != tc.decision {
			t.Errorf("Decide(age=%v): got %v, want %v", tc.value, d, tc.decision)
		}
		if (err != nil) != tc.err {
			t.Errorf("Decide(age=%v): got error %v", tc.value, err)
		}
	}
}

func TestEqualityEvaluator(t *testing.T) {
	f := NewDiscreteFeature("color", []string{"red", "green", "blue"})
	e, err := NewEvaluator(NewEqualitySplit(f, "green"))
	if err != nil {
		t.Fatalf("building evaluator: %v", err)
	}

	testCases := []struct {
		value    interface{}
		decision Decision
		err      bool
	}{
		{"green", Left, false},
		{"red", Right, false},
		{nil, Right, false},
		{4.5, Right, true},
	}
	for _, tc := range testCases {
		d, err := e.Decide(mapExample{"color": tc.value})
		if d != tc.decision {
			t.Errorf("Decide(color=%v): got %v, want %v", tc.value, d, tc.decision)
		}
		if (err != nil) != tc.err {
			t.Errorf("Decide(color=%v): got error %v", tc.value, err)
		}
	}
}

func TestNewEvaluatorUnknownSplit(t *testing.T) {
	_, err := NewEvaluator(nil)
	if err == nil {
		t.Error("NewEvaluator(nil): expected an error")
	}
}
