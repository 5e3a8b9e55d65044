package split

import "fmt"

/*
Example is an interface for something an evaluator can route: its ValueFor
method returns the value the example holds for the feature passed as
parameter, or nil when the example has no value for it.
*/
type Example interface {
	ValueFor(Feature) (interface{}, error)
}

// Decision is the branch an evaluator routes an example to.
type Decision int

const (
	// Left is the branch for examples matching the split rule.
	Left Decision = iota
	// Right is the branch for the rest, including examples with
	// no value for the split feature.
	Right
)

/*
Evaluator is an interface wrapping the Decide method, which takes an example
and returns the branch the example is routed to according to a split rule,
or an error if the example's value for the split feature cannot be
interpreted.
*/
type Evaluator interface {
	Decide(Example) (Decision, error)
}

type thresholdEvaluator struct {
	feature *ContinuousFeature
	pivot   float64
}

type equalityEvaluator struct {
	feature *DiscreteFeature
	value   string
}

/*
NewEvaluator takes a Split and returns an Evaluator that applies its rule to
examples, or an error if the split is of an unknown kind.
*/
func NewEvaluator(s Split) (Evaluator, error) {
	switch s := s.(type) {
	case ThresholdSplit:
		f, ok := s.Feature().(*ContinuousFeature)
		if !ok {
			return nil, fmt.Errorf("threshold split on non-continuous feature %s", s.Feature().Name())
		}
		return &thresholdEvaluator{f, s.Pivot()}, nil
	case EqualitySplit:
		f, ok := s.Feature().(*DiscreteFeature)
		if !ok {
			return nil, fmt.Errorf("equality split on non-discrete feature %s", s.Feature().Name())
		}
		return &equalityEvaluator{f, s.Value()}, nil
	default:
		return nil, fmt.Errorf("unknown split type %T", s)
	}
}

func (te *thresholdEvaluator) Decide(e Example) (Decision, error) {
	v, err := e.ValueFor(te.feature)
	if err != nil {
		return Right, fmt.Errorf("deciding on feature %s: %v", te.feature.Name(), err)
	}
	if v == nil {
		return Right, nil
	}
	vf, ok := v.(float64)
	if !ok {
		return Right, fmt.Errorf("deciding on feature %s: expected float64 value, got %T", te.feature.Name(), v)
	}
	if vf <= te.pivot {
		return Left, nil
	}
	return Right, nil
}

func (ee *equalityEvaluator) Decide(e Example) (Decision, error) {
	v, err := e.ValueFor(ee.feature)
	if err != nil {
		return Right, fmt.Errorf("deciding on feature %s: %v", ee.feature.Name(), err)
	}
	if v == nil {
		return Right, nil
	}
	vs, ok := v.(string)
	if !ok {
		return Right, fmt.Errorf("deciding on feature %s: expected string value, got %T", ee.feature.Name(), v)
	}
	if vs == ee.value {
		return Left, nil
	}
	return Right, nil
}
