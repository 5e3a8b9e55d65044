package split

import "fmt"

/*
Feature is a named property a training example may hold a value for.
A nil value denotes an example with no observation for the feature.

Its Valid method reports whether a value can belong to the feature.
*/
type Feature interface {
	Name() string
	Valid(interface{}) (bool, error)
}

/*
DiscreteFeature is a feature taking string values from a finite set of
available values, fixed when the feature is declared.
*/
type DiscreteFeature struct {
	name            string
	availableValues []string
}

/*
ContinuousFeature is a feature taking float64 values.
*/
type ContinuousFeature struct {
	name string
}

/*
NewDiscreteFeature takes a name string and a slice of available value strings
and returns a discrete feature with the given name and available values.
*/
func NewDiscreteFeature(name string, availableValues []string) *DiscreteFeature {
	return &DiscreteFeature{name, availableValues}
}

/*
NewContinuousFeature takes a name string and returns a continuous feature with
the given name.
*/
func NewContinuousFeature(name string) *ContinuousFeature {
	return &ContinuousFeature{name}
}

// Name returns the name of the feature.
func (df *DiscreteFeature) Name() string {
	return df.name
}

/*
Valid takes a value and returns true when it is nil (an undefined
observation) or one of the available values of the feature. Otherwise
it returns false and an error describing the rejected value.
*/
func (df *DiscreteFeature) Valid(value interface{}) (bool, error) {
	if value == nil {
		return true, nil
	}
	vs, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("discrete feature %s expects string value, got %T value", df.Name(), value)
	}
	for _, av := range df.availableValues {
		if av == vs {
			return true, nil
		}
	}
	return false, fmt.Errorf("discrete feature %s got unknown value %s", df.Name(), vs)
}

/*
AvailableValues returns the values the feature can take, in declaration
order. Classification labels map values to class ids by this order.
*/
func (df *DiscreteFeature) AvailableValues() []string {
	return df.availableValues
}

func (df *DiscreteFeature) String() string {
	return df.name
}

// Name returns the name of the feature.
func (cf *ContinuousFeature) Name() string {
	return cf.name
}

/*
Valid takes a value and returns true when it is nil (an undefined
observation) or a float64. Otherwise it returns false and an error
describing the rejected value.
*/
func (cf *ContinuousFeature) Valid(value interface{}) (bool, error) {
	if value == nil {
		return true, nil
	}
	_, ok := value.(float64)
	if !ok {
		return false, fmt.Errorf("continuous feature %s expects float64 value, got %T value", cf.Name(), value)
	}
	return true, nil
}

func (cf *ContinuousFeature) String() string {
	return cf.name
}

/*
Split represents a proposed binary partition rule on a feature: examples
that match the rule are routed to the left branch, the rest to the right
branch.

Its Feature method returns the feature the rule examines.
*/
type Split interface {
	Feature() Feature
}

/*
ThresholdSplit represents a binary partition rule on a continuous feature:
examples whose value for the feature is less than or equal to the pivot are
routed left.

Its Pivot method returns the threshold as a float64.
*/
type ThresholdSplit interface {
	Split
	Pivot() float64
}

/*
EqualitySplit represents a binary partition rule on a discrete feature:
examples whose value for the feature equals the split value are routed left.

Its Value method returns the value to which the feature is compared as a
string.
*/
type EqualitySplit interface {
	Split
	Value() string
}

type thresholdSplit struct {
	feature *ContinuousFeature
	pivot   float64
}

type equalitySplit struct {
	feature *DiscreteFeature
	value   string
}

/*
NewThresholdSplit takes a ContinuousFeature and a pivot float64 value and
returns a ThresholdSplit routing left the examples whose value for the
feature is less than or equal to the pivot.
*/
func NewThresholdSplit(feature *ContinuousFeature, pivot float64) ThresholdSplit {
	return &thresholdSplit{feature, pivot}
}

/*
NewEqualitySplit takes a DiscreteFeature and a value string and returns an
EqualitySplit routing left the examples whose value for the feature equals
the given value.
*/
func NewEqualitySplit(feature *DiscreteFeature, value string) EqualitySplit {
	return &equalitySplit{feature, value}
}

func (ts *thresholdSplit) Feature() Feature {
	return ts.feature
}

func (ts *thresholdSplit) Pivot() float64 {
	return ts.pivot
}

func (ts *thresholdSplit) String() string {
	return fmt.Sprintf("{%s <= %f}", ts.feature.Name(), ts.pivot)
}

func (es *equalitySplit) Feature() Feature {
	return es.feature
}

func (es *equalitySplit) Value() string {
	return es.value
}

func (es *equalitySplit) String() string {
	return fmt.Sprintf("{%s == %s}", es.feature.Name(), es.value)
}
