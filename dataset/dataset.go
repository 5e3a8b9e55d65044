/*
Package dataset provides the accessors a growth context consumes while
streaming training examples: an Inputs accessor yielding per-example
feature values and a Targets accessor yielding per-example labels,
continuous outputs and weights. It also provides an in-memory Table
implementing both.
*/
package dataset

import (
	"fmt"

	"github.com/jmaravall/fertile/split"
)

/*
Inputs yields the feature values of training examples by example index.
*/
type Inputs interface {
	Example(i int) split.Example
	Count() int
}

/*
Targets yields, by example index, the class index of an example, its
continuous value per output dimension and its weight.
*/
type Targets interface {
	ClassIndex(i int) int
	Continuous(i, output int) float64
	Weight(i int) float64
}

type example struct {
	featureValues map[string]interface{}
}

/*
NewExample takes a map of feature string names to values and returns a
split.Example yielding them.
*/
func NewExample(featureValues map[string]interface{}) split.Example {
	return &example{featureValues}
}

func (e *example) ValueFor(f split.Feature) (interface{}, error) {
	return e.featureValues[f.Name()], nil
}

func (e *example) String() string {
	return fmt.Sprintf("[%v]", e.featureValues)
}

type row struct {
	example split.Example
	class   int
	outputs []float64
	weight  float64
}

/*
Table is an in-memory collection of training examples implementing both
Inputs and Targets.
*/
type Table struct {
	features []split.Feature
	rows     []row
}

/*
New takes a slice of features and returns an empty Table whose examples
will be validated against them.
*/
func New(features []split.Feature) *Table {
	return &Table{features: features}
}

/*
Add takes a map of feature names to values, a class index, a slice of
continuous outputs and a weight, validates the values against the table
features and appends the example, or returns an error describing the
invalid value.
*/
func (t *Table) Add(featureValues map[string]interface{}, class int, outputs []float64, weight float64) error {
	for _, f := range t.features {
		ok, err := f.Valid(featureValues[f.Name()])
		if err != nil {
			return fmt.Errorf("adding example: %v", err)
		}
		if !ok {
			return fmt.Errorf("adding example: invalid value %v for feature %s", featureValues[f.Name()], f.Name())
		}
	}
	t.rows = append(t.rows, row{NewExample(featureValues), class, outputs, weight})
	return nil
}

/*
Features returns the features the table validates its examples against.
*/
func (t *Table) Features() []split.Feature {
	return t.features
}

// Example returns the i-th example of the table.
func (t *Table) Example(i int) split.Example {
	return t.rows[i].example
}

// Count returns the number of examples in the table.
func (t *Table) Count() int {
	return len(t.rows)
}

// ClassIndex returns the class index of the i-th example.
func (t *Table) ClassIndex(i int) int {
	return t.rows[i].class
}

// Continuous returns the value of the i-th example for the given output
// dimension, or 0 if the example holds no value for it.
func (t *Table) Continuous(i, output int) float64 {
	if output >= len(t.rows[i].outputs) {
		return 0
	}
	return t.rows[i].outputs[output]
}

// Weight returns the weight of the i-th example.
func (t *Table) Weight(i int) float64 {
	return t.rows[i].weight
}
