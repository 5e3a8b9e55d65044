/*
Package sqlstream provides methods to read training examples into
dataset.Table values from SQL databases through an Adapter, so growth
parameters can be fed from the same database the training pipeline
writes to. Adapters for specific databases are provided in the
pgadapter and sqlite3adapter subpackages.
*/
package sqlstream

import (
	"context"
	"fmt"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/split"
)

/*
Adapter is an interface providing the methods needed to read examples
from a database backend. The database is expected to hold an examples
table with one column per feature, holding text values for discrete
features and numeric values for continuous ones, NULL denoting an
undefined value.
*/
type Adapter interface {
	// ColumnName validates a feature name and returns the column
	// name holding its values, or an error if the feature name
	// cannot be a column
	ColumnName(featureName string) (string, error)
	// IterateOnExamples runs the given lambda on every example of
	// the examples table, yielding the example's index and its
	// values for the given discrete and continuous columns: string
	// values for the former, float64 values for the latter, absent
	// keys for NULLs. Iteration stops when the lambda returns false
	// or an error.
	IterateOnExamples(ctx context.Context, discreteColumns, continuousColumns []string, lambda func(i int, values map[string]interface{}) (bool, error)) error
}

/*
ReadTable takes a context, an Adapter, a slice of input features, a
slice of label features and the name of an optional weight column and
returns a dataset.Table with the examples read through the adapter or
an error.

Label features must be either a single discrete feature, whose values
are mapped to class indices by their position among its available
values, or one or more continuous features yielding the example's
outputs. An empty weight column name makes every example weigh 1.
*/
func ReadTable(ctx context.Context, a Adapter, features, labels []split.Feature, weightColumn string) (*dataset.Table, error) {
	classValues, err := labelClassValues(labels)
	if err != nil {
		return nil, err
	}
	var discreteColumns, continuousColumns []string
	columnOf := make(map[string]string)
	for _, f := range append(append([]split.Feature{}, features...), labels...) {
		column, err := a.ColumnName(f.Name())
		if err != nil {
			return nil, fmt.Errorf("reading examples: %v", err)
		}
		columnOf[f.Name()] = column
		if _, ok := f.(*split.DiscreteFeature); ok {
			discreteColumns = append(discreteColumns, column)
		} else {
			continuousColumns = append(continuousColumns, column)
		}
	}
	if weightColumn != "" {
		column, err := a.ColumnName(weightColumn)
		if err != nil {
			return nil, fmt.Errorf("reading examples: %v", err)
		}
		weightColumn = column
		continuousColumns = append(continuousColumns, column)
	}

	t := dataset.New(features)
	err = a.IterateOnExamples(ctx, discreteColumns, continuousColumns, func(i int, values map[string]interface{}) (bool, error) {
		class, outputs, err := parseTargets(values, labels, columnOf, classValues)
		if err != nil {
			return false, fmt.Errorf("reading example %d: %v", i, err)
		}
		weight := 1.0
		if weightColumn != "" {
			w, ok := values[weightColumn].(float64)
			if !ok {
				return false, fmt.Errorf("reading example %d: missing weight", i)
			}
			weight = w
		}
		featureValues := make(map[string]interface{})
		for _, f := range features {
			featureValues[f.Name()] = values[columnOf[f.Name()]]
		}
		err = t.Add(featureValues, class, outputs, weight)
		if err != nil {
			return false, fmt.Errorf("reading example %d: %v", i, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func labelClassValues(labels []split.Feature) (map[string]int, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no label features given")
	}
	if df, ok := labels[0].(*split.DiscreteFeature); ok {
		if len(labels) > 1 {
			return nil, fmt.Errorf("a discrete label feature cannot be combined with other labels")
		}
		classValues := make(map[string]int)
		for i, v := range df.AvailableValues() {
			classValues[v] = i
		}
		return classValues, nil
	}
	for _, l := range labels {
		if _, ok := l.(*split.ContinuousFeature); !ok {
			return nil, fmt.Errorf("label feature %s is neither discrete nor continuous", l.Name())
		}
	}
	return nil, nil
}

func parseTargets(values map[string]interface{}, labels []split.Feature, columnOf map[string]string, classValues map[string]int) (int, []float64, error) {
	if classValues != nil {
		v, ok := values[columnOf[labels[0].Name()]].(string)
		if !ok {
			return 0, nil, fmt.Errorf("missing value for label feature %s", labels[0].Name())
		}
		class, ok := classValues[v]
		if !ok {
			return 0, nil, fmt.Errorf("unknown value %q for label feature %s", v, labels[0].Name())
		}
		return class, nil, nil
	}
	outputs := make([]float64, len(labels))
	for i, l := range labels {
		v, ok := values[columnOf[l.Name()]].(float64)
		if !ok {
			return 0, nil, fmt.Errorf("missing value for label feature %s", l.Name())
		}
		outputs[i] = v
	}
	return 0, outputs, nil
}
