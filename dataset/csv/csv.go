/*
Package csv provides methods to read training examples from CSV streams
into dataset.Table values.
*/
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jmaravall/fertile/dataset"
	"github.com/jmaravall/fertile/split"
)

// weightColumn is the optional CSV column holding per-example weights.
const weightColumn = "weight"

// undefinedValue is the CSV cell content indicating an example has no
// value for a feature.
const undefinedValue = "?"

/*
ReadTable takes an io.Reader for a CSV stream, a slice of input features
and a slice of label features and returns a dataset.Table with the
parsed examples or an error.

The header or first row of the CSV content is expected to contain the
names of all input and label features; a column named weight, if
present, holds per-example weights defaulting to 1. Label features must
be either a single discrete feature, whose values are mapped to class
indices by their position among its available values, or one or more
continuous features yielding the example's outputs.
*/
func ReadTable(reader io.Reader, features, labels []split.Feature) (*dataset.Table, error) {
	classValues, err := labelClassValues(labels)
	if err != nil {
		return nil, err
	}
	t := dataset.New(features)
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}
	columns, weightIndex, err := parseHeader(header, features, labels)
	if err != nil {
		return nil, err
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading body: %v", err)
		}
		values, err := parseRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %v", l, err)
		}
		class, outputs, err := parseTargets(values, labels, classValues)
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %v", l, err)
		}
		weight := 1.0
		if weightIndex >= 0 {
			weight, err = strconv.ParseFloat(row[weightIndex], 64)
			if err != nil {
				return nil, fmt.Errorf("parsing line %d: parsing weight: %v", l, err)
			}
		}
		featureValues := make(map[string]interface{})
		for _, f := range features {
			featureValues[f.Name()] = values[f.Name()]
		}
		err = t.Add(featureValues, class, outputs, weight)
		if err != nil {
			return nil, fmt.Errorf("parsing line %d: %v", l, err)
		}
	}
	return t, nil
}

/*
ReadTableFromFilePath takes a filepath string, a slice of input features
and a slice of label features, opens the file the filepath points to
(or STDIN when it is empty) and uses ReadTable to return a
dataset.Table read from it or an error.
*/
func ReadTableFromFilePath(filepath string, features, labels []split.Feature) (*dataset.Table, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading training examples: %v", err)
		}
		defer f.Close()
	}
	t, err := ReadTable(f, features, labels)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return t, err
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

func parseHeader(header []string, features, labels []split.Feature) (map[int]split.Feature, int, error) {
	byName := make(map[string]split.Feature)
	for _, f := range features {
		byName[f.Name()] = f
	}
	for _, l := range labels {
		byName[l.Name()] = l
	}
	columns := make(map[int]split.Feature)
	weightIndex := -1
	seen := make(map[string]bool)
	for i, name := range header {
		if name == weightColumn {
			weightIndex = i
			continue
		}
		f, ok := byName[name]
		if !ok {
			return nil, 0, fmt.Errorf("reading header: unknown column %q", name)
		}
		columns[i] = f
		seen[name] = true
	}
	for name := range byName {
		if !seen[name] {
			return nil, 0, fmt.Errorf("reading header: missing column %q", name)
		}
	}
	return columns, weightIndex, nil
}

func parseRow(row []string, columns map[int]split.Feature) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	for i, f := range columns {
		if i >= len(row) {
			return nil, fmt.Errorf("row has no value for column %d (%s)", i, f.Name())
		}
		cell := row[i]
		if cell == undefinedValue {
			continue
		}
		switch f.(type) {
		case *split.ContinuousFeature:
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing value for feature %s: %v", f.Name(), err)
			}
			values[f.Name()] = v
		default:
			values[f.Name()] = cell
		}
	}
	return values, nil
}

func parseTargets(values map[string]interface{}, labels []split.Feature, classValues map[string]int) (int, []float64, error) {
	if classValues != nil {
		v, ok := values[labels[0].Name()].(string)
		if !ok {
			return 0, nil, fmt.Errorf("example has no value for label feature %s", labels[0].Name())
		}
		class, ok := classValues[v]
		if !ok {
			return 0, nil, fmt.Errorf("unknown value %q for label feature %s", v, labels[0].Name())
		}
		return class, nil, nil
	}
	outputs := make([]float64, len(labels))
	for i, l := range labels {
		v, ok := values[l.Name()].(float64)
		if !ok {
			return 0, nil, fmt.Errorf("example has no value for label feature %s", l.Name())
		}
		outputs[i] = v
	}
	return 0, outputs, nil
}
