package yaml

import (
	"testing"

	"github.com/jmaravall/fertile/split"
)

func TestReadFeatures(t *testing.T) {
	md := []byte(`
features:
  age: continuous
  color:
    - red
    - green
    - blue
`)
	features, err := ReadFeatures(md)
	if err != nil {
		t.Fatalf("parsing features: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("got %d features, want 2", len(features))
	}

	byName := make(map[string]split.Feature)
	for _, f := range features {
		byName[f.Name()] = f
	}
	if _, ok := byName["age"].(*split.ContinuousFeature); !ok {
		t.Errorf("age: got %T, want a continuous feature", byName["age"])
	}
	color, ok := byName["color"].(*split.DiscreteFeature)
	if !ok {
		t.Fatalf("color: got %T, want a discrete feature", byName["color"])
	}
	if len(color.AvailableValues()) != 3 {
		t.Errorf("color values: got %v, want 3 values", color.AvailableValues())
	}
}

func TestReadFeaturesErrors(t *testing.T) {
	if _, err := ReadFeatures([]byte("other: thing")); err == nil {
		t.Error("metadata without features: expected an error")
	}
	if _, err := ReadFeatures([]byte("features:\n  age: 4\n")); err == nil {
		t.Error("invalid feature declaration: expected an error")
	}
	if _, err := ReadFeatures([]byte("features: [")); err == nil {
		t.Error("invalid yml: expected an error")
	}
}
