package fertile

import (
	"fmt"
	"io/ioutil"
	"sort"

	yaml "gopkg.in/yaml.v2"
)

/*
FinishPolicy selects the test a classification growth context runs to
decide a leaf has gathered enough evidence to stop growing early.
*/
type FinishPolicy int

const (
	// FinishBasic applies no early-finish test: the leaf finishes
	// once it has accumulated SplitAfterSamples weight.
	FinishBasic FinishPolicy = iota
	// FinishDominateHoeffding finishes early when the gap between the
	// two best candidates exceeds a Hoeffding confidence bound.
	FinishDominateHoeffding
	// FinishDominateBootstrap finishes early when bootstrap resampling
	// shows the best candidate dominating the runner-up.
	FinishDominateBootstrap
)

/*
PrunePolicy selects how a classification growth context periodically
discards weak split candidates to bound its cost.
*/
type PrunePolicy int

const (
	// PruneNone never discards candidates.
	PruneNone PrunePolicy = iota
	// PruneHalf discards the worst half of the candidates on each pass.
	PruneHalf
	// PruneQuarter discards the worst quarter of the candidates on each pass.
	PruneQuarter
	// PruneTenPercent discards the worst tenth of the candidates on each pass.
	PruneTenPercent
	// PruneHoeffding discards every candidate confidently inferior to the
	// current best one.
	PruneHoeffding
)

var finishPolicyNames = map[FinishPolicy]string{
	FinishBasic:             "basic",
	FinishDominateHoeffding: "dominate-hoeffding",
	FinishDominateBootstrap: "dominate-bootstrap",
}

var prunePolicyNames = map[PrunePolicy]string{
	PruneNone:       "none",
	PruneHalf:       "half",
	PruneQuarter:    "quarter",
	PruneTenPercent: "10-percent",
	PruneHoeffding:  "hoeffding",
}

func (fp FinishPolicy) String() string {
	name, ok := finishPolicyNames[fp]
	if !ok {
		return fmt.Sprintf("unknown finish policy %d", int(fp))
	}
	return name
}

func (pp PrunePolicy) String() string {
	name, ok := prunePolicyNames[pp]
	if !ok {
		return fmt.Sprintf("unknown prune policy %d", int(pp))
	}
	return name
}

/*
ParseFinishPolicy takes a finish policy name string and returns the
FinishPolicy it names or an error if the name is unknown.
*/
func ParseFinishPolicy(name string) (FinishPolicy, error) {
	for fp, n := range finishPolicyNames {
		if n == name {
			return fp, nil
		}
	}
	return FinishBasic, fmt.Errorf("unknown finish policy %q", name)
}

/*
ParsePrunePolicy takes a prune policy name string and returns the
PrunePolicy it names or an error if the name is unknown.
*/
func ParsePrunePolicy(name string) (PrunePolicy, error) {
	for pp, n := range prunePolicyNames {
		if n == name {
			return pp, nil
		}
	}
	return PruneNone, fmt.Errorf("unknown prune policy %q", name)
}

// UnmarshalYAML implements yaml.Unmarshaler parsing the policy by name.
func (fp *FinishPolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseFinishPolicy(name)
	if err != nil {
		return err
	}
	*fp = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler parsing the policy by name.
func (pp *PrunePolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParsePrunePolicy(name)
	if err != nil {
		return err
	}
	*pp = parsed
	return nil
}

/*
DepthValue overrides a parameter value from a tree depth on.
*/
type DepthValue struct {
	Depth int     `yaml:"depth"`
	Value float64 `yaml:"value"`
}

/*
Param is a hyperparameter that may be resolved per tree depth: Value
applies unless a ByDepth override with a depth not greater than the
resolved depth exists, in which case the deepest such override wins.
*/
type Param struct {
	Value   float64      `yaml:"value"`
	ByDepth []DepthValue `yaml:"by_depth,omitempty"`
}

/*
Constant returns a Param resolving to the given value at every depth.
*/
func Constant(value float64) Param {
	return Param{Value: value}
}

func (p Param) resolve(depth int) float64 {
	value := p.Value
	overrides := append([]DepthValue(nil), p.ByDepth...)
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].Depth < overrides[j].Depth })
	for _, dv := range overrides {
		if dv.Depth > depth {
			break
		}
		value = dv.Value
	}
	return value
}

/*
Params is the configuration surface of a growth context. All Param values
may be resolved per tree depth.
*/
type Params struct {
	// The accumulated example weight after which a leaf with more than
	// one observed class is finished.
	SplitAfterSamples Param `yaml:"split_after_samples"`
	// The number of split candidates a leaf considers at most.
	NumSplitsToConsider Param `yaml:"num_splits_to_consider"`
	// The number of classes (classification) or output dimensions
	// (regression).
	NumOutputs int `yaml:"num_outputs"`
	// The early-finish test to run, with its cadence and confidence
	// target. MinSplitSamples and DominateFraction are required for the
	// dominate policies.
	Finish           FinishPolicy `yaml:"finish,omitempty"`
	FinishCheckEvery Param        `yaml:"finish_check_every,omitempty"`
	MinSplitSamples  Param        `yaml:"min_split_samples,omitempty"`
	DominateFraction Param        `yaml:"dominate_fraction,omitempty"`
	// The candidate pruning to run, with its cadence.
	Prune           PrunePolicy `yaml:"prune,omitempty"`
	PruneCheckEvery Param       `yaml:"prune_check_every,omitempty"`
	// Whether to keep running per-split impurity sums so scoring does
	// not recompute from raw counts.
	UseRunningStats bool `yaml:"use_running_stats,omitempty"`
}

/*
ReadParams takes a slice of bytes with a growth parameter specification in
YAML and returns the parsed Params or an error.
*/
func ReadParams(data []byte) (*Params, error) {
	p := &Params{}
	err := yaml.Unmarshal(data, p)
	if err != nil {
		return nil, fmt.Errorf("parsing yml growth params: %v", err)
	}
	return p, nil
}

/*
ReadParamsFromFile takes a filepath string, reads its contents and uses
ReadParams to parse it and return the parsed Params or an error.
*/
func ReadParamsFromFile(filepath string) (*Params, error) {
	data, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading growth params yml file %s: %v", filepath, err)
	}
	p, err := ReadParams(data)
	if err != nil {
		err = fmt.Errorf("parsing growth params yml file %s: %v", filepath, err)
	}
	return p, err
}
