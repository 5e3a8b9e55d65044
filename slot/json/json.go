/*
Package json provides an encoder/decoder of slots to JSON documents,
used by stores that persist slots as opaque byte slices.
*/
package json

import (
	"encoding/json"
	"fmt"

	"github.com/jmaravall/fertile/slot"
	"github.com/jmaravall/fertile/split"
)

/*
SlotEncodeDecoder is an interface for objects
that allow encoding slots into slices of
bytes and decoding them back to slots.
*/
type SlotEncodeDecoder interface {

	//Encode receives a *slot.Slot
	//and returns a slice of bytes with the slot
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*slot.Slot) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *slot.Slot decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*slot.Slot, error)
}

type slotEncodeDecoder struct {
	features map[string]split.Feature
}

type jsonSplit struct {
	Feature string   `json:"feature"`
	Pivot   *float64 `json:"pivot,omitempty"`
	Value   *string  `json:"value,omitempty"`
}

type jsonStats struct {
	WeightSum    float64         `json:"weightSum"`
	DenseCounts  []float64       `json:"dense,omitempty"`
	SparseCounts map[int]float64 `json:"sparse,omitempty"`
	Sums         []float64       `json:"sums,omitempty"`
	Squares      []float64       `json:"squares,omitempty"`
}

type jsonCandidate struct {
	Split *jsonSplit `json:"split"`
	Left  *jsonStats `json:"left,omitempty"`
}

type jsonSlot struct {
	ID         string           `json:"id"`
	WeightSum  float64          `json:"weightSum"`
	Leaf       *jsonStats       `json:"leaf,omitempty"`
	Candidates []*jsonCandidate `json:"candidates,omitempty"`
}

/*
New takes the features the persisted splits may examine and returns a
SlotEncodeDecoder that encodes slots as JSON documents, resolving split
features by name on decoding.
*/
func New(features []split.Feature) SlotEncodeDecoder {
	byName := make(map[string]split.Feature, len(features))
	for _, f := range features {
		byName[f.Name()] = f
	}
	return &slotEncodeDecoder{byName}
}

func (sed *slotEncodeDecoder) Encode(s *slot.Slot) ([]byte, error) {
	js := &jsonSlot{
		ID:        s.ID,
		WeightSum: s.WeightSum,
		Leaf:      encodeStats(s.Leaf),
	}
	for _, cand := range s.Candidates {
		jc, err := encodeCandidate(cand)
		if err != nil {
			return nil, fmt.Errorf("encoding slot %s: %v", s.ID, err)
		}
		js.Candidates = append(js.Candidates, jc)
	}
	data, err := json.Marshal(js)
	if err != nil {
		return nil, fmt.Errorf("encoding slot %s: %v", s.ID, err)
	}
	return data, nil
}

func (sed *slotEncodeDecoder) Decode(data []byte) (*slot.Slot, error) {
	js := &jsonSlot{}
	err := json.Unmarshal(data, js)
	if err != nil {
		return nil, fmt.Errorf("decoding slot: %v", err)
	}
	s := &slot.Slot{
		ID:        js.ID,
		WeightSum: js.WeightSum,
		Leaf:      decodeStats(js.Leaf),
	}
	for _, jc := range js.Candidates {
		cand, err := sed.decodeCandidate(jc)
		if err != nil {
			return nil, fmt.Errorf("decoding slot %s: %v", js.ID, err)
		}
		s.Candidates = append(s.Candidates, cand)
	}
	return s, nil
}

func encodeCandidate(cand *slot.Candidate) (*jsonCandidate, error) {
	jsp, err := encodeSplit(cand.Split)
	if err != nil {
		return nil, err
	}
	return &jsonCandidate{Split: jsp, Left: encodeStats(cand.Left)}, nil
}

func (sed *slotEncodeDecoder) decodeCandidate(jc *jsonCandidate) (*slot.Candidate, error) {
	if jc.Split == nil {
		return nil, fmt.Errorf("candidate without split")
	}
	sp, err := sed.decodeSplit(jc.Split)
	if err != nil {
		return nil, err
	}
	return &slot.Candidate{Split: sp, Left: decodeStats(jc.Left)}, nil
}

func encodeSplit(s split.Split) (*jsonSplit, error) {
	switch s := s.(type) {
	case split.ThresholdSplit:
		pivot := s.Pivot()
		return &jsonSplit{Feature: s.Feature().Name(), Pivot: &pivot}, nil
	case split.EqualitySplit:
		value := s.Value()
		return &jsonSplit{Feature: s.Feature().Name(), Value: &value}, nil
	default:
		return nil, fmt.Errorf("unknown split type %T", s)
	}
}

func (sed *slotEncodeDecoder) decodeSplit(jsp *jsonSplit) (split.Split, error) {
	f, ok := sed.features[jsp.Feature]
	if !ok {
		return nil, fmt.Errorf("split on unknown feature %q", jsp.Feature)
	}
	switch {
	case jsp.Pivot != nil:
		cf, ok := f.(*split.ContinuousFeature)
		if !ok {
			return nil, fmt.Errorf("threshold split on non-continuous feature %q", jsp.Feature)
		}
		return split.NewThresholdSplit(cf, *jsp.Pivot), nil
	case jsp.Value != nil:
		df, ok := f.(*split.DiscreteFeature)
		if !ok {
			return nil, fmt.Errorf("equality split on non-discrete feature %q", jsp.Feature)
		}
		return split.NewEqualitySplit(df, *jsp.Value), nil
	default:
		return nil, fmt.Errorf("split on feature %q has neither pivot nor value", jsp.Feature)
	}
}

func encodeStats(st *slot.Stats) *jsonStats {
	if st == nil {
		return nil
	}
	return &jsonStats{
		WeightSum:    st.WeightSum,
		DenseCounts:  st.DenseCounts,
		SparseCounts: st.SparseCounts,
		Sums:         st.Sums,
		Squares:      st.Squares,
	}
}

func decodeStats(js *jsonStats) *slot.Stats {
	if js == nil {
		return nil
	}
	return &slot.Stats{
		WeightSum:    js.WeightSum,
		DenseCounts:  js.DenseCounts,
		SparseCounts: js.SparseCounts,
		Sums:         js.Sums,
		Squares:      js.Squares,
	}
}
