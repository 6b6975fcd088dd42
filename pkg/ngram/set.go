package ngram

import (
	"math"
	"slices"
)

const (
	// DefaultIntensity applies to a loaded model that no intensity was given for.
	DefaultIntensity = 100.0
	// MaxIntensity is the upper bound of an intensity; the lower bound is 0.
	MaxIntensity = 100.0
)

// Entry pairs a loaded model with its intensity.
type Entry struct {
	Model     *Model
	Intensity float64
}

// ActiveSet is an immutable snapshot of loaded models and their intensities.
// A generation call works against one ActiveSet for its whole duration.
type ActiveSet struct {
	entries  map[string]Entry
	names    []string
	maxOrder int
}

// NewActiveSet builds a snapshot from entries keyed by model name. Every
// intensity must lie in [0, MaxIntensity].
func NewActiveSet(entries map[string]Entry) (*ActiveSet, error) {
	s := &ActiveSet{entries: make(map[string]Entry, len(entries))}
	for name, e := range entries {
		if e.Model == nil {
			return nil, validationf("model %q is nil", name)
		}
		if !validIntensity(e.Intensity) {
			return nil, validationf("intensity %v for model %q is outside [0, %v]", e.Intensity, name, MaxIntensity)
		}
		s.entries[name] = e
		s.names = append(s.names, name)
		s.maxOrder = max(s.maxOrder, e.Model.MaxOrder())
	}
	slices.Sort(s.names)
	return s, nil
}

// WithIntensities returns a snapshot sharing the same models with some
// intensities replaced. Naming a model that is not in the set is an error.
func (s *ActiveSet) WithIntensities(overrides map[string]float64) (*ActiveSet, error) {
	if len(overrides) == 0 {
		return s, nil
	}
	entries := make(map[string]Entry, len(s.entries))
	for name, e := range s.entries {
		entries[name] = e
	}
	for name, v := range overrides {
		e, ok := entries[name]
		if !ok {
			return nil, validationf("intensity given for model %q which is not loaded", name)
		}
		e.Intensity = v
		entries[name] = e
	}
	return NewActiveSet(entries)
}

// Names returns the model names in sorted order.
func (s *ActiveSet) Names() []string { return slices.Clone(s.names) }

// Len returns the number of models in the set.
func (s *ActiveSet) Len() int { return len(s.entries) }

// Entry returns the entry of the named model.
func (s *ActiveSet) Entry(name string) (Entry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// MaxOrder returns the highest order any model in the set was trained with.
func (s *ActiveSet) MaxOrder() int { return s.maxOrder }

// Contains reports whether word was trained by any model of the set,
// whatever its intensity.
func (s *ActiveSet) Contains(word string) bool {
	for _, e := range s.entries {
		if e.Model.Contains(word) {
			return true
		}
	}
	return false
}

// participants returns, in name order, the models that can influence sampling:
// a positive intensity and some training data.
func (s *ActiveSet) participants() []Entry {
	out := make([]Entry, 0, len(s.names))
	for _, name := range s.names {
		e := s.entries[name]
		if e.Intensity > 0 && !e.Model.Empty() {
			out = append(out, e)
		}
	}
	return out
}

func validIntensity(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= MaxIntensity
}
