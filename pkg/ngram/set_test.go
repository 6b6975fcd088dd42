package ngram

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestNewActiveSet(t *testing.T) {
	m := Build("a", []string{"anna"}, 3)

	testCases := []struct {
		name    string
		entries map[string]Entry
		wantErr bool
	}{
		{name: "Empty", entries: nil},
		{name: "Bounds", entries: map[string]Entry{"a": {Model: m, Intensity: 0}, "b": {Model: m, Intensity: MaxIntensity}}},
		{name: "Nil model", entries: map[string]Entry{"a": {Intensity: 10}}, wantErr: true},
		{name: "Negative intensity", entries: map[string]Entry{"a": {Model: m, Intensity: -1}}, wantErr: true},
		{name: "Intensity too high", entries: map[string]Entry{"a": {Model: m, Intensity: 100.5}}, wantErr: true},
		{name: "NaN intensity", entries: map[string]Entry{"a": {Model: m, Intensity: math.NaN()}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewActiveSet(tc.entries)
			if tc.wantErr != (err != nil) {
				t.Fatalf("NewActiveSet() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("NewActiveSet() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestActiveSet(t *testing.T) {
	set := setupTestSet(t, 3, map[string][]string{
		"ville":  {"paris", "lyon"},
		"french": {"bonjour"},
		"empty":  nil,
	})

	if got := set.Names(); !slices.Equal(got, []string{"empty", "french", "ville"}) {
		t.Errorf("Names() = %q", got)
	}
	if set.Len() != 3 || set.MaxOrder() != 3 {
		t.Errorf("Len() = %d, MaxOrder() = %d", set.Len(), set.MaxOrder())
	}
	if !set.Contains("lyon") || !set.Contains("bonjour") || set.Contains("nice") {
		t.Error("Contains() should look into every model")
	}

	parts := set.participants()
	if len(parts) != 2 || parts[0].Model.Name() != "french" || parts[1].Model.Name() != "ville" {
		t.Errorf("participants() should skip the empty model and keep name order, got %d entries", len(parts))
	}

	lowered, err := set.WithIntensities(map[string]float64{"ville": 0})
	if err != nil {
		t.Fatalf("WithIntensities() error = %v", err)
	}
	if e, _ := lowered.Entry("ville"); e.Intensity != 0 {
		t.Errorf("overridden intensity = %v, want 0", e.Intensity)
	}
	if e, _ := set.Entry("ville"); e.Intensity != DefaultIntensity {
		t.Error("WithIntensities() modified the original set")
	}
	if !lowered.Contains("paris") {
		t.Error("a model at intensity 0 still counts for duplicate detection")
	}

	if _, err := set.WithIntensities(map[string]float64{"nope": 1}); !errors.Is(err, ErrValidation) {
		t.Errorf("WithIntensities(unknown) error = %v, want ErrValidation", err)
	}
	if same, _ := set.WithIntensities(nil); same != set {
		t.Error("WithIntensities(nil) should return the set itself")
	}
}

func TestActiveSetStats(t *testing.T) {
	m := Build("ville", []string{"paris"}, 2)
	set, err := NewActiveSet(map[string]Entry{"ville": {Model: m, Intensity: 40}})
	if err != nil {
		t.Fatal(err)
	}
	stats := set.Stats()
	if len(stats) != 1 || stats[0].Name != "ville" || stats[0].Intensity != 40 || stats[0].Words != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}
