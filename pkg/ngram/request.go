package ngram

import (
	"math"
	"strconv"
	"strings"
)

// SeedKind selects how the starting prefix of a word is chosen.
type SeedKind int

const (
	// SeedNone starts from an empty prefix.
	SeedNone SeedKind = iota
	// SeedCustom starts from a caller-supplied string.
	SeedCustom
	// SeedRandom starts from a random key of a loaded model.
	SeedRandom
)

// Seed is the starting-prefix strategy of a Request.
type Seed struct {
	Kind SeedKind
	// Text is the literal prefix of a SeedCustom seed.
	Text string
	// Order is the table order a SeedRandom seed draws its key from;
	// 0 draws the order at random as well.
	Order int
}

// NoSeed returns a seed starting from an empty prefix.
func NoSeed() Seed { return Seed{Kind: SeedNone} }

// CustomSeed returns a seed starting from text.
func CustomSeed(text string) Seed { return Seed{Kind: SeedCustom, Text: text} }

// RandomSeed returns a seed starting from a random key of the given order.
func RandomSeed(order int) Seed { return Seed{Kind: SeedRandom, Order: order} }

// String encodes the seed the way ParseSeed reads it.
func (s Seed) String() string {
	switch s.Kind {
	case SeedCustom:
		return "custom:" + s.Text
	case SeedRandom:
		return "random:" + strconv.Itoa(s.Order)
	default:
		return "none"
	}
}

// ParseSeed decodes "none", "custom:<literal>" or "random:<order>". The empty
// string is read as "none". Prefixes are case-insensitive; the literal of a
// custom seed is kept verbatim.
func ParseSeed(s string) (Seed, error) {
	lower := strings.ToLower(s)
	switch {
	case s == "" || lower == "none":
		return NoSeed(), nil
	case strings.HasPrefix(lower, "custom:"):
		text := s[len("custom:"):]
		if text == "" {
			return Seed{}, validationf("custom seed cannot be empty")
		}
		return CustomSeed(text), nil
	case strings.HasPrefix(lower, "random:"):
		n, err := strconv.Atoi(s[len("random:"):])
		if err != nil || n < 0 {
			return Seed{}, validationf("random seed order must be a non-negative integer, got %q", s[len("random:"):])
		}
		return RandomSeed(n), nil
	default:
		return Seed{}, validationf("seed must be 'none', 'custom:<text>' or 'random:<order>', got %q", s)
	}
}

// ParseIntensities decodes a comma-separated list of name:value pairs, value
// being a percentage in [0, 100].
func ParseIntensities(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, validationf("intensity %q must be name:value", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || !validIntensity(v) {
			return nil, validationf("intensity for %q must be a number in [0, %v], got %q", name, MaxIntensity, value)
		}
		if _, dup := out[name]; dup {
			return nil, validationf("intensity for %q given twice", name)
		}
		out[name] = v
	}
	return out, nil
}

// ParseNames splits a comma-separated list of model names, trimming blanks and
// dropping empty entries and repeats.
func ParseNames(s string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		names = append(names, part)
	}
	return names
}

// Request holds the parameters of one generation call.
type Request struct {
	// MaxN caps the order used for each symbol; 0 uses the whole prefix.
	MaxN int
	// NbTry is the number of attempts allowed to avoid returning a trained word.
	NbTry int
	// Randomness is the probability, per symbol, of switching to another order.
	Randomness float64
	// ReduceRandom applies Randomness again at each reduction step.
	ReduceRandom bool
	Seed         Seed
	// Intensities overrides the intensity of some loaded models for this call.
	Intensities map[string]float64
}

// DefaultRequest returns the request used when no parameter is given.
func DefaultRequest() Request {
	return Request{MaxN: 0, NbTry: 5, Randomness: 0.1, ReduceRandom: false, Seed: NoSeed()}
}

// Validate checks the ranges of every parameter.
func (r Request) Validate() error {
	if r.MaxN < 0 {
		return validationf("max_n must be >= 0, got %d", r.MaxN)
	}
	if r.NbTry < 1 {
		return validationf("nb_try must be >= 1, got %d", r.NbTry)
	}
	if math.IsNaN(r.Randomness) || r.Randomness < 0 || r.Randomness > 1 {
		return validationf("randomness must be between 0.0 and 1.0, got %v", r.Randomness)
	}
	switch r.Seed.Kind {
	case SeedNone:
	case SeedCustom:
		if r.Seed.Text == "" {
			return validationf("custom seed cannot be empty")
		}
		if strings.ContainsRune(r.Seed.Text, StartOfWord) || strings.ContainsRune(r.Seed.Text, EndOfWord) {
			return validationf("custom seed holds a reserved marker symbol")
		}
	case SeedRandom:
		if r.Seed.Order < 0 {
			return validationf("random seed order must be >= 0, got %d", r.Seed.Order)
		}
	default:
		return validationf("unknown seed kind %d", r.Seed.Kind)
	}
	for name, v := range r.Intensities {
		if !validIntensity(v) {
			return validationf("intensity for %q must be in [0, %v], got %v", name, MaxIntensity, v)
		}
	}
	return nil
}
