package ngram

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// DefaultMaxLength is the default hard limit on the length of a generated word,
// in symbols.
const DefaultMaxLength = 256

// Result is the outcome of a generation call.
type Result struct {
	Word string
	// Attempts is the number of words generated, duplicates included.
	Attempts int
}

// Step describes how one symbol was picked.
type Step struct {
	// Target is the order given by the order policy.
	Target int
	// Order is the order the symbol was finally drawn from, after randomness
	// and reduction.
	Order int
	// Reductions is the number of times the order was lowered on a miss.
	Reductions int
	Symbol     rune
}

type generateOptions struct {
	rng       *rand.Rand
	maxLength int
	observer  func(Step)
}

// GenerateOption configures a generation call.
type GenerateOption func(*generateOptions)

// WithRand sets the random source of the call. By default every call gets its
// own generator seeded from the runtime source.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

// WithMaxLength sets the hard limit on the generated word length. Going past it
// fails the call with ErrTooLong.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) {
		if n > 0 {
			o.maxLength = n
		}
	}
}

// WithStepObserver registers a function called after each symbol is drawn.
func WithStepObserver(fn func(Step)) GenerateOption {
	return func(o *generateOptions) { o.observer = fn }
}

// Generate produces one word from the models of set. When the word is one of
// the trained words it tries again, up to req.NbTry attempts in total, and then
// returns the last word anyway.
func Generate(set *ActiveSet, req Request, opts ...GenerateOption) (Result, error) {
	options := &generateOptions{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if set == nil || set.Len() == 0 {
		return Result{}, ErrNoModelsLoaded
	}
	set, err := set.WithIntensities(req.Intensities)
	if err != nil {
		return Result{}, err
	}
	parts := set.participants()
	if len(parts) == 0 {
		return Result{}, fmt.Errorf("%w: no loaded model has a positive intensity and training data", ErrNoModelsLoaded)
	}

	g := &generation{
		set:     set,
		parts:   parts,
		req:     req,
		options: options,
		weights: make(map[rune]float64),
	}

	var res Result
	for res.Attempts < req.NbTry {
		res.Attempts++
		word, err := g.attempt()
		if err != nil {
			return Result{Attempts: res.Attempts}, err
		}
		res.Word = word
		if !set.Contains(word) {
			break
		}
	}
	return res, nil
}

// generation holds the state shared by the attempts of one call.
type generation struct {
	set     *ActiveSet
	parts   []Entry
	req     Request
	options *generateOptions
	weights map[rune]float64
}

type weighted struct {
	symbol rune
	weight float64
}

func (g *generation) attempt() (string, error) {
	seed, err := g.seedPrefix()
	if err != nil {
		return "", err
	}
	prefix := make([]rune, 0, len(seed)+16)
	prefix = append(prefix, StartOfWord)
	prefix = append(prefix, seed...)

	for {
		if len(prefix)-1 > g.options.maxLength {
			return "", fmt.Errorf("%w: more than %d symbols", ErrTooLong, g.options.maxLength)
		}
		sym, err := g.next(prefix)
		if err != nil {
			return "", err
		}
		if sym == EndOfWord {
			return string(prefix[1:]), nil
		}
		prefix = append(prefix, sym)
	}
}

// next picks the symbol following prefix: order selection, optional
// randomness, reduction on misses, then a weighted draw.
func (g *generation) next(prefix []rune) (rune, error) {
	rng := g.options.rng
	randomness := g.req.Randomness

	target := TargetOrder(len(prefix), g.req.MaxN, g.set.MaxOrder())
	order := target
	if randomness > 0 {
		upper := min(len(prefix)+1, g.set.MaxOrder())
		if g.req.MaxN > 0 {
			upper = min(upper, g.req.MaxN)
		}
		order = injectRandomness(rng, randomness, order, matchingOrders(g.parts, prefix, upper))
	}

	reductions := 0
	cands, total := g.distribution(prefix, order)
	for len(cands) == 0 {
		if order <= 1 {
			// Unreachable while every participant has a Table(1).
			return 0, fmt.Errorf("%w: no transition found down to order 1", ErrNoModelsLoaded)
		}
		order--
		reductions++
		if g.req.ReduceRandom && randomness > 0 {
			order = injectRandomness(rng, randomness, order, matchingOrders(g.parts, prefix, order))
		}
		cands, total = g.distribution(prefix, order)
	}

	sym := sample(rng, cands, total)
	if g.options.observer != nil {
		g.options.observer(Step{Target: target, Order: order, Reductions: reductions, Symbol: sym})
	}
	return sym, nil
}

// distribution blends the order-n transitions of every participant holding
// the key, each weight scaled by its model's intensity. Candidates are sorted
// by symbol so a given random source always yields the same draw.
func (g *generation) distribution(prefix []rune, n int) ([]weighted, float64) {
	key, ok := keyFor(prefix, n)
	if !ok {
		return nil, 0
	}
	clear(g.weights)
	for _, e := range g.parts {
		t := e.Model.Table(n)
		if t == nil {
			continue
		}
		intensity := e.Intensity
		t.each(key, func(sym rune, w int) {
			g.weights[sym] += float64(w) * intensity
		})
	}
	if len(g.weights) == 0 {
		return nil, 0
	}
	cands := make([]weighted, 0, len(g.weights))
	var total float64
	for sym, w := range g.weights {
		cands = append(cands, weighted{symbol: sym, weight: w})
		total += w
	}
	slices.SortFunc(cands, func(a, b weighted) int { return int(a.symbol) - int(b.symbol) })
	return cands, total
}

func sample(rng *rand.Rand, cands []weighted, total float64) rune {
	r := rng.Float64() * total
	for _, c := range cands {
		r -= c.weight
		if r < 0 {
			return c.symbol
		}
	}
	// Rounding can leave r at or just above zero.
	return cands[len(cands)-1].symbol
}

// seedPrefix returns the symbols the word starts with, start marker excluded.
func (g *generation) seedPrefix() ([]rune, error) {
	switch g.req.Seed.Kind {
	case SeedCustom:
		return []rune(g.req.Seed.Text), nil
	case SeedRandom:
		return g.randomSeed(g.req.Seed.Order)
	default:
		return nil, nil
	}
}

// randomSeed draws a model by intensity, then one key of its order-n table.
// With n == 0 the order is drawn among the chosen model's orders as well.
func (g *generation) randomSeed(n int) ([]rune, error) {
	rng := g.options.rng
	pool := g.parts
	if n > 0 {
		pool = make([]Entry, 0, len(g.parts))
		for _, e := range g.parts {
			if t := e.Model.Table(n); t != nil && t.Len() > 0 {
				pool = append(pool, e)
			}
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: no model with a positive intensity has order %d", ErrModelOrderUnavailable, n)
		}
	}

	m := pickModel(rng, pool)
	if n == 0 {
		orders := m.Orders()
		n = orders[rng.IntN(len(orders))]
	}
	keys := m.Table(n).Keys()
	key := keys[rng.IntN(len(keys))]
	return []rune(strings.TrimPrefix(key, string(StartOfWord))), nil
}

// pickModel draws a model with probability proportional to its intensity.
func pickModel(rng *rand.Rand, pool []Entry) *Model {
	var total float64
	for _, e := range pool {
		total += e.Intensity
	}
	r := rng.Float64() * total
	for _, e := range pool {
		r -= e.Intensity
		if r < 0 {
			return e.Model
		}
	}
	return pool[len(pool)-1].Model
}
