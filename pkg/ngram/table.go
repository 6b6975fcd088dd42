package ngram

import (
	"slices"
)

const (
	// StartOfWord is the reserved symbol prepended to every training word.
	StartOfWord rune = '\u0002'
	// EndOfWord is the reserved symbol appended to every training word. Drawing
	// it completes the word being generated.
	EndOfWord rune = '\u0003'
)

// Transition is one candidate next symbol with its weight.
type Transition struct {
	Symbol rune
	Weight int
}

// Table holds the transitions of a single order. Its keys are strings of
// exactly order-1 symbols. A Table is immutable once its model is built.
type Table struct {
	order int
	rows  map[string]map[rune]int
	keys  []string // sorted, filled by freeze
}

func newTable(order int) *Table {
	return &Table{order: order, rows: make(map[string]map[rune]int)}
}

// Order returns the order of the table.
func (t *Table) Order() int { return t.order }

// Len returns the number of keys in the table.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.rows[key]
	return ok
}

// Weight returns the weight of key -> symbol, or 0 if absent.
func (t *Table) Weight(key string, symbol rune) int {
	return t.rows[key][symbol]
}

// Transitions returns the transitions for key, sorted by symbol. It returns nil
// when the key is absent.
func (t *Table) Transitions(key string) []Transition {
	row, ok := t.rows[key]
	if !ok {
		return nil
	}
	out := make([]Transition, 0, len(row))
	for sym, w := range row {
		out = append(out, Transition{Symbol: sym, Weight: w})
	}
	slices.SortFunc(out, func(a, b Transition) int { return int(a.Symbol) - int(b.Symbol) })
	return out
}

// Keys returns the table keys in sorted order. The returned slice must not be
// modified.
func (t *Table) Keys() []string { return t.keys }

// each calls fn for every transition of key in unspecified order.
func (t *Table) each(key string, fn func(symbol rune, weight int)) bool {
	row, ok := t.rows[key]
	if !ok {
		return false
	}
	for sym, w := range row {
		fn(sym, w)
	}
	return true
}

func (t *Table) add(key string, symbol rune, weight int) {
	row, ok := t.rows[key]
	if !ok {
		row = make(map[rune]int)
		t.rows[key] = row
	}
	row[symbol] += weight
}

// addTable sums every transition of other into t.
func (t *Table) addTable(other *Table) {
	for key, row := range other.rows {
		for sym, w := range row {
			t.add(key, sym, w)
		}
	}
}

func (t *Table) freeze() {
	t.keys = make([]string, 0, len(t.rows))
	for key := range t.rows {
		t.keys = append(t.keys, key)
	}
	slices.Sort(t.keys)
}

func (t *Table) clone() *Table {
	c := newTable(t.order)
	c.addTable(t)
	return c
}

func (t *Table) transitionCount() (transitions, weight int) {
	for _, row := range t.rows {
		transitions += len(row)
		for _, w := range row {
			weight += w
		}
	}
	return transitions, weight
}
