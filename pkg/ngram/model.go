package ngram

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
)

// Model is a named bundle of Tables for orders 1..MaxOrder together with the
// set of words it was trained on. A Model is immutable once built and may be
// shared freely between goroutines.
type Model struct {
	name   string
	tables []*Table // tables[n-1] holds order n
	words  map[string]struct{}
}

func newModel(name string) *Model {
	return &Model{name: name, words: make(map[string]struct{})}
}

// Build trains a model on the given words. Every order from 1 up to maxOrder is
// trained; a maxOrder of 0 or less trains each word up to its full length
// (including the start and end markers). Duplicate and empty words, and words
// holding a reserved marker symbol, are ignored.
func Build(name string, words []string, maxOrder int) *Model {
	m := newModel(name)
	for _, w := range words {
		m.addWord(w, maxOrder)
	}
	m.freeze()
	return m
}

// BuildConcurrent is equivalent to Build but splits the corpus into chunks
// trained concurrently by up to `workers` goroutines, then merges the partial
// models. It is worthwhile for large corpora.
func BuildConcurrent(ctx context.Context, name string, words []string, maxOrder, workers int) (*Model, error) {
	if workers < 1 {
		workers = 1
	}
	unique := dedupeWords(words)
	chunks := workers * 4
	chunkSize := (len(unique) + chunks - 1) / chunks
	if chunkSize == 0 || workers == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Build(name, unique, maxOrder), nil
	}

	partials := make([]*Model, (len(unique)+chunkSize-1)/chunkSize)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range partials {
		start := i * chunkSize
		end := min(start+chunkSize, len(unique))
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			p := newModel(name)
			for _, w := range unique[start:end] {
				p.addWord(w, maxOrder)
			}
			partials[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	final := newModel(name)
	for _, p := range partials {
		final.mergeFrom(p)
	}
	final.freeze()
	return final, nil
}

// Load reads a corpus (one word per line) from r and builds a model from it.
// An empty corpus yields an empty model.
func Load(name string, r io.Reader, maxOrder int) (*Model, error) {
	words, err := ReadCorpus(name, r)
	if err != nil {
		return nil, err
	}
	return Build(name, words, maxOrder), nil
}

// Merge returns a model whose tables hold, per key and symbol, the sum of the
// weights of a and b, and whose trained-word set is the union of both. Merge is
// commutative, including the resulting name.
func Merge(a, b *Model) *Model {
	names := []string{a.name, b.name}
	slices.Sort(names)
	m := newModel(strings.Join(names, "+"))
	m.mergeFrom(a)
	m.mergeFrom(b)
	m.freeze()
	return m
}

func (m *Model) mergeFrom(other *Model) {
	for i, t := range other.tables {
		m.table(i + 1).addTable(t)
	}
	for w := range other.words {
		m.words[w] = struct{}{}
	}
}

func (m *Model) addWord(word string, maxOrder int) {
	word = normalizeWord(word)
	if !validWord(word) {
		return
	}
	if _, dup := m.words[word]; dup {
		return
	}
	m.words[word] = struct{}{}

	seq := make([]rune, 0, len(word)+2)
	seq = append(seq, StartOfWord)
	seq = append(seq, []rune(word)...)
	seq = append(seq, EndOfWord)

	top := len(seq)
	if maxOrder > 0 && maxOrder < top {
		top = maxOrder
	}
	for n := 1; n <= top; n++ {
		t := m.table(n)
		// Position 0 is the start marker, which is never a next symbol.
		for i := max(1, n-1); i < len(seq); i++ {
			t.add(string(seq[i-n+1:i]), seq[i], 1)
		}
	}
}

// table returns the table of order n, growing the model as needed.
func (m *Model) table(n int) *Table {
	for len(m.tables) < n {
		m.tables = append(m.tables, newTable(len(m.tables)+1))
	}
	return m.tables[n-1]
}

func (m *Model) freeze() {
	for _, t := range m.tables {
		t.freeze()
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// MaxOrder returns the highest trained order, or 0 for an empty model.
func (m *Model) MaxOrder() int { return len(m.tables) }

// Table returns the table of order n, or nil if the model has none.
func (m *Model) Table(n int) *Table {
	if n < 1 || n > len(m.tables) {
		return nil
	}
	return m.tables[n-1]
}

// Orders returns every order holding at least one key, ascending.
func (m *Model) Orders() []int {
	var orders []int
	for _, t := range m.tables {
		if t.Len() > 0 {
			orders = append(orders, t.order)
		}
	}
	return orders
}

// Empty reports whether the model was trained on nothing.
func (m *Model) Empty() bool {
	t := m.Table(1)
	return t == nil || !t.Has("")
}

// Contains reports whether word is one of the trained words.
func (m *Model) Contains(word string) bool {
	_, ok := m.words[word]
	return ok
}

// Words returns the trained words in sorted order.
func (m *Model) Words() []string {
	out := make([]string, 0, len(m.words))
	for w := range m.words {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// Prune returns a copy of the model without the transitions whose weight is at
// most minWeight. Table(1) is kept whole.
func (m *Model) Prune(minWeight int) *Model {
	p := newModel(m.name)
	for w := range m.words {
		p.words[w] = struct{}{}
	}
	for i, t := range m.tables {
		if i == 0 {
			p.tables = append(p.tables, t.clone())
			continue
		}
		pt := newTable(t.order)
		for key, row := range t.rows {
			for sym, w := range row {
				if w > minWeight {
					pt.add(key, sym, w)
				}
			}
		}
		p.tables = append(p.tables, pt)
	}
	// Drop trailing orders left without keys.
	for len(p.tables) > 1 && p.tables[len(p.tables)-1].Len() == 0 {
		p.tables = p.tables[:len(p.tables)-1]
	}
	p.freeze()
	return p
}

// Persist writes the trained words to w, sorted, one per line. Loading the
// output rebuilds an equivalent model, except for a merged model whose inputs
// shared words: the merge summed those words' weights while the word set keeps
// them once.
func (m *Model) Persist(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, word := range m.Words() {
		if _, err := bw.WriteString(word); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile persists the model to path atomically.
func (m *Model) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := m.Persist(&buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write model %q: %w", m.name, err)
	}
	return nil
}

func dedupeWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = normalizeWord(w)
		if _, ok := seen[w]; ok || !validWord(w) {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// normalizeWord replaces invalid UTF-8 with U+FFFD so the trained-word set
// holds the same symbols as the tables.
func normalizeWord(w string) string {
	return strings.ToValidUTF8(w, string(utf8.RuneError))
}

func validWord(w string) bool {
	return w != "" && !strings.ContainsRune(w, StartOfWord) && !strings.ContainsRune(w, EndOfWord)
}
