package ngram

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheFormatVersion is bumped whenever the encoding of compiled models changes.
const cacheFormatVersion = 1

// CacheExt is the file extension of a compiled model.
const CacheExt = ".bin"

// Fingerprint returns the hash identifying a corpus in the model cache.
func Fingerprint(corpus []byte) uint64 {
	return xxhash.Sum64(corpus)
}

// ModelCache stores compiled models in a directory, one <name>.bin file per
// model, so that unchanged corpora do not have to be retrained on reload.
type ModelCache struct {
	dir    string
	logger *slog.Logger
}

// NewModelCache returns a cache writing to dir. The directory is created on the
// first Put.
func NewModelCache(dir string) *ModelCache {
	return &ModelCache{dir: dir, logger: discardLogger()}
}

// SetLogger sets the logger of the cache. By default, all logs are discarded.
func (c *ModelCache) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Dir returns the cache directory.
func (c *ModelCache) Dir() string { return c.dir }

type cachedModel struct {
	Version     int           `msgpack:"v"`
	Fingerprint uint64        `msgpack:"fp"`
	BuildOrder  int           `msgpack:"k"`
	Words       []string      `msgpack:"words"`
	Tables      []cachedTable `msgpack:"tables"`
}

type cachedTable struct {
	Rows []cachedRow `msgpack:"rows"`
}

type cachedRow struct {
	Key     string  `msgpack:"key"`
	Symbols []int32 `msgpack:"sym"`
	Weights []int   `msgpack:"w"`
}

// Get returns the compiled model stored for name if it was built from a corpus
// with the given fingerprint and with the given max order. Missing, stale and
// unreadable entries are all reported as a miss.
func (c *ModelCache) Get(name string, fingerprint uint64, maxOrder int) (*Model, bool) {
	data, err := os.ReadFile(c.path(name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("Failed to read cached model", slog.String("model", name), slog.Any("error", err))
		}
		return nil, false
	}

	var cm cachedModel
	if err := msgpack.Unmarshal(data, &cm); err != nil {
		c.logger.Warn("Discarding corrupt cached model", slog.String("model", name), slog.Any("error", err))
		return nil, false
	}
	if cm.Version != cacheFormatVersion || cm.Fingerprint != fingerprint || cm.BuildOrder != normalizeOrder(maxOrder) {
		c.logger.Debug("Cached model is stale", slog.String("model", name))
		return nil, false
	}

	m, err := cm.model(name)
	if err != nil {
		c.logger.Warn("Discarding corrupt cached model", slog.String("model", name), slog.Any("error", err))
		return nil, false
	}
	return m, true
}

// Put stores m as the compiled form of a corpus with the given fingerprint.
func (c *ModelCache) Put(name string, fingerprint uint64, maxOrder int, m *Model) error {
	cm := cachedModel{
		Version:     cacheFormatVersion,
		Fingerprint: fingerprint,
		BuildOrder:  normalizeOrder(maxOrder),
		Words:       m.Words(),
		Tables:      make([]cachedTable, len(m.tables)),
	}
	for i, t := range m.tables {
		rows := make([]cachedRow, 0, t.Len())
		for _, key := range t.Keys() {
			row := cachedRow{Key: key}
			for _, tr := range t.Transitions(key) {
				row.Symbols = append(row.Symbols, tr.Symbol)
				row.Weights = append(row.Weights, tr.Weight)
			}
			rows = append(rows, row)
		}
		cm.Tables[i].Rows = rows
	}

	data, err := msgpack.Marshal(&cm)
	if err != nil {
		return fmt.Errorf("failed to encode model %q: %w", name, err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := atomic.WriteFile(c.path(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write cached model %q: %w", name, err)
	}
	return nil
}

// Remove deletes the compiled model of name, if any.
func (c *ModelCache) Remove(name string) error {
	err := os.Remove(c.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *ModelCache) path(name string) string {
	return filepath.Join(c.dir, name+CacheExt)
}

func (cm *cachedModel) model(name string) (*Model, error) {
	m := newModel(name)
	for _, w := range cm.Words {
		m.words[w] = struct{}{}
	}
	for i, ct := range cm.Tables {
		t := m.table(i + 1)
		for _, row := range ct.Rows {
			if len(row.Symbols) != len(row.Weights) {
				return nil, fmt.Errorf("order %d key %q: %d symbols for %d weights", i+1, row.Key, len(row.Symbols), len(row.Weights))
			}
			if len([]rune(row.Key)) != i {
				return nil, fmt.Errorf("order %d key %q has the wrong length", i+1, row.Key)
			}
			for j, sym := range row.Symbols {
				t.add(row.Key, sym, row.Weights[j])
			}
		}
	}
	m.freeze()
	return m, nil
}

// normalizeOrder maps every unbounded max order to the same cache key.
func normalizeOrder(maxOrder int) int {
	return max(maxOrder, 0)
}
