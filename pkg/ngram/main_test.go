package ngram

import (
	"database/sql"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a new SQLite database with the corpus schema and a
// SQLSource on top of it. It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *SQLSource) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	src, err := NewSQLSource(db)
	if err != nil {
		t.Fatalf("NewSQLSource() error = %v", err)
	}
	t.Cleanup(src.Close)

	return db, src
}

// writeCorpus writes words, one per line, to <dir>/<name>.dat.
func writeCorpus(t *testing.T, dir, name string, words ...string) {
	t.Helper()
	data := strings.Join(words, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name+DirSourceExt), []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write corpus %q: %v", name, err)
	}
}

// setupTestSet builds one model per corpus, all at the default intensity.
func setupTestSet(t *testing.T, maxOrder int, corpora map[string][]string) *ActiveSet {
	t.Helper()
	entries := make(map[string]Entry, len(corpora))
	for name, words := range corpora {
		entries[name] = Entry{Model: Build(name, words, maxOrder), Intensity: DefaultIntensity}
	}
	set, err := NewActiveSet(entries)
	if err != nil {
		t.Fatalf("setup: NewActiveSet() error = %v", err)
	}
	return set
}

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func testRequest() Request {
	req := DefaultRequest()
	req.Randomness = 0
	return req
}

var benchmarkWords = []string{
	"paris", "lyon", "marseille", "toulouse", "nice", "nantes", "strasbourg",
	"montpellier", "bordeaux", "lille", "rennes", "reims", "toulon", "grenoble",
	"dijon", "angers", "nimes", "villeurbanne", "clermont", "aix", "brest",
	"limoges", "tours", "amiens", "perpignan", "metz", "besancon", "orleans",
	"rouen", "mulhouse", "caen", "nancy", "argenteuil", "roubaix", "tourcoing",
}
