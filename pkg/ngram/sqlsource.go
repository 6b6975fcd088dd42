package ngram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SetupSchema creates the corpus tables in db. It is idempotent and safe to
// call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaSources = `
CREATE TABLE IF NOT EXISTS corpus_sources (
    source_id INTEGER PRIMARY KEY,
    source_name TEXT NOT NULL UNIQUE
);
`
		schemaWords = `
CREATE TABLE IF NOT EXISTS corpus_words (
    source_id INTEGER NOT NULL,
    word TEXT NOT NULL,
    PRIMARY KEY (source_id, word)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaSources); err != nil {
		return fmt.Errorf("could not create sources schema: %w", err)
	}
	if _, err = tx.Exec(schemaWords); err != nil {
		return fmt.Errorf("could not create words schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLSource serves corpora stored in a SQL database. Each corpus is a named
// source holding a set of words.
type SQLSource struct {
	db            *sql.DB
	stmtList      *sql.Stmt
	stmtSourceID  *sql.Stmt
	stmtAddSource *sql.Stmt
	stmtWords     *sql.Stmt
	logger        *slog.Logger
}

// NewSQLSource prepares the statements used by the source. SetupSchema must
// have been called on db.
func NewSQLSource(db *sql.DB) (*SQLSource, error) {
	stmtList, err := db.Prepare(`SELECT source_name FROM corpus_sources ORDER BY source_name;`)
	if err != nil {
		return nil, err
	}

	stmtSourceID, err := db.Prepare(`SELECT source_id FROM corpus_sources WHERE source_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtAddSource, err := db.Prepare(`INSERT INTO corpus_sources (source_name) VALUES (?) ON CONFLICT(source_name) DO UPDATE SET source_name=excluded.source_name RETURNING source_id;`)
	if err != nil {
		return nil, err
	}

	stmtWords, err := db.Prepare(`SELECT word FROM corpus_words WHERE source_id = ? ORDER BY word;`)
	if err != nil {
		return nil, err
	}

	return &SQLSource{
		db:            db,
		stmtList:      stmtList,
		stmtSourceID:  stmtSourceID,
		stmtAddSource: stmtAddSource,
		stmtWords:     stmtWords,
		logger:        discardLogger(),
	}, nil
}

// Close releases the prepared statements. The database itself is left open.
func (s *SQLSource) Close() {
	_ = s.stmtList.Close()
	_ = s.stmtSourceID.Close()
	_ = s.stmtAddSource.Close()
	_ = s.stmtWords.Close()
}

// SetLogger sets the logger of the source. By default, all logs are discarded.
func (s *SQLSource) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// List returns the names of every stored corpus, sorted.
func (s *SQLSource) List(ctx context.Context) ([]string, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// Open returns the words of the named corpus, one per line.
func (s *SQLSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	id, err := s.sourceID(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.stmtWords.QueryContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not query words of %q: %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var sb strings.Builder
	for rows.Next() {
		var word string
		if err = rows.Scan(&word); err != nil {
			return nil, err
		}
		sb.WriteString(word)
		sb.WriteByte('\n')
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(sb.String())), nil
}

// AddSource creates an empty corpus. Adding an existing name is a no-op.
func (s *SQLSource) AddSource(ctx context.Context, name string) error {
	if !validSourceName(name) {
		return validationf("invalid corpus name %q", name)
	}
	var id int64
	if err := s.stmtAddSource.QueryRowContext(ctx, name).Scan(&id); err != nil {
		return fmt.Errorf("could not add corpus %q: %w", name, err)
	}
	return nil
}

// RemoveSource deletes a corpus and all of its words. The operation is
// performed within a transaction.
func (s *SQLSource) RemoveSource(ctx context.Context, name string) error {
	id, err := s.sourceID(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM corpus_words WHERE source_id = ?", id); err != nil {
		return fmt.Errorf("failed to remove words of corpus %q: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM corpus_sources WHERE source_id = ?", id); err != nil {
		return fmt.Errorf("failed to remove corpus %q: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Corpus removed", slog.String("corpus", name))
	return nil
}

// ImportWords reads a corpus from r (one word per line) and adds its words to
// the named corpus, creating it if needed. Words already present are kept once.
// The whole import runs in a single transaction and returns the number of new
// words.
func (s *SQLSource) ImportWords(ctx context.Context, name string, r io.Reader) (int, error) {
	// importBatchSize is the number of words inserted between context checks.
	const importBatchSize = 1000

	if !validSourceName(name) {
		return 0, validationf("invalid corpus name %q", name)
	}
	words, err := ReadCorpus(name, r)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var id int64
	if err = tx.StmtContext(ctx, s.stmtAddSource).QueryRowContext(ctx, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("could not add corpus %q: %w", name, err)
	}

	stmtInsert, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO corpus_words (source_id, word) VALUES (?, ?);`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare word insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsert)

	added := 0
	for i, word := range words {
		if i%importBatchSize == 0 {
			if err = ctx.Err(); err != nil {
				return 0, err
			}
		}
		res, err := stmtInsert.ExecContext(ctx, id, word)
		if err != nil {
			return 0, fmt.Errorf("failed to insert word %q: %w", word, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Corpus imported",
		slog.String("corpus", name),
		slog.Int("lines", len(words)),
		slog.Int("new_words", added),
	)
	return added, nil
}

func (s *SQLSource) sourceID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.stmtSourceID.QueryRowContext(ctx, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("could not look up corpus %q: %w", name, err)
	}
	return id, nil
}
