package ngram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Source is a named collection of training corpora.
type Source interface {
	// List returns the names of every available corpus, sorted.
	List(ctx context.Context) ([]string, error)
	// Open returns the corpus of the given name, one word per line. An unknown
	// name yields an error wrapping ErrModelNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSourceExt is the file extension of a corpus stored in a DirSource.
const DirSourceExt = ".dat"

// DirSource reads corpora from <Dir>/<name>.dat files.
type DirSource struct {
	Dir string
}

// NewDirSource returns a Source backed by the files of dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// List returns the names of the .dat files of the directory, sorted.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus directory %q: %w", s.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != DirSourceExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), DirSourceExt))
	}
	slices.Sort(names)
	return names, nil
}

// Open opens <Dir>/<name>.dat.
func (s *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validSourceName(name) {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
		}
		return nil, fmt.Errorf("failed to open corpus %q: %w", name, err)
	}
	return f, nil
}

// Path returns the file a corpus of the given name is stored in.
func (s *DirSource) Path(name string) string {
	return filepath.Join(s.Dir, name+DirSourceExt)
}

// validSourceName rejects names that would escape the source directory.
func validSourceName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
