package ngram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
)

func setupTestRegistry(t *testing.T, opts ...RegistryOption) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	writeCorpus(t, dir, "ville", "paris", "lyon", "nice")
	writeCorpus(t, dir, "french", "bonjour", "merci")
	writeCorpus(t, dir, "one", "anna")
	writeCorpus(t, dir, "other", "bob")

	r, err := NewRegistry(NewDirSource(dir), opts...)
	if err != nil {
		t.Fatalf("setup: NewRegistry() error = %v", err)
	}
	return r, dir
}

func TestRegistryListAvailable(t *testing.T) {
	r, _ := setupTestRegistry(t)

	names, err := r.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable() error = %v", err)
	}
	if !slices.Equal(names, []string{"french", "one", "other", "ville"}) {
		t.Errorf("ListAvailable() = %q", names)
	}
}

func TestRegistryLoad(t *testing.T) {
	r, _ := setupTestRegistry(t)
	ctx := context.Background()

	if got := r.ListLoaded(); len(got) != 0 {
		t.Fatalf("a new registry serves %q", got)
	}
	if _, err := r.Generate(ctx, DefaultRequest()); !errors.Is(err, ErrNoModelsLoaded) {
		t.Errorf("Generate() before any load error = %v, want ErrNoModelsLoaded", err)
	}

	if err := r.Load(ctx, []string{"ville", "french"}, map[string]float64{"french": 25}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := r.ListLoaded(); !slices.Equal(got, []string{"french", "ville"}) {
		t.Errorf("ListLoaded() = %q", got)
	}
	set := r.Snapshot()
	if e, _ := set.Entry("french"); e.Intensity != 25 {
		t.Errorf("french intensity = %v, want 25", e.Intensity)
	}
	if e, _ := set.Entry("ville"); e.Intensity != DefaultIntensity {
		t.Errorf("ville intensity = %v, want the default", e.Intensity)
	}

	if _, err := r.Generate(ctx, DefaultRequest()); err != nil {
		t.Errorf("Generate() error = %v", err)
	}

	stats := r.Stats()
	if len(stats) != 2 || stats[1].Name != "ville" || stats[1].Words != 3 {
		t.Errorf("Stats() = %+v", stats)
	}

	// A reload replaces the whole set.
	if err := r.Load(ctx, []string{"one"}, nil); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if got := r.ListLoaded(); !slices.Equal(got, []string{"one"}) {
		t.Errorf("ListLoaded() after reload = %q", got)
	}
}

func TestRegistryLoadFailureKeepsSet(t *testing.T) {
	r, dir := setupTestRegistry(t)
	ctx := context.Background()
	if err := r.Load(ctx, []string{"ville", "french"}, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before := r.Snapshot()

	bad := filepath.Join(dir, "broken"+DirSourceExt)
	if err := os.WriteFile(bad, []byte("ok\nbad"+string(EndOfWord)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name        string
		names       []string
		intensities map[string]float64
		wantErr     error
	}{
		{name: "Missing source", names: []string{"one", "missing"}, wantErr: ErrModelNotFound},
		{name: "Unparsable source", names: []string{"one", "broken"}, wantErr: ErrParse},
		{name: "No names", names: nil, wantErr: ErrValidation},
		{name: "Repeated name", names: []string{"one", "one"}, wantErr: ErrValidation},
		{name: "Intensity for another model", names: []string{"one"}, intensities: map[string]float64{"ville": 5}, wantErr: ErrValidation},
		{name: "Intensity out of range", names: []string{"one"}, intensities: map[string]float64{"one": 500}, wantErr: ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Load(ctx, tc.names, tc.intensities)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tc.wantErr)
			}
			if r.Snapshot() != before {
				t.Error("a failed Load() replaced the served set")
			}
			if got := r.ListLoaded(); !slices.Equal(got, []string{"french", "ville"}) {
				t.Errorf("ListLoaded() after a failed Load() = %q", got)
			}
		})
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r, _ := setupTestRegistry(t)
	ctx := context.Background()
	if err := r.Load(ctx, []string{"one"}, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		req := testRequest()
		req.NbTry = 1
		res, err := r.Generate(ctx, req, WithStepObserver(func(Step) {
			once.Do(func() {
				close(started)
				<-release
			})
		}))
		done <- outcome{res, err}
	}()

	<-started
	if err := r.Load(ctx, []string{"other"}, nil); err != nil {
		t.Fatalf("concurrent Load() error = %v", err)
	}
	if got := r.ListLoaded(); !slices.Equal(got, []string{"other"}) {
		t.Fatalf("ListLoaded() = %q, want [other]", got)
	}
	close(release)

	out := <-done
	if out.err != nil {
		t.Fatalf("Generate() error = %v", out.err)
	}
	// "anna" is the only word the first snapshot can produce.
	if out.res.Word != "anna" {
		t.Errorf("in-flight Generate() = %q, want anna from the snapshot it started on", out.res.Word)
	}

	res, err := r.Generate(ctx, testRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Word != "bob" {
		t.Errorf("Generate() after reload = %q, want bob", res.Word)
	}
}

func TestRegistryConcurrentGenerate(t *testing.T) {
	r, _ := setupTestRegistry(t, WithWorkers(2))
	ctx := context.Background()
	if err := r.Load(ctx, []string{"ville"}, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if _, err := r.Generate(ctx, DefaultRequest()); err != nil {
					errs <- err
					return
				}
			}
		}()
		if i%2 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				names := []string{"ville"}
				if i%4 == 0 {
					names = []string{"ville", "french"}
				}
				if err := r.Load(ctx, names, nil); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRegistryCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	r, dir := setupTestRegistry(t, WithCache(NewModelCache(cacheDir)), WithMaxOrder(3))
	ctx := context.Background()

	if err := r.Load(ctx, []string{"ville"}, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "ville"+CacheExt)); err != nil {
		t.Fatalf("Load() did not write the compiled model: %v", err)
	}
	first, _ := r.Snapshot().Entry("ville")

	// A second load is served from the cache and gives the same tables.
	if err := r.Load(ctx, []string{"ville"}, nil); err != nil {
		t.Fatalf("cached Load() error = %v", err)
	}
	second, _ := r.Snapshot().Entry("ville")
	assertSameTables(t, first.Model, second.Model)

	// Changing the corpus invalidates the entry.
	writeCorpus(t, dir, "ville", "paris", "lyon", "nice", "metz")
	if err := r.Load(ctx, []string{"ville"}, nil); err != nil {
		t.Fatalf("Load() after a corpus change error = %v", err)
	}
	third, _ := r.Snapshot().Entry("ville")
	if !third.Model.Contains("metz") {
		t.Error("a stale cached model was served after the corpus changed")
	}
}

func TestRegistryPrune(t *testing.T) {
	r, _ := setupTestRegistry(t, WithPruneMinWeight(1), WithMaxOrder(3))
	if err := r.Load(context.Background(), []string{"ville"}, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	e, _ := r.Snapshot().Entry("ville")
	for n := 2; n <= e.Model.MaxOrder(); n++ {
		for _, key := range e.Model.Table(n).Keys() {
			for _, tr := range e.Model.Table(n).Transitions(key) {
				if tr.Weight <= 1 {
					t.Fatalf("order %d key %q kept a pruned transition", n, key)
				}
			}
		}
	}
}

func TestNewRegistryErrors(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Error("NewRegistry(nil) should fail")
	}
	if _, err := NewRegistry(NewDirSource(t.TempDir()), WithDefaultIntensity(120)); !errors.Is(err, ErrValidation) {
		t.Errorf("NewRegistry() with a bad default intensity error = %v, want ErrValidation", err)
	}
}
