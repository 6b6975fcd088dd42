package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
)

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	s.apiMux.ServeHTTP(rr, req)
	return rr
}

func TestGenerateAPI_NoModelsLoaded(t *testing.T) {
	s, _ := setupTestServer(t, map[string][]string{"names": {"anna"}})

	rr := doRequest(t, s, http.MethodGet, "/v1/generate")
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d (body %q)", rr.Code, http.StatusConflict, rr.Body.String())
	}
}

func TestGenerateAPI_LoadAndGenerate(t *testing.T) {
	s, _ := setupTestServer(t, map[string][]string{
		"names":  {"anna"},
		"cities": {"paris", "lyon"},
	})

	rr := doRequest(t, s, http.MethodGet, "/v1/models")
	if rr.Code != http.StatusOK {
		t.Fatalf("models status = %d", rr.Code)
	}
	if got := rr.Body.String(); got != "cities\nnames" {
		t.Errorf("models body = %q, want %q", got, "cities\nnames")
	}

	rr = doRequest(t, s, http.MethodPut, "/v1/load_models?names=names")
	if rr.Code != http.StatusOK {
		t.Fatalf("load_models status = %d (body %q)", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, s, http.MethodGet, "/v1/loaded_models")
	if got := rr.Body.String(); got != "names" {
		t.Errorf("loaded_models body = %q, want %q", got, "names")
	}

	// A single training word with no randomness can only reproduce itself.
	rr = doRequest(t, s, http.MethodGet, "/v1/generate?randomness=0&nb_try=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("generate status = %d (body %q)", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "anna" {
		t.Errorf("generate body = %q, want %q", got, "anna")
	}
	if got := rr.Header().Get("X-Attempts"); got != "3" {
		t.Errorf("X-Attempts = %q, want %q", got, "3")
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	rr = doRequest(t, s, http.MethodGet, "/v1/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}
	var stats []ngram.ModelStats
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "names" || stats[0].Words != 1 {
		t.Errorf("stats = %+v, want one model 'names' with 1 word", stats)
	}
}

func TestGenerateAPI_LoadErrors(t *testing.T) {
	s, _ := setupTestServer(t, map[string][]string{"names": {"anna"}})

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"wrong method", http.MethodGet, "/v1/load_models?names=names", http.StatusMethodNotAllowed},
		{"missing names", http.MethodPut, "/v1/load_models", http.StatusBadRequest},
		{"unknown model", http.MethodPut, "/v1/load_models?names=ghost", http.StatusNotFound},
		{"bad intensity", http.MethodPut, "/v1/load_models?names=names&intensity=names:150", http.StatusBadRequest},
		{"intensity for unlisted model", http.MethodPut, "/v1/load_models?names=names&intensity=other:10", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, tt.method, tt.target)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	if loaded := s.registry.ListLoaded(); len(loaded) != 0 {
		t.Errorf("failed loads changed the served set: %v", loaded)
	}
}

func TestGenerateAPI_GenerateErrors(t *testing.T) {
	s, _ := setupTestServer(t, map[string][]string{"names": {"anna", "anton"}})
	if rr := doRequest(t, s, http.MethodPut, "/v1/load_models?names=names"); rr.Code != http.StatusOK {
		t.Fatalf("setup: load_models status = %d", rr.Code)
	}

	tests := []struct {
		name   string
		method string
		query  string
		want   int
	}{
		{"wrong method", http.MethodPost, "", http.StatusMethodNotAllowed},
		{"negative max_n", http.MethodGet, "max_n=-1", http.StatusBadRequest},
		{"non numeric nb_try", http.MethodGet, "nb_try=many", http.StatusBadRequest},
		{"zero nb_try", http.MethodGet, "nb_try=0", http.StatusBadRequest},
		{"randomness out of range", http.MethodGet, "randomness=1.5", http.StatusBadRequest},
		{"bad seed", http.MethodGet, "seed=sometimes", http.StatusBadRequest},
		{"empty custom seed", http.MethodGet, "seed=custom:", http.StatusBadRequest},
		{"unknown intensity model", http.MethodGet, "intensity=ghost:10", http.StatusBadRequest},
		{"random seed order missing", http.MethodGet, "seed=random:9", http.StatusConflict},
		{"all intensities zero", http.MethodGet, "intensity=names:0", http.StatusConflict},
		{"custom seed", http.MethodGet, "seed=custom:an&randomness=0", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, tt.method, "/v1/generate?"+tt.query)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestGenerateAPI_UnprocessableOutcomes(t *testing.T) {
	s, _ := setupTestServer(t, map[string][]string{
		"long": {"abcdefgh"},
		"bad":  {"ok", "b" + string(ngram.EndOfWord) + "d"},
	})
	if rr := doRequest(t, s, http.MethodPut, "/v1/load_models?names=long"); rr.Code != http.StatusOK {
		t.Fatalf("setup: load_models status = %d", rr.Code)
	}
	s.cm.config.Generate.MaxLength = 3

	rr := doRequest(t, s, http.MethodGet, "/v1/generate?randomness=0")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("too long word status = %d, want %d (body %q)", rr.Code, http.StatusUnprocessableEntity, rr.Body.String())
	}

	rr = doRequest(t, s, http.MethodPut, "/v1/load_models?names=bad")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("corpus with a reserved marker status = %d, want %d (body %q)", rr.Code, http.StatusUnprocessableEntity, rr.Body.String())
	}
	if loaded := s.registry.ListLoaded(); len(loaded) != 1 || loaded[0] != "long" {
		t.Errorf("failed load changed the served set: %v", loaded)
	}
}

func TestParseGenerateQuery(t *testing.T) {
	defaults := *DefaultGenerateConfig()

	t.Run("defaults", func(t *testing.T) {
		req, err := parseGenerateQuery(url.Values{}, defaults)
		if err != nil {
			t.Fatalf("parseGenerateQuery() error = %v", err)
		}
		if req.MaxN != defaults.MaxN || req.NbTry != defaults.NbTry || req.Randomness != defaults.Randomness {
			t.Errorf("request = %+v, want the configured defaults %+v", req, defaults)
		}
		if req.Seed.Kind != ngram.SeedNone {
			t.Errorf("seed = %v, want none", req.Seed)
		}
	})

	t.Run("every parameter", func(t *testing.T) {
		q, _ := url.ParseQuery("max_n=3&nb_try=7&randomness=0.25&reduce_random=true&seed=random:2&intensity=a:10,b:90")
		req, err := parseGenerateQuery(q, defaults)
		if err != nil {
			t.Fatalf("parseGenerateQuery() error = %v", err)
		}
		if req.MaxN != 3 || req.NbTry != 7 || req.Randomness != 0.25 || !req.ReduceRandom {
			t.Errorf("request = %+v", req)
		}
		if req.Seed != ngram.RandomSeed(2) {
			t.Errorf("seed = %v, want random:2", req.Seed)
		}
		if req.Intensities["a"] != 10 || req.Intensities["b"] != 90 {
			t.Errorf("intensities = %v", req.Intensities)
		}
	})

	t.Run("invalid values are validation errors", func(t *testing.T) {
		for _, raw := range []string{"max_n=x", "reduce_random=maybe", "randomness=-0.1", "seed=random:-1"} {
			q, _ := url.ParseQuery(raw)
			if _, err := parseGenerateQuery(q, defaults); !errors.Is(err, ngram.ErrValidation) {
				t.Errorf("parseGenerateQuery(%q) error = %v, want ErrValidation", raw, err)
			}
		}
	})
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
		kind string
	}{
		{fmt.Errorf("wrapped: %w", ngram.ErrValidation), http.StatusBadRequest, "validation"},
		{ngram.ErrModelNotFound, http.StatusNotFound, "error"},
		{ngram.ErrNoModelsLoaded, http.StatusConflict, "no_models_loaded"},
		{ngram.ErrModelOrderUnavailable, http.StatusConflict, "model_order_unavailable"},
		{fmt.Errorf("%w: more than 3 symbols", ngram.ErrTooLong), http.StatusUnprocessableEntity, "too_long"},
		{&ngram.ParseError{Source: "names", Line: 2, Err: errors.New("bad line")}, http.StatusUnprocessableEntity, "error"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
		if got := errorKind(tt.err); got != tt.kind {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
	}
}
