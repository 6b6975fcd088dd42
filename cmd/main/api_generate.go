package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CTAG07/Wordsmith/internal/metrics"
	"github.com/CTAG07/Wordsmith/pkg/ngram"
)

// GenerateAPI holds the dependencies for the word generation handlers.
type GenerateAPI struct {
	registry *ngram.Registry
	cm       *ConfigManager
	logger   *slog.Logger
}

// NewGenerateAPI creates a new instance of the GenerateAPI.
func NewGenerateAPI(registry *ngram.Registry, cm *ConfigManager, logger *slog.Logger) *GenerateAPI {
	return &GenerateAPI{
		registry: registry,
		cm:       cm,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all /v1 endpoints.
func (g *GenerateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/generate", g.handleGenerate)
	mux.HandleFunc("/v1/models", g.handleModels)
	mux.HandleFunc("/v1/loaded_models", g.handleLoadedModels)
	mux.HandleFunc("/v1/load_models", g.handleLoadModels)
	mux.HandleFunc("/v1/stats", g.handleStats)
}

// handleGenerate generates one word from the loaded models.
func (g *GenerateAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	defaults := g.cm.Generate()
	req, err := parseGenerateQuery(r.URL.Query(), defaults)
	if err != nil {
		metrics.RecordGenerate(errorKind(err), 0, 0, 0)
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	res, err := g.registry.Generate(r.Context(), req, ngram.WithMaxLength(defaults.MaxLength))
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordGenerate(errorKind(err), res.Attempts, 0, elapsed)
		code := errorStatus(err)
		switch {
		case code >= http.StatusInternalServerError:
			g.logger.Error("Generation failed", "error", err, "seed", req.Seed.String())
		case code == http.StatusUnprocessableEntity:
			g.logger.Warn("Generation rejected", "error", err, "seed", req.Seed.String())
		}
		respondWithError(w, code, err.Error())
		return
	}
	metrics.RecordGenerate("ok", res.Attempts, len([]rune(res.Word)), elapsed)
	g.logger.Debug("Word generated",
		"word", res.Word,
		"attempts", res.Attempts,
		"duration", elapsed,
	)

	w.Header().Set("X-Attempts", strconv.Itoa(res.Attempts))
	respondWithText(w, http.StatusOK, res.Word)
}

// handleModels lists the corpora that can be loaded.
func (g *GenerateAPI) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	names, err := g.registry.ListAvailable(r.Context())
	if err != nil {
		g.logger.Error("Failed to list models", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}
	respondWithText(w, http.StatusOK, strings.Join(names, "\n"))
}

// handleLoadedModels lists the models currently served.
func (g *GenerateAPI) handleLoadedModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithText(w, http.StatusOK, strings.Join(g.registry.ListLoaded(), "\n"))
}

// handleLoadModels replaces the served models with the ones named in the query.
func (g *GenerateAPI) handleLoadModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", "PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	names := ngram.ParseNames(q.Get("names"))
	if len(names) == 0 {
		respondWithError(w, http.StatusBadRequest, "Missing or empty model name")
		return
	}
	intensities, err := ngram.ParseIntensities(q.Get("intensity"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	err = g.registry.Load(r.Context(), names, intensities)
	metrics.RecordReload(err == nil, len(g.registry.ListLoaded()), time.Since(start))
	if err != nil {
		g.logger.Warn("Failed to load models", "names", names, "error", err)
		respondWithError(w, errorStatus(err), err.Error())
		return
	}

	g.logger.Info("Models loaded via API", "names", names)
	respondWithText(w, http.StatusOK, "Models loaded successfully")
}

// handleStats returns the statistics of every served model.
func (g *GenerateAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, g.registry.Stats())
}

// parseGenerateQuery reads the generation parameters from the query, falling
// back to defaults for the missing ones.
func parseGenerateQuery(q url.Values, defaults GenerateConfig) (ngram.Request, error) {
	req := ngram.Request{
		MaxN:         defaults.MaxN,
		NbTry:        defaults.NbTry,
		Randomness:   defaults.Randomness,
		ReduceRandom: defaults.ReduceRandom,
	}

	var err error
	if v := q.Get("max_n"); v != "" {
		if req.MaxN, err = strconv.Atoi(v); err != nil {
			return req, invalidParam("max_n", v)
		}
	}
	if v := q.Get("nb_try"); v != "" {
		if req.NbTry, err = strconv.Atoi(v); err != nil {
			return req, invalidParam("nb_try", v)
		}
	}
	if v := q.Get("randomness"); v != "" {
		if req.Randomness, err = strconv.ParseFloat(v, 64); err != nil {
			return req, invalidParam("randomness", v)
		}
	}
	if v := q.Get("reduce_random"); v != "" {
		if req.ReduceRandom, err = strconv.ParseBool(v); err != nil {
			return req, invalidParam("reduce_random", v)
		}
	}
	if req.Seed, err = ngram.ParseSeed(q.Get("seed")); err != nil {
		return req, err
	}
	if v := q.Get("intensity"); v != "" {
		if req.Intensities, err = ngram.ParseIntensities(v); err != nil {
			return req, err
		}
	}
	return req, req.Validate()
}

func invalidParam(name, value string) error {
	return fmt.Errorf("%w: %s has an invalid value %q", ngram.ErrValidation, name, value)
}

// errorStatus maps a library error to the HTTP status reported to clients.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ngram.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ngram.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ngram.ErrNoModelsLoaded), errors.Is(err, ngram.ErrModelOrderUnavailable):
		return http.StatusConflict
	case errors.Is(err, ngram.ErrTooLong), errors.Is(err, ngram.ErrParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorKind names an error for the metrics labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ngram.ErrValidation):
		return "validation"
	case errors.Is(err, ngram.ErrNoModelsLoaded):
		return "no_models_loaded"
	case errors.Is(err, ngram.ErrModelOrderUnavailable):
		return "model_order_unavailable"
	case errors.Is(err, ngram.ErrTooLong):
		return "too_long"
	default:
		return "error"
	}
}
