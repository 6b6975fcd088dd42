package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server ties together the registry, its corpus source and the HTTP handlers.
type Server struct {
	cm          *ConfigManager
	db          *sql.DB // nil unless corpora live in SQLite
	source      ngram.Source
	registry    *ngram.Registry
	logger      *slog.Logger
	generateAPI *GenerateAPI
	serverAPI   *ServerAPI
	apiMux      *http.ServeMux
}

// NewServer builds the corpus source and the registry described by the
// configuration, and registers every route.
func NewServer(cm *ConfigManager, logger *slog.Logger, actionChan chan string) (*Server, error) {
	cfg := cm.Get()

	server := &Server{
		cm:     cm,
		logger: logger,
		apiMux: http.NewServeMux(),
	}

	switch cfg.Models.Source {
	case sourceSQLite:
		db, err := initDB(cfg.Models.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open corpus database: %w", err)
		}
		if err = ngram.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set up corpus schema: %w", err)
		}
		src, err := ngram.NewSQLSource(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare corpus source: %w", err)
		}
		src.SetLogger(logger)
		server.db = db
		server.source = src
	default:
		server.source = ngram.NewDirSource(cfg.Models.DataDir)
	}

	opts := []ngram.RegistryOption{
		ngram.WithMaxOrder(cfg.Models.MaxOrder),
		ngram.WithDefaultIntensity(cfg.Models.DefaultIntensity),
		ngram.WithWorkers(cfg.Models.Workers),
		ngram.WithPruneMinWeight(cfg.Models.PruneMinWeight),
	}
	if cfg.Models.CacheDir != "" {
		cache := ngram.NewModelCache(cfg.Models.CacheDir)
		cache.SetLogger(logger)
		opts = append(opts, ngram.WithCache(cache))
	}
	registry, err := ngram.NewRegistry(server.source, opts...)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to create model registry: %w", err)
	}
	registry.SetLogger(logger)
	server.registry = registry

	server.generateAPI = NewGenerateAPI(registry, cm, logger)
	server.serverAPI = NewServerAPI(cm, registry, actionChan, logger)

	server.generateAPI.RegisterRoutes(server.apiMux)
	server.serverAPI.RegisterRoutes(server.apiMux)
	if cfg.Server.EnableMetrics {
		server.apiMux.Handle("/metrics", promhttp.Handler())
	}

	return server, nil
}

// Close releases the corpus database, if any.
func (s *Server) Close() {
	if src, ok := s.source.(*ngram.SQLSource); ok {
		src.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", "error", err)
		}
	}
}
