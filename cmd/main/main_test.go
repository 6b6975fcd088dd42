package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
)

// setupTestServer writes the given corpora to a temporary data directory and
// builds a Server reading them, with metrics disabled.
func setupTestServer(t *testing.T, corpora map[string][]string) (*Server, chan string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.Mkdir(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	for name, words := range corpora {
		data := strings.Join(words, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dataDir, name+ngram.DirSourceExt), []byte(data), 0o644); err != nil {
			t.Fatalf("failed to write corpus %q: %v", name, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Server.EnableMetrics = false
	cfg.Models.DataDir = dataDir
	cfg.Models.CacheDir = filepath.Join(dir, "cache")
	cm := &ConfigManager{config: cfg, configPath: filepath.Join(dir, "config.json")}

	actionChan := make(chan string, 1)
	server, err := NewServer(cm, slog.New(slog.NewTextHandler(io.Discard, nil)), actionChan)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(server.Close)
	return server, actionChan
}
