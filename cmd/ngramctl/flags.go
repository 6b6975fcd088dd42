package main

import (
	"context"
	"fmt"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/urfave/cli/v3"
)

// modelOptions are the flags shared by the commands that load models from a
// corpus directory.
type modelOptions struct {
	dir         string
	cacheDir    string
	maxOrder    int
	workers     int
	names       string
	intensities string
}

func (o *modelOptions) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "dir",
			Aliases:     []string{"d"},
			Usage:       "directory holding one <name>.dat corpus per model",
			Value:       "./data",
			Destination: &o.dir,
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "compiled model cache directory (empty disables the cache)",
			Destination: &o.cacheDir,
		},
		&cli.IntFlag{
			Name:        "max-order",
			Usage:       "highest order to train (0 = whole words)",
			Destination: &o.maxOrder,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "concurrent model builds (0 = GOMAXPROCS)",
			Destination: &o.workers,
		},
		&cli.StringFlag{
			Name:        "names",
			Aliases:     []string{"n"},
			Usage:       "comma-separated models to load (empty = every corpus in --dir)",
			Destination: &o.names,
		},
		&cli.StringFlag{
			Name:        "intensity",
			Usage:       "comma-separated name:value intensities in [0, 100]",
			Destination: &o.intensities,
		},
	}
}

// load builds a registry over the corpus directory and loads the selected
// models into it.
func (o *modelOptions) load(ctx context.Context, a *app) (*ngram.Registry, error) {
	opts := []ngram.RegistryOption{
		ngram.WithMaxOrder(o.maxOrder),
		ngram.WithWorkers(o.workers),
	}
	if o.cacheDir != "" {
		cache := ngram.NewModelCache(o.cacheDir)
		cache.SetLogger(a.logger)
		opts = append(opts, ngram.WithCache(cache))
	}
	registry, err := ngram.NewRegistry(ngram.NewDirSource(o.dir), opts...)
	if err != nil {
		return nil, err
	}
	registry.SetLogger(a.logger)

	names := ngram.ParseNames(o.names)
	if len(names) == 0 {
		if names, err = registry.ListAvailable(ctx); err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no corpus found in %q", o.dir)
		}
	}
	intensities, err := ngram.ParseIntensities(o.intensities)
	if err != nil {
		return nil, err
	}
	if err = registry.Load(ctx, names, intensities); err != nil {
		return nil, err
	}
	return registry, nil
}
