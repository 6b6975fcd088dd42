package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/urfave/cli/v3"
)

func (a *app) mergeCmd() *cli.Command {
	var (
		out      string
		maxOrder int
	)

	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge corpus files into a single corpus",
		ArgsUsage: "<corpus> <corpus> [corpus...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "path of the merged corpus",
				Destination: &out,
				Required:    true,
			},
			&cli.IntFlag{
				Name:        "max-order",
				Usage:       "highest order to train (0 = whole words)",
				Destination: &maxOrder,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) < 2 {
				return cli.Exit("error: merge needs at least two corpus files", 1)
			}

			var merged *ngram.Model
			for _, path := range paths {
				m, err := loadCorpusFile(path, maxOrder)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				if merged == nil {
					merged = m
					continue
				}
				merged = ngram.Merge(merged, m)
			}

			if err := merged.WriteFile(out); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			a.logger.Info("Corpora merged", "model", merged.Name(), "words", len(merged.Words()), "out", out)
			_, _ = fmt.Fprintf(a.stdout, "%s\twords=%d\n", out, len(merged.Words()))
			return nil
		},
	}
}

// loadCorpusFile builds a model from a corpus file, named after the file.
func loadCorpusFile(path string, maxOrder int) (*ngram.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ngram.Load(name, f, maxOrder)
}
