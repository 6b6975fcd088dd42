package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/urfave/cli/v3"
)

func (a *app) importCmd() *cli.Command {
	var (
		dbPath string
		name   string
		remove bool
	)

	return &cli.Command{
		Name:      "import",
		Usage:     "Import a corpus file into a SQLite corpus database",
		ArgsUsage: "<corpus file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "db",
				Usage:       "path of the SQLite corpus database",
				Value:       "./data/wordsmith.db",
				Destination: &dbPath,
			},
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "corpus name (defaults to the file name without extension)",
				Destination: &name,
			},
			&cli.BoolFlag{
				Name:        "replace",
				Usage:       "drop the existing words of the corpus first",
				Destination: &remove,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("error: import needs exactly one corpus file", 1)
			}
			path := cmd.Args().First()
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			db, err := initDB(dbPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open database: %v", err), 1)
			}
			defer func() { _ = db.Close() }()
			if err = ngram.SetupSchema(db); err != nil {
				return cli.Exit(fmt.Sprintf("error: set up schema: %v", err), 1)
			}
			src, err := ngram.NewSQLSource(db)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer src.Close()
			src.SetLogger(a.logger)

			if remove {
				if err = src.RemoveSource(ctx, name); err != nil && !errors.Is(err, ngram.ErrModelNotFound) {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			f, err := os.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open corpus: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			added, err := src.ImportWords(ctx, name, f)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: import: %v", err), 1)
			}
			_, _ = fmt.Fprintf(a.stdout, "%s\tadded=%d\n", name, added)
			return nil
		},
	}
}
