package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/urfave/cli/v3"
)

func (a *app) inspectCmd() *cli.Command {
	var models modelOptions

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the statistics of models as JSON",
		ArgsUsage: "[corpus file...]",
		Flags:     models.flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var stats []ngram.ModelStats
			if cmd.Args().Present() {
				for _, path := range cmd.Args().Slice() {
					m, err := loadCorpusFile(path, models.maxOrder)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					stats = append(stats, m.Stats())
				}
			} else {
				registry, err := models.load(ctx, a)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: load models: %v", err), 1)
				}
				stats = registry.Stats()
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
