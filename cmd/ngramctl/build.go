package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

func (a *app) buildCmd() *cli.Command {
	var models modelOptions

	return &cli.Command{
		Name:  "build",
		Usage: "Compile corpora into the model cache",
		Flags: models.flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if models.cacheDir == "" {
				return cli.Exit("error: build needs --cache-dir", 1)
			}
			start := time.Now()
			registry, err := models.load(ctx, a)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: build models: %v", err), 1)
			}
			for _, st := range registry.Stats() {
				_, _ = fmt.Fprintf(a.stdout, "%s\twords=%d\tmax_order=%d\n", st.Name, st.Words, st.MaxOrder)
			}
			a.logger.Info("Models compiled", "count", len(registry.ListLoaded()), "cache", models.cacheDir, "duration", time.Since(start))
			return nil
		},
	}
}
