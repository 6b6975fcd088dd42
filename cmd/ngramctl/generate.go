package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/CTAG07/Wordsmith/pkg/ngram"
	"github.com/urfave/cli/v3"
)

func (a *app) generateCmd() *cli.Command {
	var (
		models       modelOptions
		count        int
		maxN         int
		nbTry        int
		randomness   float64
		reduceRandom bool
		seed         string
		maxLength    int
		rngSeed      int
		showAttempts bool
	)
	defaults := ngram.DefaultRequest()

	flags := append(models.flags(),
		&cli.IntFlag{Name: "count", Aliases: []string{"c"}, Usage: "number of words to generate", Value: 10, Destination: &count},
		&cli.IntFlag{Name: "max-n", Usage: "highest order used per symbol (0 = whole prefix)", Value: defaults.MaxN, Destination: &maxN},
		&cli.IntFlag{Name: "nb-try", Usage: "attempts allowed to avoid a trained word", Value: defaults.NbTry, Destination: &nbTry},
		&cli.FloatFlag{Name: "randomness", Usage: "probability of switching order per symbol", Value: defaults.Randomness, Destination: &randomness},
		&cli.BoolFlag{Name: "reduce-random", Usage: "apply randomness again at each reduction", Destination: &reduceRandom},
		&cli.StringFlag{Name: "seed", Usage: "none, custom:<text> or random:<order>", Value: "none", Destination: &seed},
		&cli.IntFlag{Name: "max-length", Usage: "hard limit on the length of a word", Value: ngram.DefaultMaxLength, Destination: &maxLength},
		&cli.IntFlag{Name: "rng-seed", Usage: "seed the random source for reproducible output (0 = random)", Destination: &rngSeed},
		&cli.BoolFlag{Name: "attempts", Usage: "print the attempts used next to each word", Destination: &showAttempts},
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate words from the corpora of a directory",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := ngram.ParseSeed(seed)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			req := ngram.Request{
				MaxN:         maxN,
				NbTry:        nbTry,
				Randomness:   randomness,
				ReduceRandom: reduceRandom,
				Seed:         s,
			}
			if err = req.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			registry, err := models.load(ctx, a)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load models: %v", err), 1)
			}

			opts := []ngram.GenerateOption{ngram.WithMaxLength(maxLength)}
			if rngSeed != 0 {
				opts = append(opts, ngram.WithRand(rand.New(rand.NewPCG(uint64(rngSeed), 0))))
			}
			for range count {
				res, err := registry.Generate(ctx, req, opts...)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: generate: %v", err), 1)
				}
				if showAttempts {
					_, _ = fmt.Fprintf(a.stdout, "%s\t%d\n", res.Word, res.Attempts)
				} else {
					_, _ = fmt.Fprintln(a.stdout, res.Word)
				}
			}
			return nil
		},
	}
}
