package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze companies from a file, one name per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		companies, err := readCompanyList(batchFile)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return processBatch(ctx, env, companies, batchLimit, cfg.Batch.MaxConcurrentCompanies)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to a file of company names (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of companies to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

func readCompanyList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close()

	var companies []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		companies = append(companies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	return companies, nil
}

// processBatch applies limit, then analyzes companies concurrently. Individual
// failures are recorded and logged without aborting the batch.
func processBatch(ctx context.Context, env *analysisEnv, companies []string, limit, concurrency int) error {
	if len(companies) == 0 {
		zap.L().Info("no companies to process")
		return nil
	}

	if limit > 0 && len(companies) > limit {
		companies = companies[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", concurrency),
	)

	opts := analyzeOptions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, company := range companies {
		g.Go(func() error {
			log := zap.L().With(zap.String("company", company))

			record, err := env.Store.CreateAnalysis(gctx, company, string(opts.Strategy), string(opts.Level))
			if err != nil {
				failed.Add(1)
				log.Error("create analysis record failed", zap.Error(err))
				return nil
			}

			out, err := env.Pipeline.Process(gctx, company, opts)
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				if fErr := env.Store.FailAnalysis(gctx, record.ID, err.Error()); fErr != nil {
					log.Warn("failed to mark analysis failed", zap.Error(fErr))
				}
				return nil // don't abort batch on individual failure
			}

			result, tokens, costUSD := resultSummary(out)
			if err := env.Store.CompleteAnalysis(gctx, record.ID, result, tokens, costUSD); err != nil {
				log.Warn("failed to persist analysis result", zap.Error(err))
			}

			succeeded.Add(1)
			log.Info("analysis complete",
				zap.Int("total_tokens", tokens),
				zap.Float64("cost_usd", costUSD),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
