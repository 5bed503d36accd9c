package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/pipeline"
)

var (
	analyzeStrategy       string
	analyzeLevel          string
	analyzeSkipValidation bool
	analyzeDebug          bool
	analyzeNoStore        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <company>",
	Short: "Run a competitive analysis for a single company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		company := args[0]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := analyzeOptions()

		var recordID string
		if !analyzeNoStore {
			record, err := env.Store.CreateAnalysis(ctx, company, string(opts.Strategy), string(opts.Level))
			if err != nil {
				return eris.Wrap(err, "create analysis record")
			}
			recordID = record.ID
		}

		out, err := env.Pipeline.Process(ctx, company, opts)
		if err != nil {
			if recordID != "" {
				if fErr := env.Store.FailAnalysis(ctx, recordID, err.Error()); fErr != nil {
					zap.L().Warn("failed to mark analysis failed", zap.Error(fErr))
				}
			}
			return eris.Wrap(err, "process analysis")
		}

		result, tokens, costUSD := resultSummary(out)
		if recordID != "" {
			if err := env.Store.CompleteAnalysis(ctx, recordID, result, tokens, costUSD); err != nil {
				zap.L().Warn("failed to persist analysis result", zap.Error(err))
			}
		}

		zap.L().Info("analysis complete",
			zap.String("company", company),
			zap.String("strategy", string(opts.Strategy)),
			zap.String("level", string(opts.Level)),
			zap.Int("total_tokens", tokens),
			zap.Float64("cost_usd", costUSD),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func analyzeOptions() pipeline.Options {
	strategy := analyzeStrategy
	if strategy == "" {
		strategy = cfg.Pipeline.DefaultStrategy
	}
	level := analyzeLevel
	if level == "" {
		level = cfg.Pipeline.DefaultLevel
	}
	return pipeline.Options{
		Strategy:       pipeline.ParseStrategy(strategy),
		Level:          pipeline.ParseLevel(level),
		SkipValidation: analyzeSkipValidation,
		Debug:          analyzeDebug || cfg.Pipeline.Debug,
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "", "generation strategy: single or multi (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeLevel, "level", "", "processing level: rawOpenAI, validatedOpenAI, repairedOpenAI, or transformedOpenAI (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSkipValidation, "skip-validation", false, "bypass validation and repair at the transformed level")
	analyzeCmd.Flags().BoolVar(&analyzeDebug, "debug", false, "log raw provider payloads and repair decisions")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "skip persisting the analysis run")
	rootCmd.AddCommand(analyzeCmd)
}
