package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/model"
	"github.com/sells-group/compintel/internal/pipeline"
	"github.com/sells-group/compintel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		router := newRouter(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *analysisEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/analyses", handleCreateAnalysis(env))
	r.Get("/api/analyses", handleListAnalyses(env))
	r.Get("/api/analyses/{id}", handleGetAnalysis(env))

	return r
}

type analyzeRequest struct {
	Company        string `json:"company"`
	Strategy       string `json:"strategy,omitempty"`
	Level          string `json:"level,omitempty"`
	SkipValidation bool   `json:"skip_validation,omitempty"`
	Debug          bool   `json:"debug,omitempty"`
}

func handleCreateAnalysis(env *analysisEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Company == "" {
			writeError(w, http.StatusBadRequest, "company is required")
			return
		}

		strategy := req.Strategy
		if strategy == "" {
			strategy = cfg.Pipeline.DefaultStrategy
		}
		level := req.Level
		if level == "" {
			level = cfg.Pipeline.DefaultLevel
		}
		opts := pipeline.Options{
			Strategy:       pipeline.ParseStrategy(strategy),
			Level:          pipeline.ParseLevel(level),
			SkipValidation: req.SkipValidation,
			Debug:          req.Debug || cfg.Pipeline.Debug,
		}

		ctx := r.Context()
		record, err := env.Store.CreateAnalysis(ctx, req.Company, string(opts.Strategy), string(opts.Level))
		if err != nil {
			zap.L().Error("create analysis record failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create analysis")
			return
		}

		out, err := env.Pipeline.Process(ctx, req.Company, opts)
		if err != nil {
			zap.L().Error("analysis failed",
				zap.String("company", req.Company),
				zap.Error(err),
			)
			if fErr := env.Store.FailAnalysis(ctx, record.ID, err.Error()); fErr != nil {
				zap.L().Warn("failed to mark analysis failed", zap.Error(fErr))
			}
			writeError(w, http.StatusBadGateway, "analysis failed")
			return
		}

		result, tokens, costUSD := resultSummary(out)
		if err := env.Store.CompleteAnalysis(ctx, record.ID, result, tokens, costUSD); err != nil {
			zap.L().Warn("failed to persist analysis result", zap.Error(err))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":     record.ID,
			"result": out,
		})
	}
}

func handleListAnalyses(env *analysisEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.AnalysisFilter{
			Company: q.Get("company"),
			Status:  model.AnalysisStatus(q.Get("status")),
		}
		if limit := q.Get("limit"); limit != "" {
			fmt.Sscanf(limit, "%d", &filter.Limit)
		}
		if offset := q.Get("offset"); offset != "" {
			fmt.Sscanf(offset, "%d", &filter.Offset)
		}

		records, err := env.Store.ListAnalyses(r.Context(), filter)
		if err != nil {
			zap.L().Error("list analyses failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list analyses")
			return
		}
		if records == nil {
			records = []model.AnalysisRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetAnalysis(env *analysisEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		record, err := env.Store.GetAnalysis(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
