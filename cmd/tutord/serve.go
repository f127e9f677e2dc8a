package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aitutor/internal/config"
	"aitutor/internal/llm"
	"aitutor/internal/logging"
	"aitutor/internal/orchestrator"
	"aitutor/internal/retrieval"
	"aitutor/internal/server"
	"aitutor/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tutoring HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, level, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	gemini, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, logger)
	if err != nil {
		return err
	}

	searcher := retrieval.NewHTTPSearcher(cfg.Retrieval.BaseURL, cfg.Retrieval.Timeout, logger)

	engine := orchestrator.New(orchestrator.Deps{
		LLM:         gemini,
		Search:      searcher,
		Library:     db,
		Mastery:     db,
		Profile:     db,
		Checkpoints: db,
		Log:         logger,
		Syllabus:    cfg.Retrieval.Syllabus,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(engine, db, db, logger).Routes(),
	}

	watcher := config.NewWatcher(configPath, logger, func(next config.Config) {
		if lvl, perr := zap.ParseAtomicLevel(next.Logging.Level); perr == nil {
			level.SetLevel(lvl.Level())
		}
		gemini.SetModel(next.LLM.Model)
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return watcher.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
