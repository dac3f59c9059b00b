package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jordan/capsule-engine/internal/artifact"
	"github.com/jordan/capsule-engine/internal/capsule"
	"github.com/jordan/capsule-engine/internal/chat"
	"github.com/jordan/capsule-engine/internal/config"
	"github.com/jordan/capsule-engine/internal/db"
	"github.com/jordan/capsule-engine/internal/generate"
	"github.com/jordan/capsule-engine/internal/llm"
	"github.com/jordan/capsule-engine/internal/observability"
	"github.com/jordan/capsule-engine/internal/repair"
	"github.com/jordan/capsule-engine/internal/scheduler"
	"github.com/jordan/capsule-engine/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server and background worker",
	Long:  "Starts the HTTP API together with the task worker and the stale-run reaper in one process. Generation state lives in Postgres, so multiple instances can share the work.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	logger := observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return err
	}
	defer client.Close()

	repairer := repair.NewEngine(client, cfg.MaxRepairAttempts, logger)
	gen := generate.New(client, repairer, logger)

	queue := scheduler.NewQueue(store.Pool())
	registry := scheduler.NewRegistry()

	orch := capsule.New(store, gen, queue, cfg.MaxModuleRetries, logger)
	orch.RegisterHandlers(registry)

	artifacts := artifact.NewService(store, gen, queue, logger)
	artifacts.RegisterHandlers(registry)

	tutor := chat.NewTutor(client, store, logger)

	worker := scheduler.NewWorker(queue, registry, logger,
		time.Duration(cfg.PollIntervalMs)*time.Millisecond, cfg.WorkerCount)
	reaper := capsule.NewReaper(store,
		time.Duration(cfg.StaleJobMinutes)*time.Minute, time.Minute, logger)

	srv := server.New(cfg.Port, server.Deps{
		DB:           store,
		Orchestrator: orch,
		Artifacts:    artifacts,
		Tutor:        tutor,
		Logger:       logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return reaper.Run(ctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
