package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jordan/capsule-engine/internal/capsule"
	"github.com/jordan/capsule-engine/internal/config"
	"github.com/jordan/capsule-engine/internal/db"
	"github.com/jordan/capsule-engine/internal/generate"
	"github.com/jordan/capsule-engine/internal/llm"
	"github.com/jordan/capsule-engine/internal/observability"
	"github.com/jordan/capsule-engine/internal/repair"
	"github.com/jordan/capsule-engine/internal/scheduler"
	"github.com/jordan/capsule-engine/internal/types"
)

var (
	genConfigPath string
	genTopic      string
	genGuidance   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one capsule synchronously",
	Long:  "Creates a capsule for a topic and runs the full generation pipeline in-process, without the background worker. Useful for local testing and one-off runs.",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "Path to config.json file")
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "Topic to build a capsule for (required)")
	generateCmd.Flags().StringVar(&genGuidance, "guidance", "", "Optional learner context passed to the outline prompt")
	generateCmd.MarkFlagRequired("topic") //nolint:errcheck
	rootCmd.AddCommand(generateCmd)
}

// inlineScheduler executes tasks immediately in-process, honoring retry
// delays with a plain sleep.
type inlineScheduler struct {
	registry *scheduler.Registry
}

func (s *inlineScheduler) Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) error {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	handler, ok := s.registry.Lookup(taskType)
	if !ok {
		return fmt.Errorf("no handler registered for task type %q", taskType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return handler(ctx, raw)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(genConfigPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	logger := observability.NewLogger(cfg.AppEnv)
	ctx := cmd.Context()

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

	registry := scheduler.NewRegistry()
	sched := &inlineScheduler{registry: registry}
	orch := capsule.New(store, gen, sched, cfg.MaxModuleRetries, logger)
	orch.RegisterHandlers(registry)

	cp, err := store.CreateCapsule(ctx, genTopic, genGuidance)
	if err != nil {
		return err
	}
	fmt.Printf("Capsule %s created\n", cp.ID)

	// With the inline scheduler this call returns only after the whole
	// pipeline has run.
	if _, err := orch.StartGeneration(ctx, cp.ID); err != nil {
		return err
	}

	final, err := store.GetCapsule(ctx, cp.ID)
	if err != nil {
		return err
	}
	switch final.Status {
	case types.CapsuleCompleted:
		fmt.Printf("Completed: %s (%d modules, %d lessons)\n", final.Title, final.ModuleCount, final.LessonCount)
	case types.CapsuleFailed:
		reason := ""
		if final.ErrorMessage != nil {
			reason = *final.ErrorMessage
		}
		return fmt.Errorf("generation failed: %s", reason)
	default:
		fmt.Printf("Status: %s\n", final.Status)
	}
	return nil
}
