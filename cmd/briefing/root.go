package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rah-ai/financial-daily-summary/internal/briefing"
	"github.com/rah-ai/financial-daily-summary/internal/config"
	"github.com/rah-ai/financial-daily-summary/internal/logging"
	"github.com/rah-ai/financial-daily-summary/internal/pipeline"
	"github.com/rah-ai/financial-daily-summary/pkg/delivery"
)

var rootFlags struct {
	configPath        string
	dryRun            bool
	continueOnFailure bool
	locales           []string
	topic             string
	reportPath        string
}

var rootCmd = &cobra.Command{
	Use:          "briefing",
	Short:        "Run the daily financial news briefing once",
	Long:         "briefing fetches the latest market news, summarizes it, renders charts,\ntranslates the summary and delivers it to Telegram.",
	SilenceUsage: true,
	RunE:         runBriefing,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Path to a YAML config file")
	f.BoolVar(&rootFlags.dryRun, "dry-run", false, "Print the briefing instead of sending it; nothing is archived")

	lf := rootCmd.Flags()
	lf.BoolVar(&rootFlags.continueOnFailure, "continue-on-failure", false, "Keep running later stages after a stage fails")
	lf.StringSliceVar(&rootFlags.locales, "locales", nil, "Target locales, e.g. hi,ar,he (overrides TARGET_LOCALES)")
	lf.StringVar(&rootFlags.topic, "topic", "", "News search topic (overrides NEWS_TOPIC)")
	lf.StringVar(&rootFlags.reportPath, "report", "", "Write the run report as JSON to this path")

	rootCmd.AddCommand(checkCmd)
}

// loadConfig applies command line overrides on top of the loaded config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("continue-on-failure") {
		cfg.Pipeline.ContinueOnFailure = rootFlags.continueOnFailure
	}
	if cmd.Flags().Changed("locales") {
		cfg.Pipeline.TargetLocales = rootFlags.locales
	}
	if cmd.Flags().Changed("topic") {
		cfg.News.Topic = rootFlags.topic
	}

	return cfg, cfg.Validate(rootFlags.dryRun)
}

func runBriefing(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
	logger := logging.New("briefing")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapters, closeAll, err := buildAdapters(ctx, cfg, rootFlags.dryRun, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer closeAll()

	runID := uuid.NewString()
	specs, err := briefing.Stages(adapters, briefing.Options{
		RunID:        runID,
		Topic:        cfg.News.Topic,
		Limit:        cfg.News.Limit,
		Locales:      cfg.Pipeline.TargetLocales,
		SeenTTL:      cfg.SeenTTL(),
		StageRetries: cfg.StagePolicies(),
	})
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(specs,
		pipeline.WithRunID(runID),
		pipeline.WithRetryPolicy(cfg.RetryPolicy()),
		pipeline.WithContinueOnFailure(cfg.Pipeline.ContinueOnFailure),
		pipeline.WithLogger(logging.New("pipeline")),
	)
	if err != nil {
		return err
	}

	logger.Info("starting run", "run_id", runID, "stages", len(specs), "dry_run", rootFlags.dryRun)
	report := runner.RunAll(ctx)

	fmt.Fprintln(cmd.ErrOrStderr(), report.String())

	if rootFlags.reportPath != "" {
		if err := writeReport(rootFlags.reportPath, report); err != nil {
			logger.Error("error writing report", "path", rootFlags.reportPath, "error", err)
		}
	}

	if report.Status == pipeline.RunAborted && ctx.Err() == nil {
		notifyFailure(adapters.Messenger, report, logger)
	}

	if report.Status != pipeline.RunCompleted {
		return fmt.Errorf("run %s finished %s", report.RunID, report.Status)
	}
	return nil
}

func writeReport(path string, report *pipeline.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// notifyFailure tells the recipient that today's briefing did not go out.
func notifyFailure(m delivery.Messenger, report *pipeline.RunReport, logger *slog.Logger) {
	n, ok := m.(delivery.Notifier)
	if !ok {
		return
	}
	// The briefing already reached the recipient; only bookkeeping failed.
	if res, ok := report.Result(briefing.StageDeliver); ok && res.Status == pipeline.StatusSucceeded {
		logger.Warn("run aborted after delivery, skipping failure notice", "run_id", report.RunID)
		return
	}

	text := fmt.Sprintf("Daily briefing run %s was aborted.", report.RunID)
	if failed, ok := report.FirstFailure(); ok {
		text = fmt.Sprintf("Daily briefing run %s was aborted: stage %s failed after %d attempt(s): %s",
			report.RunID, failed.Stage, failed.Attempts, failed.Error)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := n.Notify(ctx, text); err != nil {
		logger.Error("error sending failure notice", "error", err)
	}
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and list anything missing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Provider: %s\n", cfg.LLM.Provider)
		fmt.Fprintf(out, "Locales:  %v\n", cfg.Pipeline.TargetLocales)
		fmt.Fprintf(out, "Retry:    %d retries, %gs..%gs backoff, %gs timeout\n",
			cfg.Pipeline.MaxRetries, cfg.Pipeline.BackoffBaseSeconds, cfg.Pipeline.BackoffCapSeconds, cfg.Pipeline.StageTimeoutSeconds)
		fmt.Fprintln(out, "Configuration OK")
		return nil
	},
}
