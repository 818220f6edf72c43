package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storywatch/internal/dispatch"
	"storywatch/pkg/archive"
	"storywatch/pkg/auth"
	"storywatch/pkg/bot"
	"storywatch/pkg/capture"
	"storywatch/pkg/config"
	"storywatch/pkg/instagram"
	"storywatch/pkg/logger"
	"storywatch/pkg/monitor"
	"storywatch/pkg/notify"
	"storywatch/pkg/ratelimit"
	"storywatch/pkg/retry"
	"storywatch/pkg/store"
)

var monitorWorkers int

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the story monitor and Telegram bot",
	Long: `Run the monitoring daemon. It polls Telegram for subscription
commands while periodically checking every tracked Instagram account
for new stories, alerting the subscribed chats when one appears.

The daemon shuts down cleanly on SIGINT or SIGTERM.`,
	Example: `  # Run with the default configuration lookup
  storywatch monitor

  # Run against an explicit config file
  storywatch monitor --config /etc/storywatch/config.yaml`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorWorkers, "workers", 1, "number of alert delivery workers; more than one trades per-chat ordering for throughput")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("storywatch starting")

	capturer, err := buildCapturer(cfg, log)
	if err != nil {
		return err
	}

	subs, err := store.NewSubscriptions(cfg.UsersPath(), log)
	if err != nil {
		return fmt.Errorf("failed to open subscription store: %w", err)
	}
	states, err := store.NewAlertStates(cfg.AlertStatesPath(), store.RetentionPolicy{
		MaxEntries: cfg.Monitor.HistoryMaxEntries,
		MaxAgeDays: cfg.Monitor.HistoryMaxAgeDays,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to open alert state store: %w", err)
	}

	var arch *archive.Archive
	if cfg.Storage.ArchiveEnabled {
		arch, err = archive.New(cfg.ArchivePath(), log)
		if err != nil {
			return fmt.Errorf("failed to open story archive: %w", err)
		}
	}

	tgBot, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.APIBase, nil, log)
	if err != nil {
		return err
	}
	notifier := notify.NewTelegramNotifierFromBot(tgBot.Client(), log)
	tgBot.SetHandlers(bot.NewHandlers(subs, capturer, notifier, log))

	pool := dispatch.NewPool(monitorWorkers, notifier, log)
	mon := monitor.New(capturer, subs, states, arch, &poolDispatcher{pool: pool}, monitor.Options{
		CheckInterval: cfg.Monitor.CheckInterval,
		AccountDelay:  cfg.Monitor.AccountDelay,
		RecoveryDelay: cfg.Monitor.RecoveryDelay,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			if !result.Success {
				log.ErrorWithFields("alert delivery failed", map[string]interface{}{
					"chat_id": result.Job.ChatID,
					"account": result.Job.Account,
					"error":   result.Error.Error(),
				})
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tgBot.Start(ctx)
	}()

	err = mon.Run(ctx)

	// Telegram polling stops with the context; drain outstanding
	// deliveries before exiting.
	pool.Stop()
	wg.Wait()

	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("storywatch stopped")
	return nil
}

// poolDispatcher adapts the delivery pool to the monitor's dispatcher.
type poolDispatcher struct {
	pool *dispatch.Pool
}

func (d *poolDispatcher) Submit(job monitor.Job) error {
	return d.pool.Submit(dispatch.Job{
		ChatID:    job.ChatID,
		Account:   job.Account,
		Caption:   job.Caption,
		Kind:      job.Kind,
		Media:     job.Media,
		RecordKey: job.RecordKey,
	})
}

// buildCapturer assembles the Instagram client with resolved
// credentials, rate limiting, and the retry policy.
func buildCapturer(cfg *config.Config, log logger.Logger) (*capture.StoryCapturer, error) {
	creds, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	client := instagram.NewClient(creds, 30*time.Second, log)
	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
	retryCfg := retry.FromSettings(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialDelay,
		cfg.Retry.MaxDelay,
		cfg.Retry.Multiplier,
		log,
	)
	return capture.NewStoryCapturer(client, limiter, retryCfg, log), nil
}

// resolveCredentials prefers explicit config values, then falls back
// to the secure credential stores.
func resolveCredentials(cfg *config.Config) (*auth.Credentials, error) {
	if cfg.Instagram.SessionID != "" && cfg.Instagram.CSRFToken != "" {
		return &auth.Credentials{
			SessionID: cfg.Instagram.SessionID,
			CSRFToken: cfg.Instagram.CSRFToken,
			UserAgent: cfg.Instagram.UserAgent,
		}, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	creds, err := manager.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "No Instagram credentials found. Run 'storywatch auth login' first.")
		return nil, err
	}
	if cfg.Instagram.UserAgent != "" && creds.UserAgent == "" {
		creds.UserAgent = cfg.Instagram.UserAgent
	}
	return creds, nil
}
