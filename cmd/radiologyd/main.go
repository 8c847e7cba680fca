package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ishan121028/RadiologyAI/internal/api"
	"github.com/ishan121028/RadiologyAI/internal/classify"
	"github.com/ishan121028/RadiologyAI/internal/escalate"
	"github.com/ishan121028/RadiologyAI/internal/extract"
	"github.com/ishan121028/RadiologyAI/internal/filestore"
	"github.com/ishan121028/RadiologyAI/internal/monitor"
	"github.com/ishan121028/RadiologyAI/internal/notifier"
	"github.com/ishan121028/RadiologyAI/internal/pipeline"
	"github.com/ishan121028/RadiologyAI/internal/search"
	"github.com/ishan121028/RadiologyAI/internal/stats"
	"github.com/ishan121028/RadiologyAI/internal/storage"
	"github.com/ishan121028/RadiologyAI/pkg/config"
)

var (
	configFile string
	dataDir    string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "radiologyd",
	Short: "RadiologyAI daemon - radiology report processing pipeline",
	Long: `RadiologyAI daemon watches an incoming directory for radiology report
PDFs, extracts their content, classifies critical findings, raises and
escalates alerts, and archives the reports.`,
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("radiologyd %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if verbose {
		cfg.Verbose = true
	}

	// Directory layout
	fsm, err := filestore.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initialize file store: %w", err)
	}

	// Condition dictionary
	dict := classify.DefaultDictionary()
	if cfg.Classifier.ConditionsFile != "" {
		dict, err = classify.LoadDictionary(cfg.Classifier.ConditionsFile)
		if err != nil {
			return fmt.Errorf("load condition dictionary: %w", err)
		}
		log.Printf("loaded condition dictionary from %s", cfg.Classifier.ConditionsFile)
	}
	classifier := classify.New(dict)

	// Extraction backend
	extractor, err := buildExtractor(cfg)
	if err != nil {
		return fmt.Errorf("initialize extractor: %w", err)
	}

	// Alert database
	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	store := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Storage.Path)

	// Notification channels
	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return fmt.Errorf("initialize notifiers: %w", err)
	}
	defer dispatcher.Close()

	// Pipeline components
	agg := stats.New()
	index := search.New(0)
	engine := escalate.NewEngine(dict, nil)
	defer engine.Close()

	processor := pipeline.NewDocumentProcessor(fsm, extractor, classifier, engine, store.Alerts(), index, agg)
	if cfg.Extraction.Timeout > 0 {
		processor.ExtractTimeout = cfg.Extraction.Timeout + 30*time.Second
	}

	mon, err := monitor.New(fsm, &monitor.Options{
		SettleDelay:      cfg.Watch.SettleDelay,
		SettleRecheck:    cfg.Watch.SettleRecheck,
		MaxSettleRetries: cfg.Watch.MaxSettleRetries,
		Workers:          cfg.Watch.Workers,
		RescanInterval:   cfg.Watch.RescanInterval,
	})
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	mon.AddProcessor(processor)

	sweeper := escalate.NewSweeper(store.Alerts(), dispatcher, cfg.Escalation.SweepInterval)

	// HTTP API
	srv, err := api.New(&api.Config{
		Address: cfg.Server.HTTPAddress,
		Verbose: cfg.Verbose,
	}, store.Alerts(), agg, fsm, mon, index, store.DB())
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	// Signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting radiologyd %s", config.Version)
	log.Printf("data directory: %s", cfg.DataDir)
	log.Printf("extraction mode: %s", cfg.Extraction.Mode)

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer mon.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		err := sweeper.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// Immediate notification of new critical alerts.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case alert, ok := <-engine.Alerts():
				if !ok {
					return nil
				}
				if !alert.Level.Critical() {
					continue
				}
				notice := &notifier.Notice{Alert: alert}
				if err := dispatcher.DispatchAll(ctx, notice); err != nil {
					log.Printf("dispatch alert %s: %v", alert.ID, err)
				}
			}
		}
	})

	// Archive retention
	if cfg.Retention.Days > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Retention.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					removed, err := fsm.CleanupOldFiles(cfg.Retention.Days)
					if err != nil {
						log.Printf("retention cleanup: %v", err)
						continue
					}
					if removed > 0 {
						log.Printf("retention cleanup removed %d files older than %d days", removed, cfg.Retention.Days)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}

	log.Printf("daemon stopped")
	return nil
}

// buildExtractor selects the extraction backend from configuration.
func buildExtractor(cfg *Config) (extract.Extractor, error) {
	switch cfg.Extraction.Mode {
	case "remote":
		return extract.NewRemoteExtractor(extract.RemoteConfig{
			URL:             cfg.Extraction.URL,
			APIKey:          cfg.Extraction.APIKey,
			Timeout:         cfg.Extraction.Timeout,
			RatePerSecond:   cfg.Extraction.RatePerSecond,
			BreakerFailures: cfg.Extraction.BreakerFailures,
			BreakerCooldown: cfg.Extraction.BreakerCooldown,
		})
	default:
		return extract.NewLocalExtractor(), nil
	}
}

// buildDispatcher registers the configured notification channels.
func buildDispatcher(cfg *Config) (*notifier.Dispatcher, error) {
	rl := notifier.DefaultRateLimitConfig()
	if cfg.Notify.RateLimit.MaxPerWindow > 0 {
		rl.MaxPerWindow = cfg.Notify.RateLimit.MaxPerWindow
	}
	if cfg.Notify.RateLimit.Window > 0 {
		rl.Window = cfg.Notify.RateLimit.Window
	}
	rl.Enabled = !cfg.Notify.RateLimit.Disabled

	d := notifier.NewDispatcherWithRateLimit(rl)

	if cfg.Notify.Slack.Enabled {
		slack, err := notifier.NewSlackNotifier(notifier.SlackConfig{
			WebhookURL: cfg.Notify.Slack.WebhookURL,
		})
		if err != nil {
			return nil, err
		}
		d.Register(slack)
		log.Printf("slack notifications enabled")
	}

	if cfg.Notify.Email.Enabled {
		email, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:       cfg.Notify.Email.Host,
			Port:       cfg.Notify.Email.Port,
			Username:   cfg.Notify.Email.Username,
			Password:   cfg.Notify.Email.Password,
			From:       cfg.Notify.Email.From,
			Recipients: cfg.Notify.Email.Recipients,
		})
		if err != nil {
			return nil, err
		}
		d.Register(email)
		log.Printf("email notifications enabled (%d recipients)", len(cfg.Notify.Email.Recipients))
	}

	return d, nil
}
