package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/config"
	"github.com/rewired-gh/hubbub/internal/display"
	"github.com/rewired-gh/hubbub/internal/github"
	"github.com/rewired-gh/hubbub/internal/logger"
	"github.com/rewired-gh/hubbub/internal/metrics"
	"github.com/rewired-gh/hubbub/internal/poller"
	"github.com/rewired-gh/hubbub/internal/render"
	"github.com/rewired-gh/hubbub/internal/storage"
	"github.com/rewired-gh/hubbub/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single poll cycle and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)
	for _, problem := range cfg.Colors.Problems() {
		logger.Warn("Color rule %s; matching events render black", problem)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	err = run(ctx, cfg, *once)
	cancel()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Info("Service stopped")
}

// run wires the service and polls until ctx is cancelled. Startup failures are
// returned after every registered cleanup has run.
func run(ctx context.Context, cfg *config.Config, once bool) error {
	// Initialize GitHub client and log in
	ghClient := github.NewClient(github.Options{
		BaseURL:    cfg.GitHub.APIBaseURL,
		Timeout:    cfg.GitHub.Timeout,
		Token:      cfg.GitHub.Token,
		MaxRetries: cfg.GitHub.MaxRetries,
		RetryBase:  cfg.GitHub.RetryDelayBase,
	})

	login, highlight, err := identity(ctx, ghClient, cfg.GitHub.User)
	if err != nil {
		return err
	}

	feed, err := github.NewFeed(ghClient, github.FeedOptions{
		Org:        cfg.GitHub.Org,
		User:       login,
		PublicOnly: cfg.GitHub.PublicOnly,
		PerPage:    cfg.GitHub.PerPage,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize event feed: %w", err)
	}
	logger.Debug("Polling %s", feed.Path())

	// Initialize window
	seen := storage.NewSeenSet(cfg.Window.SeenMax, cfg.Window.SeenTTL)
	if cfg.SeenBounded() {
		logger.Warn("Seen id set is capped (max: %d, ttl: %v); forgotten events may be shown again",
			cfg.Window.SeenMax, cfg.Window.SeenTTL)
	}
	window := storage.NewWithSeen(seen)

	// Initialize Telegram client
	var notifier poller.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.GitHub.Org, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Initialize metrics endpoint
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		srv := metrics.NewServer(cfg.Metrics.ListenAddress, m)
		go func() {
			logger.Info("Serving /metrics on %s", cfg.Metrics.ListenAddress)
			if err := srv.Serve(); err != nil {
				logger.Error("Metrics server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initialize display
	drv, err := display.New(cfg.Display.Driver)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	drv.SetBrightness(cfg.Display.Brightness)
	drv.SetRotation(cfg.Display.Rotation)
	defer func() {
		drv.Clear()
		if err := drv.Show(); err != nil {
			logger.Warn("Failed to clear display: %v", err)
		}
		if err := drv.Close(); err != nil {
			logger.Error("Failed to close display: %v", err)
		}
	}()

	view, err := render.New(cfg.Render.View, drv, colors.NewResolver(cfg.Colors), render.Options{
		TodayOnly:  cfg.Render.TodayOnly,
		Highlight:  highlight,
		FrameDelay: cfg.Render.FrameDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize view: %w", err)
	}

	p := poller.New(feed, window, view, poller.Options{
		Interval:   cfg.Poll.Interval,
		BatchLimit: cfg.Poll.BatchLimit,
		Notifier:   notifier,
		Metrics:    m,
	})

	if once {
		c := p.RunCycle(ctx)
		logger.Info("Single cycle finished (added: %d)", c.Added)
		return nil
	}

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("poll loop ended: %w", err)
	}
	return nil
}

// identity logs in when a token is set. login names the feed endpoint user;
// highlight is the override when given, else the login.
func identity(ctx context.Context, c *github.Client, override string) (login, highlight string, err error) {
	highlight = override
	if !c.Authenticated() {
		logger.Warn("No GitHub token configured; using unauthenticated rate limits")
		return "", highlight, nil
	}
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return "", "", err
	}
	logger.Info("Logged in to GitHub as %s", user.Login)
	if highlight == "" {
		highlight = user.Login
	}
	return user.Login, highlight, nil
}
