package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheuskafuri/feedview/internal/ai"
	"github.com/matheuskafuri/feedview/internal/cache"
	"github.com/matheuskafuri/feedview/internal/feed"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/matheuskafuri/feedview/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var (
	flagListen  string
	flagLogJSON bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local development backend",
	Long: `Run a feedview backend on top of a local SQLite database.

The configured feeds are fetched on start when the last refresh is older than
backend.refresh_interval, and again on every interval. Titles are translated
with the configured AI provider; without one they are returned unchanged.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (overrides backend.listen)")
	serveCmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "write logs as JSON")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cmd.ErrOrStderr(), logging.Options{Level: cfg.Log.Level, JSON: flagLogJSON, Prefix: "serve"})

	db, err := cache.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := server.SeedSettings(db, cfg.Backend.TranslationEnabled, cfg.Backend.TargetLanguage); err != nil {
		return fmt.Errorf("seeding settings: %w", err)
	}

	opts := []server.Option{server.WithLogger(log.With("component", "http"))}
	if cfg.AIEnabled() {
		tr, err := ai.New(cfg.Backend.AI, cfg.AIKey())
		if err != nil {
			return fmt.Errorf("configuring AI: %w", err)
		}
		opts = append(opts, server.WithTranslator(tr, ai.NewTracker(cfg.Backend.AI.UsageLimit)))
	} else {
		log.Warn("AI translation not configured, titles are returned unchanged")
	}

	addr := cfg.Backend.Listen
	if flagListen != "" {
		addr = flagListen
	}
	httpSrv := server.New(db, opts...).HTTPServer(addr)
	refresher := server.NewRefresher(
		db,
		feed.NewRSSFetcher(cfg.RetentionDuration()),
		cfg.EnabledFeeds(),
		cfg.RefreshDuration(),
		cfg.RetentionDuration(),
		log.With("component", "refresh"),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(ctx)
	})
	g.Go(func() error {
		log.Info("listening", "addr", addr, "database", cfg.DatabasePath())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("stopped")
	return err
}
