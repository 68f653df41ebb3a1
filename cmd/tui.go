package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/config"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/matheuskafuri/feedview/internal/tui"
	"github.com/matheuskafuri/feedview/internal/update"
	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.LogPath(), cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logFile.With("component", "tui")

	base := serverURL(cfg)
	client := api.New(base, cfg.Timeout(), api.WithLogger(logFile.With("component", "api")))
	log.Info("starting", "version", version, "server", base)

	return tui.Run(tui.RunOpts{
		Cfg:           cfg,
		Backend:       client,
		Log:           log,
		UpdateVersion: availableUpdate(cmd.Context(), log),
	})
}

// availableUpdate returns a newer release version, or "" when there is none
// or the check failed. Development builds never check.
func availableUpdate(ctx context.Context, log logging.Logger) string {
	if version == "dev" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := update.Check(ctx, &http.Client{}, update.DefaultReleasesURL, version)
	if err != nil {
		log.Debug("update check failed", "err", err)
		return ""
	}
	if !res.Newer {
		return ""
	}
	return res.LatestVersion
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// serverURL resolves the backend URL: --server, then FEEDVIEW_SERVER, then
// the config file.
func serverURL(cfg *config.Config) string {
	if flagServer != "" {
		return flagServer
	}
	return cfg.ServerURL()
}
