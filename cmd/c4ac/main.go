// Command c4ac renders the Creators for a Cause front page.
//
// Usage:
//
//	c4ac render -o index.html             # pre-render the page once
//	c4ac render --markdown                # same, as markdown
//	c4ac serve --listen :8000             # preview server, one build per request
//	c4ac status                           # fundraiser and streams as a table
//	c4ac live --url http://localhost:8000 # keep dates rendered in a real Chrome tab
//	c4ac timestamp 1700000000000          # print display and tooltip strings
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/config"
	"github.com/hazyhaar/creatorsforacause/datewatch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("c4ac: fatal", "error", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "c4ac",
		Short:         "Render the Creators for a Cause front page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to c4ac.yaml config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		a.renderCmd(),
		a.serveCmd(),
		a.statusCmd(),
		a.liveCmd(),
		a.timestampCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	switch a.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) client() *api.Client {
	return api.New(a.cfg.API.BaseURL(),
		api.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}),
		api.WithLogger(a.logger),
	)
}

func (a *app) renderConfig() datewatch.Config {
	rc := a.cfg.Render.Renderer()
	rc.Logger = a.logger
	return rc
}
