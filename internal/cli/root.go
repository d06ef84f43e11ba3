package cli

import (
	"context"
	"net/http"

	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/client"
	"github.com/matic113/freelance-platform-sub003/internal/config"
	"github.com/matic113/freelance-platform-sub003/internal/logger"
	"github.com/spf13/cobra"
)

// App holds what the commands need beyond their flags.
type App struct {
	Config config.Config

	// Serve runs the HTTP server until ctx is cancelled.
	Serve func(ctx context.Context, cfg config.Config) error

	// IsTerminal reports whether stdout is a terminal; colour is off otherwise.
	IsTerminal func() bool

	configPath string
	envFile    string
	baseURL    string
	token      string
}

// NewRootCmd creates the top-level "freelance" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "freelance",
		Short:         "Contract, milestone and payment lifecycle server and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.configPath, app.envFile)
			if err != nil {
				return err
			}
			app.Config = cfg
			logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
			formatter.UseColor(app.IsTerminal != nil && app.IsTerminal())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&app.envFile, "env-file", ".env", "Dotenv file loaded before the environment")
	flags.StringVar(&app.baseURL, "url", "", "Server URL (default from config)")
	flags.StringVar(&app.token, "token", "", "Bearer token (default from config)")

	root.AddCommand(
		newServeCmd(app),
		newTokenCmd(app),
		newContractCmd(app),
		newMilestoneCmd(app),
		newPaymentCmd(app),
		newWatchCmd(app),
	)

	return root
}

// connect builds an API client from flags, falling back to config.
func (app *App) connect() (*client.Client, error) {
	baseURL := app.baseURL
	if baseURL == "" {
		baseURL = app.Config.Client.BaseURL
	}
	token := app.token
	if token == "" {
		token = app.Config.Client.Token
	}
	return client.New(baseURL, token, client.WithHTTPClient(&http.Client{Timeout: app.Config.Client.Timeout}))
}
