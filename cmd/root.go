package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/brk3/habitlog/internal/apiclient"
	"github.com/brk3/habitlog/internal/config"
	"github.com/brk3/habitlog/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "habits",
	Short: "Track daily checkbox and counter habits",
	Long: `
	Habits keeps a short list of daily habits and a log of how each day went.
	Checkbox habits cycle through pending, done and missed; counter habits count
	up to a target. Run "habits server" to host the log, then use the other
	commands to work with today's entries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("HABITS_CONFIG", configPath); err != nil {
				return err
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		logger.Setup(cmd.ErrOrStderr(), logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HABITS_CONFIG or config.yaml)")
}

var errNoCredentials = errors.New("auth is enabled: set auth.session_token (from /auth/token) or auth.id_token")

// newClient returns a client for the configured server. When the server
// requires a session it uses the configured session token, or trades the
// configured ID token for one.
func newClient(ctx context.Context) (*apiclient.Client, error) {
	c := apiclient.New(cfg.APIBaseURL)
	if !cfg.Auth.Enabled {
		return c, nil
	}
	switch {
	case cfg.Auth.SessionToken != "":
		c.Token = cfg.Auth.SessionToken
	case cfg.Auth.IDToken != "":
		if err := c.Login(ctx, cfg.Auth.Provider, cfg.Auth.IDToken); err != nil {
			return nil, err
		}
	default:
		return nil, errNoCredentials
	}
	return c, nil
}
