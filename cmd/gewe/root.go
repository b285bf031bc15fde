package main

import (
	"log/slog"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"

	"gewe-lab/internal"
	"gewe-lab/services"
)

// app carries the state shared between subcommands: global flag values,
// the merged configuration and the resolved logger.
type app struct {
	configPath string
	token      string
	appID      string
	botAlias   string
	baseURL    string
	logLevel   string

	cfg internal.Config
	log *slog.Logger

	exitCode int
}

// run builds the command tree, executes it, and centralizes exit-code
// reporting so main stays a thin wrapper and defers always fire.
func run() (int, error) {
	a := &app{}
	if err := a.rootCommand().Execute(); err != nil {
		if a.exitCode == services.ExitMatched {
			a.exitCode = services.ExitTimeout
		}
		return a.exitCode, err
	}
	return a.exitCode, nil
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gewe",
		Short:         "WeChat automation over the Gewe API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to the config file (default ~/.config/gewe/config.yaml)")
	flags.StringVar(&a.token, "token", "", "Gewe API token (overrides GEWE_TOKEN)")
	flags.StringVar(&a.appID, "app-id", "", "Gewe application id (overrides GEWE_APP_ID)")
	flags.StringVar(&a.botAlias, "bot-alias", "", "named bot from the config file")
	flags.StringVar(&a.baseURL, "base-url", "", "Gewe API base URL")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(a.waitReplyCommand())
	root.AddCommand(a.sendCommand())
	root.AddCommand(a.serveWebhookCommand())
	return root
}

// setup merges flags over environment over file and builds the logger.
func (a *app) setup() error {
	cfg, err := internal.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.botAlias != "" {
		bot, err := cfg.ResolveBot(a.botAlias)
		if err != nil {
			return err
		}
		cfg.AppID = bot.AppID
		if bot.WebhookSecret != "" {
			cfg.WebhookSecret = bot.WebhookSecret
		}
	}

	if a.token != "" {
		cfg.Token = a.token
	}
	if a.appID != "" {
		cfg.AppID = a.appID
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	a.cfg = cfg
	a.log = logs.GetLoggerFromString(cfg.LogLevel)
	return nil
}

// credentials validates that the API-facing commands have what they need.
func (a *app) credentials() (token, appID string, err error) {
	token, err = internal.Resolve("", a.cfg.Token, "token")
	if err != nil {
		return "", "", err
	}
	appID, err = internal.Resolve("", a.cfg.AppID, "app-id")
	if err != nil {
		return "", "", err
	}
	return token, appID, nil
}

func (a *app) fail(code int, err error) error {
	a.exitCode = code
	return err
}
