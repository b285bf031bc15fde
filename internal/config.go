// Package internal layers the CLI configuration: command flags override
// environment variables, which override the persistent config file.
package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Bot is one named account in the config file, addressable by alias.
type Bot struct {
	Alias         string `mapstructure:"alias"`
	AppID         string `mapstructure:"app_id"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// Config is the merged env-over-file view. Flag overrides are applied by
// the commands through Resolve.
type Config struct {
	Token         string
	AppID         string
	BaseURL       string
	WebhookSecret string
	LogLevel      string
	Bots          []Bot
}

// DefaultBaseURL is the public Gewe API endpoint.
const DefaultBaseURL = "http://api.geweapi.com"

type environment struct {
	Token         string `env:"GEWE_TOKEN"`
	AppID         string `env:"GEWE_APP_ID"`
	BaseURL       string `env:"GEWE_BASE_URL"`
	WebhookSecret string `env:"GEWE_WEBHOOK_SECRET"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

type fileConfig struct {
	Token   string `mapstructure:"token"`
	AppID   string `mapstructure:"app_id"`
	BaseURL string `mapstructure:"base_url"`
	Bots    []Bot  `mapstructure:"bots"`
}

// Load reads the config file (explicit path, or ~/.config/gewe/config.yaml)
// and the environment. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}

	file, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Token:         firstNonEmpty(e.Token, file.Token),
		AppID:         firstNonEmpty(e.AppID, file.AppID),
		BaseURL:       firstNonEmpty(e.BaseURL, file.BaseURL, DefaultBaseURL),
		WebhookSecret: e.WebhookSecret,
		LogLevel:      e.LogLevel,
		Bots:          file.Bots,
	}
	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fileConfig{}, nil
		}
		v.AddConfigPath(filepath.Join(home, ".config", "gewe"))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			// Only an explicit path must exist.
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}

	var file fileConfig
	if err := v.Unmarshal(&file); err != nil {
		return fileConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return file, nil
}

// ResolveBot maps a bot alias from the config file to its app id and
// webhook secret.
func (c Config) ResolveBot(alias string) (Bot, error) {
	for _, bot := range c.Bots {
		if bot.Alias == alias {
			return bot, nil
		}
	}
	return Bot{}, fmt.Errorf("bot alias not found: %s", alias)
}

// Resolve returns the flag value when set, the configured value otherwise,
// and an error when the setting is required but absent everywhere.
func Resolve(flag, configured, name string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if configured != "" {
		return configured, nil
	}
	return "", fmt.Errorf("%s is required (flag, environment or config file)", name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
