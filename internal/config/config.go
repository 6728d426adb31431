package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/hubwatch/internal/domain"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = "hubwatch"
	envPrefix  = "HUBWATCH"
)

// defaultOrgs are the organisations watched when none are configured.
var defaultOrgs = []string{
	"moonshotai",
	"Qwen",
	"deepseek-ai",
	"zai-org",
	"mistralai",
	"ai-sage",
	"yandex",
	"t-tech",
	"google",
	"meta-llama",
	"tencent",
	"nvidia",
	"xai-org",
	"openai",
	"Anthropic",
	"MiniMaxAI",
	"inclusionAI",
}

// Config is the validated application configuration. Values come from
// ~/.config/hubwatch/config.toml when present, overridden by HUBWATCH_*
// environment variables.
type Config struct {
	TelegramToken  string        `mapstructure:"telegram_token"`
	TelegramChatID string        `mapstructure:"telegram_chat_id"`
	Orgs           []string      `mapstructure:"orgs"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
	StatePath      string        `mapstructure:"state_path"`

	OpenRouterAPIKey string        `mapstructure:"openrouter_api_key"`
	GeneratorModel   string        `mapstructure:"generator_model"`
	ResponderModel   string        `mapstructure:"responder_model"`
	BattleTimeout    time.Duration `mapstructure:"battle_timeout"`

	LogLevel string `mapstructure:"log_level"`
}

// Load builds the configuration. A nil viper gets a fresh instance.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	configHome, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve config directory: %w", err)
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(configHome, configDir))
	v.AddConfigPath(".")

	v.SetDefault("orgs", defaultOrgs)
	v.SetDefault("poll_interval", time.Minute)
	v.SetDefault("fetch_timeout", 10*time.Second)
	v.SetDefault("concurrency", 4)
	v.SetDefault("state_path", defaultStatePath(configHome))
	v.SetDefault("generator_model", "google/gemini-2.5-flash-lite")
	v.SetDefault("responder_model", "")
	v.SetDefault("battle_timeout", 90*time.Second)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for _, key := range []string{
		"telegram_token", "telegram_chat_id", "orgs",
		"poll_interval", "fetch_timeout", "concurrency", "state_path",
		"openrouter_api_key", "generator_model", "responder_model",
		"battle_timeout", "log_level",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultStatePath(configHome string) string {
	return filepath.Join(configHome, configDir, "state.toml")
}

func (c Config) validate() error {
	if len(c.Orgs) == 0 {
		return errors.New("orgs must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.BattleTimeout <= 0 {
		return fmt.Errorf("battle_timeout must be positive, got %s", c.BattleTimeout)
	}
	if c.StatePath == "" {
		return errors.New("state_path must not be empty")
	}

	return nil
}

// OrgKeys returns the configured organisations as domain keys.
func (c Config) OrgKeys() []domain.OrgKey {
	keys := make([]domain.OrgKey, len(c.Orgs))
	for i, org := range c.Orgs {
		keys[i] = domain.OrgKey(org)
	}

	return keys
}

// RequireTelegram checks the credentials the daemon needs. Read-only
// commands work without them.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" || c.TelegramChatID == "" {
		return errors.New("telegram_token and telegram_chat_id are required")
	}

	return nil
}
