package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	DriverOpenAI    = "openai"
	DriverLangchain = "langchain"
)

type Config struct {
	Log          Log          `yaml:"log"`
	DB           DB           `yaml:"db"`
	Models       Models       `yaml:"models"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Debt         Debt         `yaml:"debt"`
	Connectivity Connectivity `yaml:"connectivity"`
	Reminder     Reminder     `yaml:"reminder"`
	HTTP         HTTP         `yaml:"http"`
	Retention    Retention    `yaml:"retention"`
}

type Models struct {
	Primary   ModelConfig `yaml:"primary" validate:"required"`
	Secondary ModelConfig `yaml:"secondary" validate:"required"`
}

type ModelConfig struct {
	// Client implementation, openai or langchain
	Driver string `yaml:"driver" example:"openai" validate:"oneof=openai langchain"`
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://generativelanguage.googleapis.com/v1beta/openai/" validate:"required,url"`
	// API token
	Token string `yaml:"token" example:"AIzaSyA-abc123def456ghi789jkl012mno345pq" validate:"required"`
	// Model name
	Model string `yaml:"model" example:"gemini-2.5-flash-lite" validate:"required"`
	// Requests per minute allowed by the provider, 0 means unlimited
	RPM int `yaml:"rpm" example:"10" validate:"gte=0"`
	// Requests per day allowed by the provider, 0 means unlimited
	RPD int `yaml:"rpd" example:"20" validate:"gte=0"`
	// Sampling temperature
	Temperature float32 `yaml:"temperature" example:"0.8" validate:"gte=0,lte=2"`
	// Upper bound on generated tokens
	MaxTokens int `yaml:"max_tokens" example:"1024" validate:"gte=0"`
}

type Orchestrator struct {
	// Minimum pause between two turns, measured from completion of the previous one
	Cooldown time.Duration `yaml:"cooldown" example:"4s" validate:"gte=0"`
	// Upper bound for a single model call
	RequestTimeout time.Duration `yaml:"request_timeout" example:"30s" validate:"gt=0"`
	// Visible pause between fallback phases
	FallbackPause time.Duration `yaml:"fallback_pause" example:"600ms" validate:"gte=0"`
	// Number of recent turns included in the prompt
	HistorySize int `yaml:"history_size" example:"6" validate:"gte=0"`
}

type Debt struct {
	// Total debt used until the user completes onboarding
	Total int64 `yaml:"total" example:"5000000" validate:"gte=0"`
	// Default deadline, YYYY-MM-DD
	Deadline string `yaml:"deadline" example:"2026-12-31" validate:"omitempty,datetime=2006-01-02"`
	// Default personality mode
	Personality string `yaml:"personality" example:"BALANCED" validate:"oneof=STRICT BALANCED GENTLE"`
}

type Connectivity struct {
	// Address dialed to decide whether the network is reachable, empty disables the probe
	Address string `yaml:"address" example:"generativelanguage.googleapis.com:443"`
	// Dial timeout
	Timeout time.Duration `yaml:"timeout" example:"3s" validate:"gte=0"`
	// How often connectivity is re-checked while a turn is in flight
	WatchInterval time.Duration `yaml:"watch_interval" example:"5s" validate:"gte=0"`
}

type Reminder struct {
	// Enable the daily reminder
	Enabled bool `yaml:"enabled" example:"true"`
	// Default reminder hour, local time
	Hour int `yaml:"hour" example:"19" validate:"gte=0,lte=23"`
	// Default reminder minute
	Minute int `yaml:"minute" example:"0" validate:"gte=0,lte=59"`
	// Telegram chat receiving reminders
	Telegram TelegramBot `yaml:"telegram"`
}

type TelegramBot struct {
	// Bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send reminders to
	ChatID int64 `yaml:"chat_id" example:"1001234567890"`
}

type HTTP struct {
	// Listen address of the HTTP API
	Addr string `yaml:"addr" example:"127.0.0.1:8080" validate:"required"`
}

type Retention struct {
	// How long conversation turns are kept
	Turns time.Duration `yaml:"turns" example:"720h" validate:"gt=0"`
	// How long chat messages are kept
	Messages time.Duration `yaml:"messages" example:"168h" validate:"gt=0"`
}

type Log struct {
	// Minimum level: debug, info, warn, error
	Level string `yaml:"level" example:"info" validate:"oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type DB struct {
	// Path to the sqlite database file
	Path string `yaml:"path" example:"data/debtslayer.db" validate:"required"`
}

func Load(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(&result)
	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRIMARY_MODEL_TOKEN"); v != "" {
		cfg.Models.Primary.Token = v
	}
	if v := os.Getenv("SECONDARY_MODEL_TOKEN"); v != "" {
		cfg.Models.Secondary.Token = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Reminder.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_LOG_TOKEN"); v != "" {
		cfg.Log.Telegram.Token = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.DB.Path == "" {
		cfg.DB.Path = "data/debtslayer.db"
	}

	for _, m := range []*ModelConfig{&cfg.Models.Primary, &cfg.Models.Secondary} {
		if m.Driver == "" {
			m.Driver = DriverOpenAI
		}
		if m.Temperature == 0 {
			m.Temperature = 0.8
		}
		if m.MaxTokens == 0 {
			m.MaxTokens = 1024
		}
	}
	if cfg.Models.Primary.RPM == 0 && cfg.Models.Primary.RPD == 0 {
		cfg.Models.Primary.RPM, cfg.Models.Primary.RPD = 10, 20
	}
	if cfg.Models.Secondary.RPM == 0 && cfg.Models.Secondary.RPD == 0 {
		cfg.Models.Secondary.RPM, cfg.Models.Secondary.RPD = 5, 20
	}

	if cfg.Orchestrator.Cooldown == 0 {
		cfg.Orchestrator.Cooldown = 4 * time.Second
	}
	if cfg.Orchestrator.RequestTimeout == 0 {
		cfg.Orchestrator.RequestTimeout = 30 * time.Second
	}
	if cfg.Orchestrator.FallbackPause == 0 {
		cfg.Orchestrator.FallbackPause = 600 * time.Millisecond
	}
	if cfg.Orchestrator.HistorySize == 0 {
		cfg.Orchestrator.HistorySize = 6
	}

	if cfg.Debt.Personality == "" {
		cfg.Debt.Personality = "BALANCED"
	}

	if cfg.Connectivity.Timeout == 0 {
		cfg.Connectivity.Timeout = 3 * time.Second
	}
	if cfg.Connectivity.WatchInterval == 0 {
		cfg.Connectivity.WatchInterval = 5 * time.Second
	}

	if cfg.Reminder.Hour == 0 && cfg.Reminder.Minute == 0 {
		cfg.Reminder.Hour = 19
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = "127.0.0.1:8080"
	}

	if cfg.Retention.Turns == 0 {
		cfg.Retention.Turns = 30 * 24 * time.Hour
	}
	if cfg.Retention.Messages == 0 {
		cfg.Retention.Messages = 7 * 24 * time.Hour
	}
}
