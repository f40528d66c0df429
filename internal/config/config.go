package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSecret is returned by Load when a required credential is absent.
var ErrMissingSecret = errors.New("required secret is not set")

const (
	keyTelegramToken  = "telegram_token"
	keyOpenAIKey      = "openai_api_key"
	keyModel          = "openai_model"
	keyBaseURL        = "openai_base_url"
	keyMaxTokens      = "max_tokens"
	keyTemperature    = "temperature"
	keyContextLimit   = "context_message_limit"
	keyPromptFile     = "system_prompt_file"
	keyDelimiter      = "reply_delimiter"
	keyCharsPerSecond = "chars_per_second"
	keyMaxChunkDelay  = "max_chunk_delay"
	keyGreeting       = "greeting"
	keyLogLevel       = "log_level"
)

const DefaultDelimiter = "|||"

var defaultGreeting = []string{
	"Hello 👋",
	"I'm your assistant, happy to help)",
	"Tell me a little about what you are working on?",
}

type Config struct {
	TelegramToken       string
	OpenAIKey           string
	Model               string
	BaseURL             string
	MaxCompletionTokens int
	Temperature         float32
	ContextLimit        int
	SystemPromptFile    string
	SystemPrompt        string
	Delimiter           string
	CharsPerSecond      float64
	MaxChunkDelay       time.Duration
	Greeting            []string
	LogLevel            string
}

// Load reads the optional dotenv file at path into the process environment
// (variables already set win), then builds the config from the environment.
// The system prompt is read once here.
func Load(path string, logger *log.Logger) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		logger.Warn("could not read .env", "path", path, "err", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(keyModel, "gpt-4o-mini")
	v.SetDefault(keyMaxTokens, 1000)
	v.SetDefault(keyTemperature, 0.75)
	v.SetDefault(keyContextLimit, 20)
	v.SetDefault(keyPromptFile, "system_prompt.txt")
	v.SetDefault(keyDelimiter, DefaultDelimiter)
	v.SetDefault(keyCharsPerSecond, 20.0)
	v.SetDefault(keyMaxChunkDelay, 3500*time.Millisecond)
	v.SetDefault(keyLogLevel, "info")

	cfg := Config{
		TelegramToken:       strings.TrimSpace(v.GetString(keyTelegramToken)),
		OpenAIKey:           strings.TrimSpace(v.GetString(keyOpenAIKey)),
		Model:               v.GetString(keyModel),
		BaseURL:             strings.TrimSpace(v.GetString(keyBaseURL)),
		MaxCompletionTokens: positiveInt(v, keyMaxTokens, 1000, logger),
		Temperature:         float32(v.GetFloat64(keyTemperature)),
		ContextLimit:        positiveInt(v, keyContextLimit, 20, logger),
		SystemPromptFile:    v.GetString(keyPromptFile),
		Delimiter:           v.GetString(keyDelimiter),
		CharsPerSecond:      v.GetFloat64(keyCharsPerSecond),
		MaxChunkDelay:       v.GetDuration(keyMaxChunkDelay),
		LogLevel:            v.GetString(keyLogLevel),
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("%w: %s", ErrMissingSecret, strings.ToUpper(keyTelegramToken))
	}
	if cfg.OpenAIKey == "" {
		return cfg, fmt.Errorf("%w: %s", ErrMissingSecret, strings.ToUpper(keyOpenAIKey))
	}

	if cfg.CharsPerSecond <= 0 {
		logger.Warn("invalid chars per second, using default", "value", cfg.CharsPerSecond)
		cfg.CharsPerSecond = 20
	}
	if cfg.MaxChunkDelay < 0 {
		cfg.MaxChunkDelay = 0
	}
	cfg.Greeting = parseGreeting(v.GetString(keyGreeting), cfg.Delimiter)
	cfg.SystemPrompt = LoadSystemPrompt(cfg.SystemPromptFile, logger)

	return cfg, nil
}

func positiveInt(v *viper.Viper, key string, def int, logger *log.Logger) int {
	n := v.GetInt(key)
	if n <= 0 {
		logger.Warn("invalid int, using default",
			"key", strings.ToUpper(key), "value", v.GetString(key), "default", def)
		return def
	}
	return n
}

func parseGreeting(raw, delimiter string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultGreeting...)
	}

	parts := strings.Split(raw, delimiter)
	greeting := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			greeting = append(greeting, p)
		}
	}
	if len(greeting) == 0 {
		return append([]string(nil), defaultGreeting...)
	}
	return greeting
}
