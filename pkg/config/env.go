package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/spf13/viper"
)

// Supported AI providers
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Environment holds validated process configuration. It is read once at
// startup and never mutated afterwards.
type Environment struct {
	ClientID     string
	ClientSecret string

	AIProvider       string
	AIModel          string
	GeminiAPIKey     string
	OpenAIKey        string
	AnthropicKey     string
	AIRatePerMinute  int
	DefaultFramework string

	Port         string
	FrontendURL  string
	CookieName   string
	CookieSecure bool
	GitHubAPIURL string
	Debug        bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Options controls where configuration is read from
type Options struct {
	// EnvFile is loaded into the process environment when present
	EnvFile string
	// ConfigFile is an optional YAML file with the same keys
	ConfigFile string
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ai_provider", ProviderGemini)
	v.SetDefault("ai_model", "")
	v.SetDefault("ai_rate_per_minute", 0)
	v.SetDefault("default_framework", "Jest")
	v.SetDefault("port", "3000")
	v.SetDefault("frontend_url", "http://localhost:5173")
	v.SetDefault("cookie_name", "gh_token")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("github_api_url", "")
	v.SetDefault("debug", false)
	v.SetDefault("read_timeout", "15s")
	v.SetDefault("write_timeout", "2m")
}

// Load reads .env, the optional config file and the environment
func Load(logger *log.Logger, opts Options) (*Environment, error) {
	if err := LoadDotEnv(logger, opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	}

	env := FromViper(v)
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// LoadDotEnv loads envFile (default .env) into the process environment.
// Variables already set win; a missing file is not an error.
func LoadDotEnv(logger *log.Logger, envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		logger.Debug("No %s file found, using process environment", envFile)
	}
	return nil
}

// FromViper builds an Environment from already-populated viper state
func FromViper(v *viper.Viper) *Environment {
	return &Environment{
		ClientID:         v.GetString("client_id"),
		ClientSecret:     v.GetString("client_secret"),
		AIProvider:       strings.ToLower(strings.TrimSpace(v.GetString("ai_provider"))),
		AIModel:          v.GetString("ai_model"),
		GeminiAPIKey:     v.GetString("gemini_api_key"),
		OpenAIKey:        v.GetString("openai_api_key"),
		AnthropicKey:     v.GetString("anthropic_api_key"),
		AIRatePerMinute:  v.GetInt("ai_rate_per_minute"),
		DefaultFramework: v.GetString("default_framework"),
		Port:             v.GetString("port"),
		FrontendURL:      strings.TrimRight(v.GetString("frontend_url"), "/"),
		CookieName:       v.GetString("cookie_name"),
		CookieSecure:     v.GetBool("cookie_secure"),
		GitHubAPIURL:     v.GetString("github_api_url"),
		Debug:            v.GetBool("debug"),
		ReadTimeout:      v.GetDuration("read_timeout"),
		WriteTimeout:     v.GetDuration("write_timeout"),
	}
}

// Validate checks required settings for the selected provider
func (e *Environment) Validate() error {
	if e.ClientID == "" {
		return fmt.Errorf("CLIENT_ID not configured")
	}
	if e.ClientSecret == "" {
		return fmt.Errorf("CLIENT_SECRET not configured")
	}

	switch e.AIProvider {
	case ProviderGemini:
		if e.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not configured")
		}
	case ProviderOpenAI:
		if e.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY not configured")
		}
	case ProviderAnthropic:
		if e.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY not configured")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", e.AIProvider)
	}

	if e.AIRatePerMinute < 0 {
		return fmt.Errorf("AI_RATE_PER_MINUTE must not be negative")
	}
	if e.Port == "" {
		e.Port = "3000"
	}
	if e.CookieName == "" {
		e.CookieName = "gh_token"
	}
	return nil
}

// APIKey returns the key for the selected provider
func (e *Environment) APIKey() string {
	switch e.AIProvider {
	case ProviderOpenAI:
		return e.OpenAIKey
	case ProviderAnthropic:
		return e.AnthropicKey
	default:
		return e.GeminiAPIKey
	}
}
