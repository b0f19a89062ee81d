package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.NewWithWriter(io.Discard, false)
}

// clearEnv blanks keys for the test; viper ignores empty variables
func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CLIENT_ID", "id")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("FRONTEND_URL", "http://localhost:5173/")
	clearEnv(t, "AI_PROVIDER", "PORT", "COOKIE_NAME", "DEFAULT_FRAMEWORK")

	env, err := Load(quietLogger(), Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, env.AIProvider)
	assert.Equal(t, "3000", env.Port)
	assert.Equal(t, "gh_token", env.CookieName)
	assert.Equal(t, "Jest", env.DefaultFramework)
	assert.Equal(t, "http://localhost:5173", env.FrontendURL)
	assert.Equal(t, "gem", env.APIKey())
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "CLIENT_ID=from-file\nCLIENT_SECRET=s\nAI_PROVIDER=openai\nOPENAI_API_KEY=sk-test\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))

	// godotenv does not override variables that are already set
	for _, k := range []string{"CLIENT_ID", "CLIENT_SECRET", "AI_PROVIDER", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	env, err := Load(quietLogger(), Options{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "from-file", env.ClientID)
	assert.Equal(t, ProviderOpenAI, env.AIProvider)
	assert.Equal(t, "sk-test", env.APIKey())
}

func TestLoadReadsConfigFile(t *testing.T) {
	t.Setenv("CLIENT_ID", "id")
	t.Setenv("CLIENT_SECRET", "secret")
	clearEnv(t, "AI_PROVIDER", "ANTHROPIC_API_KEY", "PORT", "AI_RATE_PER_MINUTE")

	dir := t.TempDir()
	cfg := filepath.Join(dir, "testgen.yaml")
	yaml := "ai_provider: anthropic\nanthropic_api_key: ant\nport: \"8081\"\nai_rate_per_minute: 10\n"
	require.NoError(t, os.WriteFile(cfg, []byte(yaml), 0600))

	env, err := Load(quietLogger(), Options{EnvFile: filepath.Join(dir, "none"), ConfigFile: cfg})
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, env.AIProvider)
	assert.Equal(t, "ant", env.APIKey())
	assert.Equal(t, "8081", env.Port)
	assert.Equal(t, 10, env.AIRatePerMinute)
}

func TestValidate(t *testing.T) {
	base := func() *Environment {
		return &Environment{
			ClientID:     "id",
			ClientSecret: "secret",
			AIProvider:   ProviderGemini,
			GeminiAPIKey: "key",
		}
	}

	tests := []struct {
		name    string
		mutate  func(e *Environment)
		wantErr string
	}{
		{"valid", func(e *Environment) {}, ""},
		{"missing client id", func(e *Environment) { e.ClientID = "" }, "CLIENT_ID"},
		{"missing client secret", func(e *Environment) { e.ClientSecret = "" }, "CLIENT_SECRET"},
		{"missing gemini key", func(e *Environment) { e.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"missing openai key", func(e *Environment) { e.AIProvider = ProviderOpenAI }, "OPENAI_API_KEY"},
		{"missing anthropic key", func(e *Environment) { e.AIProvider = ProviderAnthropic }, "ANTHROPIC_API_KEY"},
		{"unknown provider", func(e *Environment) { e.AIProvider = "llama" }, "unsupported"},
		{"negative rate", func(e *Environment) { e.AIRatePerMinute = -1 }, "AI_RATE_PER_MINUTE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := base()
			tt.mutate(env)
			err := env.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "3000", env.Port)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
