package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Default model per provider
const (
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"
)

const rateLimitMessage = "Rate limit exceeded. Please try again later."

// ProviderConfig selects and configures a Model
type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint
	BaseURL string
}

// NewModel instantiates the Model for cfg.Provider
func NewModel(ctx context.Context, cfg ProviderConfig) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key for %s is not configured", cfg.Provider)
	}

	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return NewGemini(ctx, cfg)
	case "openai":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// Gemini generates text with the Google Gemini API
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini model
func NewGemini(ctx context.Context, cfg ProviderConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.model }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyGemini(err)
	}

	text := resp.Text()
	if text == "" {
		return "", apperr.Upstream(http.StatusInternalServerError, "gemini returned no text", nil, nil)
	}
	return text, nil
}

func classifyGemini(err error) error {
	code, status := 0, ""
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status = apiErr.Code, apiErr.Status
	case errors.As(err, &apiErrPtr):
		code, status = apiErrPtr.Code, apiErrPtr.Status
	}

	if code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED" {
		return apperr.RateLimit(rateLimitMessage, err)
	}
	return providerFailure("gemini", code, err)
}

// OpenAI generates text with the OpenAI chat completions API
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI model
func NewOpenAI(cfg ProviderConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), model: model}
}

func (o *OpenAI) Name() string { return "openai/" + o.model }

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Upstream(http.StatusInternalServerError, "openai returned no choices", nil, nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	code := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	}

	if code == http.StatusTooManyRequests {
		return apperr.RateLimit(rateLimitMessage, err)
	}
	return providerFailure("openai", code, err)
}

// Anthropic generates text with the Anthropic messages API
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropic creates an Anthropic model. SDK retries are disabled.
func NewAnthropic(cfg ProviderConfig) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{client: &client, model: anthropic.Model(model)}
}

func (a *Anthropic) Name() string { return "anthropic/" + string(a.model) }

func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropic(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", apperr.Upstream(http.StatusInternalServerError, "anthropic returned no text", nil, nil)
	}
	return sb.String(), nil
}

func classifyAnthropic(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return apperr.RateLimit(rateLimitMessage, err)
		}
		return providerFailure("anthropic", apiErr.StatusCode, err)
	}
	return providerFailure("anthropic", 0, err)
}

// providerFailure reports a non-quota model error as a generic 500; the
// provider's own status is kept in the detail
func providerFailure(provider string, code int, err error) error {
	var detail any
	if code != 0 {
		detail = map[string]any{"provider_status": code}
	}
	return apperr.Upstream(http.StatusInternalServerError, provider+" call failed", detail, err)
}
