package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"golang.org/x/time/rate"
)

// DefaultFramework is used when the caller names no test framework
const DefaultFramework = "Jest"

// Model is a text completion backend
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes a Generator
type Options struct {
	// RatePerMinute paces outgoing model calls; zero disables pacing
	RatePerMinute int
	// DefaultFramework replaces DefaultFramework when set
	DefaultFramework string
}

// Generator turns source files into test summaries and test code
type Generator struct {
	logger    *log.Logger
	model     Model
	limiter   *rate.Limiter
	framework string
}

// New creates a new Generator instance
func New(logger *log.Logger, model Model, opts Options) *Generator {
	g := &Generator{
		logger:    logger,
		model:     model,
		framework: DefaultFramework,
	}

	if opts.DefaultFramework != "" {
		g.framework = opts.DefaultFramework
	}
	if opts.RatePerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}

	return g
}

// GenerateTestSummary asks the model for a high-level list of test cases
// covering files. The output is returned verbatim.
func (g *Generator) GenerateTestSummary(ctx context.Context, files []File) (string, error) {
	if len(files) == 0 {
		return "", apperr.Validation("No files provided", apperr.ErrEmptyInput)
	}

	g.logger.AI("Generating test summary for %d file(s) with %s", len(files), g.model.Name())
	text, err := g.generate(ctx, buildSummaryPrompt(files))
	if err != nil {
		return "", err
	}

	g.logger.Success("Test summary generated (%d bytes)", len(text))
	return text, nil
}

// GenerateFullTestCode converts summary into runnable test code for
// framework, with files appended as reference when given
func (g *Generator) GenerateFullTestCode(ctx context.Context, summary, framework string, files []File) (string, error) {
	if strings.TrimSpace(summary) == "" {
		return "", apperr.Validation("Test summary is required", apperr.ErrMissingSummary)
	}
	if framework == "" {
		framework = g.framework
	}

	g.logger.AI("Generating %s test code with %s", framework, g.model.Name())
	text, err := g.generate(ctx, buildFullCodePrompt(summary, framework, files))
	if err != nil {
		return "", err
	}

	g.logger.Success("Test code generated (%d bytes)", len(text))
	return text, nil
}

// generate paces and forwards prompt to the model
func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", apperr.RateLimit("Rate limit exceeded. Please try again later.", err)
		}
	}

	g.logger.Debug("Prompt length: %d bytes", len(prompt))

	text, err := g.model.Generate(ctx, prompt)
	if err != nil {
		g.logger.Error("Model call failed: %v", err)
		if _, ok := apperr.As(err); ok {
			return "", err
		}
		return "", apperr.Upstream(http.StatusInternalServerError, "model call failed", nil, err)
	}

	return text, nil
}

// String describes the generator for startup logs
func (g *Generator) String() string {
	return fmt.Sprintf("%s (framework %s)", g.model.Name(), g.framework)
}
