package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockModel records prompts and answers with a canned response
type mockModel struct {
	response string
	err      error
	prompts  []string
}

func (m *mockModel) Name() string { return "mock" }

func (m *mockModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func newTestGenerator(model Model) *Generator {
	return New(log.NewWithWriter(io.Discard, true), model, Options{})
}

func TestGenerateTestSummary(t *testing.T) {
	model := &mockModel{response: "1. adds numbers\n2. rejects strings"}
	gen := newTestGenerator(model)

	files := []File{
		{Path: "src/math.js", Content: "export const add = (a, b) => a + b"},
		{Path: "src/str.js", Content: "export const up = s => s.toUpperCase()"},
	}

	summary, err := gen.GenerateTestSummary(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, model.response, summary)

	require.Len(t, model.prompts, 1)
	prompt := model.prompts[0]
	assert.Contains(t, prompt, "high-level summary of test cases")
	assert.Contains(t, prompt, "- Expected Output")
	assert.Contains(t, prompt, "File: src/math.js\nexport const add = (a, b) => a + b\n\nFile: src/str.js\n")
}

func TestGenerateTestSummaryEmptyInput(t *testing.T) {
	model := &mockModel{response: "unused"}
	gen := newTestGenerator(model)

	_, err := gen.GenerateTestSummary(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEmptyInput))
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))
	assert.Empty(t, model.prompts, "provider must not be contacted")
}

func TestGenerateFullTestCode(t *testing.T) {
	tests := []struct {
		name          string
		framework     string
		files         []File
		wantFramework string
		wantSources   bool
	}{
		{
			name:          "default framework without sources",
			wantFramework: "fully working Jest test code",
		},
		{
			name:          "explicit framework with sources",
			framework:     "pytest",
			files:         []File{{Path: "app.py", Content: "def f(): pass"}},
			wantFramework: "fully working pytest test code",
			wantSources:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &mockModel{response: "describe('add', () => {})"}
			gen := newTestGenerator(model)

			code, err := gen.GenerateFullTestCode(context.Background(), "1. adds numbers", tt.framework, tt.files)
			require.NoError(t, err)
			assert.Equal(t, model.response, code)

			prompt := model.prompts[0]
			assert.Contains(t, prompt, tt.wantFramework)
			assert.Contains(t, prompt, "Test Summary:\n1. adds numbers")
			if tt.wantSources {
				assert.Contains(t, prompt, "Original Source Files for Reference:\nFile: app.py\ndef f(): pass")
			} else {
				assert.NotContains(t, prompt, "Original Source Files")
			}
		})
	}
}

func TestGenerateFullTestCodeConfiguredDefault(t *testing.T) {
	model := &mockModel{response: "ok"}
	gen := New(log.NewWithWriter(io.Discard, false), model, Options{DefaultFramework: "Vitest"})

	_, err := gen.GenerateFullTestCode(context.Background(), "summary", "", nil)
	require.NoError(t, err)
	assert.Contains(t, model.prompts[0], "fully working Vitest test code")
}

func TestGenerateFullTestCodeMissingSummary(t *testing.T) {
	model := &mockModel{response: "unused"}
	gen := newTestGenerator(model)

	for _, summary := range []string{"", "   \n"} {
		_, err := gen.GenerateFullTestCode(context.Background(), summary, "Jest", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrMissingSummary))
		assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))
	}
	assert.Empty(t, model.prompts)
}

func TestGenerateSurfacesRateLimit(t *testing.T) {
	model := &mockModel{err: apperr.RateLimit(rateLimitMessage, errors.New("quota"))}
	gen := newTestGenerator(model)

	_, err := gen.GenerateFullTestCode(context.Background(), "summary", "", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperr.StatusCode(err))
}

func TestGenerateWrapsUnclassifiedErrors(t *testing.T) {
	model := &mockModel{err: io.ErrUnexpectedEOF}
	gen := newTestGenerator(model)

	_, err := gen.GenerateTestSummary(context.Background(), []File{{Path: "a.go"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusCode(err))
}

func TestRatePacingHonoursContext(t *testing.T) {
	model := &mockModel{response: "ok"}
	gen := New(log.NewWithWriter(io.Discard, false), model, Options{RatePerMinute: 1})

	_, err := gen.GenerateTestSummary(context.Background(), []File{{Path: "a.go"}})
	require.NoError(t, err)

	// The second call would wait a minute; a cancelled context fails fast
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.GenerateTestSummary(ctx, []File{{Path: "a.go"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, apperr.StatusCode(err))
	assert.Len(t, model.prompts, 1)
}
