package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestLoggerKinds(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)

	logger.Success("created PR #%d", 7)
	logger.Branch("branch %s", "auto-test-1")
	logger.Error("boom")

	out := buf.String()
	assert.Contains(t, out, successEmoji+"created PR #7")
	assert.Contains(t, out, branchEmoji+"branch auto-test-1")
	assert.Contains(t, out, errorEmoji+"boom")
}

func TestDebugRespectsFlag(t *testing.T) {
	var quiet, loud bytes.Buffer

	NewWithWriter(&quiet, false).Debug("hidden")
	NewWithWriter(&loud, true).Debug("shown")

	assert.Empty(t, quiet.String())
	assert.Contains(t, loud.String(), "shown")
	assert.True(t, NewWithWriter(&loud, true).IsDebug())
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false).WithField("request_id", "abc")

	logger.Info("hello")

	assert.Contains(t, buf.String(), "hello request_id=abc")
	assert.NotContains(t, buf.String(), "kind=")
}

func TestFormatMessageWraps(t *testing.T) {
	long := strings.Repeat("word ", 30)
	wrapped := formatMessage(long)

	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), 80)
	}
	assert.Equal(t, "short", formatMessage("short"))
}
