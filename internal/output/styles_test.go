package output

import (
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

func TestStatusStyle(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		wantBold bool
		wantFG   lipgloss.Color
		wantDim  bool
	}{
		{
			name:   "passed returns green",
			status: StatusPassed,
			wantFG: colorGreen,
		},
		{
			name:   "planned returns yellow",
			status: StatusPlanned,
			wantFG: ColorYellow,
		},
		{
			name:    "skipped returns faint",
			status:  StatusSkipped,
			wantDim: true,
		},
		{
			name:     "failed returns bold red",
			status:   StatusFailed,
			wantBold: true,
			wantFG:   colorBoldRed,
		},
		{
			name:   "unknown returns default unstyled",
			status: "unknown-value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := statusStyle(tt.status)
			if tt.wantBold {
				assert.True(t, style.GetBold(), "expected bold")
			}
			if tt.wantFG != "" {
				assert.Equal(t, tt.wantFG, style.GetForeground(), "foreground color mismatch")
			}
			if tt.wantDim {
				assert.True(t, style.GetFaint(), "expected faint")
			}
		})
	}
}

func TestFormatStepLine(t *testing.T) {
	t.Run("content", func(t *testing.T) {
		result := stripAnsi(FormatStepLine("upload", StatusFailed, "exit status 1"))
		assert.True(t, strings.HasPrefix(result, "s:upload"))
		assert.Contains(t, result, StatusFailed)
		assert.True(t, strings.HasSuffix(result, "exit status 1"))
	})

	t.Run("no detail has no trailing whitespace", func(t *testing.T) {
		result := stripAnsi(FormatStepLine("clean", StatusPassed, ""))
		assert.False(t, strings.HasSuffix(result, " "))
	})

	t.Run("alignment consistency", func(t *testing.T) {
		line1 := stripAnsi(FormatStepLine("check", StatusPassed, ""))
		line2 := stripAnsi(FormatStepLine("bootstrap", StatusPassed, ""))
		assert.Equal(t, strings.Index(line1, StatusPassed), strings.Index(line2, StatusPassed))
	})
}

func TestFormatCheckmark(t *testing.T) {
	result := FormatCheckmark("Released 0.1.1")
	assert.Contains(t, result, "✔")
	assert.Contains(t, result, "Released 0.1.1")
}

func TestFormatVetCheck(t *testing.T) {
	withDetail := stripAnsi(FormatVetCheck("Config file found", "~/.pkrelease/config.yaml"))
	assert.Contains(t, withDetail, "~/.pkrelease/config.yaml")

	withoutDetail := stripAnsi(FormatVetCheck("Schema validation passed", ""))
	assert.False(t, strings.HasSuffix(withoutDetail, " "))

	line1 := stripAnsi(FormatVetCheck("Config file found", "a"))
	line2 := stripAnsi(FormatVetCheck("Schema validation passed", "a"))
	assert.Equal(t, strings.LastIndex(line1, "a"), strings.LastIndex(line2, "a"))
}
