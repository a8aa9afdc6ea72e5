// File: cmd/banner.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

var (
	passColor  = lipgloss.Color("#00D26A")
	failColor  = lipgloss.Color("#FF3838")
	mutedColor = lipgloss.Color("#6B7280")

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder())

	detailStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// renderBanner prints a boxed verdict using the color profile lipgloss
// detects for the process.
func renderBanner(w io.Writer, result *verify.Result) {
	if result == nil {
		return
	}
	fmt.Fprintln(w, bannerText(result))
}

func bannerText(result *verify.Result) string {
	color, title := passColor, "CONTRAST VERIFY PASSED"
	if !result.Passed() {
		color, title = failColor, "CONTRAST VERIFY FAILED"
	}

	var details []string
	if result.Source == verify.SourcePolicy && result.PolicyName != "" {
		details = append(details, fmt.Sprintf("policy %q", result.PolicyName))
	}
	if result.VulnerabilityCount != nil {
		details = append(details, fmt.Sprintf("%d open / threshold %d", *result.VulnerabilityCount, result.Threshold))
	}
	if result.BuildNumber != "" {
		details = append(details, "build "+result.BuildNumber)
	}

	body := lipgloss.NewStyle().Foreground(color).Render(title)
	if len(details) > 0 {
		body = lipgloss.JoinVertical(lipgloss.Left, body, detailStyle.Render(strings.Join(details, " · ")))
	}
	return bannerStyle.BorderForeground(color).Render(body)
}
