package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

var (
	answerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// renderSolve formats one solve result for terminal output.
func renderSolve(result reasoning.SolveResult, verbose bool) string {
	var b strings.Builder

	answer := result.Final.Answer
	if result.Final.Undetermined() {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Answer:"), errStyle.Render(answer))
	} else {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Answer:"), answerStyle.Render(answer))
	}

	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Confidence:"), renderConfidence(result.Final.Confidence))
	fmt.Fprintf(&b, "%s %.0f%% agreement via %s", labelStyle.Render("Consensus:"),
		result.Final.AgreementRatio*100, result.Final.Method)
	if result.Final.ArbitrationUsed {
		b.WriteString(warnStyle.Render(" (arbitrated)"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Elapsed:"), result.Elapsed.Round(10*time.Millisecond))

	if result.Diagnostic != "" {
		fmt.Fprintf(&b, "%s %s\n", errStyle.Render("Diagnostic:"), result.Diagnostic)
	}
	if result.Optimization.State == reasoning.OptimizationMonitoring {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("Optimization: monitoring (%d recent failures)", result.Optimization.PendingFailures)))
	}

	if verbose {
		b.WriteString(sectionStyle.Render("Paths") + "\n")
		for _, p := range result.Final.Sources {
			status := p.Answer
			if p.Failed() {
				status = errStyle.Render(string(p.Failure))
			} else if !p.Extracted {
				status = dimStyle.Render("(no answer extracted)")
			}
			fmt.Fprintf(&b, "  %s %s/%s: %s %s\n",
				dimStyle.Render(fmt.Sprintf("[%d]", p.Seq)),
				p.Strategy, p.Variant, status,
				dimStyle.Render(fmt.Sprintf("q=%.2f %s", p.Quality, p.Latency.Round(10*time.Millisecond))))
		}
	}
	return b.String()
}

func renderConfidence(conf float64) string {
	text := fmt.Sprintf("%.2f", conf)
	switch {
	case conf >= 0.7:
		return answerStyle.Render(text)
	case conf >= 0.4:
		return warnStyle.Render(text)
	default:
		return errStyle.Render(text)
	}
}
