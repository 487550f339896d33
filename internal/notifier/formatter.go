package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"VCPScanner/internal/model"
)

// maxListed caps how many candidates a scan message lists.
const maxListed = 10

// FormatScanReport formats a scan outcome into a Telegram message.
func FormatScanReport(report *model.ScanReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>VCP Scan</b> | %s\n\n", report.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Scanned: %d | Matched: %d | Skipped: %d\n\n",
		report.Scanned, len(report.Results), len(report.Skipped)))

	if len(report.Results) == 0 {
		b.WriteString("No contraction candidates today.\n")
	} else {
		b.WriteString("📈 <b>Candidates:</b>\n")
		for i, r := range report.Results {
			if i == maxListed {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(report.Results)-maxListed))
				break
			}
			b.WriteString(fmt.Sprintf("  %d. %s  $%.2f  vol %s  score %.3f\n",
				i+1, html.EscapeString(r.Symbol), r.Price, humanVolume(r.Volume), r.Score))
		}
	}

	if len(report.Skipped) > 0 {
		names := make([]string, 0, len(report.Skipped))
		for _, s := range report.Skipped {
			names = append(names, fmt.Sprintf("%s(%s)", s.Symbol, s.Kind))
		}
		b.WriteString(fmt.Sprintf("\n⚠️ Skipped: %s\n", html.EscapeString(strings.Join(names, ", "))))
	}
	b.WriteString(fmt.Sprintf("\n⏱ %s", report.Duration.Round(time.Millisecond)))
	return b.String()
}

// FormatAnalysis formats a single-symbol analysis.
func FormatAnalysis(a *model.Analysis) string {
	var b strings.Builder
	verdict := "❌ no VCP"
	if a.IsVCP {
		verdict = "✅ VCP"
	}
	b.WriteString(fmt.Sprintf("🔍 <b>%s</b> %s\n\n", html.EscapeString(a.Symbol), verdict))
	b.WriteString(fmt.Sprintf("Price: $%.2f\n", a.CurrentPrice))
	b.WriteString(fmt.Sprintf("Volume: %s\n", humanVolume(a.CurrentVolume)))
	b.WriteString(fmt.Sprintf("RSI(14): %.1f\n", a.RSI))
	if a.Reason != model.RejectNone {
		b.WriteString(fmt.Sprintf("Reason: %s\n", a.Reason))
	}
	if a.Breakdown != nil {
		b.WriteString("\n<b>Score breakdown:</b>\n")
		for _, f := range a.Breakdown.Factors {
			b.WriteString(fmt.Sprintf("  %s(%s): %.2f (×%.2f) = %.3f\n",
				f.Name, html.EscapeString(f.Commentary), f.RawScore, f.Weight, f.Weighted))
		}
	}
	b.WriteString(fmt.Sprintf("  Total: %.3f\n", a.Score))
	return b.String()
}

// FormatHelp lists the supported bot commands.
func FormatHelp() string {
	return "🤖 <b>VCP Scanner</b>\n\n" +
		"/scan - scan the watchlist now\n" +
		"/analyze SYMBOL - classify and score one symbol\n" +
		"/help - show this message"
}

func humanVolume(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
