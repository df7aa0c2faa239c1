package telegram

import (
	"fmt"
	"html"
	"strings"

	"aidigest/internal/digest"
	"aidigest/internal/score"
	"aidigest/internal/summary"
)

// How many scoring factors to show per article before collapsing the rest.
const maxFactorsShown = 3

// FormatDigest renders the digest as Telegram HTML. summaries is keyed by
// article URL; missing entries render without a summary line.
func FormatDigest(d *digest.Digest, summaries map[string]summary.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🤖 <b>AI News Digest</b> — %s\n", d.GeneratedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "<i>%d stories selected</i>\n\n", len(d.Articles))

	for i, a := range d.Articles {
		fmt.Fprintf(&b, "<b>%d. <a href=\"%s\">%s</a></b>\n",
			i+1, html.EscapeString(a.URL), html.EscapeString(a.Title))
		fmt.Fprintf(&b, "%s • score %d", html.EscapeString(a.Source), a.Score)

		if why := factorLine(a.Factors); why != "" {
			fmt.Fprintf(&b, " (%s)", why)
		}
		b.WriteString("\n")

		if s, ok := summaries[a.URL]; ok && s.Summary != "" && s.Summary != a.Title {
			fmt.Fprintf(&b, "%s\n", html.EscapeString(s.Summary))
		}
		b.WriteString("\n")
	}

	b.WriteString("#AI #TechNews #MachineLearning")
	return b.String()
}

func factorLine(factors []score.Factor) string {
	if len(factors) == 0 {
		return ""
	}
	if len(factors) > maxFactorsShown {
		factors = factors[:maxFactorsShown]
	}
	labels := make([]string, len(factors))
	for i, f := range factors {
		labels[i] = f.Label
	}
	return html.EscapeString(strings.Join(labels, ", "))
}
