package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Market Snapshot Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Snapshot: %s | Observed: %s\n\n",
		r.Snapshot.SnapshotID, time.UnixMilli(r.Snapshot.TimestampMs).UTC().Format(time.RFC3339)))

	// Cycle Summary
	sb.WriteString("## Cycle Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Regime | %s |\n", r.Snapshot.Regime))
	sb.WriteString(fmt.Sprintf("| Tokens | %d |\n", r.Snapshot.TotalTokens))
	sb.WriteString(fmt.Sprintf("| Metas | %d |\n", r.Snapshot.TotalMetas))
	sb.WriteString(fmt.Sprintf("| Tokens Rejected | %d |\n", r.Snapshot.TokensRejected))
	sb.WriteString(fmt.Sprintf("| Metas Suppressed | %d |\n", r.Snapshot.MetasSuppressed))
	sb.WriteString(fmt.Sprintf("| Compute Time (ms) | %d |\n", r.Snapshot.ComputeTimeMs))
	sb.WriteString("\n")

	// Chain Heat
	sb.WriteString("## Chain Heat\n\n")
	if len(r.Chains) > 0 {
		sb.WriteString("| Chain | Heat | Driver | Eligible | Capital Share |\n")
		sb.WriteString("|-------|------|--------|----------|---------------|\n")
		for _, c := range r.Chains {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %d | %.2f%% |\n",
				c.Chain, c.HeatScore, c.DominantDriver, c.EligibleTokens, c.CapitalShare))
		}
	} else {
		sb.WriteString("No chain data available.\n")
	}
	sb.WriteString("\n")

	// Published Metas
	sb.WriteString("## Published Metas\n\n")
	if len(r.Metas) > 0 {
		sb.WriteString("| Meta | Members | AvgScore | Momentum | Flow | Lifecycle | Integrity | CrossChain | Persistence |\n")
		sb.WriteString("|------|---------|----------|----------|------|-----------|-----------|------------|-------------|\n")
		for _, m := range r.Metas {
			cross := "no"
			if m.IsCrossChain {
				cross = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.0f | %s | %s | %s | %d |\n",
				m.Name, m.TokenCount, m.AvgCompositeScore, m.Momentum, m.CapitalFlow,
				m.Lifecycle, m.Integrity, cross, m.PersistenceSnapshots))
		}
	} else {
		sb.WriteString("No metas published this snapshot.\n")
	}
	sb.WriteString("\n")

	// Leaderboards
	sb.WriteString("## Leaderboards\n\n")
	writeLeaders(&sb, "Top Gainers", r.Leaders.TopGainers, "%+.2f%%")
	writeLeaders(&sb, "Top Losers", r.Leaders.TopLosers, "%+.2f%%")
	writeLeaders(&sb, "New Entrants", r.Leaders.NewEntrants, "%+.2f%%")
	writeLeaders(&sb, "Rising Metas", r.Leaders.RisingMetas, "%+.0f")
	writeLeaders(&sb, "Falling Metas", r.Leaders.FallingMetas, "%+.0f")

	// Token Table
	sb.WriteString("## Tokens\n\n")
	if len(r.Tokens) > 0 {
		sb.WriteString("| Symbol | Chain | Composite | Att | Liq | Whale | Eng | Coh | Lifecycle | Integrity | 24h | New |\n")
		sb.WriteString("|--------|-------|-----------|-----|-----|-------|-----|-----|-----------|-----------|-----|-----|\n")
		for _, t := range r.Tokens {
			isNew := ""
			if t.FirstSeen {
				isNew = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d | %d | %s | %s | %+.2f%% | %s |\n",
				t.Symbol, t.Chain, t.CompositeScore,
				t.Attention, t.Liquidity, t.Whale, t.Engineering, t.Coherence,
				t.Lifecycle, t.Integrity, t.PriceChange24h, isNew))
		}
	} else {
		sb.WriteString("No tokens in this snapshot.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeLeaders(sb *strings.Builder, title string, rows []LeaderRow, valueFormat string) {
	sb.WriteString(fmt.Sprintf("### %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("None.\n\n")
		return
	}
	for i, row := range rows {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, row.Label, fmt.Sprintf(valueFormat, row.Value)))
	}
	sb.WriteString("\n")
}
