package reporting

import (
	"fmt"
	"strings"
)

// RenderTokenCSV renders token rows as CSV string.
func RenderTokenCSV(tokens []TokenRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("token_id,symbol,chain,composite_score,attention,liquidity,whale,engineering,coherence,")
	sb.WriteString("lifecycle,integrity,price_change_24h,first_seen\n")

	// Rows
	for _, t := range tokens {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%d,%d,%d,%s,%s,%.4f,%t\n",
			t.TokenID,
			t.Symbol,
			t.Chain,
			t.CompositeScore,
			t.Attention,
			t.Liquidity,
			t.Whale,
			t.Engineering,
			t.Coherence,
			t.Lifecycle,
			t.Integrity,
			t.PriceChange24h,
			t.FirstSeen,
		))
	}

	return sb.String()
}

// RenderMetaCSV renders meta rows as CSV string.
func RenderMetaCSV(metas []MetaRow) string {
	var sb strings.Builder

	sb.WriteString("meta_id,name,token_count,avg_composite_score,momentum,capital_flow,")
	sb.WriteString("lifecycle,integrity,is_cross_chain,persistence_snapshots\n")

	for _, m := range metas {
		// Quote the name: narrative labels may contain commas.
		sb.WriteString(fmt.Sprintf("%s,%q,%d,%d,%d,%.4f,%s,%s,%t,%d\n",
			m.MetaID,
			m.Name,
			m.TokenCount,
			m.AvgCompositeScore,
			m.Momentum,
			m.CapitalFlow,
			m.Lifecycle,
			m.Integrity,
			m.IsCrossChain,
			m.PersistenceSnapshots,
		))
	}

	return sb.String()
}
