package server

import "alphatrend/internal/domain"

type dashboardResponse struct {
	Snapshot *snapshotJSON `json:"snapshot"`
	Tokens   []tokenJSON   `json:"tokens"`
	Metas    []metaJSON    `json:"metas"`
	Chains   []chainJSON   `json:"chains"`
}

type regimeResponse struct {
	SnapshotID  string `json:"snapshot_id"`
	TimestampMs int64  `json:"timestamp_ms"`
	Regime      string `json:"regime"`
}

type cycleResponse struct {
	SnapshotID      string `json:"snapshot_id"`
	Regime          string `json:"regime"`
	TokensPublished int    `json:"tokens_published"`
	TokensRejected  int    `json:"tokens_rejected"`
	MetasPublished  int    `json:"metas_published"`
	MetasSuppressed int    `json:"metas_suppressed"`
	DurationMs      int64  `json:"duration_ms"`
}

type snapshotJSON struct {
	SnapshotID      string         `json:"snapshot_id"`
	TimestampMs     int64          `json:"timestamp_ms"`
	Regime          string         `json:"regime"`
	TotalTokens     int            `json:"total_tokens"`
	TotalMetas      int            `json:"total_metas"`
	ChainHeat       map[string]int `json:"chain_heat"`
	TopGainers      []string       `json:"top_gainers"`
	TopLosers       []string       `json:"top_losers"`
	NewEntrants     []string       `json:"new_entrants"`
	RisingMetas     []string       `json:"rising_metas"`
	FallingMetas    []string       `json:"falling_metas"`
	IsComplete      bool           `json:"is_complete"`
	ComputeTimeMs   int64          `json:"compute_time_ms"`
	TokensRejected  int            `json:"tokens_rejected"`
	MetasSuppressed int            `json:"metas_suppressed"`
}

func toSnapshotJSON(s *domain.Snapshot) *snapshotJSON {
	heat := make(map[string]int, len(s.ChainHeat))
	for c, h := range s.ChainHeat {
		heat[string(c)] = h
	}
	return &snapshotJSON{
		SnapshotID:      s.SnapshotID,
		TimestampMs:     s.TimestampMs,
		Regime:          string(s.Regime),
		TotalTokens:     s.TotalTokens,
		TotalMetas:      s.TotalMetas,
		ChainHeat:       heat,
		TopGainers:      s.TopGainers,
		TopLosers:       s.TopLosers,
		NewEntrants:     s.NewEntrants,
		RisingMetas:     s.RisingMetas,
		FallingMetas:    s.FallingMetas,
		IsComplete:      s.IsComplete,
		ComputeTimeMs:   s.ComputeTimeMs,
		TokensRejected:  s.TokensRejected,
		MetasSuppressed: s.MetasSuppressed,
	}
}

type featureScoresJSON struct {
	Attention   int `json:"attention"`
	Liquidity   int `json:"liquidity"`
	Whale       int `json:"whale"`
	Engineering int `json:"engineering"`
	Coherence   int `json:"coherence"`
}

type tokenJSON struct {
	TokenID        string            `json:"token_id"`
	SnapshotID     string            `json:"snapshot_id"`
	Chain          string            `json:"chain"`
	Address        string            `json:"address"`
	Symbol         string            `json:"symbol"`
	Name           string            `json:"name"`
	Price          float64           `json:"price"`
	PriceChange24h float64           `json:"price_change_24h"`
	MarketCap      float64           `json:"market_cap"`
	Liquidity      float64           `json:"liquidity"`
	Volume24h      float64           `json:"volume_24h"`
	Holders        int64             `json:"holders"`
	Scores         featureScoresJSON `json:"scores"`
	CompositeScore int               `json:"composite_score"`
	Lifecycle      string            `json:"lifecycle"`
	Integrity      string            `json:"integrity"`
	FirstSeen      bool              `json:"first_seen"`
	TimestampMs    int64             `json:"timestamp_ms"`
}

func toTokenJSON(t *domain.TokenOutput) tokenJSON {
	return tokenJSON{
		TokenID:        t.TokenID,
		SnapshotID:     t.SnapshotID,
		Chain:          string(t.Chain),
		Address:        t.Address,
		Symbol:         t.Symbol,
		Name:           t.Name,
		Price:          t.Price,
		PriceChange24h: t.PriceChange24h,
		MarketCap:      t.MarketCap,
		Liquidity:      t.Liquidity,
		Volume24h:      t.Volume24h,
		Holders:        t.Holders,
		Scores: featureScoresJSON{
			Attention:   t.Scores.Attention,
			Liquidity:   t.Scores.Liquidity,
			Whale:       t.Scores.Whale,
			Engineering: t.Scores.Engineering,
			Coherence:   t.Scores.Coherence,
		},
		CompositeScore: t.CompositeScore,
		Lifecycle:      string(t.Lifecycle),
		Integrity:      string(t.Integrity),
		FirstSeen:      t.FirstSeen,
		TimestampMs:    t.SnapshotTimestampMs,
	}
}

func toTokensJSON(tokens []*domain.TokenOutput) []tokenJSON {
	out := make([]tokenJSON, len(tokens))
	for i, t := range tokens {
		out[i] = toTokenJSON(t)
	}
	return out
}

type metaJSON struct {
	MetaID               string   `json:"meta_id"`
	SnapshotID           string   `json:"snapshot_id"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	TokenIDs             []string `json:"token_ids"`
	TokenCount           int      `json:"token_count"`
	AvgCompositeScore    int      `json:"avg_composite_score"`
	AvgAttention         int      `json:"avg_attention"`
	AvgLiquidity         int      `json:"avg_liquidity"`
	CapitalFlow          float64  `json:"capital_flow"`
	Momentum             int      `json:"momentum"`
	CoherenceScore       int      `json:"coherence_score"`
	Lifecycle            string   `json:"lifecycle"`
	Integrity            string   `json:"integrity"`
	Chains               []string `json:"chains"`
	IsCrossChain         bool     `json:"is_cross_chain"`
	PersistenceSnapshots int      `json:"persistence_snapshots"`
	TimestampMs          int64    `json:"timestamp_ms"`
}

func toMetaJSON(m *domain.MetaOutput) metaJSON {
	chains := make([]string, len(m.Chains))
	for i, c := range m.Chains {
		chains[i] = string(c)
	}
	return metaJSON{
		MetaID:               m.MetaID,
		SnapshotID:           m.SnapshotID,
		Name:                 m.Name,
		Description:          m.Description,
		TokenIDs:             m.TokenIDs,
		TokenCount:           m.TokenCount,
		AvgCompositeScore:    m.AvgCompositeScore,
		AvgAttention:         m.AvgAttention,
		AvgLiquidity:         m.AvgLiquidity,
		CapitalFlow:          m.CapitalFlow,
		Momentum:             m.Momentum,
		CoherenceScore:       m.CoherenceScore,
		Lifecycle:            string(m.Lifecycle),
		Integrity:            string(m.Integrity),
		Chains:               chains,
		IsCrossChain:         m.IsCrossChain,
		PersistenceSnapshots: m.PersistenceSnapshots,
		TimestampMs:          m.SnapshotTimestampMs,
	}
}

func toMetasJSON(metas []*domain.MetaOutput) []metaJSON {
	out := make([]metaJSON, len(metas))
	for i, m := range metas {
		out[i] = toMetaJSON(m)
	}
	return out
}

type chainJSON struct {
	SnapshotID     string  `json:"snapshot_id"`
	Chain          string  `json:"chain"`
	HeatScore      int     `json:"heat_score"`
	DominantDriver string  `json:"dominant_driver"`
	EligibleTokens int     `json:"eligible_tokens"`
	CapitalShare   float64 `json:"capital_share"`
}

func toChainsJSON(chains []*domain.ChainOutput) []chainJSON {
	out := make([]chainJSON, len(chains))
	for i, c := range chains {
		out[i] = chainJSON{
			SnapshotID:     c.SnapshotID,
			Chain:          string(c.Chain),
			HeatScore:      c.HeatScore,
			DominantDriver: string(c.DominantDriver),
			EligibleTokens: c.EligibleTokens,
			CapitalShare:   c.CapitalShare,
		}
	}
	return out
}

type scorePointJSON struct {
	TokenID        string  `json:"token_id"`
	SnapshotID     string  `json:"snapshot_id"`
	TimestampMs    int64   `json:"timestamp_ms"`
	Chain          string  `json:"chain"`
	Attention      int     `json:"attention"`
	Liquidity      int     `json:"liquidity"`
	Whale          int     `json:"whale"`
	Engineering    int     `json:"engineering"`
	Coherence      int     `json:"coherence"`
	CompositeScore int     `json:"composite_score"`
	Lifecycle      string  `json:"lifecycle"`
	Integrity      string  `json:"integrity"`
	Price          float64 `json:"price"`
}

func toScorePointJSON(p *domain.ScorePoint) scorePointJSON {
	return scorePointJSON{
		TokenID:        p.TokenID,
		SnapshotID:     p.SnapshotID,
		TimestampMs:    p.TimestampMs,
		Chain:          string(p.Chain),
		Attention:      p.Attention,
		Liquidity:      p.Liquidity,
		Whale:          p.Whale,
		Engineering:    p.Engineering,
		Coherence:      p.Coherence,
		CompositeScore: p.CompositeScore,
		Lifecycle:      string(p.Lifecycle),
		Integrity:      string(p.Integrity),
		Price:          p.Price,
	}
}

type flowPointJSON struct {
	MetaID            string  `json:"meta_id"`
	SnapshotID        string  `json:"snapshot_id"`
	TimestampMs       int64   `json:"timestamp_ms"`
	CapitalFlow       float64 `json:"capital_flow"`
	Momentum          int     `json:"momentum"`
	AvgCompositeScore int     `json:"avg_composite_score"`
	TokenCount        int     `json:"token_count"`
}

func toFlowPointJSON(p *domain.FlowPoint) flowPointJSON {
	return flowPointJSON{
		MetaID:            p.MetaID,
		SnapshotID:        p.SnapshotID,
		TimestampMs:       p.TimestampMs,
		CapitalFlow:       p.CapitalFlow,
		Momentum:          p.Momentum,
		AvgCompositeScore: p.AvgCompositeScore,
		TokenCount:        p.TokenCount,
	}
}
