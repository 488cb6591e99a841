package domain

// RawTokenMetrics is one token's raw market metrics as supplied by the
// ingestion collaborator for one cycle. The engine never fetches these
// itself; it is a pure transform over whatever the batch contains.
type RawTokenMetrics struct {
	TokenID string `json:"token_id"`
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`

	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"price_change_24h"`
	MarketCap      float64 `json:"market_cap"`
	Liquidity      float64 `json:"liquidity"`
	Volume24h      float64 `json:"volume_24h"`
	Holders        int64   `json:"holders"`

	// Attention signals.
	SocialMentions  float64 `json:"social_mentions"`
	SocialVelocity  float64 `json:"social_velocity"`  // mentions/hour change rate
	AuthorDiversity float64 `json:"author_diversity"` // 0..1, unique authors / mentions

	// Whale signals.
	TopHolderShare    float64 `json:"top_holder_share"`    // 0..1, top-10 holder share
	SmartWalletShare  float64 `json:"smart_wallet_share"`  // 0..1, smart-wallet overlap
	WashTradeRatio    float64 `json:"wash_trade_ratio"`    // 0..1, suspected wash volume
	SybilHolderRatio  float64 `json:"sybil_holder_ratio"`  // 0..1, suspected sybil holders
	PriceChange1h     float64 `json:"price_change_1h"`     // percent
	PriceChange6h     float64 `json:"price_change_6h"`     // percent
}

// RawMetaInput is one tentative cluster from the ingestion batch. Cluster
// detection, capital flow, and momentum are computed upstream; the engine
// validates, gates, and aggregates but never invents membership.
type RawMetaInput struct {
	MetaID      string   `json:"meta_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TokenIDs    []string `json:"token_ids"`

	CapitalFlow    float64 `json:"capital_flow"`
	Momentum       int     `json:"momentum"` // -100..100
	CoherenceScore int     `json:"coherence_score"`
}

// Batch is one cycle's complete ingestion payload.
type Batch struct {
	ObservedAtMs int64             `json:"observed_at_ms"`
	Tokens       []RawTokenMetrics `json:"tokens"`
	Metas        []RawMetaInput    `json:"metas"`
}
