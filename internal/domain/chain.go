package domain

// Chain identifies a tracked blockchain.
type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainBase     Chain = "base"
	ChainEthereum Chain = "ethereum"
	ChainBNB      Chain = "bnb"
)

// AllChains lists tracked chains in stable iteration order.
var AllChains = []Chain{ChainSolana, ChainBase, ChainEthereum, ChainBNB}

// Valid reports whether c is one of the tracked chains.
func (c Chain) Valid() bool {
	switch c {
	case ChainSolana, ChainBase, ChainEthereum, ChainBNB:
		return true
	}
	return false
}

// ChainDriver labels the dominant contribution behind a chain's heat score.
type ChainDriver string

const (
	DriverAttention   ChainDriver = "attention"
	DriverCapital     ChainDriver = "capital"
	DriverEngineering ChainDriver = "engineering"
)

// ChainOutput is the per-chain rollup for one snapshot.
type ChainOutput struct {
	SnapshotID     string
	Chain          Chain
	HeatScore      int // 0-100, neutral default when no eligible tokens
	DominantDriver ChainDriver
	EligibleTokens int
	CapitalShare   float64 // percent of total tracked capital
}
