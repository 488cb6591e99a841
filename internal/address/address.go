// Package address validates token contract addresses per chain and
// derives deterministic on-curve solana addresses for synthetic data.
package address

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"alphatrend/internal/domain"
)

// Validate checks that addr is a well-formed contract address for chain.
// Solana addresses must be base58-decodable 32-byte keys; EVM chains take
// 0x-prefixed 40-hex-digit addresses (checksum casing not enforced).
func Validate(chain domain.Chain, addr string) error {
	switch chain {
	case domain.ChainSolana:
		return validateSolana(addr)
	case domain.ChainEthereum, domain.ChainBase, domain.ChainBNB:
		return validateEVM(addr)
	default:
		return fmt.Errorf("unknown chain %q", chain)
	}
}

func validateSolana(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("expected 32-byte key, got %d bytes", len(decoded))
	}
	return nil
}

func validateEVM(addr string) error {
	if !strings.HasPrefix(addr, "0x") {
		return fmt.Errorf("missing 0x prefix")
	}
	hexPart := addr[2:]
	if len(hexPart) != 40 {
		return fmt.Errorf("expected 40 hex digits, got %d", len(hexPart))
	}
	for _, r := range hexPart {
		if !isHexDigit(r) {
			return fmt.Errorf("non-hex character %q", r)
		}
	}
	return nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// SolanaFromSeed derives a deterministic valid solana address from an
// arbitrary seed string. The seed is hashed to a scalar and multiplied
// onto the base point, so the result is always an on-curve public key.
func SolanaFromSeed(seed string) string {
	hash := sha256.Sum256([]byte(seed))

	var wide [64]byte
	copy(wide[:], hash[:])
	scalar, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only rejects wrong-length input.
		panic(fmt.Sprintf("scalar from seed: %v", err))
	}

	point := new(edwards25519.Point).ScalarBaseMult(scalar)
	return base58.Encode(point.Bytes())
}

// EVMFromSeed derives a deterministic well-formed EVM address from an
// arbitrary seed string.
func EVMFromSeed(seed string) string {
	hash := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("0x%x", hash[:20])
}
