package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"alphatrend/internal/domain"
)

// ComputeTokenID computes the deterministic token identity using SHA256.
// Formula: SHA256(chain|address). EVM addresses are lowercased first so
// checksum casing does not split a token's history.
// Returns hex-encoded hash (64 characters).
func ComputeTokenID(chain domain.Chain, address string) string {
	if chain != domain.ChainSolana {
		address = strings.ToLower(address)
	}
	data := fmt.Sprintf("%s|%s", string(chain), address)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeMetaID computes the deterministic cluster identity using SHA256.
// Formula: SHA256(lower(trim(name))). The same narrative keeps the same id
// across cycles regardless of label casing.
// Returns hex-encoded hash (64 characters).
func ComputeMetaID(name string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	return hex.EncodeToString(hash[:])
}
