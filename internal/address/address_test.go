package address

import (
	"strings"
	"testing"

	"alphatrend/internal/domain"
)

func TestValidate_Solana(t *testing.T) {
	// Wrapped SOL mint, a canonical 32-byte key.
	if err := Validate(domain.ChainSolana, "So11111111111111111111111111111111111111112"); err != nil {
		t.Errorf("expected valid solana address, got %v", err)
	}
	if err := Validate(domain.ChainSolana, "not-base58-0OIl"); err == nil {
		t.Error("expected error for non-base58 input")
	}
	// Decodes fine but too short to be a key.
	if err := Validate(domain.ChainSolana, "abc"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestValidate_EVM(t *testing.T) {
	valid := "0x1234567890abcdef1234567890abcdef12345678"
	for _, chain := range []domain.Chain{domain.ChainEthereum, domain.ChainBase, domain.ChainBNB} {
		if err := Validate(chain, valid); err != nil {
			t.Errorf("%s: expected valid address, got %v", chain, err)
		}
	}

	cases := []string{
		"1234567890abcdef1234567890abcdef12345678",     // no prefix
		"0x1234567890abcdef1234567890abcdef123456",     // too short
		"0x1234567890abcdef1234567890abcdef1234567890", // too long
		"0x1234567890abcdef1234567890abcdef1234567g",   // bad hex
	}
	for _, addr := range cases {
		if err := Validate(domain.ChainEthereum, addr); err == nil {
			t.Errorf("expected error for %q", addr)
		}
	}
}

func TestValidate_UnknownChain(t *testing.T) {
	if err := Validate(domain.Chain("tron"), "anything"); err == nil {
		t.Error("expected error for unsupported chain")
	}
}

func TestSolanaFromSeed(t *testing.T) {
	a := SolanaFromSeed("token-1")
	b := SolanaFromSeed("token-1")
	if a != b {
		t.Errorf("derivation not deterministic: %s vs %s", a, b)
	}
	if a == SolanaFromSeed("token-2") {
		t.Error("distinct seeds must derive distinct addresses")
	}
	if err := Validate(domain.ChainSolana, a); err != nil {
		t.Errorf("derived address must validate, got %v", err)
	}
}

func TestEVMFromSeed(t *testing.T) {
	a := EVMFromSeed("token-1")
	if a != EVMFromSeed("token-1") {
		t.Error("derivation not deterministic")
	}
	if !strings.HasPrefix(a, "0x") || len(a) != 42 {
		t.Errorf("expected 0x-prefixed 40-hex address, got %q", a)
	}
	if err := Validate(domain.ChainEthereum, a); err != nil {
		t.Errorf("derived address must validate, got %v", err)
	}
}
