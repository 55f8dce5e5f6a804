// Package token describes the ERC-20 tokens the wallet knows about, the vault
// deployed for each, and the conversions between human amounts and the
// token's integer precision.
package token

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Token is one registry entry. A zero Vault means no vault is deployed yet.
type Token struct {
	Symbol     string
	Address    ethcommon.Address
	Decimals   uint8
	Vault      ethcommon.Address
	Strategies map[string]ethcommon.Address
}

// HasVault reports whether a live vault contract is configured.
func (t Token) HasVault() bool {
	return t.Vault != (ethcommon.Address{})
}

type registryFile struct {
	ChainID int64       `yaml:"chain_id"`
	Tokens  []tokenYAML `yaml:"tokens"`
}

type tokenYAML struct {
	Symbol     string            `yaml:"symbol"`
	Address    string            `yaml:"address"`
	Decimals   uint8             `yaml:"decimals"`
	Vault      string            `yaml:"vault"`
	Strategies map[string]string `yaml:"strategies"`
}

// Registry is an immutable symbol → Token index for a single chain.
type Registry struct {
	chainID int64
	tokens  map[string]Token
}

// NewRegistry indexes tokens by upper-cased symbol.
func NewRegistry(chainID int64, tokens ...Token) *Registry {
	r := &Registry{chainID: chainID, tokens: make(map[string]Token, len(tokens))}
	for _, t := range tokens {
		r.tokens[strings.ToUpper(t.Symbol)] = t
	}
	return r
}

// LoadRegistry reads a YAML registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry validates every entry: addresses must be hex, decimals must
// be one of 6, 8 or 18, symbols must be unique.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse token registry: %w", err)
	}

	tokens := make([]Token, 0, len(f.Tokens))
	seen := make(map[string]bool, len(f.Tokens))
	for _, raw := range f.Tokens {
		t, err := raw.toToken()
		if err != nil {
			return nil, err
		}
		key := strings.ToUpper(t.Symbol)
		if seen[key] {
			return nil, fmt.Errorf("token %s: duplicate symbol", t.Symbol)
		}
		seen[key] = true
		tokens = append(tokens, t)
	}

	return NewRegistry(f.ChainID, tokens...), nil
}

func (raw tokenYAML) toToken() (Token, error) {
	if raw.Symbol == "" {
		return Token{}, fmt.Errorf("token entry without symbol")
	}
	switch raw.Decimals {
	case 6, 8, 18:
	default:
		return Token{}, fmt.Errorf("token %s: unsupported decimals %d", raw.Symbol, raw.Decimals)
	}
	if !ethcommon.IsHexAddress(raw.Address) {
		return Token{}, fmt.Errorf("token %s: %w %q", raw.Symbol, common.ErrInvalidAddress, raw.Address)
	}

	t := Token{
		Symbol:     raw.Symbol,
		Address:    ethcommon.HexToAddress(raw.Address),
		Decimals:   raw.Decimals,
		Strategies: make(map[string]ethcommon.Address, len(raw.Strategies)),
	}
	if raw.Vault != "" {
		if !ethcommon.IsHexAddress(raw.Vault) {
			return Token{}, fmt.Errorf("token %s vault: %w %q", raw.Symbol, common.ErrInvalidAddress, raw.Vault)
		}
		t.Vault = ethcommon.HexToAddress(raw.Vault)
	}
	for name, addr := range raw.Strategies {
		if !ethcommon.IsHexAddress(addr) {
			return Token{}, fmt.Errorf("token %s strategy %s: %w %q", raw.Symbol, name, common.ErrInvalidAddress, addr)
		}
		t.Strategies[name] = ethcommon.HexToAddress(addr)
	}
	return t, nil
}

// ChainID is the chain the registry's addresses live on.
func (r *Registry) ChainID() int64 {
	return r.chainID
}

// Lookup finds a token by symbol, case-insensitively.
func (r *Registry) Lookup(symbol string) (Token, error) {
	t, ok := r.tokens[strings.ToUpper(symbol)]
	if !ok {
		return Token{}, fmt.Errorf("%w: %s", common.ErrUnknownToken, symbol)
	}
	return t, nil
}

// All returns the tokens sorted by symbol.
func (r *Registry) All() []Token {
	out := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
