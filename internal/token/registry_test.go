package token

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryYAML = `
chain_id: 11155111
tokens:
  - symbol: USDC
    address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
    decimals: 6
    vault: "0x00000000000000000000000000000000000000aa"
    strategies:
      aave-mock: "0x00000000000000000000000000000000000000bb"
  - symbol: WBTC
    address: "0x29f2D40B0605204364af54EC677bD022dA425d03"
    decimals: 8
  - symbol: weth
    address: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"
    decimals: 18
    vault: "0x0000000000000000000000000000000000000000"
`

func TestParseRegistry(t *testing.T) {
	r, err := ParseRegistry([]byte(registryYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(11155111), r.ChainID())

	usdc, err := r.Lookup("usdc")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), usdc.Decimals)
	assert.True(t, usdc.HasVault())
	assert.Contains(t, usdc.Strategies, "aave-mock")

	wbtc, err := r.Lookup("WBTC")
	require.NoError(t, err)
	assert.False(t, wbtc.HasVault())

	weth, err := r.Lookup("WETH")
	require.NoError(t, err)
	assert.False(t, weth.HasVault(), "zero address is the not-deployed sentinel")

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "USDC", all[0].Symbol)
}

func TestParseRegistry_Errors(t *testing.T) {
	tests := map[string]string{
		"bad decimals":   "tokens:\n  - {symbol: X, address: \"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238\", decimals: 9}",
		"bad address":    "tokens:\n  - {symbol: X, address: \"nope\", decimals: 6}",
		"bad vault":      "tokens:\n  - {symbol: X, address: \"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238\", decimals: 6, vault: \"0x12\"}",
		"no symbol":      "tokens:\n  - {address: \"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238\", decimals: 6}",
		"duplicate":      "tokens:\n  - {symbol: X, address: \"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238\", decimals: 6}\n  - {symbol: x, address: \"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238\", decimals: 6}",
		"malformed yaml": "tokens: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Lookup("DAI")
	require.ErrorIs(t, err, common.ErrUnknownToken)
}

func TestLoadRegistry_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))

	r, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, r.All(), 3)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
