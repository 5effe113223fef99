package config

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/web3pay/paygate/config/schema"
)

func TestNewSeedsAndLoads(t *testing.T) {
	dir := t.TempDir()
	c := New("", dir, true, "")
	defer c.Close()

	// the db file lands inside the given directory
	_, err := os.Stat(path.Join(dir, sqliteName))
	assert.NoError(t, err)

	assert.NotEmpty(t, c.Networks())
	assert.NotEmpty(t, c.Tokens())

	eth, ok := c.GetToken("eth")
	assert.True(t, ok)
	assert.True(t, eth.IsNative)
	assert.Equal(t, "0.0001", eth.Tolerance)

	usdt, ok := c.GetToken("USDT")
	assert.True(t, ok)
	assert.Equal(t, 6, usdt.Decimals)
	assert.Equal(t, "0.1", usdt.Tolerance)

	mainnet, ok := c.GetNetwork(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), mainnet.RequiredConfirmations)

	_, ok = c.GetNetwork(999)
	assert.False(t, ok)
}

func TestOverrideFile(t *testing.T) {
	dir := t.TempDir()
	overridePath := path.Join(dir, "override.json")
	raw := `{
		"networks": [
			{"chainId": 1, "rpcUrls": ["http://127.0.0.1:8545"], "requiredConfirmations": 12}
		],
		"tokens": [
			{"symbol": "usdt", "tolerance": "0.5"}
		]
	}`
	assert.NoError(t, os.WriteFile(overridePath, []byte(raw), 0644))

	c := New("", dir, true, overridePath)
	defer c.Close()

	mainnet, ok := c.GetNetwork(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(12), mainnet.RequiredConfirmations)
	assert.Equal(t, `["http://127.0.0.1:8545"]`, string(mainnet.RpcUrls))

	usdt, ok := c.GetToken("USDT")
	assert.True(t, ok)
	assert.Equal(t, "0.5", usdt.Tolerance)

	// untouched rows keep their seeded values
	base, ok := c.GetNetwork(8453)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), base.RequiredConfirmations)
}

func TestValidate(t *testing.T) {
	networks := []schema.NetworkConfig{
		{ChainId: 1, RequiredConfirmations: 3, RpcUrls: mustUrls("http://127.0.0.1:8545")},
	}
	tokens := []schema.TokenConfig{
		{Symbol: "ETH", Decimals: 18, IsNative: true},
		{Symbol: "USDT", Decimals: 6, ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
	}
	assert.NoError(t, Validate(networks, tokens))

	assert.Error(t, Validate(nil, tokens))

	dup := append(networks, networks[0])
	assert.Error(t, Validate(dup, tokens))

	zeroConf := []schema.NetworkConfig{
		{ChainId: 1, RequiredConfirmations: 0, RpcUrls: mustUrls("http://127.0.0.1:8545")},
	}
	assert.Error(t, Validate(zeroConf, tokens))

	noUrls := []schema.NetworkConfig{{ChainId: 1, RequiredConfirmations: 3}}
	assert.Error(t, Validate(noUrls, tokens))

	noContract := []schema.TokenConfig{{Symbol: "USDT", Decimals: 6}}
	assert.Error(t, Validate(networks, noContract))

	nativeWithContract := []schema.TokenConfig{
		{Symbol: "ETH", Decimals: 18, IsNative: true, ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
	}
	assert.Error(t, Validate(networks, nativeWithContract))
}
