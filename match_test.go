package paygate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/web3pay/paygate/schema"
)

func TestParseUnits(t *testing.T) {
	wei, err := parseUnits("0.001", 18)
	assert.NoError(t, err)
	assert.Equal(t, "1000000000000000", wei.String())

	units, err := parseUnits("100", 6)
	assert.NoError(t, err)
	assert.Equal(t, "100000000", units.String())

	// more fractional digits than the token supports
	_, err = parseUnits("0.0000001", 6)
	assert.Equal(t, schema.ErrAmountPrecision, err)

	_, err = parseUnits("abc", 18)
	assert.Error(t, err)
}

func TestAmountWithinTolerance(t *testing.T) {
	tol, err := parseUnits("0.0001", 18)
	assert.NoError(t, err)
	expected, err := parseUnits("0.001", 18)
	assert.NoError(t, err)

	// exact and overpayment always pass
	assert.True(t, amountWithinTolerance(expected, expected, tol))
	over, _ := parseUnits("0.002", 18)
	assert.True(t, amountWithinTolerance(over, expected, tol))

	// underpaid by exactly the tolerance passes
	actual, _ := parseUnits("0.0009", 18)
	assert.True(t, amountWithinTolerance(actual, expected, tol))

	// one step beyond fails
	actual, _ = parseUnits("0.00089", 18)
	assert.False(t, amountWithinTolerance(actual, expected, tol))

	// zero tolerance means exact match only
	under := new(big.Int).Sub(expected, big.NewInt(1))
	assert.False(t, amountWithinTolerance(under, expected, big.NewInt(0)))
	assert.True(t, amountWithinTolerance(expected, expected, big.NewInt(0)))
}

func TestRegistryTolerance(t *testing.T) {
	s := newTestPaygate(t, newMockReader())

	tol := s.registry.Tolerance("ETH")
	assert.Equal(t, "100000000000000", tol.String())
	tol = s.registry.Tolerance("usdt")
	assert.Equal(t, "100000", tol.String())
	// unknown symbols get exact-match semantics
	assert.Equal(t, "0", s.registry.Tolerance("DOGE").String())
}
