package paygate

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/web3pay/paygate/schema"
)

// parseUnits scales a human-readable decimal amount to the asset's smallest
// integer unit. All downstream amount comparison happens on these integers;
// 18-decimal amounts do not fit float64's safe range.
func parseUnits(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, schema.ErrAmountPrecision
	}
	return scaled.BigInt(), nil
}

// amountWithinTolerance implements the settlement policy: overpayment always
// passes, underpayment passes only within tolerance.
func amountWithinTolerance(actual, expected, tolerance *big.Int) bool {
	if actual.Cmp(expected) >= 0 {
		return true
	}
	diff := new(big.Int).Sub(expected, actual)
	return diff.Cmp(tolerance) <= 0
}
