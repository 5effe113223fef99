package paygate

import (
	"fmt"

	cfgSchema "github.com/web3pay/paygate/config/schema"
	"github.com/web3pay/paygate/schema"
)

// PaymentURI builds the EIP-681 style link a wallet can pay an order with.
// Native: ethereum:<recipient>@<chainId>?value=<wei>
// ERC-20: ethereum:<contract>@<chainId>/transfer?address=<recipient>&uint256=<units>
func PaymentURI(ord schema.Order, token cfgSchema.TokenConfig) (string, error) {
	amount, err := parseUnits(ord.Amount, token.Decimals)
	if err != nil {
		return "", err
	}
	if token.IsNative {
		return fmt.Sprintf("ethereum:%s@%d?value=%s", ord.RecipientAddress, ord.ChainId, amount.String()), nil
	}
	return fmt.Sprintf("ethereum:%s@%d/transfer?address=%s&uint256=%s",
		token.ContractAddress, ord.ChainId, ord.RecipientAddress, amount.String()), nil
}
