package paygate

import (
	"errors"
)

var (
	ErrOrderNotOpen     = errors.New("order_not_pending")
	ErrNullOrderId      = errors.New("null_order_id")
	ErrNullUserId       = errors.New("null_user_id")
	ErrNullTxHash       = errors.New("null_tx_hash")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidAddress   = errors.New("invalid_address")
	ErrInvalidPayMethod = errors.New("invalid_payment_method")
)
