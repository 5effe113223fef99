package schema

import (
	"errors"
)

var (
	ErrNotExist = errors.New("not_exist_record")
	ErrNotFound = errors.New("not_found")

	ErrOrderNotFound  = errors.New("order_not_found")
	ErrStatusConflict = errors.New("order_status_conflict")

	ErrJobClosed = errors.New("job_closed")

	ErrUnsupportedNetwork = errors.New("unsupported_network")
	ErrUnsupportedToken   = errors.New("unsupported_token")
	ErrNoHealthyEndpoint  = errors.New("no_healthy_rpc_endpoint")
	ErrAmountPrecision    = errors.New("amount_precision_exceeds_decimals")
)

// Verification failure codes, one per protocol step. The verifier returns at
// the first failing step, so a result carries at most one of these.
const (
	CodeOrderNotFound      = "ORDER_NOT_FOUND"
	CodeOrderNotVerifiable = "ORDER_NOT_VERIFIABLE"
	CodeHashAlreadyUsed    = "HASH_ALREADY_USED"
	CodeTxNotFound         = "TX_NOT_FOUND"
	CodeReceiptNotFound    = "RECEIPT_NOT_FOUND"
	CodeTxFailed           = "TX_FAILED"
	CodeInsufficientConf   = "INSUFFICIENT_CONFIRMATIONS"
	CodeAddressMismatch    = "ADDRESS_MISMATCH"
	CodeAmountMismatch     = "AMOUNT_MISMATCH"
	CodeErc20DecodeError   = "ERC20_DECODE_ERROR"
	CodeErc20RecipientMism = "ERC20_RECIPIENT_MISMATCH"
	CodeErc20AmountMism    = "ERC20_AMOUNT_MISMATCH"
	CodeUnsupportedToken   = "UNSUPPORTED_TOKEN"
	CodeUnsupportedNetwork = "UNSUPPORTED_NETWORK"
	CodeRpcTransientError  = "RPC_TRANSIENT_ERROR"
	CodeMonitoringTimeout  = "MONITORING_TIMEOUT"
)
