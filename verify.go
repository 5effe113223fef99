package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	cfgSchema "github.com/web3pay/paygate/config/schema"
	"github.com/web3pay/paygate/schema"
)

// transfer(address,uint256)
var erc20TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// VerifyPayment runs the full verification protocol for a submitted tx hash.
// Failures come back as a structured result, never as an error; the error
// return is for storage faults only.
func (s *Paygate) VerifyPayment(ctx context.Context, orderId, txHash, userId string) (*schema.VerificationResult, error) {
	if orderId == "" {
		return nil, ErrNullOrderId
	}
	if txHash == "" {
		return nil, ErrNullTxHash
	}
	txHash = strings.ToLower(txHash)

	ord, err := s.wdb.GetOrder(orderId)
	if err == schema.ErrOrderNotFound {
		return failResult(orderId, txHash, schema.CodeOrderNotFound, "order not found"), nil
	}
	if err != nil {
		return nil, err
	}

	if !ord.CanVerify() {
		// a just-paid order re-submitted by an impatient client reports
		// success without touching the ledger
		if (ord.Status == schema.OrderPaid || ord.Status == schema.OrderActivated) &&
			time.Since(ord.UpdatedAt) <= s.paidGraceWindow {
			verifiedAt := ord.UpdatedAt
			return &schema.VerificationResult{
				IsValid:         true,
				OrderId:         orderId,
				TransactionHash: txHash,
				Errors:          []string{},
				Details: schema.VerificationDetails{
					VerifiedAt: &verifiedAt,
					Message:    "order already verified successfully",
				},
			}, nil
		}
		if ord.Status == schema.OrderPending && ord.IsExpired() {
			if err := s.wdb.UpdateOrderStatus(orderId, schema.OrderPending, schema.OrderExpired, schema.ReasonOrderExpired); err == nil {
				ord.Status = schema.OrderExpired
				s.publishOrderEvent(ord, schema.ReasonOrderExpired, "")
			}
		}
		return failResult(orderId, txHash, schema.CodeOrderNotVerifiable,
			"order cannot be verified (expired or already processed)"), nil
	}

	// ledger gate before any chain call; the unique constraint decides races
	inserted, err := s.wdb.InsertHashRecordIfAbsent(&schema.HashRecord{
		TransactionHash: txHash,
		OrderId:         orderId,
		UserId:          userId,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return failResult(orderId, txHash, schema.CodeHashAlreadyUsed,
			"transaction hash has already been used"), nil
	}

	result := s.performChainVerification(ctx, &ord, txHash)
	countVerifyResult(result)

	by, err := json.Marshal(result)
	if err != nil {
		log.Error("marshal verification result failed", "err", err, "txHash", txHash)
	} else if err = s.wdb.UpdateHashVerification(txHash, result.IsValid, by); err != nil {
		log.Error("update hash verification failed", "err", err, "txHash", txHash)
	}

	if result.IsValid {
		s.activateOrder(&ord, txHash, schema.ReasonManualVerify)
	}
	return result, nil
}

// activateOrder moves a pending order to paid and signals the external
// activation concern. A lost compare-and-set means another path already
// settled the order; that is not an error here.
func (s *Paygate) activateOrder(ord *schema.Order, txHash, reason string) {
	if err := s.wdb.SettleOrder(ord.ID, schema.OrderPending, schema.OrderPaid, reason, txHash); err != nil {
		if err == schema.ErrStatusConflict {
			log.Warn("order already transitioned", "orderId", ord.ID, "status", ord.Status)
			return
		}
		log.Error("settle order failed", "err", err, "orderId", ord.ID)
		return
	}
	ord.Status = schema.OrderPaid
	ord.StatusReason = reason
	ord.PaymentId = txHash
	s.publishOrderEvent(*ord, reason, txHash)
	s.monitorMg.CloseJob(ord.ID)
	if s.onActivate != nil {
		s.onActivate(*ord)
	}
}

func (s *Paygate) performChainVerification(ctx context.Context, ord *schema.Order, txHash string) *schema.VerificationResult {
	result := &schema.VerificationResult{
		OrderId:         ord.ID,
		TransactionHash: txHash,
		Errors:          []string{},
	}

	network, err := s.registry.Network(ord.ChainId)
	if err != nil {
		return fail(result, schema.CodeUnsupportedNetwork, fmt.Sprintf("unsupported network: %d", ord.ChainId))
	}
	token, err := s.registry.Token(ord.TokenSymbol)
	if err != nil {
		return fail(result, schema.CodeUnsupportedToken, fmt.Sprintf("unsupported token: %s", ord.TokenSymbol))
	}
	reader, err := s.registry.Reader(ord.ChainId)
	if err != nil {
		return fail(result, schema.CodeUnsupportedNetwork, fmt.Sprintf("unsupported network: %d", ord.ChainId))
	}

	hash := common.HexToHash(txHash)

	var tx *types.Transaction
	var isPending bool
	err = withRetry(func() error {
		var err error
		tx, isPending, err = reader.TransactionByHash(ctx, hash)
		return err
	}, rpcRetryAttempts, rpcRetryBaseDelay, func(err error) bool { return !IsNotFound(err) })
	if err != nil {
		if IsNotFound(err) {
			return fail(result, schema.CodeTxNotFound, "transaction not found on blockchain")
		}
		return fail(result, schema.CodeRpcTransientError, fmt.Sprintf("fetch transaction failed: %v", err))
	}

	txSummary := &schema.TxSummary{
		Hash:  tx.Hash().Hex(),
		Value: tx.Value().String(),
		Nonce: tx.Nonce(),
	}
	if tx.To() != nil {
		txSummary.To = tx.To().Hex()
	}
	result.Details.Transaction = txSummary

	if isPending {
		return fail(result, schema.CodeReceiptNotFound, "transaction is pending, not yet mined")
	}

	var receipt *types.Receipt
	err = withRetry(func() error {
		var err error
		receipt, err = reader.TransactionReceipt(ctx, hash)
		return err
	}, rpcRetryAttempts, rpcRetryBaseDelay, func(err error) bool { return !IsNotFound(err) })
	if err != nil {
		if IsNotFound(err) {
			return fail(result, schema.CodeReceiptNotFound, "transaction receipt not found, transaction may not be mined yet")
		}
		return fail(result, schema.CodeRpcTransientError, fmt.Sprintf("fetch receipt failed: %v", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(result, schema.CodeTxFailed, "transaction execution failed")
	}

	receiptBlock := receipt.BlockNumber.Uint64()
	txSummary.BlockNumber = receiptBlock
	receiptSummary := &schema.ReceiptSummary{
		Status:      receipt.Status,
		BlockNumber: receiptBlock,
		GasUsed:     receipt.GasUsed,
	}
	result.Details.Receipt = receiptSummary

	var currentBlock uint64
	err = withRetry(func() error {
		var err error
		currentBlock, err = reader.BlockNumber(ctx)
		return err
	}, rpcRetryAttempts, rpcRetryBaseDelay, nil)
	if err != nil {
		return fail(result, schema.CodeRpcTransientError, fmt.Sprintf("fetch block height failed: %v", err))
	}

	confirmations := currentBlock - receiptBlock + 1
	receiptSummary.Confirmations = confirmations
	result.Confirmations = confirmations
	if confirmations < network.RequiredConfirmations {
		return fail(result, schema.CodeInsufficientConf,
			fmt.Sprintf("insufficient confirmations: %d/%d", confirmations, network.RequiredConfirmations))
	}

	if token.IsNative {
		if code, msg := s.verifyNativeTransfer(tx, ord, token); code != "" {
			return fail(result, code, msg)
		}
	} else {
		if code, msg := s.verifyTokenTransfer(tx, ord, token); code != "" {
			return fail(result, code, msg)
		}
	}

	now := time.Now()
	result.IsValid = true
	result.Details.VerifiedAt = &now
	return result
}

func (s *Paygate) verifyNativeTransfer(tx *types.Transaction, ord *schema.Order, token cfgSchema.TokenConfig) (code, msg string) {
	if tx.To() == nil || !strings.EqualFold(tx.To().Hex(), ord.RecipientAddress) {
		actual := "nil"
		if tx.To() != nil {
			actual = strings.ToLower(tx.To().Hex())
		}
		return schema.CodeAddressMismatch,
			fmt.Sprintf("address mismatch: expected %s, got %s", strings.ToLower(ord.RecipientAddress), actual)
	}

	expected, err := parseUnits(ord.Amount, token.Decimals)
	if err != nil {
		return schema.CodeAmountMismatch, fmt.Sprintf("order amount invalid: %v", err)
	}
	if !s.registry.IsAmountValid(tx.Value(), expected, ord.TokenSymbol) {
		return schema.CodeAmountMismatch,
			fmt.Sprintf("amount mismatch: expected %s (approx), got %s", expected.String(), tx.Value().String())
	}
	return "", ""
}

func (s *Paygate) verifyTokenTransfer(tx *types.Transaction, ord *schema.Order, token cfgSchema.TokenConfig) (code, msg string) {
	// an ERC-20 payment targets the token contract; the real recipient lives
	// in the call data
	if tx.To() == nil || !strings.EqualFold(tx.To().Hex(), token.ContractAddress) {
		return schema.CodeAddressMismatch, "transaction target is not the token contract"
	}

	recipient, amount, err := decodeTransferCall(tx.Data())
	if err != nil {
		return schema.CodeErc20DecodeError, fmt.Sprintf("decode transfer call failed: %v", err)
	}
	if !strings.EqualFold(recipient.Hex(), ord.RecipientAddress) {
		return schema.CodeErc20RecipientMism,
			fmt.Sprintf("recipient mismatch: expected %s, got %s",
				strings.ToLower(ord.RecipientAddress), strings.ToLower(recipient.Hex()))
	}

	expected, err := parseUnits(ord.Amount, token.Decimals)
	if err != nil {
		return schema.CodeErc20AmountMism, fmt.Sprintf("order amount invalid: %v", err)
	}
	if !s.registry.IsAmountValid(amount, expected, ord.TokenSymbol) {
		return schema.CodeErc20AmountMism,
			fmt.Sprintf("amount mismatch: expected %s (approx), got %s", expected.String(), amount.String())
	}
	return "", ""
}

// decodeTransferCall decodes transfer(address,uint256) call data: 4-byte
// selector, then the recipient in a left-padded 32-byte word, then a 32-byte
// big-endian amount.
func decodeTransferCall(data []byte) (common.Address, *big.Int, error) {
	if len(data) < 68 {
		return common.Address{}, nil, fmt.Errorf("call data too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], erc20TransferSelector) {
		return common.Address{}, nil, fmt.Errorf("unexpected function selector: 0x%x", data[:4])
	}
	recipient := common.BytesToAddress(data[16:36])
	amount := new(big.Int).SetBytes(data[36:68])
	return recipient, amount, nil
}

func fail(result *schema.VerificationResult, code, msg string) *schema.VerificationResult {
	result.Errors = append(result.Errors, code)
	result.Details.Message = msg
	return result
}

func failResult(orderId, txHash, code, msg string) *schema.VerificationResult {
	return fail(&schema.VerificationResult{
		OrderId:         orderId,
		TransactionHash: txHash,
		Errors:          []string{},
	}, code, msg)
}
