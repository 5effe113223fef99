package paygate

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/web3pay/paygate/cache"
	cfgSchema "github.com/web3pay/paygate/config/schema"
	"github.com/web3pay/paygate/schema"
)

// AutoDetect scans recent blocks for a transaction matching the order without
// a client-supplied hash. Read-only: it never touches the ledger or order
// state; the caller decides what to do with a candidate.
func (s *Paygate) AutoDetect(ctx context.Context, orderId string) (*schema.DetectResult, error) {
	ord, err := s.wdb.GetOrder(orderId)
	if err == schema.ErrOrderNotFound {
		return &schema.DetectResult{Found: false, Message: "order not found"}, nil
	}
	if err != nil {
		return nil, err
	}
	if !ord.CanVerify() {
		return &schema.DetectResult{Found: false, Message: "order not eligible for auto-detection"}, nil
	}
	return s.detectOrderPayment(ctx, &ord, s.detectLookback)
}

func (s *Paygate) detectOrderPayment(ctx context.Context, ord *schema.Order, lookback uint64) (*schema.DetectResult, error) {
	token, err := s.registry.Token(ord.TokenSymbol)
	if err != nil {
		return &schema.DetectResult{Found: false, Message: "unsupported token"}, nil
	}
	reader, err := s.registry.Reader(ord.ChainId)
	if err != nil {
		return &schema.DetectResult{Found: false, Message: "unsupported network"}, nil
	}

	currentBlock, err := reader.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	startBlock := uint64(0)
	if currentBlock > lookback {
		startBlock = currentBlock - lookback
	}

	expected, err := parseUnits(ord.Amount, token.Decimals)
	if err != nil {
		return nil, err
	}

	// newest first, first match wins
	for blockNumber := currentBlock; blockNumber >= startBlock; blockNumber-- {
		txs, err := s.blockTxsCached(ctx, reader, ord.ChainId, blockNumber)
		if err != nil {
			log.Warn("scan block failed", "chainId", ord.ChainId, "block", blockNumber, "err", err)
			continue
		}
		for i := range txs {
			tx := &txs[i]
			if !s.isTransactionMatching(tx, ord, token, expected) {
				continue
			}
			if s.wdb.IsHashUsed(strings.ToLower(tx.Hash)) {
				continue
			}
			return &schema.DetectResult{
				Found:           true,
				TransactionHash: tx.Hash,
				BlockNumber:     blockNumber,
				Confirmations:   currentBlock - blockNumber,
				TokenTransfer:   !token.IsNative,
			}, nil
		}
		if blockNumber == 0 {
			break
		}
	}

	return &schema.DetectResult{Found: false, Message: "no matching transaction found in recent blocks"}, nil
}

// isTransactionMatching is the candidate filter. Native transfers are matched
// on recipient and amount; token transfers only on contract target and the
// transfer selector prefix, full call-data decode is the verifier's job.
func (s *Paygate) isTransactionMatching(tx *schema.BlockTx, ord *schema.Order, token cfgSchema.TokenConfig, expected *big.Int) bool {
	if token.IsNative {
		if !strings.EqualFold(tx.To, ord.RecipientAddress) {
			return false
		}
		value, ok := new(big.Int).SetString(tx.Value, 10)
		if !ok {
			return false
		}
		return s.registry.IsAmountValid(value, expected, ord.TokenSymbol)
	}

	if !strings.EqualFold(tx.To, token.ContractAddress) {
		return false
	}
	return tx.Selector == "0xa9059cbb"
}

// blockTxsCached serves block transactions through the short-TTL block cache
// so concurrent per-order monitors scanning the same window share fetches.
func (s *Paygate) blockTxsCached(ctx context.Context, reader ChainReader, chainId int64, blockNumber uint64) ([]schema.BlockTx, error) {
	key := cache.BlockKey(chainId, blockNumber)
	if s.blockCache != nil {
		if by, err := s.blockCache.Get(key); err == nil {
			txs := make([]schema.BlockTx, 0)
			if err := json.Unmarshal(by, &txs); err == nil {
				return txs, nil
			}
		}
	}

	txs, err := reader.BlockTxs(ctx, blockNumber)
	if err != nil {
		return nil, err
	}

	if s.blockCache != nil {
		if by, err := json.Marshal(txs); err == nil {
			if err := s.blockCache.Set(key, by); err != nil {
				log.Debug("cache block txs failed", "key", key, "err", err)
			}
		}
	}
	return txs, nil
}
