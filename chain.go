package paygate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	cfgSchema "github.com/web3pay/paygate/config/schema"
	"github.com/web3pay/paygate/schema"
)

const dialProbeTimeout = 5 * time.Second

// ChainReader is the read-only RPC surface the verifier and detector need
// from one network.
type ChainReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTxs(ctx context.Context, number uint64) ([]schema.BlockTx, error)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}

type ethReader struct {
	cli *ethclient.Client
}

func (r *ethReader) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return r.cli.TransactionByHash(ctx, hash)
}

func (r *ethReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return r.cli.TransactionReceipt(ctx, hash)
}

func (r *ethReader) BlockNumber(ctx context.Context) (uint64, error) {
	return r.cli.BlockNumber(ctx)
}

func (r *ethReader) BlockTxs(ctx context.Context, number uint64) ([]schema.BlockTx, error) {
	block, err := r.cli.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, err
	}
	txs := block.Transactions()
	res := make([]schema.BlockTx, 0, len(txs))
	for _, tx := range txs {
		if tx.To() == nil { // contract creation
			continue
		}
		bt := schema.BlockTx{
			Hash:        tx.Hash().Hex(),
			To:          tx.To().Hex(),
			Value:       tx.Value().String(),
			BlockNumber: number,
		}
		if data := tx.Data(); len(data) >= 4 {
			bt.Selector = hexutil.Encode(data[:4])
		}
		res = append(res, bt)
	}
	return res, nil
}

// ChainRegistry owns one reader per configured network, created once at
// startup and shared read-only afterwards. The first endpoint answering a
// block-height probe is used; there is no mid-session failover.
type ChainRegistry struct {
	networks   map[int64]cfgSchema.NetworkConfig
	tokens     map[string]cfgSchema.TokenConfig
	tolerances map[string]*big.Int
	readers    map[int64]ChainReader
}

func NewChainRegistry(networks []cfgSchema.NetworkConfig, tokens []cfgSchema.TokenConfig) (*ChainRegistry, error) {
	r := &ChainRegistry{
		networks:   make(map[int64]cfgSchema.NetworkConfig, len(networks)),
		tokens:     make(map[string]cfgSchema.TokenConfig, len(tokens)),
		tolerances: make(map[string]*big.Int, len(tokens)),
		readers:    make(map[int64]ChainReader, len(networks)),
	}
	for _, n := range networks {
		r.networks[n.ChainId] = n
	}
	for _, t := range tokens {
		sym := strings.ToUpper(t.Symbol)
		r.tokens[sym] = t
		if t.Tolerance == "" {
			r.tolerances[sym] = big.NewInt(0)
			continue
		}
		tol, err := parseUnits(t.Tolerance, t.Decimals)
		if err != nil {
			return nil, fmt.Errorf("token %s tolerance invalid: %v", sym, err)
		}
		r.tolerances[sym] = tol
	}
	return r, nil
}

// Connect dials every configured network, first healthy endpoint wins.
func (r *ChainRegistry) Connect(ctx context.Context) error {
	for chainId, n := range r.networks {
		urls := make([]string, 0, 3)
		if err := json.Unmarshal(n.RpcUrls, &urls); err != nil {
			return err
		}
		reader, err := dialFirstHealthy(ctx, urls)
		if err != nil {
			log.Error("dial network failed", "chainId", chainId, "err", err)
			return err
		}
		r.readers[chainId] = reader
		log.Info("connect network success", "chainId", chainId, "name", n.Name)
	}
	return nil
}

func dialFirstHealthy(ctx context.Context, urls []string) (ChainReader, error) {
	for _, url := range urls {
		probeCtx, cancel := context.WithTimeout(ctx, dialProbeTimeout)
		cli, err := ethclient.DialContext(probeCtx, url)
		if err != nil {
			cancel()
			log.Warn("dial rpc endpoint failed", "url", url, "err", err)
			continue
		}
		if _, err = cli.BlockNumber(probeCtx); err != nil {
			cancel()
			cli.Close()
			log.Warn("probe rpc endpoint failed", "url", url, "err", err)
			continue
		}
		cancel()
		return &ethReader{cli: cli}, nil
	}
	return nil, schema.ErrNoHealthyEndpoint
}

func (r *ChainRegistry) Reader(chainId int64) (ChainReader, error) {
	reader, ok := r.readers[chainId]
	if !ok {
		return nil, schema.ErrUnsupportedNetwork
	}
	return reader, nil
}

func (r *ChainRegistry) Network(chainId int64) (cfgSchema.NetworkConfig, error) {
	n, ok := r.networks[chainId]
	if !ok {
		return cfgSchema.NetworkConfig{}, schema.ErrUnsupportedNetwork
	}
	return n, nil
}

func (r *ChainRegistry) Token(symbol string) (cfgSchema.TokenConfig, error) {
	t, ok := r.tokens[strings.ToUpper(symbol)]
	if !ok {
		return cfgSchema.TokenConfig{}, schema.ErrUnsupportedToken
	}
	return t, nil
}

// Tolerance returns the allowed underpayment for symbol in smallest units;
// unknown symbols get zero, exact match required.
func (r *ChainRegistry) Tolerance(symbol string) *big.Int {
	tol, ok := r.tolerances[strings.ToUpper(symbol)]
	if !ok {
		return big.NewInt(0)
	}
	return tol
}

func (r *ChainRegistry) IsAmountValid(actual, expected *big.Int, symbol string) bool {
	return amountWithinTolerance(actual, expected, r.Tolerance(symbol))
}
