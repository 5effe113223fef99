package paygate

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	cfgSchema "github.com/web3pay/paygate/config/schema"
	"github.com/web3pay/paygate/schema"
)

const (
	testChainId      = int64(1)
	testRecipient    = "0x1111111111111111111111111111111111111111"
	testUsdtContract = "0x2222222222222222222222222222222222222222"
)

type mockReader struct {
	txs      map[common.Hash]*types.Transaction
	pending  map[common.Hash]bool
	receipts map[common.Hash]*types.Receipt
	head     uint64
	blocks   map[uint64][]schema.BlockTx
}

func newMockReader() *mockReader {
	return &mockReader{
		txs:      make(map[common.Hash]*types.Transaction),
		pending:  make(map[common.Hash]bool),
		receipts: make(map[common.Hash]*types.Receipt),
		blocks:   make(map[uint64][]schema.BlockTx),
	}
}

func (m *mockReader) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, ok := m.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, m.pending[hash], nil
}

func (m *mockReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, ok := m.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (m *mockReader) BlockNumber(ctx context.Context) (uint64, error) {
	return m.head, nil
}

func (m *mockReader) BlockTxs(ctx context.Context, number uint64) ([]schema.BlockTx, error) {
	return m.blocks[number], nil
}

// addMinedTx registers a successful legacy tx mined at blockNumber and
// returns its hash.
func (m *mockReader) addMinedTx(to common.Address, value *big.Int, data []byte, blockNumber uint64) common.Hash {
	tx := types.NewTransaction(uint64(len(m.txs)), to, value, 21000, big.NewInt(1), data)
	hash := tx.Hash()
	m.txs[hash] = tx
	m.receipts[hash] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: new(big.Int).SetUint64(blockNumber),
		GasUsed:     21000,
	}
	return hash
}

func newTestPaygate(t *testing.T, reader ChainReader) *Paygate {
	wdb := NewSqliteDb(t.TempDir())
	assert.NoError(t, wdb.Migrate())

	store, err := NewBoltStore(t.TempDir())
	assert.NoError(t, err)

	networks := []cfgSchema.NetworkConfig{
		{ChainId: testChainId, Name: "ethereum", RequiredConfirmations: 3, NativeSymbol: "ETH"},
	}
	tokens := []cfgSchema.TokenConfig{
		{Symbol: "ETH", Decimals: 18, IsNative: true, Tolerance: "0.0001"},
		{Symbol: "USDT", Decimals: 6, ContractAddress: testUsdtContract, Tolerance: "0.1"},
	}
	registry, err := NewChainRegistry(networks, tokens)
	assert.NoError(t, err)
	registry.readers[testChainId] = reader

	s := &Paygate{
		store:              store,
		wdb:                wdb,
		registry:           registry,
		monitorMg:          NewMonitorMg(),
		paidGraceWindow:    schema.DefaultPaidGraceWindow,
		orderExpiredRange:  schema.DefaultOrderExpiredRange,
		monitorInterval:    10 * time.Millisecond,
		monitorMaxAttempts: 3,
		monitorLookback:    10,
		detectLookback:     10,
	}
	t.Cleanup(func() {
		store.Close()
		wdb.Close()
	})
	return s
}

func insertTestOrder(t *testing.T, s *Paygate, symbol, amount string) schema.Order {
	ord := schema.Order{
		ID:               uuid.NewString(),
		UserId:           "user-1",
		RecipientAddress: testRecipient,
		Amount:           amount,
		TokenSymbol:      symbol,
		ChainId:          testChainId,
		Status:           schema.OrderPending,
		PaymentMethod:    schema.PayMethodQr,
		ExpiresAt:        time.Now().Add(30 * time.Minute),
	}
	assert.NoError(t, s.wdb.InsertOrder(&ord))
	return ord
}

func TestCreateOrderValidation(t *testing.T) {
	s := newTestPaygate(t, newMockReader())

	ord, err := s.CreateOrder(schema.CreateOrderReq{
		UserId: "user-1", RecipientAddress: testRecipient,
		Amount: "0.001", TokenSymbol: "eth", ChainId: testChainId,
	})
	assert.NoError(t, err)
	assert.Equal(t, schema.OrderPending, ord.Status)
	assert.Equal(t, schema.PayMethodQr, ord.PaymentMethod)
	assert.Equal(t, "ETH", ord.TokenSymbol)

	direct, err := s.CreateOrder(schema.CreateOrderReq{
		UserId: "user-1", RecipientAddress: testRecipient,
		Amount: "0.001", TokenSymbol: "ETH", ChainId: testChainId,
		PaymentMethod: schema.PayMethodDirect,
	})
	assert.NoError(t, err)
	assert.Equal(t, schema.PayMethodDirect, direct.PaymentMethod)

	_, err = s.CreateOrder(schema.CreateOrderReq{
		UserId: "user-1", RecipientAddress: testRecipient,
		Amount: "0.001", TokenSymbol: "ETH", ChainId: testChainId,
		PaymentMethod: "carrier-pigeon",
	})
	assert.Equal(t, ErrInvalidPayMethod, err)

	_, err = s.CreateOrder(schema.CreateOrderReq{
		RecipientAddress: testRecipient, Amount: "0.001",
		TokenSymbol: "ETH", ChainId: testChainId,
	})
	assert.Equal(t, ErrNullUserId, err)

	_, err = s.CreateOrder(schema.CreateOrderReq{
		UserId: "user-1", RecipientAddress: "not-an-address",
		Amount: "0.001", TokenSymbol: "ETH", ChainId: testChainId,
	})
	assert.Equal(t, ErrInvalidAddress, err)

	_, err = s.CreateOrder(schema.CreateOrderReq{
		UserId: "user-1", RecipientAddress: testRecipient,
		Amount: "-1", TokenSymbol: "ETH", ChainId: testChainId,
	})
	assert.Equal(t, ErrInvalidAmount, err)
}

func transferCallData(recipient common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 68)
	data = append(data, erc20TransferSelector...)
	data = append(data, common.LeftPadBytes(recipient.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
