package paygate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/web3pay/paygate/cache"
	"github.com/web3pay/paygate/schema"
)

func TestAutoDetectNative(t *testing.T) {
	reader := newMockReader()
	s := newTestPaygate(t, reader)
	ord := insertTestOrder(t, s, "ETH", "0.001")

	value, _ := parseUnits("0.001", 18)
	reader.head = 50
	reader.blocks[49] = []schema.BlockTx{
		{Hash: "0xaaa1", To: "0x9999999999999999999999999999999999999999", Value: value.String(), BlockNumber: 49},
		{Hash: "0xaaa2", To: testRecipient, Value: value.String(), BlockNumber: 49},
	}

	result, err := s.AutoDetect(context.Background(), ord.ID)
	assert.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "0xaaa2", result.TransactionHash)
	assert.Equal(t, uint64(49), result.BlockNumber)
	assert.Equal(t, uint64(1), result.Confirmations)
	assert.False(t, result.TokenTransfer)

	// detection is read-only
	stored, err := s.wdb.GetOrder(ord.ID)
	assert.NoError(t, err)
	assert.Equal(t, schema.OrderPending, stored.Status)
	assert.False(t, s.wdb.IsHashUsed("0xaaa2"))
}

func TestAutoDetectSkipsUsedHash(t *testing.T) {
	reader := newMockReader()
	s := newTestPaygate(t, reader)
	ord := insertTestOrder(t, s, "ETH", "0.001")

	value, _ := parseUnits("0.001", 18)
	reader.head = 50
	reader.blocks[50] = []schema.BlockTx{
		{Hash: "0xbbb1", To: testRecipient, Value: value.String(), BlockNumber: 50},
	}

	_, err := s.wdb.InsertHashRecordIfAbsent(&schema.HashRecord{
		TransactionHash: "0xbbb1", OrderId: "some-other-order", UserId: "user-2",
	})
	assert.NoError(t, err)

	result, err := s.AutoDetect(context.Background(), ord.ID)
	assert.NoError(t, err)
	assert.False(t, result.Found)
}

func TestAutoDetectTokenCandidate(t *testing.T) {
	reader := newMockReader()
	s := newTestPaygate(t, reader)
	ord := insertTestOrder(t, s, "USDT", "100")

	reader.head = 20
	reader.blocks[20] = []schema.BlockTx{
		// a call to the contract that is not a transfer
		{Hash: "0xccc1", To: testUsdtContract, Value: "0", Selector: "0x095ea7b3", BlockNumber: 20},
		{Hash: "0xccc2", To: testUsdtContract, Value: "0", Selector: "0xa9059cbb", BlockNumber: 20},
	}

	result, err := s.AutoDetect(context.Background(), ord.ID)
	assert.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "0xccc2", result.TransactionHash)
	assert.True(t, result.TokenTransfer)
}

func TestAutoDetectIneligibleOrder(t *testing.T) {
	reader := newMockReader()
	s := newTestPaygate(t, reader)

	result, err := s.AutoDetect(context.Background(), "missing-order")
	assert.NoError(t, err)
	assert.False(t, result.Found)

	ord := insertTestOrder(t, s, "ETH", "0.001")
	assert.NoError(t, s.wdb.UpdateOrderStatus(ord.ID, schema.OrderPending, schema.OrderPaid, schema.ReasonManualVerify))
	result, err = s.AutoDetect(context.Background(), ord.ID)
	assert.NoError(t, err)
	assert.False(t, result.Found)
}

func TestBlockTxsCached(t *testing.T) {
	reader := newMockReader()
	s := newTestPaygate(t, reader)
	blockCache, err := cache.NewBigCache(time.Minute)
	assert.NoError(t, err)
	s.blockCache = blockCache

	reader.blocks[7] = []schema.BlockTx{{Hash: "0xddd1", To: testRecipient, Value: "1", BlockNumber: 7}}

	txs, err := s.blockTxsCached(context.Background(), reader, testChainId, 7)
	assert.NoError(t, err)
	assert.Len(t, txs, 1)

	// second read is served from the cache, not the reader
	reader.blocks[7] = nil
	txs, err = s.blockTxsCached(context.Background(), reader, testChainId, 7)
	assert.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, "0xddd1", txs[0].Hash)
}
