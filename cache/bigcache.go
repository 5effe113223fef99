package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCache holds recently scanned blocks so that overlapping per-order scans
// do not refetch the same block from the RPC endpoint. Entries expire fast;
// the chain tip moves on and stale blocks are useless.
type BigCache struct {
	Cache *bigcache.BigCache
}

func NewBigCache(allKeysExpTime time.Duration) (*BigCache, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(allKeysExpTime))
	if err != nil {
		return nil, err
	}
	return &BigCache{Cache: cache}, nil
}

func BlockKey(chainId int64, blockNumber uint64) string {
	return fmt.Sprintf("%d-%d", chainId, blockNumber)
}

func (s *BigCache) Set(key string, entry []byte) (err error) {
	return s.Cache.Set(key, entry)
}

func (s *BigCache) Get(key string) ([]byte, error) {
	return s.Cache.Get(key)
}

func (s *BigCache) Delete(key string) error {
	return s.Cache.Delete(key)
}

func (s *BigCache) Reset() error {
	return s.Cache.Reset()
}
