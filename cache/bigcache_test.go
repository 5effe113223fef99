package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockKey(t *testing.T) {
	assert.Equal(t, "1-18000000", BlockKey(1, 18000000))
	assert.Equal(t, "8453-0", BlockKey(8453, 0))
}

func TestSetGetDelete(t *testing.T) {
	c, err := NewBigCache(time.Minute)
	assert.NoError(t, err)

	key := BlockKey(1, 100)
	assert.NoError(t, c.Set(key, []byte("payload")))

	got, err := c.Get(key)
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	assert.NoError(t, c.Delete(key))
	_, err = c.Get(key)
	assert.Error(t, err)

	assert.NoError(t, c.Set(key, []byte("payload")))
	assert.NoError(t, c.Reset())
	_, err = c.Get(key)
	assert.Error(t, err)
}
