package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGetInvalidate(t *testing.T) {
	c := NewCache(time.Hour)
	c.Set("/v1/chat", PaymentOption{PayTo: "0xabc"}, nil)

	got, ok := c.Get("/v1/chat")
	assert.True(t, ok)
	assert.Equal(t, "0xabc", got.Option.PayTo)

	c.Invalidate("/v1/chat")
	_, ok = c.Get("/v1/chat")
	assert.False(t, ok)
}

func TestCacheEvictsExpiredOnRead(t *testing.T) {
	c := NewCache(time.Millisecond)
	c.Set("/v1/chat", PaymentOption{PayTo: "0xabc"}, nil)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("/v1/chat")
	assert.False(t, ok)
}

func TestCacheGetMissing(t *testing.T) {
	c := NewCache(time.Hour)
	_, ok := c.Get("/nope")
	assert.False(t, ok)
}
