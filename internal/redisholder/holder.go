package redisholder

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Holder hands out the current Redis client; the health loop may replace
// it after a reconnect, so callers fetch it per operation.
type Holder struct {
	v atomic.Pointer[clientRef]
}

// clientRef gives cluster and single-node clients one concrete type.
type clientRef struct {
	c redis.UniversalClient
}

func NewHolder(initial redis.UniversalClient) *Holder {
	h := &Holder{}
	h.v.Store(&clientRef{c: initial})
	return h
}

func (h *Holder) Get() redis.UniversalClient {
	if ref := h.v.Load(); ref != nil {
		return ref.c
	}
	return nil
}

func (h *Holder) Ping(ctx context.Context) error {
	return ping(ctx, h.Get())
}

func (h *Holder) swap(newc redis.UniversalClient) (old redis.UniversalClient) {
	if ref := h.v.Swap(&clientRef{c: newc}); ref != nil {
		old = ref.c
	}
	return old
}

func (h *Holder) Close() error {
	if c := h.Get(); c != nil {
		return c.Close()
	}
	return nil
}
