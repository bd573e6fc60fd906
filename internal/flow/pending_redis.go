package flow

import (
	"context"
	"encoding/json"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisPending backs the pending-exchange store with Redis so the broker
// can run behind a load balancer: any instance may receive the callback
// for a flow another instance started. GETDEL gives the same atomic
// read-once guarantee the memory store gets from its mutex.
type RedisPending struct {
	client *rdb.Client
	prefix string
}

func NewRedisPending(client *rdb.Client, prefix string) *RedisPending {
	if prefix == "" {
		prefix = "pending:"
	}
	return &RedisPending{client: client, prefix: prefix}
}

func (r *RedisPending) Put(key string, e PendingExchange, ttl time.Duration) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = r.client.Set(context.Background(), r.prefix+key, b, ttl).Err()
}

func (r *RedisPending) Take(key string) (PendingExchange, bool) {
	v, err := r.client.GetDel(context.Background(), r.prefix+key).Bytes()
	if err != nil {
		return PendingExchange{}, false
	}
	var e PendingExchange
	if err := json.Unmarshal(v, &e); err != nil {
		return PendingExchange{}, false
	}
	return e, true
}

func (r *RedisPending) Delete(key string) {
	_ = r.client.Del(context.Background(), r.prefix+key).Err()
}
