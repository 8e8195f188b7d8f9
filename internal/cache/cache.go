// Package cache holds an optional copy of the full image list.
//
// The gallery always reads and writes the whole collection, so a single list
// key is enough. A second key holds a generation counter that every
// invalidation increments. Entries are stamped with the generation they were
// read under, and an entry whose stamp is not the current generation is a
// miss. A list read from the store before a mutation can therefore never be
// served after that mutation's invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/visions/internal/model"
)

const (
	// ListKey holds the JSON encoded, generation-stamped image list.
	ListKey = "visions:images:list"
	// GenKey holds the generation counter.
	GenKey = "visions:images:gen"
)

// ListCache stores the newest-first image list.
//
// Get reports ok=false on a miss and always returns the current generation.
// Set stores images only if gen is still current; callers pass the
// generation Get returned before they read the store.
type ListCache interface {
	Get(ctx context.Context) (images []model.Image, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, images []model.Image) error
	Invalidate(ctx context.Context) error
}

// Redis is a ListCache backed by a redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ListCache = (*Redis)(nil)

type entry struct {
	Gen    int64         `json:"gen"`
	Images []model.Image `json:"images"`
}

// NewRedis connects to addr and verifies the connection with PING.
// A zero ttl keeps the entry until the next invalidation.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: ping redis at %s: %w", addr, err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// Get reads the generation and the entry in one round trip.
func (r *Redis) Get(ctx context.Context) ([]model.Image, int64, bool, error) {
	vals, err := r.client.MGet(ctx, GenKey, ListKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("cache: get: %w", err)
	}

	gen, err := parseGen(vals[0])
	if err != nil {
		return nil, 0, false, err
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, gen, false, fmt.Errorf("cache: decoding list: %w", err)
	}
	if e.Gen != gen || e.Images == nil {
		return nil, gen, false, nil
	}
	return e.Images, gen, true, nil
}

// Set stores images stamped with gen. It watches GenKey and silently skips
// the write when the generation has moved on since gen was read.
func (r *Redis) Set(ctx context.Context, gen int64, images []model.Image) error {
	if images == nil {
		images = []model.Image{}
	}
	raw, err := json.Marshal(entry{Gen: gen, Images: images})
	if err != nil {
		return fmt.Errorf("cache: encoding list: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, GenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ListKey, raw, r.ttl)
			return nil
		})
		return err
	}, GenKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// An invalidation ran while we were writing; the entry is stale.
		return nil
	case err != nil:
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation and drops the entry atomically.
func (r *Redis) Invalidate(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenKey)
		pipe.Del(ctx, ListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: invalidate: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func parseGen(v any) (int64, error) {
	switch s := v.(type) {
	case nil:
		return 0, nil
	case string:
		gen, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache: bad generation %q: %w", s, err)
		}
		return gen, nil
	default:
		return 0, fmt.Errorf("cache: unexpected generation type %T", v)
	}
}
