package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "draftoracle"

// RedisStore implements Store on Redis. Each document is a string key, and a
// per-kind sorted set scored by a creation sequence backs Latest and List.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at addr and pings it.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func docKey(kind, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisPrefix, kind, NormalizeKey(key))
}

func indexKey(kind string) string {
	return fmt.Sprintf("%s:index:%s", redisPrefix, kind)
}

func seqKey() string {
	return redisPrefix + ":seq"
}

func (r *RedisStore) Get(ctx context.Context, kind, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, docKey(kind, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", kind, key, err)
	}
	return data, nil
}

// Put reserves one sequence number per document, then writes documents and
// index entries in a single MULTI/EXEC. ZADD NX keeps the original creation
// score of documents that already exist.
func (r *RedisStore) Put(ctx context.Context, docs ...Document) error {
	if err := checkDocs(docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	last, err := r.client.IncrBy(ctx, seqKey(), int64(len(docs))).Result()
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}
	first := last - int64(len(docs)) + 1

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, d := range docs {
			key := NormalizeKey(d.Key)
			pipe.Set(ctx, docKey(d.Kind, key), d.Data, 0)
			pipe.ZAddNX(ctx, indexKey(d.Kind), redis.Z{Score: float64(first + int64(i)), Member: key})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put batch: %w", err)
	}
	return nil
}

func (r *RedisStore) Latest(ctx context.Context, kind string) (Document, error) {
	keys, err := r.client.ZRevRange(ctx, indexKey(kind), 0, 0).Result()
	if err != nil {
		return Document{}, fmt.Errorf("latest %s: %w", kind, err)
	}
	if len(keys) == 0 {
		return Document{}, ErrNotFound
	}
	data, err := r.Get(ctx, kind, keys[0])
	if err != nil {
		return Document{}, err
	}
	return Document{Kind: kind, Key: keys[0], Data: data}, nil
}

func (r *RedisStore) List(ctx context.Context, kind string) ([]Document, error) {
	keys, err := r.client.ZRange(ctx, indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = docKey(kind, k)
	}
	values, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	docs := make([]Document, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		docs = append(docs, Document{Kind: kind, Key: keys[i], Data: []byte(s)})
	}
	return docs, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
