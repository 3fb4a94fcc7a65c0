package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"poolScope/internal/store"
)

const defaultPrefix = "poolscope"

// Options configures the Redis backend.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is a Redis entity backend. Each Apply is one MULTI/EXEC transaction.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return newStore(client, opts.Prefix), nil
}

func newStore(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(chainID uint64, kind store.Kind, id string) string {
	return s.prefix + ":" + strconv.FormatUint(chainID, 10) + ":" + string(kind) + ":" + id
}

func (s *Store) Get(ctx context.Context, chainID uint64, kind store.Kind, id string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(chainID, kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return data, true, nil
}

func (s *Store) Apply(ctx context.Context, chainID uint64, writes []store.Write) error {
	if len(writes) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, w := range writes {
			pipe.Set(ctx, s.key(chainID, w.Kind, w.ID), w.Data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %d writes: %w", len(writes), err)
	}
	return nil
}
