package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on redis. Records live under "bucket/key",
// each secondary index value is a set of record keys, and a per-record
// membership set remembers which index sets the record joined so Put and
// Delete can clean them up.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects a redis-backed store.
func OpenRedis(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}
}

func dataKey(bucket, key string) string {
	return bucket + "/" + key
}

func indexSetKey(bucket, index, value string) string {
	return bucket + "/2i/" + index + "/" + value
}

func membershipKey(bucket, key string) string {
	return bucket + "/2i-of/" + key
}

// membership entries encode "name\x1fvalue" so they can be split back when
// cleaning up index sets.
func encodeMembership(e IndexEntry) string {
	return e.Name + "\x1f" + e.Value
}

func decodeMembership(m string) (name, value string, ok bool) {
	for i := 0; i < len(m); i++ {
		if m[i] == '\x1f' {
			return m[:i], m[i+1:], true
		}
	}
	return "", "", false
}

func (s *RedisStore) Get(ctx context.Context, bucket, key string) (*Object, error) {
	val, err := s.client.Get(ctx, dataKey(bucket, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	members, err := s.client.SMembers(ctx, membershipKey(bucket, key)).Result()
	if err != nil {
		return nil, err
	}

	obj := &Object{Value: val}
	for _, m := range members {
		if name, value, ok := decodeMembership(m); ok {
			obj.Indexes = append(obj.Indexes, IndexEntry{Name: name, Value: value})
		}
	}
	return obj, nil
}

func (s *RedisStore) Put(ctx context.Context, bucket, key string, obj *Object) error {
	old, err := s.client.SMembers(ctx, membershipKey(bucket, key)).Result()
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range old {
			if name, value, ok := decodeMembership(m); ok {
				pipe.SRem(ctx, indexSetKey(bucket, name, value), key)
			}
		}
		pipe.Del(ctx, membershipKey(bucket, key))

		pipe.Set(ctx, dataKey(bucket, key), obj.Value, 0)
		for _, e := range obj.Indexes {
			pipe.SAdd(ctx, indexSetKey(bucket, e.Name, e.Value), key)
			pipe.SAdd(ctx, membershipKey(bucket, key), encodeMembership(e))
		}
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, bucket, key string) error {
	members, err := s.client.SMembers(ctx, membershipKey(bucket, key)).Result()
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			if name, value, ok := decodeMembership(m); ok {
				pipe.SRem(ctx, indexSetKey(bucket, name, value), key)
			}
		}
		pipe.Del(ctx, membershipKey(bucket, key), dataKey(bucket, key))
		return nil
	})
	return err
}

// QueryIndex scans the index set; the continuation token is the SSCAN cursor.
func (s *RedisStore) QueryIndex(ctx context.Context, q Query) (*Page, error) {
	var cursor uint64
	if q.Continuation != "" {
		parsed, err := strconv.ParseUint(q.Continuation, 10, 64)
		if err != nil {
			return nil, err
		}
		cursor = parsed
	}

	count := int64(q.MaxResults)
	if count <= 0 {
		count = defaultPageSize
	}

	keys, next, err := s.client.SScan(ctx, indexSetKey(q.Bucket, q.Index, q.Value), cursor, "", count).Result()
	if err != nil {
		return nil, err
	}

	page := &Page{Keys: keys}
	if next == 0 {
		page.Done = true
	} else {
		page.Continuation = strconv.FormatUint(next, 10)
	}
	return page, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
