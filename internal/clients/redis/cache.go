package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pencilbase-backend/internal/logger"
)

// SearchCache memoizes search responses under a versioned keyspace. Bumping
// the version (taxonomy rebuild, reconciliation) orphans every cached entry
// at once; the orphans age out via TTL.
type SearchCache interface {
	GetSearch(ctx context.Context, topicName string) ([]int64, bool)
	SetSearch(ctx context.Context, topicName string, questionNumbers []int64)
	Invalidate(ctx context.Context)
	Close() error
}

type searchCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewSearchCache(log *logger.Logger) (SearchCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &searchCache{
		log: log.With("client", "RedisSearchCache"),
		rdb: rdb,
		ttl: 10 * time.Minute,
	}, nil
}

func (sc *searchCache) GetSearch(ctx context.Context, topicName string) ([]int64, bool) {
	key, err := sc.searchKey(ctx, topicName)
	if err != nil {
		sc.log.Warn("Could not derive search cache key", "error", err)
		return nil, false
	}
	raw, err := sc.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			sc.log.Warn("Search cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var numbers []int64
	if err := json.Unmarshal([]byte(raw), &numbers); err != nil {
		sc.log.Warn("Search cache entry corrupt, dropping", "key", key, "error", err)
		_ = sc.rdb.Del(ctx, key).Err()
		return nil, false
	}
	if numbers == nil {
		numbers = []int64{}
	}
	return numbers, true
}

func (sc *searchCache) SetSearch(ctx context.Context, topicName string, questionNumbers []int64) {
	key, err := sc.searchKey(ctx, topicName)
	if err != nil {
		sc.log.Warn("Could not derive search cache key", "error", err)
		return
	}
	if questionNumbers == nil {
		questionNumbers = []int64{}
	}
	raw, err := json.Marshal(questionNumbers)
	if err != nil {
		return
	}
	if err := sc.rdb.Set(ctx, key, raw, sc.ttl).Err(); err != nil {
		sc.log.Warn("Search cache write failed", "key", key, "error", err)
	}
}

func (sc *searchCache) Invalidate(ctx context.Context) {
	if err := sc.rdb.Incr(ctx, "search:version").Err(); err != nil {
		sc.log.Warn("Search cache invalidation failed", "error", err)
	}
}

func (sc *searchCache) Close() error {
	return sc.rdb.Close()
}

func (sc *searchCache) searchKey(ctx context.Context, topicName string) (string, error) {
	version, err := sc.rdb.Get(ctx, "search:version").Int64()
	if err != nil {
		if err != goredis.Nil {
			return "", err
		}
		version = 0
	}
	return fmt.Sprintf("search:v%d:%s", version, topicName), nil
}
