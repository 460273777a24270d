package directory

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"orgdir/internal/logger"
	"orgdir/internal/model"
)

// KeyPrefix：Redis 中过滤结果缓存键前缀
const KeyPrefix = "orgdir:filter:"

// ResultCache：过滤结果缓存（键为规范化条件）
type ResultCache interface {
	Get(ctx context.Context, key string) ([]model.Organization, bool)
	Set(ctx context.Context, key string, v []model.Organization)
	Purge(ctx context.Context)
}

// NewResultCache：Redis 可用时使用 Redis，否则退化为进程内 LRU
func NewResultCache(rc *redis.Client, ttl time.Duration, localSize int) ResultCache {
	if rc != nil {
		return &RedisCache{rc: rc, ttl: ttl}
	}
	return NewLRU(localSize, ttl)
}

// RedisCache：结果以 JSON 文本存入 Redis，过期由 TTL 控制
// 约束：读写失败只记录日志并视为未命中，不影响查询
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rc: rc, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]model.Organization, bool) {
	s, err := c.rc.Get(ctx, KeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn("cache_get_failed", "key", key, "err", err)
		}
		return nil, false
	}
	var out []model.Organization
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		logger.L().Warn("cache_decode_failed", "key", key, "err", err)
		return nil, false
	}
	return out, true
}

func (c *RedisCache) Set(ctx context.Context, key string, v []model.Organization) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, KeyPrefix+key, string(b), c.ttl).Err(); err != nil {
		logger.L().Warn("cache_set_failed", "key", key, "err", err)
	}
}

// Purge：按前缀扫描删除，数据重载后调用
func (c *RedisCache) Purge(ctx context.Context) {
	iter := c.rc.Scan(ctx, 0, KeyPrefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.L().Warn("cache_purge_scan_failed", "err", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rc.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn("cache_purge_failed", "keys", len(keys), "err", err)
		return
	}
	logger.L().Debug("cache_purged", "keys", len(keys))
}

// LRU：进程内结果缓存，容量满时淘汰最久未用项，条目按 TTL 过期
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type lruEntry struct {
	k   string
	v   []model.Organization
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(_ context.Context, k string) ([]model.Organization, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return nil, false
	}
	it := e.Value.(lruEntry)
	if c.ttl > 0 && !time.Now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, k)
		return nil, false
	}
	c.lst.MoveToFront(e)
	return it.v, true
}

func (c *LRU) Set(_ context.Context, k string, v []model.Organization) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := lruEntry{k: k, v: v, exp: time.Now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(lruEntry).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Purge(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lst.Init()
	c.dict = make(map[string]*list.Element)
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
