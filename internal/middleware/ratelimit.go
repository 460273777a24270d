// 包 middleware：入口级中间件（限流、API Key 校验）
package middleware

import (
	"net/http"
	"sync"
	"time"

	"orgdir/internal/logger"
	"orgdir/internal/metrics"
)

// TokenBucket：按秒补满的令牌桶
// 约束：简化实现，不排队，超出直接返回 429
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 1
	}
	tb := &TokenBucket{capacity: qps, tokens: qps, now: time.Now}
	tb.lastSec = tb.now().Unix()
	return tb
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit：令牌桶限流中间件
func RateLimit(qps int) func(http.Handler) http.Handler {
	tb := NewTokenBucket(qps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tb.Allow() {
				metrics.RateLimitedTotal.Inc()
				logger.L().Debug("rate_limited", "path", r.URL.Path, "request_id", logger.RequestID(r.Context()))
				writeDetail(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
