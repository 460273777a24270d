package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"orgdir/internal/logger"
)

// APIKeyHeader：客户端携带静态密钥的请求头
const APIKeyHeader = "X-API-Key"

// APIKey：静态 API Key 校验
// 约束：缺失返回 401，不匹配返回 403；exempt 中的路径前缀（如 /metrics）不校验；key 为空时不启用
func APIKey(key string, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			logger.L().Warn("api_key_disabled")
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range exempt {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			got := r.Header.Get(APIKeyHeader)
			if got == "" {
				writeDetail(w, http.StatusUnauthorized, "Missing API Key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.L().Debug("api_key_rejected", "path", r.URL.Path, "request_id", logger.RequestID(r.Context()))
				writeDetail(w, http.StatusForbidden, "Invalid API Key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
