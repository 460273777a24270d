// 包 config：集中读取运行配置（.env 与环境变量），为各组件提供带默认值的参数
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config：服务运行参数
type Config struct {
	Addr       string
	APIBase    string
	APIKey     string
	AdminToken string
	MetricsOff bool

	StoreDriver string // postgres | sqlite
	SQLitePath  string

	RedisEnable    bool
	FilterCacheTTL time.Duration
	LocalCacheSize int

	SnapshotTTL time.Duration
	GeoIPPath   string

	RateLimitEnabled bool
	RateLimitQPS     int

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string
}

// LoadDotenv：加载 .env 与 data/env/.env，文件缺失时静默跳过
func LoadDotenv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// Load：从环境变量构建配置
// 约束：数值解析失败时回退默认值，不中断启动
func Load() Config {
	c := Config{
		Addr:             getenv("ADDR", ":8080"),
		APIBase:          getenv("API_BASE", "/api/v1"),
		APIKey:           os.Getenv("API_KEY"),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		MetricsOff:       os.Getenv("METRICS_DISABLED") == "true",
		StoreDriver:      getenv("STORE_DRIVER", "postgres"),
		SQLitePath:       getenv("SQLITE_PATH", filepath.Join("data", "orgdir.db")),
		RedisEnable:      os.Getenv("REDIS_ENABLE") != "false",
		FilterCacheTTL:   seconds("FILTER_CACHE_TTL_S", 60),
		LocalCacheSize:   intenv("LOCAL_CACHE_SIZE", 1024),
		SnapshotTTL:      seconds("SNAPSHOT_TTL_S", 30),
		GeoIPPath:        os.Getenv("GEOIP_DB_PATH"),
		RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
		RateLimitQPS:     intenv("RATE_LIMIT_QPS", 200),
		TLSEnable:        os.Getenv("TLS_ENABLE") == "true",
		TLSCertPath:      getenv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:       getenv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
	}
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intenv(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// seconds：秒数配置，0 表示关闭对应缓存
func seconds(k string, def int) time.Duration {
	return time.Duration(intenv(k, def)) * time.Second
}
