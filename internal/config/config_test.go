package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ADDR", "API_BASE", "API_KEY", "STORE_DRIVER", "SNAPSHOT_TTL_S", "FILTER_CACHE_TTL_S", "REDIS_ENABLE", "RATE_LIMIT_ENABLED", "RATE_LIMIT_QPS"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api/v1", c.APIBase)
	assert.Equal(t, "postgres", c.StoreDriver)
	assert.Equal(t, 30*time.Second, c.SnapshotTTL)
	assert.Equal(t, time.Minute, c.FilterCacheTTL)
	assert.True(t, c.RedisEnable)
	assert.False(t, c.RateLimitEnabled)
	assert.Equal(t, 200, c.RateLimitQPS)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SNAPSHOT_TTL_S", "0")
	t.Setenv("RATE_LIMIT_QPS", "not-a-number")
	t.Setenv("REDIS_ENABLE", "false")
	c := Load()
	assert.Equal(t, "sqlite", c.StoreDriver)
	assert.Equal(t, time.Duration(0), c.SnapshotTTL)
	assert.Equal(t, 200, c.RateLimitQPS)
	assert.False(t, c.RedisEnable)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ORGDIR_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("ORGDIR_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("ORGDIR_TEST_DOTENV"))

	LoadDotenv()
	assert.Equal(t, "from-file", os.Getenv("ORGDIR_TEST_DOTENV"))
}
