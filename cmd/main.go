// 程序入口：读取配置、初始化依赖并启动目录服务；API 注册在 internal/api
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orgdir/internal/api"
	"orgdir/internal/config"
	"orgdir/internal/directory"
	"orgdir/internal/iplocate"
	"orgdir/internal/logger"
	"orgdir/internal/metrics"
	"orgdir/internal/middleware"
	"orgdir/internal/store"
	"orgdir/internal/utils"
)

func main() {
	config.LoadDotenv()
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()
	l.Debug("config_api_base", "base", cfg.APIBase)

	dialect, err := utils.ParseDialect(cfg.StoreDriver)
	if err != nil {
		l.Error("config_store_driver_error", "err", err)
		os.Exit(1)
	}
	st, err := store.Open(dialect, cfg.SQLitePath)
	if err != nil {
		l.Error("db_open_error", "driver", dialect.String(), "err", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.DB().Ping(); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok", "driver", dialect.String())
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		rc = nil
	} else {
		l.Info("redis_ping_ok")
	}
	var cache directory.ResultCache
	if cfg.FilterCacheTTL > 0 {
		cache = directory.NewResultCache(rc, cfg.FilterCacheTTL, cfg.LocalCacheSize)
	}

	svc := directory.NewService(st, directory.Options{TTL: cfg.SnapshotTTL, Cache: cache, Logger: l})
	if _, err := svc.Snapshot(context.Background()); err != nil {
		// 启动时加载失败不退出，后续请求会重试
		l.Error("snapshot_warmup_error", "err", err)
	}

	var loc *iplocate.Locator
	if cfg.GeoIPPath != "" {
		if loc, err = iplocate.Open(cfg.GeoIPPath); err != nil {
			l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
			loc = nil
		} else {
			defer loc.Close()
		}
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, api.BuildRoutes(svc, loc)))
	metricsPath := cfg.APIBase + "/metrics"
	if !cfg.MetricsOff {
		mux.Handle(metricsPath, metrics.Handler())
	}
	mux.HandleFunc(cfg.APIBase+"/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.DB().PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	// 管理端：丢弃快照与结果缓存（数据导入后调用）
	mux.HandleFunc("POST "+cfg.APIBase+"/reload", func(w http.ResponseWriter, r *http.Request) {
		t := r.Header.Get("x-admin-token")
		if t == "" || t != cfg.AdminToken {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		svc.Invalidate(r.Context())
		if _, err := svc.Snapshot(r.Context()); err != nil {
			l.Error("snapshot_reload_error", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	var handler http.Handler = mux
	handler = middleware.APIKey(cfg.APIKey, metricsPath, cfg.APIBase+"/healthz", cfg.APIBase+"/reload")(handler)
	if cfg.RateLimitEnabled {
		handler = middleware.RateLimit(cfg.RateLimitQPS)(handler)
		l.Info("rate_limit_enabled", "qps", cfg.RateLimitQPS)
	}
	handler = logger.AccessMiddleware(l)(handler)

	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "orgdir.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
