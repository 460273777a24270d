package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"orgdir/internal/config"
	"orgdir/internal/logger"
	"orgdir/internal/seed"
	"orgdir/internal/store"
	"orgdir/internal/utils"
)

// 种子数据导入：确保表结构后清空并导入 YAML 中的建筑、分类树与组织
// 约束：会删除现有目录数据；文件不存在时使用内置数据
func main() {
	config.LoadDotenv()
	l := logger.Setup()
	cfg := config.Load()

	path := flag.String("f", filepath.Join("data", "seed.yaml"), "seed fixture (yaml)")
	flag.Parse()

	dialect, err := utils.ParseDialect(cfg.StoreDriver)
	if err != nil {
		l.Error("config_store_driver_error", "err", err)
		os.Exit(1)
	}
	st, err := store.Open(dialect, cfg.SQLitePath)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	f, err := seed.Load(*path)
	if err != nil {
		l.Error("seed_load_error", "path", *path, "err", err)
		os.Exit(1)
	}
	sum, err := seed.Apply(context.Background(), st, f)
	if err != nil {
		l.Error("seed_apply_error", "err", err)
		os.Exit(1)
	}
	l.Info("seed_done", "buildings", sum.Buildings, "activities", sum.Activities, "organizations", sum.Organizations)
}
