package migrate

import (
	"database/sql"
	"fmt"

	"orgdir/internal/logger"
	"orgdir/internal/utils"
)

// EnsureSchema：首次运行自动创建目录服务所需表与索引
// 背景：建筑、业务分类（自引用父指针）、组织与组织-分类关联；phones 以 JSON 文本存储以兼容 postgres/sqlite
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；层级约束在库内以 CHECK 兜底，应用层在创建时校验
func EnsureSchema(db *sql.DB, d utils.Dialect) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS buildings (
            ` + d.IDColumn() + `,
            address TEXT NOT NULL,
            postcode TEXT NOT NULL DEFAULT '',
            cadastral_number TEXT NOT NULL DEFAULT '',
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_buildings_lat_lon ON buildings(latitude, longitude)`,
		`CREATE TABLE IF NOT EXISTS activities (
            ` + d.IDColumn() + `,
            name TEXT NOT NULL UNIQUE,
            parent_id BIGINT REFERENCES activities(id) ON DELETE CASCADE,
            level INT NOT NULL DEFAULT 1 CHECK (level BETWEEN 1 AND 3)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_activities_parent ON activities(parent_id)`,
		`CREATE TABLE IF NOT EXISTS organizations (
            ` + d.IDColumn() + `,
            name TEXT NOT NULL,
            building_id BIGINT NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
            phones TEXT NOT NULL DEFAULT '[]'
        )`,
		`CREATE INDEX IF NOT EXISTS idx_organizations_building ON organizations(building_id)`,
		`CREATE TABLE IF NOT EXISTS organization_activity (
            organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
            activity_id BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
            PRIMARY KEY (organization_id, activity_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_org_activity_activity ON organization_activity(activity_id)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i, "dialect", d.String())
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema stmt %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
