// 包 store: 目录数据访问层（postgres / sqlite），为核心过滤提供建筑、分类、组织的全量读取
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"orgdir/internal/activity"
	"orgdir/internal/logger"
	"orgdir/internal/migrate"
	"orgdir/internal/model"
	"orgdir/internal/utils"
)

// ErrNotFound：记录不存在
var ErrNotFound = errors.New("not found")

// Store: 数据库访问入口，持有连接池与方言
type Store struct {
	db *sql.DB
	d  utils.Dialect
}

func AttachDB(db *sql.DB, d utils.Dialect) *Store { return &Store{db: db, d: d} }

// Open: 按方言打开数据库并确保表结构存在
func Open(d utils.Dialect, sqlitePath string) (*Store, error) {
	db, err := utils.Open(d, sqlitePath)
	if err != nil {
		return nil, err
	}
	if err := migrate.EnsureSchema(db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, d: d}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() utils.Dialect { return s.d }

func (s *Store) q(query string) string { return s.d.Rebind(query) }

// ListBuildings: 全量读取建筑（按 id 升序）
func (s *Store) ListBuildings(ctx context.Context) ([]model.Building, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, address, postcode, cadastral_number, latitude, longitude FROM buildings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()
	var out []model.Building
	for rows.Next() {
		var b model.Building
		if err := rows.Scan(&b.ID, &b.Address, &b.Postcode, &b.CadastralNumber, &b.Latitude, &b.Longitude); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBuilding: 按 id 读取建筑
func (s *Store) GetBuilding(ctx context.Context, id int64) (model.Building, error) {
	var b model.Building
	row := s.db.QueryRowContext(ctx, s.q("SELECT id, address, postcode, cadastral_number, latitude, longitude FROM buildings WHERE id=?"), id)
	if err := row.Scan(&b.ID, &b.Address, &b.Postcode, &b.CadastralNumber, &b.Latitude, &b.Longitude); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, ErrNotFound
		}
		return b, fmt.Errorf("get building %d: %w", id, err)
	}
	return b, nil
}

// ListActivities: 全量读取业务分类（按 id 升序），层级为存储值，由 activity.Build 复核
func (s *Store) ListActivities(ctx context.Context) ([]model.Activity, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, parent_id, level FROM activities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()
	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		var parent sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &parent, &a.Level); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if parent.Valid {
			p := parent.Int64
			a.ParentID = &p
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListOrganizations: 全量读取组织及其分类标签（按 id 升序）
// 背景：两次查询（组织表 + 关联表）在内存合并，避免按组织逐条查询
func (s *Store) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, building_id, phones FROM organizations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()
	var out []model.Organization
	idx := make(map[int64]int)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		idx[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	arows, err := s.db.QueryContext(ctx, "SELECT organization_id, activity_id FROM organization_activity ORDER BY organization_id, activity_id")
	if err != nil {
		return nil, fmt.Errorf("list organization activities: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var oid, aid int64
		if err := arows.Scan(&oid, &aid); err != nil {
			return nil, fmt.Errorf("scan organization activity: %w", err)
		}
		if i, ok := idx[oid]; ok {
			out[i].ActivityIDs = append(out[i].ActivityIDs, aid)
		}
	}
	logger.L().Debug("store_list_organizations", "count", len(out))
	return out, arows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanOrganization(r scanner) (model.Organization, error) {
	var o model.Organization
	var phones string
	if err := r.Scan(&o.ID, &o.Name, &o.BuildingID, &phones); err != nil {
		return o, fmt.Errorf("scan organization: %w", err)
	}
	o.Phones = []string{}
	if phones != "" {
		if err := json.Unmarshal([]byte(phones), &o.Phones); err != nil {
			return o, fmt.Errorf("decode phones of organization %d: %w", o.ID, err)
		}
	}
	return o, nil
}

// GetOrganization: 组织详情（含建筑与分类）；不存在返回 ErrNotFound
func (s *Store) GetOrganization(ctx context.Context, id int64) (model.OrganizationDetail, error) {
	var d model.OrganizationDetail
	row := s.db.QueryRowContext(ctx, s.q("SELECT id, name, building_id, phones FROM organizations WHERE id=?"), id)
	o, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, ErrNotFound
		}
		return d, err
	}
	d.Organization = o
	if d.Building, err = s.GetBuilding(ctx, o.BuildingID); err != nil {
		return d, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT a.id, a.name, a.parent_id, a.level
        FROM activities a JOIN organization_activity oa ON oa.activity_id = a.id
        WHERE oa.organization_id=? ORDER BY a.id`), id)
	if err != nil {
		return d, fmt.Errorf("organization %d activities: %w", id, err)
	}
	defer rows.Close()
	d.Activities = []model.Activity{}
	for rows.Next() {
		var a model.Activity
		var parent sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &parent, &a.Level); err != nil {
			return d, fmt.Errorf("scan activity: %w", err)
		}
		if parent.Valid {
			p := parent.Int64
			a.ParentID = &p
		}
		d.Activities = append(d.Activities, a)
		d.ActivityIDs = append(d.ActivityIDs, a.ID)
	}
	return d, rows.Err()
}

// CreateBuilding: 新建建筑，返回 id
func (s *Store) CreateBuilding(ctx context.Context, b model.Building) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`INSERT INTO buildings(address, postcode, cadastral_number, latitude, longitude)
        VALUES(?,?,?,?,?) RETURNING id`), b.Address, b.Postcode, b.CadastralNumber, b.Latitude, b.Longitude).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create building: %w", err)
	}
	return id, nil
}

// CreateActivity: 新建业务分类，层级由父节点推导
// 约束：层级超过上限时返回 *activity.MalformedHierarchyError，不写库；父节点不存在返回 ErrNotFound
func (s *Store) CreateActivity(ctx context.Context, name string, parentID *int64) (model.Activity, error) {
	a := model.Activity{Name: name, ParentID: parentID}
	parentLevel := 0
	if parentID != nil {
		row := s.db.QueryRowContext(ctx, s.q("SELECT level FROM activities WHERE id=?"), *parentID)
		if err := row.Scan(&parentLevel); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return a, fmt.Errorf("parent activity %d: %w", *parentID, ErrNotFound)
			}
			return a, fmt.Errorf("parent activity %d: %w", *parentID, err)
		}
	}
	lvl, err := activity.LevelUnder(parentLevel)
	if err != nil {
		return a, fmt.Errorf("create activity %q: %w", name, err)
	}
	a.Level = lvl
	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: *parentID, Valid: true}
	}
	err = s.db.QueryRowContext(ctx, s.q("INSERT INTO activities(name, parent_id, level) VALUES(?,?,?) RETURNING id"), name, parent, lvl).Scan(&a.ID)
	if err != nil {
		return a, fmt.Errorf("create activity %q: %w", name, err)
	}
	return a, nil
}

// CreateOrganization: 新建组织及其分类关联（单事务）
func (s *Store) CreateOrganization(ctx context.Context, o model.Organization) (int64, error) {
	phones := o.Phones
	if phones == nil {
		phones = []string{}
	}
	pb, err := json.Marshal(phones)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	var id int64
	if err := tx.QueryRowContext(ctx, s.q("INSERT INTO organizations(name, building_id, phones) VALUES(?,?,?) RETURNING id"), o.Name, o.BuildingID, string(pb)).Scan(&id); err != nil {
		return 0, fmt.Errorf("create organization %q: %w", o.Name, err)
	}
	seen := make(map[int64]bool, len(o.ActivityIDs))
	for _, aid := range o.ActivityIDs {
		if seen[aid] {
			continue
		}
		seen[aid] = true
		if _, err := tx.ExecContext(ctx, s.q("INSERT INTO organization_activity(organization_id, activity_id) VALUES(?,?)"), id, aid); err != nil {
			return 0, fmt.Errorf("tag organization %d with activity %d: %w", id, aid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Reset: 清空目录数据（种子数据导入前使用）
func (s *Store) Reset(ctx context.Context) error {
	for _, t := range []string{"organization_activity", "organizations", "activities", "buildings"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("reset %s: %w", t, err)
		}
	}
	logger.L().Info("store_reset")
	return nil
}
