// 包 directory：组织目录服务，维护带过期时间的只读快照并在其上执行过滤
package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"orgdir/internal/activity"
	"orgdir/internal/filter"
	"orgdir/internal/metrics"
	"orgdir/internal/model"
	"orgdir/internal/store"
)

// ErrNotFound：组织不存在
var ErrNotFound = store.ErrNotFound

// Reader：快照加载所需的数据源（通常为 *store.Store）
type Reader interface {
	ListBuildings(ctx context.Context) ([]model.Building, error)
	ListActivities(ctx context.Context) ([]model.Activity, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	GetOrganization(ctx context.Context, id int64) (model.OrganizationDetail, error)
}

type Options struct {
	// TTL<=0 表示快照不过期，仅在 Invalidate 后重载
	TTL    time.Duration
	Cache  ResultCache
	Logger *slog.Logger
}

// Service：目录查询入口
// 背景：读路径原子读取当前快照，不持锁；过期后由单个请求负责重载，其余请求等待同一结果
type Service struct {
	r      Reader
	engine *filter.Engine
	ttl    time.Duration
	cache  ResultCache
	log    *slog.Logger

	cur atomic.Pointer[Snapshot]
	mu  sync.Mutex
}

func NewService(r Reader, opt Options) *Service {
	l := opt.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Service{r: r, engine: filter.NewEngine(l), ttl: opt.TTL, cache: opt.Cache, log: l}
}

func (s *Service) fresh(snap *Snapshot) bool {
	return snap != nil && (s.ttl <= 0 || time.Since(snap.LoadedAt()) < s.ttl)
}

// Snapshot：返回当前快照，过期或失效时重新加载
// 约束：重载失败且存在旧快照时继续使用旧快照并记录告警；没有旧快照时返回错误
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.cur.Load(); s.fresh(snap) {
		return snap, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cur.Load()
	if s.fresh(old) {
		return old, nil
	}
	snap, err := s.load(ctx)
	if err != nil {
		metrics.SnapshotReloadsTotal.WithLabelValues("error").Inc()
		if old != nil {
			s.log.Warn("snapshot_reload_failed_serving_stale", "err", err, "age_s", int(time.Since(old.LoadedAt()).Seconds()))
			return old, nil
		}
		s.log.Error("snapshot_reload_failed", "err", err)
		return nil, err
	}
	s.cur.Store(snap)
	if s.cache != nil && old != nil {
		s.cache.Purge(ctx)
	}
	metrics.SnapshotReloadsTotal.WithLabelValues("ok").Inc()
	metrics.HierarchySize.Set(float64(snap.Hierarchy().Len()))
	s.log.Info("snapshot_loaded",
		"activities", snap.Hierarchy().Len(),
		"buildings", len(snap.Buildings()),
		"organizations", len(snap.Organizations()),
	)
	return snap, nil
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	acts, err := s.r.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	bs, err := s.r.ListBuildings(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := s.r.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(acts, bs, orgs)
}

// Invalidate：丢弃当前快照与结果缓存，下一次查询重新加载
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.cur.Store(nil)
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Purge(ctx)
	}
	s.log.Info("snapshot_invalidated")
}

// Search：按条件检索组织，结果按 ID 升序
// 返回：*geo.InvalidCoordinateError 与 *activity.UnknownActivityError 原样返回，由调用方决定呈现方式
func (s *Service) Search(ctx context.Context, c filter.Criteria) ([]model.Organization, error) {
	key := c.Key()
	if s.cache != nil {
		if v, ok := s.cache.Get(ctx, key); ok {
			metrics.CacheHitsTotal.Inc()
			return v, nil
		}
		metrics.CacheMissesTotal.Inc()
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Evaluate(c, snap.Hierarchy(), snap)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, out)
	}
	return out, nil
}

// Organization：组织详情，直接读数据源以获得最新记录
func (s *Service) Organization(ctx context.Context, id int64) (model.OrganizationDetail, error) {
	d, err := s.r.GetOrganization(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return d, ErrNotFound
	}
	return d, err
}

// Buildings：建筑列表，可附加地理条件
func (s *Service) Buildings(ctx context.Context, g filter.GeoFilter) ([]model.Building, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Buildings(g, snap.Buildings())
}

// Activities：扁平分类列表（层级为计算值）
func (s *Service) Activities(ctx context.Context) ([]model.Activity, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Hierarchy().Activities(), nil
}

// ActivityTree：嵌套分类树
func (s *Service) ActivityTree(ctx context.Context) ([]activity.TreeNode, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Hierarchy().Tree(), nil
}
