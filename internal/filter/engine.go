// 包 filter：将建筑、分类（含后代）、名称子串、地理条件组合为一次遍历的组织过滤
package filter

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"orgdir/internal/activity"
	"orgdir/internal/geo"
	"orgdir/internal/metrics"
	"orgdir/internal/model"
)

// Snapshot：过滤所需的只读数据源（组织全集与建筑坐标）
type Snapshot interface {
	Organizations() []model.Organization
	Building(id int64) (model.Building, bool)
}

// Engine：组织过滤引擎，无内部可变状态，可并发调用
type Engine struct {
	log *slog.Logger
}

func NewEngine(l *slog.Logger) *Engine {
	if l == nil {
		l = slog.Default()
	}
	return &Engine{log: l}
}

type predicate func(o *model.Organization) bool

// Evaluate：按条件合取过滤组织，结果按组织 ID 升序
// 背景：分类条件先一次性展开为后代闭包，随后每个组织仅做 O(1) 集合判定；地理条件下每栋建筑坐标在本次遍历中只解析一次
// 返回：坐标越界返回 *geo.InvalidCoordinateError；分类 ID 不在快照中返回 *activity.UnknownActivityError；无命中返回空切片而非错误
func (e *Engine) Evaluate(c Criteria, h *activity.Hierarchy, snap Snapshot) ([]model.Organization, error) {
	begin := time.Now()
	if err := c.Geo.Validate(); err != nil {
		metrics.FilterErrorsTotal.WithLabelValues("invalid_geo").Inc()
		return nil, err
	}
	preds, err := e.compile(c, h, snap)
	if err != nil {
		metrics.FilterErrorsTotal.WithLabelValues("unknown_activity").Inc()
		return nil, err
	}
	orgs := snap.Organizations()
	out := make([]model.Organization, 0, len(orgs))
	for i := range orgs {
		if matchAll(preds, &orgs[i]) {
			out = append(out, orgs[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	metrics.FilterEvaluationsTotal.WithLabelValues(c.Geo.Mode().String()).Inc()
	metrics.FilterResultSize.Observe(float64(len(out)))
	e.log.Debug("filter_eval_done",
		"criteria", c.Key(),
		"candidates", len(orgs),
		"matched", len(out),
		"duration_us", time.Since(begin).Microseconds(),
	)
	return out, nil
}

func matchAll(preds []predicate, o *model.Organization) bool {
	for _, p := range preds {
		if !p(o) {
			return false
		}
	}
	return true
}

// compile：将条件转换为谓词列表；各谓词相互独立，顺序不影响结果
func (e *Engine) compile(c Criteria, h *activity.Hierarchy, snap Snapshot) ([]predicate, error) {
	var preds []predicate
	if c.BuildingID != nil {
		want := *c.BuildingID
		preds = append(preds, func(o *model.Organization) bool { return o.BuildingID == want })
	}
	if c.ActivityID != nil {
		closure, err := ExpandActivity(h, *c.ActivityID)
		if err != nil {
			return nil, err
		}
		preds = append(preds, func(o *model.Organization) bool {
			for _, id := range o.ActivityIDs {
				if closure.Has(id) {
					return true
				}
			}
			return false
		})
	}
	if c.NameSubstring != "" {
		needle := strings.ToLower(c.NameSubstring)
		preds = append(preds, func(o *model.Organization) bool {
			return strings.Contains(strings.ToLower(o.Name), needle)
		})
	}
	if c.Geo.Mode() != GeoNone {
		coords := newCoordCache(snap)
		g := c.Geo
		preds = append(preds, func(o *model.Organization) bool {
			p, ok := coords.lookup(o.BuildingID)
			return ok && g.Match(p)
		})
	}
	return preds, nil
}

// ExpandActivity：分类条件展开为后代闭包（含自身），每次请求只计算一次
func ExpandActivity(h *activity.Hierarchy, id int64) (activity.Set, error) {
	if h == nil {
		return nil, &activity.UnknownActivityError{ActivityID: id}
	}
	return h.DescendantsOf(id)
}

type coordEntry struct {
	p  geo.Point
	ok bool
}

// coordCache：单次遍历内的建筑坐标缓存
type coordCache struct {
	snap Snapshot
	m    map[int64]coordEntry
}

func newCoordCache(snap Snapshot) *coordCache {
	return &coordCache{snap: snap, m: make(map[int64]coordEntry)}
}

func (c *coordCache) lookup(buildingID int64) (geo.Point, bool) {
	if e, hit := c.m[buildingID]; hit {
		return e.p, e.ok
	}
	b, ok := c.snap.Building(buildingID)
	e := coordEntry{p: geo.Point{Lat: b.Latitude, Lon: b.Longitude}, ok: ok}
	c.m[buildingID] = e
	return e.p, e.ok
}
