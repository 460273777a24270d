package directory

import (
	"sort"
	"time"

	"orgdir/internal/activity"
	"orgdir/internal/model"
)

// Snapshot：某一时刻目录数据的只读视图（分类树、建筑、组织）
// 约束：构建后不再修改，可被多个请求并发读取；重新加载时整体替换
type Snapshot struct {
	h         *activity.Hierarchy
	orgs      []model.Organization
	buildings map[int64]model.Building
	blist     []model.Building
	loadedAt  time.Time
}

// NewSnapshot：由三份全量数据构建快照；分类树非法时返回 *activity.MalformedHierarchyError
func NewSnapshot(acts []model.Activity, buildings []model.Building, orgs []model.Organization) (*Snapshot, error) {
	h, err := activity.Build(acts)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		h:         h,
		orgs:      append([]model.Organization(nil), orgs...),
		buildings: make(map[int64]model.Building, len(buildings)),
		blist:     append([]model.Building(nil), buildings...),
		loadedAt:  time.Now(),
	}
	for _, b := range buildings {
		s.buildings[b.ID] = b
	}
	sort.Slice(s.blist, func(i, j int) bool { return s.blist[i].ID < s.blist[j].ID })
	sort.Slice(s.orgs, func(i, j int) bool { return s.orgs[i].ID < s.orgs[j].ID })
	return s, nil
}

func (s *Snapshot) Organizations() []model.Organization { return s.orgs }

func (s *Snapshot) Building(id int64) (model.Building, bool) {
	b, ok := s.buildings[id]
	return b, ok
}

func (s *Snapshot) Buildings() []model.Building { return s.blist }

func (s *Snapshot) Hierarchy() *activity.Hierarchy { return s.h }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
