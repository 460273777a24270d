// 包 activity：业务分类树（森林）的内存索引，负责层级校验与后代闭包查询
package activity

import (
	"sort"

	"orgdir/internal/model"
)

type node struct {
	act      model.Activity
	level    int
	children []int64
}

// Hierarchy：一次会话内只读的分类树快照
// 背景：由父指针一次性构建子节点邻接表，查询期不再访问存储层
// 约束：Build 之后不可变，可被多个请求并发共享
type Hierarchy struct {
	nodes map[int64]*node
	roots []int64
}

// Set：分类 ID 集合
type Set map[int64]struct{}

// Has：是否包含 id
func (s Set) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// IDs：升序返回集合内容
func (s Set) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build：由全量分类记录构建分类树
// 背景：先建 id→节点 表与父→子邻接，再沿父链计算层级（记忆化），路径上重复出现即判定为环
// 返回：层级超过 model.MaxActivityLevel、存在环、父节点缺失、ID 重复或存储层级与计算结果不符时返回 *MalformedHierarchyError
func Build(activities []model.Activity) (*Hierarchy, error) {
	h := &Hierarchy{nodes: make(map[int64]*node, len(activities))}
	for _, a := range activities {
		if _, dup := h.nodes[a.ID]; dup {
			return nil, &MalformedHierarchyError{ActivityID: a.ID, Reason: ReasonDuplicateID}
		}
		h.nodes[a.ID] = &node{act: a}
	}
	for _, a := range activities {
		if a.ParentID == nil {
			h.roots = append(h.roots, a.ID)
			continue
		}
		p, ok := h.nodes[*a.ParentID]
		if !ok {
			return nil, &MalformedHierarchyError{ActivityID: a.ID, Reason: ReasonUnknownParent}
		}
		p.children = append(p.children, a.ID)
	}
	sortIDs(h.roots)
	for _, n := range h.nodes {
		sortIDs(n.children)
	}
	for _, a := range activities {
		if err := h.resolveLevel(a.ID); err != nil {
			return nil, err
		}
	}
	for _, a := range activities {
		n := h.nodes[a.ID]
		if a.Level != 0 && a.Level != n.level {
			return nil, &MalformedHierarchyError{ActivityID: a.ID, Reason: ReasonLevelMismatch, Level: a.Level}
		}
		n.act.Level = n.level
	}
	return h, nil
}

// resolveLevel：沿父链向上直到根或已知层级的节点，再回填路径上各节点的层级
func (h *Hierarchy) resolveLevel(id int64) error {
	if h.nodes[id].level > 0 {
		return nil
	}
	var path []int64
	onPath := make(map[int64]bool)
	base := 0
	cur := id
	for {
		n := h.nodes[cur]
		if n.level > 0 {
			base = n.level
			break
		}
		if onPath[cur] {
			return &MalformedHierarchyError{ActivityID: cur, Reason: ReasonCycle}
		}
		onPath[cur] = true
		path = append(path, cur)
		if n.act.ParentID == nil {
			break
		}
		cur = *n.act.ParentID
	}
	for i := len(path) - 1; i >= 0; i-- {
		base++
		if base > model.MaxActivityLevel {
			return &MalformedHierarchyError{ActivityID: path[i], Reason: ReasonDepth, Level: base}
		}
		h.nodes[path[i]].level = base
	}
	return nil
}

// DescendantsOf：返回节点自身及全部后代
// 背景：显式栈遍历预计算的邻接表，耗时与子树规模成正比
func (h *Hierarchy) DescendantsOf(id int64) (Set, error) {
	if _, ok := h.nodes[id]; !ok {
		return nil, &UnknownActivityError{ActivityID: id}
	}
	out := Set{}
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out.Has(cur) {
			continue
		}
		out[cur] = struct{}{}
		stack = append(stack, h.nodes[cur].children...)
	}
	return out, nil
}

// Get：按 ID 获取分类（Level 为计算值）
func (h *Hierarchy) Get(id int64) (model.Activity, bool) {
	n, ok := h.nodes[id]
	if !ok {
		return model.Activity{}, false
	}
	return n.act, true
}

// Level：节点层级，未知节点返回 0
func (h *Hierarchy) Level(id int64) int {
	if n, ok := h.nodes[id]; ok {
		return n.level
	}
	return 0
}

func (h *Hierarchy) Len() int { return len(h.nodes) }

func (h *Hierarchy) Roots() []int64 { return append([]int64(nil), h.roots...) }

// Activities：按 ID 升序的全量分类
func (h *Hierarchy) Activities() []model.Activity {
	ids := make([]int64, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	out := make([]model.Activity, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.nodes[id].act)
	}
	return out
}

// LevelUnder：新建分类时根据父级层级计算自身层级（根节点传 0）
// 约束：创建期即拒绝超过 model.MaxActivityLevel 的层级
func LevelUnder(parentLevel int) (int, error) {
	lvl := parentLevel + 1
	if lvl > model.MaxActivityLevel {
		return 0, &MalformedHierarchyError{Reason: ReasonDepth, Level: lvl}
	}
	return lvl, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
