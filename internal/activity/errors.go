package activity

import "fmt"

// 分类树结构异常原因
const (
	ReasonDepth         = "depth_exceeded"
	ReasonCycle         = "cycle"
	ReasonUnknownParent = "unknown_parent"
	ReasonDuplicateID   = "duplicate_id"
	ReasonLevelMismatch = "level_mismatch"
)

// MalformedHierarchyError：分类树构建失败（层级越界、环、父节点缺失等）
// 约束：对构建是致命的，调用方不得自行修复后继续使用
type MalformedHierarchyError struct {
	ActivityID int64
	Reason     string
	Level      int
}

func (e *MalformedHierarchyError) Error() string {
	if e.Reason == ReasonDepth || e.Reason == ReasonLevelMismatch {
		return fmt.Sprintf("malformed activity hierarchy: activity %d: %s (level %d)", e.ActivityID, e.Reason, e.Level)
	}
	return fmt.Sprintf("malformed activity hierarchy: activity %d: %s", e.ActivityID, e.Reason)
}

// UnknownActivityError：查询的分类 ID 不在当前快照中
type UnknownActivityError struct {
	ActivityID int64
}

func (e *UnknownActivityError) Error() string {
	return fmt.Sprintf("unknown activity %d", e.ActivityID)
}
