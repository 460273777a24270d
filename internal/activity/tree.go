package activity

import "orgdir/internal/model"

// TreeNode：嵌套树输出结构（/activities?include_tree=true）
type TreeNode struct {
	model.Activity
	Children []TreeNode `json:"children"`
}

// Tree：按根节点展开整棵森林，子节点按 ID 升序
// 约束：深度受 model.MaxActivityLevel 限制，递归层数有界
func (h *Hierarchy) Tree() []TreeNode {
	out := make([]TreeNode, 0, len(h.roots))
	for _, id := range h.roots {
		out = append(out, h.subtree(id))
	}
	return out
}

func (h *Hierarchy) subtree(id int64) TreeNode {
	n := h.nodes[id]
	t := TreeNode{Activity: n.act, Children: make([]TreeNode, 0, len(n.children))}
	for _, c := range n.children {
		t.Children = append(t.Children, h.subtree(c))
	}
	return t
}
