// 包 model：目录服务的实体定义（建筑、业务分类、组织），供核心过滤与存储层共享
package model

// MaxActivityLevel：业务分类树的最大层级（根为 1）
const MaxActivityLevel = 3

// Building：建筑，坐标为 WGS84 经纬度（度）
type Building struct {
	ID              int64   `json:"id"`
	Address         string  `json:"address"`
	Postcode        string  `json:"postcode,omitempty"`
	CadastralNumber string  `json:"cadastral_number,omitempty"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

// Activity：业务分类节点
// 约束：ParentID 为空表示根节点；Level 根为 1，子节点为父级 +1，且不超过 MaxActivityLevel。
type Activity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
	Level    int    `json:"level"`
}

// IsRoot：是否为根分类
func (a Activity) IsRoot() bool { return a.ParentID == nil }

// Organization：组织，归属唯一建筑，可挂多个业务分类
type Organization struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	BuildingID  int64    `json:"building_id"`
	Phones      []string `json:"phones"`
	ActivityIDs []int64  `json:"activity_ids"`
}

// OrganizationDetail：组织详情（附带建筑与分类全量信息）
type OrganizationDetail struct {
	Organization
	Building   Building   `json:"building"`
	Activities []Activity `json:"activities"`
}
