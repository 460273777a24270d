package filter

import (
	"strconv"
	"strings"

	"orgdir/internal/geo"
)

// GeoMode：地理条件类型（互斥）
type GeoMode int

const (
	GeoNone GeoMode = iota
	GeoRadius
	GeoBox
)

func (m GeoMode) String() string {
	switch m {
	case GeoRadius:
		return "radius"
	case GeoBox:
		return "bbox"
	default:
		return "none"
	}
}

// RadiusQuery：半径检索参数（米）
type RadiusQuery struct {
	Center geo.Point
	Radius float64
}

// GeoFilter：半径/包围盒/无 三选一
// 背景：将四个可选标量收敛为带标签的选择，避免“两者同时给出”的歧义
type GeoFilter struct {
	mode   GeoMode
	radius RadiusQuery
	box    geo.BoundingBox
	// 半径模式下圆的外接矩形，先做廉价的矩形判定再算球面距离
	coarse geo.BoundingBox
}

// coarsePad：外接矩形外扩（度），吸收三角函数舍入
const coarsePad = 1e-7

func NoGeo() GeoFilter { return GeoFilter{} }

func Radius(center geo.Point, radius float64) GeoFilter {
	c := geo.BoundingBoxAround(center, radius)
	c.LatMin -= coarsePad
	c.LatMax += coarsePad
	c.LonMin -= coarsePad
	c.LonMax += coarsePad
	return GeoFilter{mode: GeoRadius, radius: RadiusQuery{Center: center, Radius: radius}, coarse: c}
}

func Box(b geo.BoundingBox) GeoFilter { return GeoFilter{mode: GeoBox, box: b} }

// NewGeoFilter：由两组可选参数构造地理条件
// 约束：两者都给出时半径检索优先，包围盒被忽略
func NewGeoFilter(r *RadiusQuery, b *geo.BoundingBox) GeoFilter {
	switch {
	case r != nil:
		return Radius(r.Center, r.Radius)
	case b != nil:
		return Box(*b)
	default:
		return NoGeo()
	}
}

func (g GeoFilter) Mode() GeoMode { return g.mode }

// RadiusQuery：仅在 GeoRadius 模式下有效
func (g GeoFilter) RadiusQuery() (RadiusQuery, bool) { return g.radius, g.mode == GeoRadius }

// BoundingBox：仅在 GeoBox 模式下有效
func (g GeoFilter) BoundingBox() (geo.BoundingBox, bool) { return g.box, g.mode == GeoBox }

// Validate：坐标越界属于输入错误；负半径与倒置矩形是合法输入（结果为空）
func (g GeoFilter) Validate() error {
	switch g.mode {
	case GeoRadius:
		return geo.Validate(g.radius.Center)
	case GeoBox:
		return g.box.Validate()
	}
	return nil
}

// Match：判定坐标是否满足地理条件
func (g GeoFilter) Match(p geo.Point) bool {
	switch g.mode {
	case GeoRadius:
		if !geo.WithinBoundingBox(p, g.coarse) {
			return false
		}
		return geo.WithinRadius(g.radius.Center, p, g.radius.Radius)
	case GeoBox:
		return geo.WithinBoundingBox(p, g.box)
	}
	return true
}

// Criteria：组织检索条件，各项可选，缺省不构成约束
type Criteria struct {
	BuildingID    *int64
	ActivityID    *int64
	NameSubstring string
	Geo           GeoFilter
}

// Empty：无任何约束（恒等过滤）
func (c Criteria) Empty() bool {
	return c.BuildingID == nil && c.ActivityID == nil && c.NameSubstring == "" && c.Geo.Mode() == GeoNone
}

// Key：条件的规范化文本，用作结果缓存键
// 约束：语义相同的条件生成相同的键；名称按小写归一
func (c Criteria) Key() string {
	var sb strings.Builder
	if c.BuildingID != nil {
		sb.WriteString("b=" + strconv.FormatInt(*c.BuildingID, 10) + ";")
	}
	if c.ActivityID != nil {
		sb.WriteString("a=" + strconv.FormatInt(*c.ActivityID, 10) + ";")
	}
	if c.NameSubstring != "" {
		sb.WriteString("n=" + strconv.Quote(strings.ToLower(c.NameSubstring)) + ";")
	}
	switch c.Geo.Mode() {
	case GeoRadius:
		r := c.Geo.radius
		sb.WriteString("r=" + ftoa(r.Center.Lat) + "," + ftoa(r.Center.Lon) + "," + ftoa(r.Radius) + ";")
	case GeoBox:
		b := c.Geo.box
		sb.WriteString("x=" + ftoa(b.LatMin) + "," + ftoa(b.LatMax) + "," + ftoa(b.LonMin) + "," + ftoa(b.LonMax) + ";")
	}
	if sb.Len() == 0 {
		return "all"
	}
	return sb.String()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
