package geo

import "math"

// BoundingBox：经纬度轴对齐矩形（含边界）
type BoundingBox struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// Inverted：下界大于上界的退化矩形，不命中任何点
func (b BoundingBox) Inverted() bool { return b.LatMin > b.LatMax || b.LonMin > b.LonMax }

// Validate：四个边界分别校验定义域；倒置矩形不是错误
func (b BoundingBox) Validate() error {
	if err := checkLat("lat_min", b.LatMin); err != nil {
		return err
	}
	if err := checkLat("lat_max", b.LatMax); err != nil {
		return err
	}
	if err := checkLon("lon_min", b.LonMin); err != nil {
		return err
	}
	return checkLon("lon_max", b.LonMax)
}

// WithinBoundingBox：四个不等式的合取
func WithinBoundingBox(p Point, b BoundingBox) bool {
	return p.Lat >= b.LatMin && p.Lat <= b.LatMax && p.Lon >= b.LonMin && p.Lon <= b.LonMax
}

// BoundingBoxAround：圆的外接包围盒，用于半径检索前的粗过滤；最终是否命中仍以 WithinRadius 为准
// 约束：靠近极点或跨越反子午线时退化为全经度范围
func BoundingBoxAround(center Point, radius float64) BoundingBox {
	if radius < 0 {
		radius = 0
	}
	r := radius / EarthRadiusMeters
	lat := toRad(center.Lat)
	b := BoundingBox{
		LatMin: math.Max(-90, toDeg(lat-r)),
		LatMax: math.Min(90, toDeg(lat+r)),
		LonMin: -180,
		LonMax: 180,
	}
	s := math.Sin(r) / math.Cos(lat)
	if b.LatMin <= -90 || b.LatMax >= 90 || s >= 1 || math.IsInf(s, 0) {
		return b
	}
	dLon := toDeg(math.Asin(s))
	if center.Lon-dLon < -180 || center.Lon+dLon > 180 {
		return b
	}
	b.LonMin = center.Lon - dLon
	b.LonMax = center.Lon + dLon
	return b
}
