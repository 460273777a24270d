// 包 geo：球面距离与区域判定（半径、包围盒），纯函数、无状态，可并发调用
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters：地球半径（米），Haversine 计算固定使用该值
const EarthRadiusMeters = 6371000.0

// Epsilon：距离比较容差（米），仅用于吸收浮点误差
const Epsilon = 1e-9

// Point：坐标点（WGS84，度）
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InvalidCoordinateError：坐标超出定义域（纬度 [-90,90]，经度 [-180,180]）或为 NaN
type InvalidCoordinateError struct {
	Field string
	Value float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate: %s=%v out of range", e.Field, e.Value)
}

// Validate：校验坐标定义域
// 约束：越界视为调用方错误，直接返回错误，不做截断
func Validate(p Point) error {
	if err := checkLat("lat", p.Lat); err != nil {
		return err
	}
	return checkLon("lon", p.Lon)
}

func checkLat(field string, v float64) error {
	if math.IsNaN(v) || v < -90 || v > 90 {
		return &InvalidCoordinateError{Field: field, Value: v}
	}
	return nil
}

func checkLon(field string, v float64) error {
	if math.IsNaN(v) || v < -180 || v > 180 {
		return &InvalidCoordinateError{Field: field, Value: v}
	}
	return nil
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Distance：两点球面距离（Haversine），返回米
// 约束：对称；同一点返回 0；输入需事先通过 Validate
func Distance(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	sLat := math.Sin(dLat / 2)
	sLon := math.Sin(dLon / 2)
	h := sLat*sLat + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*sLon*sLon
	// 舍入可能使 h 略超出 [0,1]
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// WithinRadius：point 是否位于以 center 为圆心、radius 米为半径的圆内（含边界）
// 约束：负半径不命中任何点；半径 0 仅命中重合点
func WithinRadius(center, point Point, radius float64) bool {
	if math.IsNaN(radius) || radius < 0 {
		return false
	}
	return Distance(center, point) <= radius+Epsilon
}
