package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"orgdir/internal/filter"
	"orgdir/internal/geo"
)

// badRequest：查询参数无法解析
type badRequest struct {
	param string
	value string
}

func (e *badRequest) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s", e.value, e.param)
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &badRequest{param: "id", value: s}
	}
	return n, nil
}

func parseInt(q url.Values, k string) (*int64, error) {
	s := q.Get(k)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &badRequest{param: k, value: s}
	}
	return &n, nil
}

func parseFloat(q url.Values, k string) (float64, error) {
	s := q.Get(k)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &badRequest{param: k, value: s}
	}
	return f, nil
}

func parseBool(q url.Values, k string) (bool, error) {
	s := q.Get(k)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, &badRequest{param: k, value: s}
	}
	return b, nil
}

// has：参数组是否全部给出
func has(q url.Values, keys ...string) bool {
	for _, k := range keys {
		if q.Get(k) == "" {
			return false
		}
	}
	return true
}

// floats：按顺序解析一组浮点参数
func floats(q url.Values, keys ...string) ([]float64, error) {
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		f, err := parseFloat(q, k)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// parseGeo：lat/lon/radius 三者齐全时为半径检索，lat_min/lat_max/lon_min/lon_max 四者齐全时为矩形检索
// 约束：两组都齐全时半径优先；不完整的参数组忽略
func parseGeo(q url.Values) (filter.GeoFilter, error) {
	var rq *filter.RadiusQuery
	var box *geo.BoundingBox
	if has(q, "lat", "lon", "radius") {
		v, err := floats(q, "lat", "lon", "radius")
		if err != nil {
			return filter.NoGeo(), err
		}
		rq = &filter.RadiusQuery{Center: geo.Point{Lat: v[0], Lon: v[1]}, Radius: v[2]}
	}
	if has(q, "lat_min", "lat_max", "lon_min", "lon_max") {
		v, err := floats(q, "lat_min", "lat_max", "lon_min", "lon_max")
		if err != nil {
			return filter.NoGeo(), err
		}
		box = &geo.BoundingBox{LatMin: v[0], LatMax: v[1], LonMin: v[2], LonMax: v[3]}
	}
	return filter.NewGeoFilter(rq, box), nil
}

func parseCriteria(q url.Values) (filter.Criteria, error) {
	var c filter.Criteria
	var err error
	if c.BuildingID, err = parseInt(q, "building_id"); err != nil {
		return c, err
	}
	if c.ActivityID, err = parseInt(q, "activity_id"); err != nil {
		return c, err
	}
	c.NameSubstring = strings.TrimSpace(q.Get("name"))
	if c.Geo, err = parseGeo(q); err != nil {
		return c, err
	}
	return c, nil
}
