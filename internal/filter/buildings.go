package filter

import (
	"sort"

	"orgdir/internal/geo"
	"orgdir/internal/model"
)

// Buildings：仅按地理条件过滤建筑，结果按建筑 ID 升序
func (e *Engine) Buildings(g GeoFilter, buildings []model.Building) ([]model.Building, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := make([]model.Building, 0, len(buildings))
	for _, b := range buildings {
		if g.Match(geo.Point{Lat: b.Latitude, Lon: b.Longitude}) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
