// 包 iplocate：基于本地 MaxMind 格式数据库的 IP 定位，为“附近的组织”提供默认中心点
package iplocate

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"

	"orgdir/internal/geo"
	"orgdir/internal/logger"
)

// Locator：IP → 坐标
// 背景：GeoIP2/GeoLite2 City 库走 geoip2 类型化解码；其他布局兼容的库（如 DB-IP City Lite）直接按 location 字段解码
type Locator struct {
	city *geoip2.Reader
	raw  *maxminddb.Reader
}

type rawRecord struct {
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Open：打开 mmdb 文件
func Open(path string) (*Locator, error) {
	if path == "" {
		return nil, errors.New("geoip db path is empty")
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	dbType := r.Metadata().DatabaseType
	if strings.Contains(dbType, "City") {
		logger.L().Info("geoip_ready", "path", path, "type", dbType, "mode", "city")
		return &Locator{city: r}, nil
	}
	_ = r.Close()
	raw, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	logger.L().Info("geoip_ready", "path", path, "type", dbType, "mode", "raw")
	return &Locator{raw: raw}, nil
}

// Locate：返回 IP 所在坐标；库未加载、IP 非法或记录无坐标时返回 false
func (l *Locator) Locate(ip string) (geo.Point, bool) {
	if l == nil {
		return geo.Point{}, false
	}
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return geo.Point{}, false
	}
	var p geo.Point
	switch {
	case l.city != nil:
		rec, err := l.city.City(addr)
		if err != nil {
			logger.L().Debug("geoip_lookup_error", "ip", ip, "err", err)
			return geo.Point{}, false
		}
		p = geo.Point{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude}
	case l.raw != nil:
		var rec rawRecord
		if err := l.raw.Lookup(addr, &rec); err != nil {
			logger.L().Debug("geoip_lookup_error", "ip", ip, "err", err)
			return geo.Point{}, false
		}
		p = geo.Point{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude}
	default:
		return geo.Point{}, false
	}
	// 缺失坐标的记录解码为 (0,0)
	if p.Lat == 0 && p.Lon == 0 {
		return geo.Point{}, false
	}
	if geo.Validate(p) != nil {
		return geo.Point{}, false
	}
	return p, true
}

func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	if l.city != nil {
		return l.city.Close()
	}
	if l.raw != nil {
		return l.raw.Close()
	}
	return nil
}

// ClientIP：获取访问者 IP
// 背景：多层代理环境下优先常见反向代理头，最后回退远端地址
// 约束：部署于不可信代理链路时需由网关清洗这些头
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := h.Get(k); x != "" {
			return strings.TrimSpace(x)
		}
	}
	if x := h.Get("forwarded"); x != "" {
		i := strings.Index(strings.ToLower(x), "for=")
		if i >= 0 {
			y := x[i+4:]
			if p := strings.IndexByte(y, ';'); p >= 0 {
				y = y[:p]
			}
			if p := strings.IndexByte(y, ','); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\" ")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
