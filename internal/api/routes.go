// 包 api：集中注册目录服务 HTTP 路由，主入口挂载到 API_BASE 前缀
package api

import (
	"errors"
	"net/http"
	"time"

	"orgdir/internal/activity"
	"orgdir/internal/directory"
	"orgdir/internal/filter"
	"orgdir/internal/iplocate"
	"orgdir/internal/logger"
	"orgdir/internal/metrics"
)

// DefaultNearbyRadius：/organizations/nearby 未给出 radius 时的检索半径（米）
const DefaultNearbyRadius = 1000.0

// BuildRoutes：构建并返回 API 路由
// 约束：loc 可为空，此时 /organizations/nearby 恒返回 404
func BuildRoutes(svc *directory.Service, loc *iplocate.Locator) *http.ServeMux {
	h := &handlers{svc: svc, loc: loc}
	mux := http.NewServeMux()
	mux.Handle("GET /buildings", instrument("buildings", h.buildings))
	mux.Handle("GET /activities", instrument("activities", h.activities))
	mux.Handle("GET /organizations", instrument("organizations", h.organizations))
	mux.Handle("GET /organizations/nearby", instrument("organizations_nearby", h.nearby))
	mux.Handle("GET /organizations/{id}", instrument("organization_detail", h.organization))
	return mux
}

type handlers struct {
	svc *directory.Service
	loc *iplocate.Locator
}

func instrument(route string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		fn(w, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(begin).Milliseconds()))
	})
}

func (h *handlers) buildings(w http.ResponseWriter, r *http.Request) {
	g, err := parseGeo(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.Buildings(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) activities(w http.ResponseWriter, r *http.Request) {
	tree, err := parseBool(r.URL.Query(), "include_tree")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tree {
		out, err := h.svc.ActivityTree(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	out, err := h.svc.Activities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) organizations(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.search(w, r, c)
}

// nearby：以访问者 IP 的定位点为圆心检索，其他条件与 /organizations 相同
func (h *handlers) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	radius := DefaultNearbyRadius
	if q.Get("radius") != "" {
		if radius, err = parseFloat(q, "radius"); err != nil {
			writeError(w, r, err)
			return
		}
	}
	ip := q.Get("ip")
	if ip == "" {
		ip = iplocate.ClientIP(r)
	}
	center, ok := h.loc.Locate(ip)
	if !ok {
		logger.L().Debug("nearby_locate_miss", "ip", ip, "request_id", logger.RequestID(r.Context()))
		writeDetail(w, http.StatusNotFound, "Client location unknown")
		return
	}
	c.Geo = filter.Radius(center, radius)
	h.search(w, r, c)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request, c filter.Criteria) {
	out, err := h.svc.Search(r.Context(), c)
	var ua *activity.UnknownActivityError
	if errors.As(err, &ua) {
		logger.L().Debug("filter_unknown_activity", "activity_id", ua.ActivityID, "request_id", logger.RequestID(r.Context()))
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) organization(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Organization(r.Context(), id)
	if errors.Is(err, directory.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Organization not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
