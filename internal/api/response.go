package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"orgdir/internal/geo"
	"orgdir/internal/logger"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// writeError：错误映射为 {"detail": ...}
// 约束：输入错误返回 400 并回显原因；其他错误只记录日志，对外返回通用信息
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var br *badRequest
	var ic *geo.InvalidCoordinateError
	switch {
	case errors.As(err, &br), errors.As(err, &ic):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		logger.L().Error("api_error", "path", r.URL.Path, "err", err, "request_id", logger.RequestID(r.Context()))
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
