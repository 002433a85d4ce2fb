package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"towerads/internal/adserr"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps domain errors onto HTTP statuses and a machine-readable code in
// the response meta.
func Fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, adserr.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, adserr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, adserr.ErrInvalidState):
		status, code = http.StatusBadRequest, "invalid_state"
	case errors.Is(err, adserr.ErrDuplicateSession):
		status, code = http.StatusTooManyRequests, "duplicate_session"
	case errors.Is(err, adserr.ErrFraudRejected):
		status, code = http.StatusForbidden, "fraud_rejected"
	case errors.Is(err, adserr.ErrCaptchaRequired):
		status, code = http.StatusForbidden, "captcha_required"
	case errors.Is(err, adserr.ErrOrderDepleted):
		status, code = http.StatusBadRequest, "order_depleted"
	}
	Error(c, status, err.Error(), map[string]any{"error_code": code})
}

func intQuery(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatQuery(c *gin.Context, key string, def float64) float64 {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	return map[string]any{
		"limit":  limit,
		"offset": offset,
		"total":  total,
	}
}
