package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/apperr"
	"go.uber.org/zap"
)

// respondError 将错误转换为统一的 JSON 信封：{error, code, details?}。
func (a *API) respondError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = &apperr.Error{Code: apperr.CodeInternal, Message: "internal error", Details: err.Error(), Err: err}
	}

	status := appErr.Status()
	logger := a.requestLogger(c)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", string(appErr.Code)), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.String("code", string(appErr.Code)), zap.String("message", appErr.Message))
	}

	body := gin.H{"error": appErr.Message, "code": appErr.Code}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

func respondSuccess(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for key, value := range payload {
		body[key] = value
	}
	c.JSON(http.StatusOK, body)
}

func (a *API) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		a.respondError(c, apperr.Invalid("request body must be valid JSON", err))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for requests whose body may be empty, such as DELETE with a query id.
func (a *API) bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		a.respondError(c, apperr.Invalid("request body must be valid JSON", err))
		return false
	}
	return true
}

// parseID accepts the id forms browsers send: JSON numbers, numeric strings and query values.
func parseID(value any) (uint, error) {
	var raw string
	switch v := value.(type) {
	case nil:
		return 0, apperr.Validation("id is required")
	case float64:
		if v <= 0 || v != float64(uint32(v)) {
			return 0, apperr.Validation("id must be a positive integer")
		}
		return uint(v), nil
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		return 0, apperr.Validation(fmt.Sprintf("id has unsupported type %T", value))
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Validation("id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validation("id must be a positive integer")
	}
	return uint(id), nil
}

// idFromRequest reads the id from the query string first, then from the JSON body.
func idFromRequest(c *gin.Context, body map[string]any) (uint, error) {
	if raw, ok := c.GetQuery("id"); ok {
		return parseID(raw)
	}
	return parseID(body["id"])
}
