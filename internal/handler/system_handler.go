package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck 汇报目录库连通性，以及 CRM 与模型凭据是否已配置。
// 只有目录库不可达时返回 503；缺少凭据的接口会在调用时返回 CONFIG_ERROR。
func (a *API) HealthCheck(c *gin.Context) {
	catalog := a.catalogHealth(c.Request.Context())

	status, code := "ok", http.StatusOK
	if catalog["state"] == "down" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"catalog": catalog,
		"crm":     configuredState(a.leads != nil && a.leads.Configured()),
		"model":   configuredState(a.assistant != nil && a.assistant.Configured()),
	})
}

func (a *API) catalogHealth(ctx context.Context) gin.H {
	if a.db == nil {
		return gin.H{"state": "disabled"}
	}

	health := gin.H{"driver": a.db.Dialector.Name()}
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		a.logger.Warn("catalog health check failed", zap.Error(err))
		health["state"] = "down"
		return health
	}
	health["state"] = "up"
	return health
}

func configuredState(ok bool) string {
	if ok {
		return "configured"
	}
	return "missing"
}
