// pkg/api/handlers.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StationAlert/pkg/database"
	"StationAlert/pkg/engine"
)

// Handlers API请求处理器
type Handlers struct {
	alertDB *database.AlertDB
	rules   []*engine.Rule
	metrics http.Handler
}

// NewHandlers 创建处理器；rules 为已编译的活跃规则集
func NewHandlers(alertDB *database.AlertDB, rules []*engine.Rule) *Handlers {
	return &Handlers{
		alertDB: alertDB,
		rules:   rules,
		metrics: promhttp.Handler(),
	}
}

// HealthCheck 健康检查
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Metrics Prometheus指标
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// GetAlerts 查询最近的告警事件
// 支持 device_id / rule / limit 查询参数
func (h *Handlers) GetAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 1000 {
		limit = 50
	}

	alerts, err := h.alertDB.GetRecent(c.Query("device_id"), c.Query("rule"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// GetAlertStats 按严重程度统计最近24小时的告警
func (h *Handlers) GetAlertStats(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since 参数需要 RFC3339 格式"})
			return
		}
		since = parsed
	}

	counts, err := h.alertDB.CountSince(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":  since.Format(time.RFC3339),
		"counts": counts,
	})
}

// GetRules 列出活跃规则集
func (h *Handlers) GetRules(c *gin.Context) {
	type ruleView struct {
		Name     string `json:"name"`
		Severity string `json:"severity"`
		Window   string `json:"window,omitempty"`
		Dedup    string `json:"dedup,omitempty"`
	}

	views := make([]ruleView, 0, len(h.rules))
	for _, r := range h.rules {
		v := ruleView{
			Name:     r.Name,
			Severity: string(r.Severity),
		}
		if r.Window != nil {
			v.Window = r.Window.Duration.String() + " " + string(r.Window.Policy)
		}
		if r.Dedup > 0 {
			v.Dedup = r.Dedup.String()
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(views),
		"rules": views,
	})
}
