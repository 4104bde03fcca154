package api

import (
	"time"

	"moneytracker/config"
	"moneytracker/ledger"
	"moneytracker/middleware"
	"moneytracker/service"

	"github.com/gin-gonic/gin"
)

// ReportHandler 报表邮件处理器
type ReportHandler struct {
	cfg   *config.Config
	stats *StatsHandler
	email *service.EmailService
}

// NewReportHandler 创建报表处理器
func NewReportHandler(cfg *config.Config) *ReportHandler {
	return &ReportHandler{
		cfg:   cfg,
		stats: NewStatsHandler(cfg),
		email: service.NewEmailService(&cfg.Email),
	}
}

// EmailReportRequest 发送月度报表请求
type EmailReportRequest struct {
	YearMonth string `json:"year_month" binding:"required" example:"2025-01"`
	To        string `json:"to" example:"owner@example.com"` // 留空使用配置的收件人
	Currency  string `json:"currency" binding:"omitempty,oneof=CNY MOP"`
}

// SendMonthly 发送月度报表邮件
// @Summary 发送月度报表邮件
// @Description 生成指定月份的收支报表并发送到邮箱。需要在配置中启用邮件服务。
// @Tags 报表
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EmailReportRequest true "报表参数"
// @Success 200 {object} Response "发送成功"
// @Failure 400 {object} Response "参数错误或汇率不可用"
// @Failure 401 {object} Response "未授权"
// @Failure 500 {object} Response "邮件发送失败"
// @Router /api/v1/reports/email [post]
func (h *ReportHandler) SendMonthly(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req EmailReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	start, err := time.ParseInLocation("2006-01", req.YearMonth, time.Local)
	if err != nil {
		BadRequest(c, "year_month格式错误，应为：2025-01")
		return
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.Local)
	window := ledger.Window{Start: start, End: start.AddDate(0, 1, 0)}

	report, ok := h.stats.aggregateReport(c, userID, window, req.Currency, time.Now())
	if !ok {
		return
	}

	to := req.To
	if to == "" {
		to = h.cfg.Email.To
	}
	if to == "" {
		BadRequest(c, "未配置报表收件人，请在请求中指定 to 或配置 email.to")
		return
	}

	if err := h.email.SendMonthlyReport(to, req.YearMonth, report); err != nil {
		InternalError(c, SafeErrorMessage(err, "邮件发送失败"))
		return
	}
	SuccessWithMessage(c, "报表邮件已发送", nil)
}
