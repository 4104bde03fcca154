package api

import (
	"errors"
	"strconv"
	"time"

	"moneytracker/config"
	"moneytracker/database"
	"moneytracker/ledger"
	"moneytracker/middleware"
	"moneytracker/models"

	"github.com/gin-gonic/gin"
)

// StatsHandler 统计处理器：从数据库取快照，聚合计算全部交给 ledger 包
type StatsHandler struct {
	cfg *config.Config
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(cfg *config.Config) *StatsHandler {
	return &StatsHandler{cfg: cfg}
}

// SummaryResponse 收支汇总返回
type SummaryResponse struct {
	Currency     string  `json:"currency"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Net          float64 `json:"net"`
}

// parseWindow 解析统计窗口参数，返回半开区间 [start, end)。
// range_type: month（year_month=2025-01）/ year（year=2025）/
// custom（start_date、end_date，含结束日期当天）。
func parseWindow(c *gin.Context) (ledger.Window, bool) {
	rangeType := c.Query("range_type")
	switch rangeType {
	case "month":
		yearMonth := c.Query("year_month")
		if yearMonth == "" {
			BadRequest(c, "range_type=month时，year_month参数必填（格式：2025-01）")
			return ledger.Window{}, false
		}
		start, err := time.ParseInLocation("2006-01", yearMonth, time.Local)
		if err != nil {
			BadRequest(c, "year_month格式错误，应为：2025-01")
			return ledger.Window{}, false
		}
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.Local)
		return ledger.Window{Start: start, End: start.AddDate(0, 1, 0)}, true

	case "year":
		yearStr := c.Query("year")
		if yearStr == "" {
			BadRequest(c, "range_type=year时，year参数必填（格式：2025）")
			return ledger.Window{}, false
		}
		year, err := strconv.Atoi(yearStr)
		if err != nil || year < 2000 || year > 2100 {
			BadRequest(c, "year格式错误，应为4位数字（如：2025）")
			return ledger.Window{}, false
		}
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.Local)
		return ledger.Window{Start: start, End: start.AddDate(1, 0, 0)}, true

	case "custom":
		startStr := c.Query("start_date")
		endStr := c.Query("end_date")
		if startStr == "" || endStr == "" {
			BadRequest(c, "range_type=custom时，start_date和end_date参数必填（格式：2025-01-01）")
			return ledger.Window{}, false
		}
		start, err := time.ParseInLocation("2006-01-02", startStr, time.Local)
		if err != nil {
			BadRequest(c, "start_date格式错误，应为：2025-01-01")
			return ledger.Window{}, false
		}
		end, err := time.ParseInLocation("2006-01-02", endStr, time.Local)
		if err != nil {
			BadRequest(c, "end_date格式错误，应为：2025-12-31")
			return ledger.Window{}, false
		}
		// 包含结束日期当天
		return ledger.Window{Start: start, End: end.AddDate(0, 0, 1)}, true

	case "":
		BadRequest(c, "range_type参数必填，可选值：month、year、custom")
		return ledger.Window{}, false
	default:
		BadRequest(c, "range_type参数值错误，可选值：month、year、custom")
		return ledger.Window{}, false
	}
}

// buildReport 按查询参数解析目标货币与估值时点后执行聚合
func (h *StatsHandler) buildReport(c *gin.Context, userID uint, window ledger.Window) (*ledger.Report, bool) {
	target := c.Query("currency")

	asOf := time.Now()
	if s := c.Query("as_of"); s != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
		if err != nil {
			BadRequest(c, "as_of 格式错误，应为: 2006-01-02 15:04:05")
			return nil, false
		}
		asOf = t
	}

	return h.aggregateReport(c, userID, window, target, asOf)
}

// aggregateReport 取数据快照并执行聚合，target 为空时使用配置的默认货币
func (h *StatsHandler) aggregateReport(c *gin.Context, userID uint, window ledger.Window, target string, asOf time.Time) (*ledger.Report, bool) {
	if target == "" {
		target = h.cfg.Ledger.DefaultCurrency
	}

	var transactions []models.Transaction
	if err := database.DB.Where("user_id = ?", userID).Find(&transactions).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询交易失败"))
		return nil, false
	}
	var categories []models.Category
	if err := database.DB.Find(&categories).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类失败"))
		return nil, false
	}
	var rates []models.ExchangeRate
	if err := database.DB.Find(&rates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询汇率失败"))
		return nil, false
	}

	report, err := ledger.Aggregate(transactions, categories, rates, window, target, asOf)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidDateRange),
			errors.Is(err, ledger.ErrUnsupportedCurrency),
			errors.Is(err, ledger.ErrRateUnavailable),
			errors.Is(err, ledger.ErrInvalidRate):
			BadRequest(c, err.Error())
		default:
			InternalError(c, SafeErrorMessage(err, "统计失败"))
		}
		return nil, false
	}
	return report, true
}

// GetReport 获取统计报表
// @Summary 获取统计报表
// @Description 按时间窗口统计收支。所有金额统一换算为目标货币（按 as_of 时点生效汇率，
// @Description 默认当前时间），返回收支合计、分类支出排行与逐日趋势序列（无交易的日期补零）。
// @Description 所需货币对缺失汇率时返回 400，绝不按 1:1 给出误导性合计。
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param range_type query string true "时间范围类型：month/year/custom" Enums(month,year,custom)
// @Param year_month query string false "年月（range_type=month 时必填，格式：2025-01）"
// @Param year query string false "年份（range_type=year 时必填，格式：2025）"
// @Param start_date query string false "开始日期（range_type=custom 时必填）"
// @Param end_date query string false "结束日期（range_type=custom 时必填，含当天）"
// @Param currency query string false "目标货币 (CNY/MOP)，默认取配置 ledger.default_currency"
// @Param as_of query string false "汇率估值时点 (2006-01-02 15:04:05)，默认当前时间"
// @Success 200 {object} Response{data=ledger.Report} "获取成功"
// @Failure 400 {object} Response "参数错误或汇率不可用"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/statistics/report [get]
func (h *StatsHandler) GetReport(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	window, ok := parseWindow(c)
	if !ok {
		return
	}

	report, ok := h.buildReport(c, userID, window)
	if !ok {
		return
	}
	Success(c, report)
}

// GetSummary 获取收支汇总
// @Summary 获取收支汇总
// @Description 只返回收入合计、支出合计与结余，参数与统计报表一致。
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param range_type query string true "时间范围类型：month/year/custom" Enums(month,year,custom)
// @Param year_month query string false "年月（range_type=month 时必填）"
// @Param year query string false "年份（range_type=year 时必填）"
// @Param start_date query string false "开始日期（range_type=custom 时必填）"
// @Param end_date query string false "结束日期（range_type=custom 时必填，含当天）"
// @Param currency query string false "目标货币 (CNY/MOP)"
// @Success 200 {object} Response{data=SummaryResponse} "获取成功"
// @Failure 400 {object} Response "参数错误或汇率不可用"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/statistics/summary [get]
func (h *StatsHandler) GetSummary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	window, ok := parseWindow(c)
	if !ok {
		return
	}

	report, ok := h.buildReport(c, userID, window)
	if !ok {
		return
	}
	Success(c, SummaryResponse{
		Currency:     report.Currency,
		TotalIncome:  report.TotalIncome,
		TotalExpense: report.TotalExpense,
		Net:          report.Net,
	})
}
