package api

import (
	"errors"
	"strconv"
	"time"

	"moneytracker/database"
	"moneytracker/ledger"
	"moneytracker/models"

	"github.com/gin-gonic/gin"
)

// RateHandler 汇率管理
type RateHandler struct{}

// NewRateHandler 创建汇率处理器
func NewRateHandler() *RateHandler {
	return &RateHandler{}
}

// RateCreateRequest 录入汇率请求
type RateCreateRequest struct {
	FromCurrency string  `json:"from_currency" binding:"required,oneof=CNY MOP" example:"CNY"`
	ToCurrency   string  `json:"to_currency" binding:"required,oneof=CNY MOP" example:"MOP"`
	Rate         float64 `json:"rate" binding:"required,gt=0" example:"1.15"`
	EffectiveAt  string  `json:"effective_at" example:"2025-01-15 08:00:00"` // 留空则为当前时间
}

// CurrentRateResponse 当前生效汇率
type CurrentRateResponse struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Rate         float64 `json:"rate"`
}

// ConvertResponse 单笔换算结果
type ConvertResponse struct {
	Amount       float64 `json:"amount"`
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Converted    float64 `json:"converted"`
	Rate         float64 `json:"rate"`
}

// rateError 将 ledger 汇率错误映射为 HTTP 响应
func rateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrRateUnavailable):
		BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrInvalidRate):
		BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrUnsupportedCurrency):
		BadRequest(c, err.Error())
	default:
		InternalError(c, SafeErrorMessage(err, "汇率解析失败"))
	}
}

// List 获取汇率记录列表
// @Summary 获取汇率记录列表
// @Description 获取全部汇率记录，按生效时间倒序。同一货币对可有多条历史记录。
// @Tags 汇率
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.ExchangeRate} "获取成功"
// @Router /api/v1/rates [get]
func (h *RateHandler) List(c *gin.Context) {
	var rates []models.ExchangeRate
	if err := database.DB.Order("effective_at DESC, id DESC").Find(&rates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, rates)
}

// Create 录入汇率
// @Summary 录入汇率
// @Description 手工录入一条汇率记录。历史记录保留，统计取生效时间最新的一条。
// @Tags 汇率
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RateCreateRequest true "汇率信息"
// @Success 200 {object} Response{data=models.ExchangeRate} "录入成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/rates [post]
func (h *RateHandler) Create(c *gin.Context) {
	var req RateCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if req.FromCurrency == req.ToCurrency {
		BadRequest(c, "源货币与目标货币不能相同")
		return
	}

	effectiveAt := time.Now()
	if req.EffectiveAt != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", req.EffectiveAt, time.Local)
		if err != nil {
			BadRequest(c, "生效时间格式错误，应为: 2006-01-02 15:04:05")
			return
		}
		effectiveAt = t
	}

	rate := models.ExchangeRate{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Rate:         req.Rate,
		EffectiveAt:  effectiveAt,
	}
	if err := database.DB.Create(&rate).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "录入失败"))
		return
	}
	SuccessWithMessage(c, "录入成功", rate)
}

// Delete 删除汇率记录
// @Summary 删除汇率记录
// @Tags 汇率
// @Produce json
// @Security BearerAuth
// @Param id path int true "汇率记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/rates/{id} [delete]
func (h *RateHandler) Delete(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var rate models.ExchangeRate
	if err := database.DB.First(&rate, uint(id64)).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if err := database.DB.Delete(&rate).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Current 获取两个方向的当前生效汇率
// @Summary 获取当前生效汇率
// @Description 返回 CNY→MOP 与 MOP→CNY 的当前生效汇率（含反向倒数兜底）。
// @Description 某个方向完全无记录时该方向不返回，而不是返回猜测值。
// @Tags 汇率
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]CurrentRateResponse} "获取成功"
// @Router /api/v1/rates/current [get]
func (h *RateHandler) Current(c *gin.Context) {
	var rates []models.ExchangeRate
	if err := database.DB.Find(&rates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	now := time.Now()
	pairs := [][2]string{
		{models.CurrencyCNY, models.CurrencyMOP},
		{models.CurrencyMOP, models.CurrencyCNY},
	}
	result := make([]CurrentRateResponse, 0, len(pairs))
	for _, pair := range pairs {
		rate, err := ledger.ResolveRate(rates, pair[0], pair[1], now)
		if err != nil {
			continue
		}
		result = append(result, CurrentRateResponse{
			FromCurrency: pair[0],
			ToCurrency:   pair[1],
			Rate:         rate,
		})
	}
	Success(c, result)
}

// Convert 单笔金额换算
// @Summary 单笔金额换算
// @Description 按当前（或指定 as_of 时点）生效汇率换算单笔金额，用于界面上展示另一货币金额。
// @Tags 汇率
// @Produce json
// @Security BearerAuth
// @Param amount query number true "金额"
// @Param from query string true "源货币 (CNY/MOP)"
// @Param to query string true "目标货币 (CNY/MOP)"
// @Param as_of query string false "汇率时点 (2006-01-02 15:04:05)，默认当前时间"
// @Success 200 {object} Response{data=ConvertResponse} "换算成功"
// @Failure 400 {object} Response "参数错误或汇率不可用"
// @Router /api/v1/rates/convert [get]
func (h *RateHandler) Convert(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		BadRequest(c, "金额格式错误")
		return
	}
	from := c.Query("from")
	to := c.Query("to")

	asOf := time.Now()
	if s := c.Query("as_of"); s != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
		if err != nil {
			BadRequest(c, "as_of 格式错误，应为: 2006-01-02 15:04:05")
			return
		}
		asOf = t
	}

	var rates []models.ExchangeRate
	if err := database.DB.Find(&rates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	rate, err := ledger.ResolveRate(rates, from, to, asOf)
	if err != nil {
		rateError(c, err)
		return
	}
	converted, err := ledger.Convert(amount, from, to, rates, asOf)
	if err != nil {
		rateError(c, err)
		return
	}

	Success(c, ConvertResponse{
		Amount:       amount,
		FromCurrency: from,
		ToCurrency:   to,
		Converted:    converted,
		Rate:         rate,
	})
}
