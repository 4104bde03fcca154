package api

import (
	"strconv"
	"strings"
	"time"

	"moneytracker/config"
	"moneytracker/database"
	"moneytracker/ledger"
	"moneytracker/middleware"
	"moneytracker/models"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 交易记录处理器
type TransactionHandler struct {
	cfg *config.Config
}

// NewTransactionHandler 创建交易记录处理器
func NewTransactionHandler(cfg *config.Config) *TransactionHandler {
	return &TransactionHandler{cfg: cfg}
}

// CreateTransactionRequest 创建交易请求。金额为正数，收支方向由 kind 决定，
// 入库时支出按负数存储。
type CreateTransactionRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"99.99"`
	Kind        string  `json:"kind" binding:"required,oneof=income expense" example:"expense"`
	Currency    string  `json:"currency" binding:"required,oneof=CNY MOP" example:"MOP"`
	Category    string  `json:"category" binding:"required" example:"食物"`
	Description string  `json:"description" example:"午餐"`
	Date        string  `json:"date" binding:"required" example:"2025-01-15"`
}

// UpdateTransactionRequest 更新交易请求
type UpdateTransactionRequest struct {
	Amount      float64 `json:"amount" binding:"omitempty,gt=0" example:"99.99"`
	Kind        string  `json:"kind" binding:"omitempty,oneof=income expense" example:"expense"`
	Currency    string  `json:"currency" binding:"omitempty,oneof=CNY MOP" example:"MOP"`
	Category    string  `json:"category" example:"食物"`
	Description string  `json:"description" example:"午餐"`
	Date        string  `json:"date" example:"2025-01-15"`
}

// TransactionListRequest 交易列表请求
type TransactionListRequest struct {
	Page      int    `form:"page" example:"1"`
	PageSize  int    `form:"page_size" example:"10"`
	Category  string `form:"category" example:"食物"`
	Currency  string `form:"currency" example:"MOP"`
	Kind      string `form:"kind" example:"expense"`
	StartDate string `form:"start_date" example:"2025-01-01"`
	EndDate   string `form:"end_date" example:"2025-12-31"`
}

// signedAmount 按收支方向给金额定符号：支出为负，收入为正
func signedAmount(kind string, amount float64) float64 {
	if kind == models.KindExpense {
		return -amount
	}
	return amount
}

// lookupCategory 按名称查找分类并校验收支方向一致
func lookupCategory(c *gin.Context, name, kind string) (models.Category, bool) {
	var cat models.Category
	if err := database.DB.Where("name = ?", name).First(&cat).Error; err != nil {
		BadRequest(c, "无效的分类，请先在设置页维护分类")
		return cat, false
	}
	if kind != "" && cat.Kind != kind {
		BadRequest(c, "分类的收支类型与交易不一致")
		return cat, false
	}
	return cat, true
}

// Create 创建交易记录
// @Summary 创建交易记录
// @Description 创建一条交易记录。若当时汇率表中可解析出该货币到另一货币的汇率，会一并保存汇率快照（仅作审计展示，不参与统计）。
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		BadRequest(c, "分类不能为空")
		return
	}
	if _, ok := lookupCategory(c, req.Category, req.Kind); !ok {
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		BadRequest(c, "日期格式错误，应为: 2006-01-02")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "无描述"
	}

	tx := models.Transaction{
		UserID:      userID,
		Amount:      signedAmount(req.Kind, req.Amount),
		Kind:        req.Kind,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: description,
		Date:        date,
	}

	// 汇率快照：记录创建时刻到另一货币的生效汇率，仅作历史参考。
	// 解析不到就留空，不写入任何兜底常量。
	other := models.CurrencyMOP
	if req.Currency == models.CurrencyMOP {
		other = models.CurrencyCNY
	}
	var rates []models.ExchangeRate
	if err := database.DB.Find(&rates).Error; err == nil {
		if rate, err := ledger.ResolveRate(rates, req.Currency, other, time.Now()); err == nil {
			tx.RecordedRate = &rate
		}
	}

	if err := database.DB.Create(&tx).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建交易记录失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", tx)
}

// List 获取交易记录列表
// @Summary 获取交易记录列表
// @Description 获取交易记录列表，支持分页及分类/货币/收支类型/日期范围筛选
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param category query string false "分类筛选"
// @Param currency query string false "货币筛选 (CNY/MOP)"
// @Param kind query string false "收支类型筛选 (income/expense)"
// @Param start_date query string false "开始日期 (2025-01-01)"
// @Param end_date query string false "结束日期 (2025-12-31)，含当天"
// @Success 200 {object} Response{data=PageResponse{list=[]models.Transaction}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 默认分页参数
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := database.DB.Model(&models.Transaction{}).Where("user_id = ?", userID)

	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.Currency != "" {
		query = query.Where("currency = ?", req.Currency)
	}
	// 收支筛选与 ledger.Classify 同口径：显式标记优先，无标记按符号
	switch req.Kind {
	case models.KindExpense:
		query = query.Where("(kind = ? OR (kind = '' AND amount < 0))", models.KindExpense)
	case models.KindIncome:
		query = query.Where("(kind = ? OR (kind = '' AND amount >= 0))", models.KindIncome)
	}

	if req.StartDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local); err == nil {
			query = query.Where("date >= ?", t)
		}
	}
	if req.EndDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local); err == nil {
			// 包含结束日期当天
			query = query.Where("date <= ?", t)
		}
	}

	// 获取总数
	var total int64
	query.Count(&total)

	// 获取列表
	var transactions []models.Transaction
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("date DESC, id DESC").Offset(offset).Limit(req.PageSize).Find(&transactions).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     transactions,
	})
}

// Get 获取单条交易记录
// @Summary 获取单条交易记录
// @Tags 交易记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易记录ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	Success(c, tx)
}

// Update 更新交易记录
// @Summary 更新交易记录
// @Tags 交易记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易记录ID"
// @Param request body UpdateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	kind := tx.Kind
	if req.Kind != "" {
		kind = req.Kind
	}

	updates := make(map[string]interface{})
	if req.Kind != "" {
		updates["kind"] = req.Kind
		// 方向变化时重新给现有金额定符号
		magnitude := tx.Amount
		if magnitude < 0 {
			magnitude = -magnitude
		}
		updates["amount"] = signedAmount(kind, magnitude)
	}
	if req.Amount > 0 {
		updates["amount"] = signedAmount(kind, req.Amount)
	}
	if req.Currency != "" {
		updates["currency"] = req.Currency
	}
	if req.Category != "" {
		req.Category = strings.TrimSpace(req.Category)
		if req.Category == "" {
			BadRequest(c, "分类不能为空")
			return
		}
		if _, ok := lookupCategory(c, req.Category, kind); !ok {
			return
		}
		updates["category"] = req.Category
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Date != "" {
		date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		updates["date"] = date
	}

	if err := database.DB.Model(&tx).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	// 重新获取更新后的记录
	database.DB.First(&tx, tx.ID)
	SuccessWithMessage(c, "更新成功", tx)
}

// Delete 删除交易记录
// @Summary 删除交易记录
// @Tags 交易记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if err := database.DB.Delete(&tx).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}
