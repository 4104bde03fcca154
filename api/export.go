package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moneytracker/database"
	"moneytracker/middleware"
	"moneytracker/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 数据导出/导入处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// ExportBundle 完整数据包：三个集合加导出时间戳，JSON 导出/导入共用
type ExportBundle struct {
	Transactions  []models.Transaction  `json:"transactions"`
	Categories    []models.Category     `json:"categories"`
	ExchangeRates []models.ExchangeRate `json:"exchange_rates"`
	ExportDate    time.Time             `json:"export_date"`
}

// ImportResult 导入结果：坏行跳过并报告，不因单行错误整体失败
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Reasons  []string `json:"reasons,omitempty"`
}

// excelHeaders 表格列头（与导出文件一致，导入时按列头匹配）
var excelHeaders = []string{"日期", "金额", "货币", "类型", "分类", "描述", "汇率"}

// ExportJSON 导出全部数据为 JSON
// @Summary 导出全部数据 (JSON)
// @Description 导出交易、分类、汇率三个集合与导出时间戳，可用于备份后重新导入。
// @Tags 导出
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=ExportBundle} "导出成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var bundle ExportBundle
	if err := database.DB.Where("user_id = ?", userID).Order("date ASC, id ASC").
		Find(&bundle.Transactions).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询交易失败"))
		return
	}
	if err := database.DB.Order("sort ASC, id ASC").Find(&bundle.Categories).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类失败"))
		return
	}
	if err := database.DB.Order("effective_at ASC, id ASC").Find(&bundle.ExchangeRates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询汇率失败"))
		return
	}
	bundle.ExportDate = time.Now()

	Success(c, bundle)
}

// ExportCSV 导出交易记录为 CSV
// @Summary 导出交易记录 (CSV)
// @Description 根据日期范围导出交易记录为 CSV 文件（UTF-8 BOM，Excel 可直接打开）
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_date query string true "开始日期 (2025-01-01)"
// @Param end_date query string true "结束日期 (2025-12-31)，含当天"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	transactions, startStr, endStr, ok := h.queryRange(c, userID)
	if !ok {
		return
	}

	// 生成 CSV
	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)
	if err := writer.Write(excelHeaders); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	for _, tx := range transactions {
		row := []string{
			tx.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", tx.Amount),
			tx.Currency,
			tx.Kind,
			tx.Category,
			tx.Description,
			formatRecordedRate(tx.RecordedRate),
		}
		if err := writer.Write(row); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.csv", startStr, endStr)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", buf.Len()))

	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出交易记录为 Excel
// @Summary 导出交易记录 (Excel)
// @Description 根据日期范围导出交易记录为 xlsx 文件，末行为合计
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_date query string true "开始日期 (2025-01-01)"
// @Param end_date query string true "结束日期 (2025-12-31)，含当天"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	transactions, startStr, endStr, ok := h.queryRange(c, userID)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "交易记录"
	f.SetSheetName("Sheet1", sheetName)

	// 表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 15)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 15)
	f.SetColWidth(sheetName, "F", "F", 30)
	f.SetColWidth(sheetName, "G", "G", 10)

	// 写入表头
	for i, header := range excelHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// 写入数据
	var totalAmount float64
	for i, tx := range transactions {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), tx.Date.Format("2006-01-02"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), tx.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), tx.Currency)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), tx.Kind)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), tx.Category)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), tx.Description)
		if tx.RecordedRate != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), *tx.RecordedRate)
		}
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), dataStyle)
		totalAmount += tx.Amount
	}

	// 合计行
	summaryRow := len(transactions) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "合计")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), totalAmount)
	f.SetCellValue(sheetName, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(transactions)))
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("G%d", summaryRow), summaryStyle)

	filename := fmt.Sprintf("transactions_%s_%s.xlsx", startStr, endStr)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
}

// ImportJSON 导入 JSON 数据包
// @Summary 导入数据 (JSON)
// @Description 导入此前导出的 JSON 数据包。replace=true 时先清空当前数据再导入，
// @Description 否则追加。坏记录逐条跳过并在结果中报告原因。
// @Tags 导出
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param replace query bool false "是否先清空现有数据" default(false)
// @Param request body ExportBundle true "数据包"
// @Success 200 {object} Response{data=ImportResult} "导入完成"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/import/json [post]
func (h *ExportHandler) ImportJSON(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var bundle ExportBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		BadRequest(c, SafeErrorMessage(err, "数据包格式错误"))
		return
	}

	replace := c.Query("replace") == "true"
	if replace {
		if err := database.DB.Where("user_id = ?", userID).Delete(&models.Transaction{}).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "清空交易失败"))
			return
		}
		database.DB.Where("1 = 1").Delete(&models.Category{})
		database.DB.Where("1 = 1").Delete(&models.ExchangeRate{})
	}

	result := ImportResult{}

	// 分类与汇率：按名称/货币对去重追加
	for _, cat := range bundle.Categories {
		cat.ID = 0
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" || (cat.Kind != models.KindIncome && cat.Kind != models.KindExpense) {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("分类 %q 无效", cat.Name))
			continue
		}
		var existing models.Category
		if err := database.DB.Where("name = ?", cat.Name).First(&existing).Error; err == nil {
			continue
		}
		database.DB.Create(&cat)
	}
	for _, rate := range bundle.ExchangeRates {
		rate.ID = 0
		if !models.ValidCurrency(rate.FromCurrency) || !models.ValidCurrency(rate.ToCurrency) ||
			rate.FromCurrency == rate.ToCurrency || rate.Rate <= 0 {
			result.Skipped++
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("汇率 %s→%s=%v 无效", rate.FromCurrency, rate.ToCurrency, rate.Rate))
			continue
		}
		database.DB.Create(&rate)
	}

	// 交易逐条校验
	for i, tx := range bundle.Transactions {
		tx.ID = 0
		tx.UserID = userID
		if reason, ok := validateImportedTransaction(&tx); !ok {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("第 %d 条交易: %s", i+1, reason))
			continue
		}
		if err := database.DB.Create(&tx).Error; err != nil {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("第 %d 条交易: 写入失败", i+1))
			continue
		}
		result.Imported++
	}

	SuccessWithMessage(c, fmt.Sprintf("导入完成，成功 %d 条，跳过 %d 条", result.Imported, result.Skipped), result)
}

// ImportExcel 导入 Excel 交易记录
// @Summary 导入交易记录 (Excel)
// @Description 上传 xlsx 文件导入交易记录，列头需与导出文件一致
// @Description （日期/金额/货币/类型/分类/描述/汇率，类型与汇率列可缺省）。
// @Tags 导出
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "xlsx 文件"
// @Success 200 {object} Response{data=ImportResult} "导入完成"
// @Failure 400 {object} Response "文件格式错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/import/excel [post]
func (h *ExportHandler) ImportExcel(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "无法读取上传文件")
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		BadRequest(c, "文件格式错误，请上传 xlsx 文件")
		return
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		BadRequest(c, "文件中没有工作表")
		return
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 {
		BadRequest(c, "文件中没有数据")
		return
	}

	// 按列头定位各字段所在列，容忍列顺序变化
	colIndex := make(map[string]int)
	for i, header := range rows[0] {
		colIndex[strings.TrimSpace(header)] = i
	}
	for _, required := range []string{"日期", "金额", "货币"} {
		if _, ok := colIndex[required]; !ok {
			BadRequest(c, fmt.Sprintf("缺少必需列: %s", required))
			return
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	result := ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2

		// 合计行等非数据行直接跳过
		if cell(row, "日期") == "合计" || cell(row, "日期") == "" {
			continue
		}

		date, err := parseImportDate(cell(row, "日期"))
		if err != nil {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("第 %d 行: 日期格式错误", rowNum))
			continue
		}
		amount, err := strconv.ParseFloat(cell(row, "金额"), 64)
		if err != nil {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("第 %d 行: 金额格式错误", rowNum))
			continue
		}

		tx := models.Transaction{
			UserID:      userID,
			Amount:      amount,
			Kind:        cell(row, "类型"),
			Currency:    cell(row, "货币"),
			Category:    cell(row, "分类"),
			Description: cell(row, "描述"),
			Date:        date,
		}
		if rateStr := cell(row, "汇率"); rateStr != "" {
			if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate > 0 {
				tx.RecordedRate = &rate
			}
		}
		if reason, ok := validateImportedTransaction(&tx); !ok {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("第 %d 行: %s", rowNum, reason))
			continue
		}
		if err := database.DB.Create(&tx).Error; err != nil {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("第 %d 行: 写入失败", rowNum))
			continue
		}
		result.Imported++
	}

	SuccessWithMessage(c, fmt.Sprintf("导入完成，成功 %d 条，跳过 %d 条", result.Imported, result.Skipped), result)
}

// queryRange 解析日期范围参数并查询范围内的交易
func (h *ExportHandler) queryRange(c *gin.Context, userID uint) ([]models.Transaction, string, string, bool) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")

	if startStr == "" || endStr == "" {
		BadRequest(c, "请提供开始日期和结束日期")
		return nil, "", "", false
	}

	start, err := time.ParseInLocation("2006-01-02", startStr, time.Local)
	if err != nil {
		BadRequest(c, "开始日期格式错误，应为: 2006-01-02")
		return nil, "", "", false
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, time.Local)
	if err != nil {
		BadRequest(c, "结束日期格式错误，应为: 2006-01-02")
		return nil, "", "", false
	}

	var transactions []models.Transaction
	if err := database.DB.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date ASC, id ASC").
		Find(&transactions).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询数据失败"))
		return nil, "", "", false
	}
	return transactions, startStr, endStr, true
}

// validateImportedTransaction 校验导入交易的基础字段，做少量归一化。
// 分类缺失不算错误（统计时会进 __unknown__ 桶），kind 留空由符号判断。
func validateImportedTransaction(tx *models.Transaction) (string, bool) {
	if !models.ValidCurrency(tx.Currency) {
		return fmt.Sprintf("不支持的货币 %q", tx.Currency), false
	}
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
		return "金额非法", false
	}
	if tx.Kind != "" && tx.Kind != models.KindIncome && tx.Kind != models.KindExpense {
		return fmt.Sprintf("收支类型 %q 无效", tx.Kind), false
	}
	if tx.Date.IsZero() {
		return "日期缺失", false
	}
	if tx.Category == "" {
		tx.Category = "其他"
	}
	if tx.Description == "" {
		tx.Description = "无描述"
	}
	return "", true
}

// parseImportDate 解析导入文件中的日期，兼容常见格式
func parseImportDate(s string) (time.Time, error) {
	layouts := []string{"2006-01-02", "2006/01/02", "2006/1/2", "01-02-06", "1/2/06"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %q", s)
}

// formatRecordedRate 汇率快照列的显示格式，空值输出空串
func formatRecordedRate(rate *float64) string {
	if rate == nil {
		return ""
	}
	return strconv.FormatFloat(*rate, 'f', -1, 64)
}
