package ledger

import (
	"math"
	"testing"
	"time"

	"moneytracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.Local)
}

func tx(id uint, amount float64, currency, category string, date time.Time) models.Transaction {
	return models.Transaction{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Category: category,
		Date:     date,
	}
}

func expenseCategories(names ...string) []models.Category {
	cats := make([]models.Category, 0, len(names))
	for i, name := range names {
		cats = append(cats, models.Category{ID: uint(i + 1), Name: name, Kind: models.KindExpense})
	}
	return cats
}

func TestAggregate_EndToEnd(t *testing.T) {
	// 全 CNY 交易、空汇率表、目标货币 CNY：无需汇率也能出报表
	transactions := []models.Transaction{
		tx(1, -100, "CNY", "食物", day(2025, 1, 5)),
		tx(2, 200, "CNY", "工资", day(2025, 1, 10)),
	}
	categories := []models.Category{
		{ID: 1, Name: "食物", Kind: models.KindExpense},
		{ID: 2, Name: "工资", Kind: models.KindIncome},
	}
	window := Window{Start: day(2025, 1, 1), End: day(2025, 2, 1)}

	report, err := Aggregate(transactions, categories, nil, window, "CNY", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 100.0, report.TotalExpense)
	assert.Equal(t, 200.0, report.TotalIncome)
	assert.Equal(t, 100.0, report.Net)

	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, "食物", report.ByCategory[0].Category)
	assert.Equal(t, 100.0, report.ByCategory[0].Total)

	// 1 月共 31 天，逐日补零
	require.Len(t, report.DailySeries, 31)
	for i, entry := range report.DailySeries {
		switch i {
		case 4: // 1 月 5 日
			assert.Equal(t, "2025-01-05", entry.Date)
			assert.Equal(t, 100.0, entry.Expense)
			assert.Equal(t, 0.0, entry.Income)
			assert.Equal(t, -100.0, entry.Net)
		case 9: // 1 月 10 日
			assert.Equal(t, "2025-01-10", entry.Date)
			assert.Equal(t, 200.0, entry.Income)
			assert.Equal(t, 0.0, entry.Expense)
			assert.Equal(t, 200.0, entry.Net)
		default:
			assert.Equal(t, 0.0, entry.Income, "day %s", entry.Date)
			assert.Equal(t, 0.0, entry.Expense, "day %s", entry.Date)
		}
	}

	assert.Empty(t, report.Diagnostics)
}

func TestAggregate_CrossCurrencyFailsWithoutRate(t *testing.T) {
	// 有 MOP 交易但汇率表为空：整体失败，绝不按 1:1 给出错误合计
	transactions := []models.Transaction{
		tx(1, -100, "CNY", "食物", day(2025, 1, 5)),
		tx(2, -50, "MOP", "食物", day(2025, 1, 6)),
	}
	window := Window{Start: day(2025, 1, 1), End: day(2025, 2, 1)}

	_, err := Aggregate(transactions, expenseCategories("食物"), nil, window, "CNY", time.Now())
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestAggregate_ConvertsAtAsOfRate(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recorded := 9.99
	transactions := []models.Transaction{
		{
			ID: 1, Amount: -100, Currency: "MOP", Category: "食物",
			Date: day(2025, 1, 5),
			// 交易上的历史汇率快照不参与聚合，聚合只用 asOf 时点的表内汇率
			RecordedRate: &recorded,
		},
	}
	rates := []models.ExchangeRate{
		rateRecord(1, "MOP", "CNY", 0.9, asOf.Add(-24*time.Hour)),
	}
	window := Window{Start: day(2025, 1, 1), End: day(2025, 2, 1)}

	report, err := Aggregate(transactions, expenseCategories("食物"), rates, window, "CNY", asOf)
	require.NoError(t, err)
	assert.InDelta(t, 90, report.TotalExpense, 1e-9)
}

func TestAggregate_WindowCompleteness(t *testing.T) {
	// 7 天窗口只有 2 天有交易，序列仍为 7 条，其余 5 条为零
	transactions := []models.Transaction{
		tx(1, -10, "CNY", "食物", day(2025, 3, 2)),
		tx(2, -20, "CNY", "食物", day(2025, 3, 5)),
		// 窗口外的交易不参与统计
		tx(3, -999, "CNY", "食物", day(2025, 3, 8)),
		tx(4, -999, "CNY", "食物", day(2025, 2, 28)),
	}
	window := Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}

	report, err := Aggregate(transactions, expenseCategories("食物"), nil, window, "CNY", time.Now())
	require.NoError(t, err)

	require.Len(t, report.DailySeries, 7)
	assert.Equal(t, 30.0, report.TotalExpense)

	zeroDays := 0
	for _, entry := range report.DailySeries {
		if entry.Income == 0 && entry.Expense == 0 {
			zeroDays++
		}
	}
	assert.Equal(t, 5, zeroDays)
}

func TestAggregate_HalfOpenWindowByCalendarDay(t *testing.T) {
	// 结束日期当天不包含；日期只按自然日比较，时分秒不影响归属
	transactions := []models.Transaction{
		tx(1, -10, "CNY", "食物", time.Date(2025, 3, 1, 23, 59, 59, 0, time.Local)),
		tx(2, -20, "CNY", "食物", time.Date(2025, 3, 7, 0, 0, 0, 0, time.Local)),
		tx(3, -40, "CNY", "食物", time.Date(2025, 3, 8, 0, 0, 0, 0, time.Local)),
	}
	window := Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}

	report, err := Aggregate(transactions, expenseCategories("食物"), nil, window, "CNY", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 30.0, report.TotalExpense)
}

func TestAggregate_InvalidDateRange(t *testing.T) {
	transactions := []models.Transaction{tx(1, -10, "CNY", "食物", day(2025, 3, 2))}

	_, err := Aggregate(transactions, nil, nil,
		Window{Start: day(2025, 3, 8), End: day(2025, 3, 1)}, "CNY", time.Now())
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	// start == end 同样非法（空窗口）
	_, err = Aggregate(transactions, nil, nil,
		Window{Start: day(2025, 3, 1), End: day(2025, 3, 1)}, "CNY", time.Now())
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestAggregate_UnsupportedTargetCurrency(t *testing.T) {
	_, err := Aggregate(nil, nil, nil,
		Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}, "USD", time.Now())
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestAggregate_CategorySortDeterminism(t *testing.T) {
	transactions := []models.Transaction{
		tx(1, -30, "CNY", "交通", day(2025, 3, 2)),
		tx(2, -50, "CNY", "食物", day(2025, 3, 2)),
		tx(3, -50, "CNY", "住房", day(2025, 3, 3)),
		tx(4, -20, "CNY", "食物", day(2025, 3, 4)),
	}
	categories := expenseCategories("食物", "交通", "住房")
	window := Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}

	report, err := Aggregate(transactions, categories, nil, window, "CNY", time.Now())
	require.NoError(t, err)

	// 金额降序：食物 70 > 住房 50 > 交通 30
	require.Len(t, report.ByCategory, 3)
	assert.Equal(t, []CategoryTotal{
		{Category: "食物", Total: 70},
		{Category: "住房", Total: 50},
		{Category: "交通", Total: 30},
	}, report.ByCategory)

	// 并列金额按分类名升序
	tieTxs := []models.Transaction{
		tx(1, -50, "CNY", "食物", day(2025, 3, 2)),
		tx(2, -50, "CNY", "交通", day(2025, 3, 2)),
	}
	tieReport, err := Aggregate(tieTxs, categories, nil, window, "CNY", time.Now())
	require.NoError(t, err)
	require.Len(t, tieReport.ByCategory, 2)
	assert.Equal(t, "交通", tieReport.ByCategory[0].Category)
	assert.Equal(t, "食物", tieReport.ByCategory[1].Category)

	// 相同输入重复运行输出完全一致
	again, err := Aggregate(transactions, categories, nil, window, "CNY", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, report.ByCategory, again.ByCategory)
	assert.Equal(t, report.DailySeries, again.DailySeries)
}

func TestAggregate_UnknownCategoryIsolation(t *testing.T) {
	// "零食" 不在分类表中，归入 __unknown__；即使存在字面名为 "其他" 的
	// 用户分类也不得混入其中
	transactions := []models.Transaction{
		tx(1, -15, "CNY", "零食", day(2025, 3, 2)),
		tx(2, -25, "CNY", "其他", day(2025, 3, 3)),
	}
	categories := expenseCategories("其他")
	window := Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}

	report, err := Aggregate(transactions, categories, nil, window, "CNY", time.Now())
	require.NoError(t, err)

	totals := make(map[string]float64)
	for _, entry := range report.ByCategory {
		totals[entry.Category] = entry.Total
	}
	assert.Equal(t, 15.0, totals[UnknownCategory])
	assert.Equal(t, 25.0, totals["其他"])
}

func TestAggregate_MalformedRecordsReported(t *testing.T) {
	transactions := []models.Transaction{
		tx(1, -100, "CNY", "食物", day(2025, 3, 2)),
		tx(2, -50, "USD", "食物", day(2025, 3, 3)),            // 币种非法
		tx(3, math.NaN(), "CNY", "食物", day(2025, 3, 4)),     // 金额非法
		tx(4, math.Inf(1), "CNY", "食物", day(2025, 3, 5)),    // 金额非法
	}
	window := Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}

	report, err := Aggregate(transactions, expenseCategories("食物"), nil, window, "CNY", time.Now())
	require.NoError(t, err)

	// 坏记录被跳过并报告，好记录正常统计
	assert.Equal(t, 100.0, report.TotalExpense)
	require.Len(t, report.Diagnostics, 3)
	ids := []uint{report.Diagnostics[0].TransactionID, report.Diagnostics[1].TransactionID, report.Diagnostics[2].TransactionID}
	assert.Equal(t, []uint{2, 3, 4}, ids)
}

func TestAggregate_KindTagOverridesSign(t *testing.T) {
	// 带显式标记的交易以标记为准：正金额 + expense 标记计入支出
	transactions := []models.Transaction{
		{ID: 1, Amount: 80, Kind: models.KindExpense, Currency: "CNY", Category: "食物", Date: day(2025, 3, 2)},
		{ID: 2, Amount: -500, Kind: models.KindIncome, Currency: "CNY", Category: "工资", Date: day(2025, 3, 3)},
	}
	window := Window{Start: day(2025, 3, 1), End: day(2025, 3, 8)}

	report, err := Aggregate(transactions, expenseCategories("食物"), nil, window, "CNY", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 80.0, report.TotalExpense)
	assert.Equal(t, 500.0, report.TotalIncome)
	assert.Equal(t, 420.0, report.Net)
}
