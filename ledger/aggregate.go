package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"moneytracker/models"
)

// CategoryTotal 单个分类的支出合计（目标货币）
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// DailyTotal 单日收支合计（目标货币），窗口内没有交易的日期补零
type DailyTotal struct {
	Date    string  `json:"date"` // 2006-01-02
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// Diagnostic 被跳过的问题记录说明，随统计结果一并返回，
// 单条坏数据不应导致整月报表不可见
type Diagnostic struct {
	TransactionID uint   `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// Report 聚合结果。所有金额均已换算为目标货币，不存在混币种求和。
type Report struct {
	Currency     string          `json:"currency"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	TotalIncome  float64         `json:"total_income"`
	TotalExpense float64         `json:"total_expense"`
	Net          float64         `json:"net"`
	ByCategory   []CategoryTotal `json:"by_category"`
	DailySeries  []DailyTotal    `json:"daily_series"`
	Diagnostics  []Diagnostic    `json:"diagnostics"`
}

// Aggregate 对交易快照做时间窗口内的统计汇总。
//
// 过滤只按自然日比较，窗口为半开区间 [start, end)。所有金额统一按
// asOf 时点解析到的汇率换算为 target 货币——同一份报表内使用同一
// 估值口径，交易上的历史汇率快照不参与聚合计算。
//
// 币种非法或金额非有限的记录会被跳过并记入 Diagnostics；而所需
// 货币对缺失汇率时整个调用失败返回 ErrRateUnavailable，绝不把
// 无法换算的金额按 1:1 或 0 处理。
func Aggregate(transactions []models.Transaction, categories []models.Category,
	rates []models.ExchangeRate, window Window, target string, asOf time.Time) (*Report, error) {

	if !models.ValidCurrency(target) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, target)
	}

	start, end := Day(window.Start), Day(window.End)
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	known := make(map[string]bool, len(categories))
	for _, cat := range categories {
		known[cat.Name] = true
	}

	// 预生成窗口内每一天的零值条目，保证趋势图坐标轴连续
	var days []string
	daily := make(map[string]*DailyTotal)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		days = append(days, key)
		daily[key] = &DailyTotal{Date: key}
	}

	report := &Report{
		Currency:    target,
		StartDate:   start.Format("2006-01-02"),
		EndDate:     end.Format("2006-01-02"),
		Diagnostics: make([]Diagnostic, 0),
	}
	buckets := make(map[string]float64)

	// 同一币种在一次聚合中汇率相同，解析一次即可
	rateCache := make(map[string]float64)

	for _, tx := range transactions {
		if !models.ValidCurrency(tx.Currency) {
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				TransactionID: tx.ID,
				Reason:        fmt.Sprintf("不支持的货币: %q", tx.Currency),
			})
			continue
		}
		if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				TransactionID: tx.ID,
				Reason:        "金额非法",
			})
			continue
		}

		day := Day(tx.Date)
		if day.Before(start) || !day.Before(end) {
			continue
		}

		kind, magnitude := Classify(tx)

		converted := magnitude
		if tx.Currency != target {
			rate, ok := rateCache[tx.Currency]
			if !ok {
				var err error
				rate, err = ResolveRate(rates, tx.Currency, target, asOf)
				if err != nil {
					return nil, err
				}
				rateCache[tx.Currency] = rate
			}
			converted = magnitude * rate
		}

		entry := daily[day.Format("2006-01-02")]
		if kind == models.KindIncome {
			report.TotalIncome += converted
			entry.Income += converted
		} else {
			report.TotalExpense += converted
			entry.Expense += converted
			name := tx.Category
			if !known[name] {
				name = UnknownCategory
			}
			buckets[name] += converted
		}
	}

	report.Net = report.TotalIncome - report.TotalExpense

	report.DailySeries = make([]DailyTotal, 0, len(days))
	for _, key := range days {
		entry := daily[key]
		entry.Net = entry.Income - entry.Expense
		report.DailySeries = append(report.DailySeries, *entry)
	}

	report.ByCategory = make([]CategoryTotal, 0, len(buckets))
	for name, total := range buckets {
		report.ByCategory = append(report.ByCategory, CategoryTotal{Category: name, Total: total})
	}
	// 金额降序，金额相同按分类名升序，保证输出确定性
	sort.Slice(report.ByCategory, func(i, j int) bool {
		if report.ByCategory[i].Total != report.ByCategory[j].Total {
			return report.ByCategory[i].Total > report.ByCategory[j].Total
		}
		return report.ByCategory[i].Category < report.ByCategory[j].Category
	})

	return report, nil
}
