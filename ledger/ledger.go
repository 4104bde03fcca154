// Package ledger 实现记账核心的聚合计算：收支归一化、汇率解析、
// 货币换算与按时间窗口的统计汇总。包内全部为纯函数，不读写数据库，
// 调用方传入的记录快照不会被修改。
package ledger

import (
	"errors"
	"math"
	"time"

	"moneytracker/models"
)

// UnknownCategory 未知分类桶。交易引用的分类名在分类表中不存在时
// （如分类被改名或删除），统计结果归入此桶，与用户自建的“其他”分类严格区分。
const UnknownCategory = "__unknown__"

var (
	// ErrInvalidRate 存储的汇率为非正数或非有限值
	ErrInvalidRate = errors.New("汇率数据非法")
	// ErrRateUnavailable 所需货币对没有任何可用汇率（正向、反向均无）
	ErrRateUnavailable = errors.New("汇率不可用")
	// ErrInvalidDateRange 统计窗口起始日期不早于结束日期
	ErrInvalidDateRange = errors.New("时间范围非法")
	// ErrUnsupportedCurrency 货币代码不在支持范围内
	ErrUnsupportedCurrency = errors.New("不支持的货币")
)

// Window 统计窗口，半开区间 [Start, End)，只比较自然日，不含时分秒语义
type Window struct {
	Start time.Time
	End   time.Time
}

// Day 将时间截断为自然日（统一到 UTC 午夜，避免不同时区/构造方式
// 导致的边界日期判断不一致）
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify 归一化收支类型。带显式 kind 标记的交易以标记为准，
// 金额取绝对值；否则按金额符号判断：负数为支出。所有调用方都应
// 通过本函数判断收支，不要直接检查符号或 kind 字段。
func Classify(tx models.Transaction) (kind string, magnitude float64) {
	switch tx.Kind {
	case models.KindIncome:
		return models.KindIncome, math.Abs(tx.Amount)
	case models.KindExpense:
		return models.KindExpense, math.Abs(tx.Amount)
	}
	if tx.Amount < 0 {
		return models.KindExpense, -tx.Amount
	}
	return models.KindIncome, tx.Amount
}
