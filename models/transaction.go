package models

import (
	"time"

	"gorm.io/gorm"
)

// 货币常量，系统只支持人民币与澳门币两种货币
const (
	CurrencyCNY = "CNY"
	CurrencyMOP = "MOP"
)

// 收支类型常量
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Transaction 交易记录模型
// Amount 为带符号金额：负数表示支出，非负表示收入。
// Kind 为可选的显式收支标记，历史导入数据可能只有符号没有标记（或相反），
// 以 ledger.Classify 的归一化结果为准。
type Transaction struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	Amount       float64        `json:"amount" gorm:"type:decimal(12,2);not null"`
	Kind         string         `json:"kind,omitempty" gorm:"size:10"` // income/expense，可为空
	Currency     string         `json:"currency" gorm:"size:3;not null;index"`
	Category     string         `json:"category" gorm:"size:50;not null;index"`
	Description  string         `json:"description" gorm:"size:255"`
	Date         time.Time      `json:"date" gorm:"type:date;not null;index"`
	RecordedRate *float64       `json:"recorded_rate,omitempty" gorm:"type:decimal(12,6)"` // 创建时的汇率快照，仅作展示/审计
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}

// ValidCurrency 校验货币代码是否受支持
func ValidCurrency(currency string) bool {
	return currency == CurrencyCNY || currency == CurrencyMOP
}
