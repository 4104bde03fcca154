package models

import (
	"time"

	"gorm.io/gorm"
)

// ExchangeRate 汇率记录：同一货币对可存在多条记录，
// effective_at 最新且不晚于查询时点的一条为当前生效汇率。
// 汇率由用户手工录入，系统不做任何联网获取。
type ExchangeRate struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	FromCurrency string         `json:"from_currency" gorm:"size:3;not null;index:idx_rate_pair"`
	ToCurrency   string         `json:"to_currency" gorm:"size:3;not null;index:idx_rate_pair"`
	Rate         float64        `json:"rate" gorm:"type:decimal(12,6);not null"`
	EffectiveAt  time.Time      `json:"effective_at" gorm:"not null;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ExchangeRate) TableName() string {
	return "exchange_rates"
}
