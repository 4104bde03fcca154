package models

import (
	"time"

	"gorm.io/gorm"
)

// Category 收支分类（交易通过名称引用分类，删除分类不会级联修改历史记录）
type Category struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Kind      string         `json:"kind" gorm:"size:10;not null;index"` // income/expense
	Sort      int            `json:"sort" gorm:"default:0;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Category) TableName() string {
	return "categories"
}

// DefaultCategory 默认分类定义
type DefaultCategory struct {
	Name string
	Kind string
}

// GetDefaultCategories 获取初始化时写入的默认分类
func GetDefaultCategories() []DefaultCategory {
	return []DefaultCategory{
		{"食物", KindExpense},
		{"交通", KindExpense},
		{"住房", KindExpense},
		{"娱乐", KindExpense},
		{"医疗", KindExpense},
		{"教育", KindExpense},
		{"购物", KindExpense},
		{"生活用品", KindExpense},
		{"工资", KindIncome},
		{"投资", KindIncome},
		{"奖金", KindIncome},
		{"其他收入", KindIncome},
	}
}
