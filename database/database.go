package database

import (
	"fmt"
	"log"
	"time"

	"moneytracker/config"
	"moneytracker/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	// 构建 MySQL DSN 连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
	)

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 连接池配置
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	// 自动迁移数据库表
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Category{},
		&models.ExchangeRate{},
	); err != nil {
		return err
	}

	if err := seedDefaults(cfg); err != nil {
		return err
	}

	log.Println("数据库初始化成功")
	return nil
}

// seedDefaults 首次启动时写入默认数据：owner 账号、默认分类、初始汇率。
// 三者都只在对应表为空时写入，不覆盖用户已有数据。
func seedDefaults(cfg *config.Config) error {
	// owner 账号
	var userCount int64
	DB.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Owner.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("加密初始密码失败: %w", err)
		}
		owner := models.User{
			Username: cfg.Owner.Username,
			Password: string(hashed),
			Email:    cfg.Owner.Email,
		}
		if err := DB.Create(&owner).Error; err != nil {
			return fmt.Errorf("创建 owner 账号失败: %w", err)
		}
		log.Printf("已创建 owner 账号: %s", owner.Username)
	}

	// 默认分类
	var catCount int64
	DB.Model(&models.Category{}).Count(&catCount)
	if catCount == 0 {
		defaults := models.GetDefaultCategories()
		cats := make([]models.Category, 0, len(defaults))
		for i, item := range defaults {
			cats = append(cats, models.Category{
				Name: item.Name,
				Kind: item.Kind,
				Sort: (i + 1) * 10,
			})
		}
		if err := DB.Create(&cats).Error; err != nil {
			return fmt.Errorf("初始化默认分类失败: %w", err)
		}
	}

	// 初始汇率记录（可在设置页修改，解析逻辑本身没有任何兜底常量）
	var rateCount int64
	DB.Model(&models.ExchangeRate{}).Count(&rateCount)
	if rateCount == 0 {
		now := time.Now()
		seed := []models.ExchangeRate{
			{FromCurrency: models.CurrencyCNY, ToCurrency: models.CurrencyMOP, Rate: 1.15, EffectiveAt: now},
			{FromCurrency: models.CurrencyMOP, ToCurrency: models.CurrencyCNY, Rate: 0.87, EffectiveAt: now},
		}
		if err := DB.Create(&seed).Error; err != nil {
			return fmt.Errorf("初始化默认汇率失败: %w", err)
		}
	}

	return nil
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}
