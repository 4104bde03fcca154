package router

import (
	"time"

	"moneytracker/api"
	"moneytracker/config"
	_ "moneytracker/docs"
	"moneytracker/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		authHandler := api.NewAuthHandler(cfg)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.LoginRateLimit(5, time.Minute), authHandler.Login)
		}

		// 分类列表（无需登录，界面初始化用）
		categoryHandler := api.NewCategoryHandler()
		v1.GET("/categories", categoryHandler.List)

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			// 用户相关
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.PUT("/auth/password", authHandler.ChangePassword)

			// 分类管理
			authorized.POST("/categories", categoryHandler.Create)
			authorized.PUT("/categories/:id", categoryHandler.Update)
			authorized.DELETE("/categories/:id", categoryHandler.Delete)

			// 交易记录相关
			transactionHandler := api.NewTransactionHandler(cfg)
			transactions := authorized.Group("/transactions")
			{
				transactions.POST("", transactionHandler.Create)
				transactions.GET("", transactionHandler.List)
				transactions.GET("/:id", transactionHandler.Get)
				transactions.PUT("/:id", transactionHandler.Update)
				transactions.DELETE("/:id", transactionHandler.Delete)
			}

			// 汇率相关
			rateHandler := api.NewRateHandler()
			rates := authorized.Group("/rates")
			{
				rates.GET("", rateHandler.List)
				rates.POST("", rateHandler.Create)
				rates.GET("/current", rateHandler.Current)
				rates.GET("/convert", rateHandler.Convert)
				rates.DELETE("/:id", rateHandler.Delete)
			}

			// 统计相关
			statsHandler := api.NewStatsHandler(cfg)
			statistics := authorized.Group("/statistics")
			{
				statistics.GET("/report", statsHandler.GetReport)
				statistics.GET("/summary", statsHandler.GetSummary)
			}

			// 导出/导入相关
			exportHandler := api.NewExportHandler()
			export := authorized.Group("/export")
			{
				export.GET("/json", exportHandler.ExportJSON)
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/excel", exportHandler.ExportExcel)
			}
			importGroup := authorized.Group("/import")
			{
				importGroup.POST("/json", exportHandler.ImportJSON)
				importGroup.POST("/excel", exportHandler.ImportExcel)
			}

			// 报表邮件
			reportHandler := api.NewReportHandler(cfg)
			authorized.POST("/reports/email", reportHandler.SendMonthly)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
