package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/analysis"
	"github.com/jengzang/staypoint-backend-go/internal/config"
	"github.com/jengzang/staypoint-backend-go/internal/handler"
	"github.com/jengzang/staypoint-backend-go/internal/middleware"
	"github.com/jengzang/staypoint-backend-go/internal/service"
)

// Services are the business services the routes dispatch to
type Services struct {
	Tracks *service.TrackService
	Stays  *service.StayService
	Tasks  *service.AnalysisTaskService
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc Services, limiter *middleware.RateLimiter, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Stay point backend is running",
			"skills":  analysis.Skills(),
		})
	})

	trackHandler := handler.NewTrackHandler(svc.Tracks, cfg.MaxUploadBytes)
	stayHandler := handler.NewStayHandler(svc.Stays)
	stayPointHandler := handler.NewStayPointHandler(svc.Stays)
	taskHandler := handler.NewAnalysisTaskHandler(svc.Tasks)

	// API 路由组
	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		// 轨迹相关接口
		tracks := api.Group("/tracks")
		{
			tracks.POST("/import", trackHandler.Import)
			tracks.GET("/points", trackHandler.GetTrackPoints)
		}

		// 停留点检测
		api.POST("/staypoints/detect", stayPointHandler.Detect)
		api.POST("/timesegments", stayPointHandler.TimeSegments)

		stays := api.Group("/stays")
		{
			stays.GET("", stayHandler.GetStays)
			stays.GET("/:id", stayHandler.GetStayByID)
		}

		// 管理接口
		admin := api.Group("/admin", middleware.Auth(cfg.JWTSecret))
		{
			tasks := admin.Group("/analysis/tasks")
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.DELETE("/:id", taskHandler.CancelTask)
		}
	}

	return r
}
