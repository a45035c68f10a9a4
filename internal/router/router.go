package router

import (
	"phlock_server/internal/handler"
	"phlock_server/internal/middleware"
	"phlock_server/internal/pkg"
	"phlock_server/internal/service"

	"github.com/gin-gonic/gin"
)

func InitRouter(resolve service.TrackResolver) *gin.Engine {
	r := gin.Default()

	// 配置邮件环境
	emailCfg := pkg.SMTPConfig{
		Host:     "smtp.qq.com",
		Port:     587,
		Username: "no-reply@qq.com",
		Password: "authcode",
		From:     "Phlock <no-reply@example.com>",
	}

	user := handler.NewUserHandler()
	email := handler.NewEmailHandler(emailCfg)
	follow := handler.NewFollowHandler()
	phlock := handler.NewPhlockHandler()
	pick := handler.NewPickHandler(resolve)
	nudge := handler.NewNudgeHandler()

	// 邮件相关接口
	emailGroup := r.Group("/api/email")
	{
		emailGroup.POST("/:scope/code", email.SendCode)
	}

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", user.Logout)
		userGroup.POST("/reset", user.ResetPassword)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.POST("/change-password", user.ChangePassword)
		authGroup.POST("/timezone", user.UpdateTimezone)
	}

	// 用户关注相关接口
	followGroup := r.Group("/api/follow")
	followGroup.Use(middleware.AuthMiddleware())
	{
		followGroup.POST("/", follow.Follow)
		followGroup.GET("/followings", follow.ListFollowings)
		followGroup.GET("/followers", follow.ListFollowers)
		followGroup.GET("/relation", follow.Relation)
	}

	// phlock 圈子相关接口
	phlockGroup := r.Group("/api/phlock")
	phlockGroup.Use(middleware.AuthMiddleware())
	{
		phlockGroup.GET("/", phlock.List)
		phlockGroup.GET("/feed", phlock.Feed)
		phlockGroup.POST("/add", phlock.AddMember)
		phlockGroup.POST("/swap", phlock.Swap)
		phlockGroup.GET("/mutations", phlock.ListMutations)
		phlockGroup.POST("/mutations/:id/cancel", phlock.CancelMutation)
	}

	// 每日选歌相关接口
	pickGroup := r.Group("/api/pick")
	pickGroup.Use(middleware.AuthMiddleware())
	{
		pickGroup.POST("/", pick.Create)
		pickGroup.GET("/streak", pick.Streak)
		pickGroup.GET("/reach", pick.Reach)
	}

	// 催歌相关接口
	nudgeGroup := r.Group("/api/nudge")
	nudgeGroup.Use(middleware.AuthMiddleware())
	{
		nudgeGroup.POST("/", nudge.Send)
		nudgeGroup.GET("/notifications", nudge.List)
	}

	return r
}
