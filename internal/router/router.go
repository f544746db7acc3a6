package router

import (
	"Talk_Flow/internal/handler"
	"Talk_Flow/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers carries the wired handler set into the route table.
type Handlers struct {
	User         *handler.UserHandler
	Email        *handler.EmailHandler
	Follow       *handler.FollowHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Presence     *handler.PresenceHandler

	// BlobDir is served statically under /blobs for chat image delivery.
	BlobDir string
}

func InitRouter(h *Handlers) *gin.Engine {
	r := gin.Default()

	if h.BlobDir != "" {
		r.Static("/blobs", h.BlobDir)
	}

	// email endpoints
	emailGroup := r.Group("/api/email")
	{
		emailGroup.POST("/:scope/code", h.Email.SendCode)
	}

	// account endpoints
	userGroup := r.Group("/api/user")
	{
		userGroup.GET("/username", h.User.AllocateUsername)
		userGroup.POST("/register", h.User.Register)
		userGroup.POST("/login", h.User.Login)
		userGroup.POST("/reset", h.User.ResetPassword)
	}

	// token endpoints
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", h.User.TokenRefresh)
	}

	// session endpoints
	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.POST("/logout", h.User.Logout)
		authGroup.POST("/change-password", h.User.ChangePassword)
		authGroup.GET("/me", h.User.Me)
		authGroup.POST("/profile", h.User.UpdateProfile)
	}

	// directory endpoints
	usersGroup := r.Group("/api/users")
	usersGroup.Use(middleware.AuthMiddleware())
	{
		usersGroup.GET("/list", h.User.List)
		usersGroup.GET("/search", h.User.Search)
		usersGroup.GET("/:id", h.User.GetUser)
	}

	// follow graph endpoints
	followGroup := r.Group("/api/follow")
	followGroup.Use(middleware.AuthMiddleware())
	{
		followGroup.POST("/request", h.Follow.Request)
		followGroup.POST("/accept", h.Follow.Accept)
		followGroup.POST("/reject", h.Follow.Reject)
		followGroup.POST("/unfollow", h.Follow.Unfollow)
		followGroup.POST("/remove-follower", h.Follow.RemoveFollower)
		followGroup.POST("/back", h.Follow.FollowBack)
		followGroup.GET("/relation", h.Follow.Relation)
		followGroup.GET("/followers", h.Follow.ListFollowers)
		followGroup.GET("/followings", h.Follow.ListFollowings)
	}

	// chat endpoints
	chatGroup := r.Group("/api/chat")
	chatGroup.Use(middleware.AuthMiddleware())
	{
		chatGroup.POST("/send", h.Chat.SendText)
		chatGroup.POST("/send-image", h.Chat.SendImage)
		chatGroup.GET("/history", h.Chat.History)
		chatGroup.GET("/stream", h.Chat.Stream)
	}

	// notification endpoints
	notifGroup := r.Group("/api/notifications")
	notifGroup.Use(middleware.AuthMiddleware())
	{
		notifGroup.GET("/list", h.Notification.List)
		notifGroup.GET("/stream", h.Notification.Stream)
	}

	// presence endpoints
	presenceGroup := r.Group("/api/presence")
	presenceGroup.Use(middleware.AuthMiddleware())
	{
		presenceGroup.POST("/heartbeat", h.Presence.Heartbeat)
		presenceGroup.POST("/status", h.Presence.SetStatus)
		presenceGroup.GET("/", h.Presence.Get)
	}

	return r
}
