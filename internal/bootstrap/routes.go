package bootstrap

import (
	"net/http"

	httpHandler "aura-board/internal/handler/http"
	wsHandler "aura-board/internal/handler/websocket"
	"aura-board/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers groups the request handlers mounted by NewRouter.
type Handlers struct {
	Auth        *httpHandler.AuthHandler
	Room        *httpHandler.RoomHandler
	Participant *httpHandler.ParticipantHandler
	WebSocket   *wsHandler.WebSocketHandler
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(cfg *Config, log *logrus.Logger, limiter middleware.RateLimiter, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(corsMiddleware(cfg.CORSAllowedOrigin))

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	auth := middleware.Auth(cfg.JWTSecret)
	api := router.Group("/api", middleware.RateLimit(limiter, cfg.RateLimitMax, cfg.RateLimitWindow))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.GET("/me", auth, h.Auth.Me)
	}

	roomRoutes := api.Group("/rooms", auth)
	{
		roomRoutes.POST("", h.Room.CreateRoom)
		roomRoutes.POST("/join", h.Room.JoinRoom)
		roomRoutes.GET("/:roomId", h.Room.GetRoom)
		roomRoutes.GET("/:roomId/invite.png", h.Room.InviteQRCode)
		roomRoutes.GET("/:roomId/participants", h.Participant.List)
		roomRoutes.POST("/:roomId/participants", h.Participant.Insert)
	}

	participantRoutes := api.Group("/participants", auth)
	{
		participantRoutes.PATCH("/:id", h.Participant.Update)
		participantRoutes.DELETE("/:id", h.Participant.Delete)
	}

	router.GET("/ws/room/:roomId", auth, h.WebSocket.HandleConnection)

	return router
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		if allowedOrigin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
