package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/auth"
	"github.com/vovakirdan/studybud-server/internal/config"
	"github.com/vovakirdan/studybud-server/internal/service/rooms"
)

// NewServer builds the HTTP server with all board routes.
// The login throttle window resets every minute until the server shuts down.
func NewServer(authService *auth.Service, roomService *rooms.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	limiter := newRateLimiter(cfg.LoginRateLimit)
	stop := make(chan struct{})
	limiter.startReset(stop)

	srv := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(authService, roomService, cfg, limiter, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(func() { close(stop) })
	return srv
}

// NewRouter builds the gin engine serving the board. Its login throttle
// never resets; use NewServer for a long-running process.
func NewRouter(authService *auth.Service, roomService *rooms.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	return newRouter(authService, roomService, cfg, newRateLimiter(cfg.LoginRateLimit), logger)
}

func newRouter(authService *auth.Service, roomService *rooms.Service, cfg *config.Config, limiter *rateLimiter, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	// Without trusted proxies gin takes the client IP from the socket only.
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil) //nolint:errcheck // nil cannot fail
	}
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.SetHTMLTemplate(loadTemplates())
	router.NoRoute(func(c *gin.Context) {
		renderNotFound(c)
	})

	cookies := cookieSettings{
		name:   cfg.CookieName,
		secure: cfg.CookieSecure,
		maxAge: authService.TTL(),
	}

	authHandlers := NewAuthHandlers(authService, cookies, logger)
	roomHandlers := NewRoomHandlers(roomService, logger)
	messageHandlers := NewMessageHandlers(roomService, logger)
	userHandlers := NewUserHandlers(roomService, logger)

	throttle := RateLimitMiddleware(limiter, logger)

	router.GET("/health", healthHandler)

	board := router.Group("/")
	board.Use(SessionMiddleware(authService, cookies.name, logger))
	{
		board.GET("/", roomHandlers.Home)

		board.GET("/login", authHandlers.LoginPage)
		board.POST("/login", throttle, authHandlers.Login)
		board.GET("/logout", authHandlers.Logout)
		board.GET("/register", authHandlers.RegisterPage)
		board.POST("/register", throttle, authHandlers.Register)

		board.GET("/room/:id", roomHandlers.Room)
		board.GET("/profile/:id", userHandlers.Profile)

		member := board.Group("/")
		member.Use(RequireLogin())
		{
			member.POST("/room/:id", roomHandlers.PostMessage)

			member.GET("/room/create", roomHandlers.CreateRoomPage)
			member.POST("/room/create", roomHandlers.CreateRoom)
			member.GET("/room/:id/update", roomHandlers.UpdateRoomPage)
			member.POST("/room/:id/update", roomHandlers.UpdateRoom)
			member.GET("/room/:id/delete", roomHandlers.DeleteRoomPage)
			member.POST("/room/:id/delete", roomHandlers.DeleteRoom)

			member.GET("/message/:id/delete", messageHandlers.DeleteMessagePage)
			member.POST("/message/:id/delete", messageHandlers.DeleteMessage)
		}
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "%s", "ok")
}
