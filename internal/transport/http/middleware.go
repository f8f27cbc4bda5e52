package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/auth"
	"github.com/vovakirdan/studybud-server/internal/authz"
)

const (
	// ContextKeyPrincipal is the context key for the authenticated *authz.Principal.
	ContextKeyPrincipal = "principal"
	// ContextKeyRequestID is the context key for the request id.
	ContextKeyRequestID = "request_id"

	headerRequestID = "X-Request-Id"
)

// RequestIDMiddleware propagates X-Request-Id or assigns a fresh one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event = event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(ContextKeyRequestID))
		if p := currentPrincipal(c); p != nil {
			event = event.Int64("user_id", p.UserID)
		}
		event.Msg("http request")
	}
}

// SessionMiddleware resolves the session cookie into a principal when it is
// valid. Anonymous requests pass through untouched.
func SessionMiddleware(authService *auth.Service, cookieName string, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Debug().Err(err).Str("request_id", c.GetString(ContextKeyRequestID)).Msg("ignoring invalid session cookie")
			c.Next()
			return
		}

		c.Set(ContextKeyPrincipal, &authz.Principal{
			UserID:    claims.UserID,
			Username:  claims.Username,
			SessionID: claims.ID,
		})

		c.Next()
	}
}

// RequireLogin redirects anonymous users to the login page, remembering
// where they were headed.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentPrincipal(c) == nil {
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentPrincipal returns the request's principal or nil when anonymous.
func currentPrincipal(c *gin.Context) *authz.Principal {
	v, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil
	}
	p, _ := v.(*authz.Principal)
	return p
}
