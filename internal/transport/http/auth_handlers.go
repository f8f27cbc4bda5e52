package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/auth"
)

const registrationFailed = "An error occurred during registration"

type cookieSettings struct {
	name   string
	secure bool
	maxAge time.Duration
}

// AuthHandlers provides login, logout and registration pages.
type AuthHandlers struct {
	authService *auth.Service
	cookies     cookieSettings
	log         *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, cookies cookieSettings, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookies:     cookies,
		log:         logger,
	}
}

// LoginForm is the login form submission.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

// RegisterForm is the registration form submission.
type RegisterForm struct {
	Username  string `form:"username" binding:"required,max=150"`
	Password1 string `form:"password1" binding:"required"`
	Password2 string `form:"password2" binding:"required"`
}

func (h *AuthHandlers) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.name, token, int(h.cookies.maxAge/time.Second), "/", "", h.cookies.secure, true)
}

// endSession deletes the server-side session behind the request's cookie, if any.
func (h *AuthHandlers) endSession(c *gin.Context) {
	token, err := c.Cookie(h.cookies.name)
	if err != nil {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.log.Warn().Err(err).Msg("failed to end session")
	}
}

func (h *AuthHandlers) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.name, "", -1, "/", "", h.cookies.secure, true)
}

func (h *AuthHandlers) renderLogin(c *gin.Context, status int, username, next, errMsg string) {
	render(c, status, "login_register.html", gin.H{
		"page":     "login",
		"username": username,
		"next":     next,
		"error":    errMsg,
	})
}

// LoginPage shows the login form.
// GET /login
func (h *AuthHandlers) LoginPage(c *gin.Context) {
	if currentPrincipal(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.renderLogin(c, http.StatusOK, "", c.Query("next"), "")
}

// Login checks credentials and opens a session.
// POST /login
func (h *AuthHandlers) Login(c *gin.Context) {
	if currentPrincipal(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Debug().Err(err).Msg("invalid login form")
		h.renderLogin(c, http.StatusBadRequest, form.Username, form.Next, "Username and password are required")
		return
	}
	username := auth.NormalizeUsername(form.Username)

	token, err := h.authService.Login(c.Request.Context(), username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			h.renderLogin(c, http.StatusUnauthorized, username, form.Next, "User does not exist")
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.renderLogin(c, http.StatusUnauthorized, username, form.Next, "Username or password does not exist")
		default:
			h.log.Error().Err(err).Str("username", username).Msg("failed to login user")
			c.String(http.StatusInternalServerError, "%s", "internal server error")
		}
		return
	}

	h.setSession(c, token)
	h.log.Info().Str("username", username).Msg("user logged in")
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

// Logout ends the session and returns to the listing.
// GET /logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.endSession(c)
	h.clearSession(c)
	c.Redirect(http.StatusFound, "/")
}

// RegisterPage shows the registration form.
// GET /register
func (h *AuthHandlers) RegisterPage(c *gin.Context) {
	render(c, http.StatusOK, "login_register.html", gin.H{
		"page":     "register",
		"username": "",
		"error":    "",
	})
}

// Register creates an account and logs the new user in.
// POST /register
func (h *AuthHandlers) Register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Debug().Err(err).Msg("invalid register form")
		render(c, http.StatusBadRequest, "login_register.html", gin.H{
			"page":     "register",
			"username": form.Username,
			"error":    registrationFailed,
		})
		return
	}

	token, err := h.authService.Register(c.Request.Context(), form.Username, form.Password1, form.Password2)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidPassword),
			errors.Is(err, auth.ErrPasswordMismatch),
			errors.Is(err, auth.ErrUserExists):
			render(c, http.StatusBadRequest, "login_register.html", gin.H{
				"page":     "register",
				"username": form.Username,
				"error":    registrationFailed + ": " + err.Error(),
			})
		default:
			h.log.Error().Err(err).Str("username", form.Username).Msg("failed to register user")
			c.String(http.StatusInternalServerError, "%s", "internal server error")
		}
		return
	}

	h.endSession(c)
	h.setSession(c, token)
	h.log.Info().Str("username", auth.NormalizeUsername(form.Username)).Msg("user registered")
	c.Redirect(http.StatusFound, "/")
}
