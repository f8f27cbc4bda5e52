package http

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/markdown"
	"github.com/vovakirdan/studybud-server/internal/service/rooms"
)

//go:embed templates/*.html
var templateFS embed.FS

const notAllowedText = "You are not allowed here!"

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"markdown": markdown.Render,
		"since":    since,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// since formats the age of t the way the activity feed shows it.
func since(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// render executes a page template, adding the current principal.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["principal"] = currentPrincipal(c)
	if _, ok := data["query"]; !ok {
		data["query"] = ""
	}
	c.HTML(status, name, data)
}

func renderNotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "not_found.html", nil)
}

// paramID parses the :id route parameter. Malformed ids answer 404.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		renderNotFound(c)
		return 0, false
	}
	return id, true
}

// respondError maps rooms service errors onto responses.
func respondError(c *gin.Context, logger *zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound),
		errors.Is(err, rooms.ErrMessageNotFound),
		errors.Is(err, rooms.ErrUserNotFound):
		renderNotFound(c)
	case errors.Is(err, rooms.ErrNotAllowed):
		c.String(http.StatusForbidden, "%s", notAllowedText)
	case errors.Is(err, rooms.ErrUnauthenticated):
		c.Redirect(http.StatusFound, "/login")
	default:
		logger.Error().Err(err).Str("request_id", c.GetString(ContextKeyRequestID)).Msg(msg)
		c.String(http.StatusInternalServerError, "%s", "internal server error")
	}
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
