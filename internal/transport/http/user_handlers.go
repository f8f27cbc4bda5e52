package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/service/rooms"
)

// UserHandlers provides HTTP handlers for user pages.
type UserHandlers struct {
	service *rooms.Service
	log     *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(svc *rooms.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		service: svc,
		log:     logger,
	}
}

// Profile shows a user's hosted rooms and recent messages.
// GET /profile/:id
func (h *UserHandlers) Profile(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "failed to load profile")
		return
	}

	render(c, http.StatusOK, "profile.html", gin.H{
		"user":      profile.User,
		"rooms":     profile.Rooms,
		"roomCount": len(profile.Rooms),
		"messages":  profile.Messages,
		"topics":    profile.Topics,
	})
}
