package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/service/rooms"
)

// MessageHandlers provides message deletion pages.
type MessageHandlers struct {
	service *rooms.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *rooms.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: svc,
		log:     logger,
	}
}

// DeleteMessagePage asks the author to confirm deletion.
// GET /message/:id/delete
func (h *MessageHandlers) DeleteMessagePage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	msg, err := h.service.DeletableMessage(c.Request.Context(), currentPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err, "failed to load message")
		return
	}

	render(c, http.StatusOK, "delete.html", gin.H{
		"obj":    msg.Body,
		"action": "/message/" + strconv.FormatInt(msg.ID, 10) + "/delete",
		"back":   "/room/" + strconv.FormatInt(msg.RoomID, 10),
	})
}

// DeleteMessage removes the message, for its author only.
// POST /message/:id/delete
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), currentPrincipal(c), id); err != nil {
		respondError(c, h.log, err, "failed to delete message")
		return
	}

	h.log.Info().Int64("message_id", id).Msg("message deleted")
	c.Redirect(http.StatusFound, "/")
}
