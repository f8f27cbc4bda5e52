package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studybud-server/internal/service/rooms"
	"github.com/vovakirdan/studybud-server/internal/store"
)

// RoomHandlers provides the listing, room and room management pages.
type RoomHandlers struct {
	service *rooms.Service
	log     *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(svc *rooms.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		service: svc,
		log:     logger,
	}
}

// RoomForm is the create/update room form submission.
type RoomForm struct {
	Name        string `form:"name" binding:"required,max=200"`
	Topic       string `form:"topic" binding:"required,max=200"`
	Description string `form:"description" binding:"max=2000"`
}

func (f RoomForm) input() rooms.RoomInput {
	return rooms.RoomInput{Name: f.Name, Topic: f.Topic, Description: f.Description}
}

// MessageForm is the post-message form submission.
type MessageForm struct {
	Body string `form:"body"`
}

// Home lists rooms matching the optional q query parameter.
// GET /
func (h *RoomHandlers) Home(c *gin.Context) {
	listing, err := h.service.Browse(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err, "failed to browse rooms")
		return
	}

	render(c, http.StatusOK, "home.html", gin.H{
		"query":     listing.Query,
		"rooms":     listing.Rooms,
		"roomCount": listing.RoomCount,
		"topics":    listing.Topics,
		"messages":  listing.Messages,
	})
}

func (h *RoomHandlers) renderRoom(c *gin.Context, status int, roomID int64, body, errMsg string) {
	detail, err := h.service.Room(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, h.log, err, "failed to load room")
		return
	}

	render(c, status, "room.html", gin.H{
		"room":         detail.Room,
		"messages":     detail.Messages,
		"participants": detail.Participants,
		"body":         body,
		"error":        errMsg,
	})
}

// Room shows a room's thread.
// GET /room/:id
func (h *RoomHandlers) Room(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.renderRoom(c, http.StatusOK, id, "", "")
}

// PostMessage adds a message to the room and redirects back to it.
// POST /room/:id
func (h *RoomHandlers) PostMessage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var form MessageForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Debug().Err(err).Msg("invalid message form")
	}

	msg, err := h.service.PostMessage(c.Request.Context(), currentPrincipal(c), id, form.Body)
	if err != nil {
		if errors.Is(err, rooms.ErrEmptyMessage) {
			h.renderRoom(c, http.StatusBadRequest, id, form.Body, "Message cannot be empty")
			return
		}
		respondError(c, h.log, err, "failed to post message")
		return
	}

	h.log.Info().Int64("room_id", id).Int64("message_id", msg.ID).Int64("user_id", msg.UserID).Msg("message posted")
	c.Redirect(http.StatusFound, "/room/"+strconv.FormatInt(id, 10))
}

func (h *RoomHandlers) renderRoomForm(c *gin.Context, status int, room *store.Room, form RoomForm, errMsg string) {
	listing, err := h.service.Browse(c.Request.Context(), "")
	if err != nil {
		respondError(c, h.log, err, "failed to load topics")
		return
	}

	render(c, status, "room_form.html", gin.H{
		"room":   room,
		"form":   form,
		"topics": listing.Topics,
		"error":  errMsg,
	})
}

// CreateRoomPage shows an empty room form.
// GET /room/create
func (h *RoomHandlers) CreateRoomPage(c *gin.Context) {
	h.renderRoomForm(c, http.StatusOK, nil, RoomForm{}, "")
}

// CreateRoom creates a room hosted by the current user.
// POST /room/create
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var form RoomForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Debug().Err(err).Msg("invalid room form")
		h.renderRoomForm(c, http.StatusBadRequest, nil, form, "A room needs a name and a topic")
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), currentPrincipal(c), form.input())
	if err != nil {
		if errors.Is(err, rooms.ErrInvalidRoom) {
			h.renderRoomForm(c, http.StatusBadRequest, nil, form, err.Error())
			return
		}
		respondError(c, h.log, err, "failed to create room")
		return
	}

	h.log.Info().Int64("room_id", room.ID).Str("room_name", room.Name).Int64("host_id", room.HostID).Msg("room created")
	c.Redirect(http.StatusFound, "/")
}

// UpdateRoomPage shows the room form pre-filled, for the host only.
// GET /room/:id/update
func (h *RoomHandlers) UpdateRoomPage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	room, err := h.service.EditableRoom(c.Request.Context(), currentPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err, "failed to load room")
		return
	}

	h.renderRoomForm(c, http.StatusOK, room, RoomForm{
		Name:        room.Name,
		Topic:       room.TopicName,
		Description: room.Description,
	}, "")
}

// UpdateRoom saves changes to a room, for the host only.
// POST /room/:id/update
func (h *RoomHandlers) UpdateRoom(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	p := currentPrincipal(c)
	room, err := h.service.EditableRoom(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err, "failed to load room")
		return
	}

	var form RoomForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Debug().Err(err).Msg("invalid room form")
		h.renderRoomForm(c, http.StatusBadRequest, room, form, "A room needs a name and a topic")
		return
	}

	updated, err := h.service.UpdateRoom(c.Request.Context(), p, id, form.input())
	if err != nil {
		if errors.Is(err, rooms.ErrInvalidRoom) {
			h.renderRoomForm(c, http.StatusBadRequest, room, form, err.Error())
			return
		}
		respondError(c, h.log, err, "failed to update room")
		return
	}

	h.log.Info().Int64("room_id", updated.ID).Str("room_name", updated.Name).Msg("room updated")
	c.Redirect(http.StatusFound, "/")
}

// DeleteRoomPage asks the host to confirm deletion.
// GET /room/:id/delete
func (h *RoomHandlers) DeleteRoomPage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	room, err := h.service.EditableRoom(c.Request.Context(), currentPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err, "failed to load room")
		return
	}

	render(c, http.StatusOK, "delete.html", gin.H{
		"obj":    room.Name,
		"action": "/room/" + strconv.FormatInt(room.ID, 10) + "/delete",
		"back":   "/room/" + strconv.FormatInt(room.ID, 10),
	})
}

// DeleteRoom removes the room, for the host only.
// POST /room/:id/delete
func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteRoom(c.Request.Context(), currentPrincipal(c), id); err != nil {
		respondError(c, h.log, err, "failed to delete room")
		return
	}

	h.log.Info().Int64("room_id", id).Msg("room deleted")
	c.Redirect(http.StatusFound, "/")
}
