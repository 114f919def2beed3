package project

import (
	"net/http"
	"strconv"

	"estimate-service/internal/errors"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type NoteRequest struct {
	Body string `json:"body" binding:"required,min=1"`
}

func (h *Handler) CreateNote(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form NoteRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	note, err := h.service.CreateNote(c.Request.Context(), docID, userID.(uint64), form.Body)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

func (h *Handler) UpdateNote(c *gin.Context) {
	noteID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form NoteRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	note, err := h.service.UpdateNote(c.Request.Context(), noteID, userID.(uint64), form.Body)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, note)
}

func (h *Handler) DeleteNote(c *gin.Context) {
	noteID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	userID, _ := c.Get("user_id")

	if err := h.service.DeleteNote(c.Request.Context(), noteID, userID.(uint64)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListNotes(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	notes, err := h.service.ListNotes(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, notes)
}

func parseID(c *gin.Context, param string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("Invalid id", err)
	}
	return id, nil
}
