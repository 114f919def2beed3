package mounting

import (
	"net/http"
	"strconv"

	"estimate-service/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateFromEstimate derives a mounting estimate from an estimate.
func (h *Handler) CreateFromEstimate(c *gin.Context) {
	estimateID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.CreateFromEstimate(c.Request.Context(), estimateID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

type AgreeRequest struct {
	CounterpartyID uint64 `json:"counterparty_id" binding:"required"`
}

func (h *Handler) Agree(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form AgreeRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.Agree(c.Request.Context(), docID, form.CounterpartyID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

type CreateWorkRequest struct {
	Name      string          `json:"name" binding:"required,min=1,max=255"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (h *Handler) AddWork(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateWorkRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	work, err := h.service.AddWork(c.Request.Context(), docID, WorkInput{
		Name:      form.Name,
		Quantity:  form.Quantity,
		UnitPrice: form.UnitPrice,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, work)
}

type UpdateWorkRequest struct {
	Name      *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Quantity  *decimal.Decimal `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func (h *Handler) UpdateWork(c *gin.Context) {
	workID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateWorkRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	work, err := h.service.UpdateWork(c.Request.Context(), workID, WorkUpdate{
		Name:      form.Name,
		Quantity:  form.Quantity,
		UnitPrice: form.UnitPrice,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, work)
}

func (h *Handler) DeleteWork(c *gin.Context) {
	workID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteWork(c.Request.Context(), workID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context, param string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("Invalid id", err)
	}
	return id, nil
}
