package document

import (
	"net/http"
	"strconv"

	"estimate-service/internal/domain"
	"estimate-service/internal/errors"
	"estimate-service/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateDocumentRequest struct {
	Name          string          `json:"name" binding:"required,min=1,max=255"`
	Number        string          `json:"number" binding:"omitempty,max=64"`
	WithVAT       bool            `json:"with_vat"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	ObjectID      *uint64         `json:"object_id"`
	LegalEntityID *uint64         `json:"legal_entity_id"`
	PriceListID   *uint64         `json:"price_list_id"`
	ManHours      decimal.Decimal `json:"man_hours"`
}

// CreateEstimate starts a new estimate chain at version 1.
func (h *Handler) CreateEstimate(c *gin.Context) {
	h.createDocument(c, domain.KindEstimate)
}

// CreateProject starts a new project chain at version 1.
func (h *Handler) CreateProject(c *gin.Context) {
	h.createDocument(c, domain.KindProject)
}

func (h *Handler) createDocument(c *gin.Context, kind string) {
	var form CreateDocumentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.CreateDocument(c.Request.Context(), kind, CreateDocumentInput{
		Name:          form.Name,
		Number:        form.Number,
		WithVAT:       form.WithVAT,
		VATRate:       form.VATRate,
		ObjectID:      form.ObjectID,
		LegalEntityID: form.LegalEntityID,
		PriceListID:   form.PriceListID,
		ManHours:      form.ManHours,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ShowDocument(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)

	result, err := h.service.ListDocuments(c.Request.Context(), c.Query("kind"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateStatusRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.UpdateStatus(c.Request.Context(), docID, form.Status)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) CreateVersion(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.CreateVersion(c.Request.Context(), docID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListVersions(c *gin.Context) {
	chainID, err := parseID(c, "chainId")
	if err != nil {
		c.Error(err)
		return
	}

	versions, err := h.service.ListVersions(c.Request.Context(), chainID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, versions)
}

type CreateSectionRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=255"`
	SortOrder int    `json:"sort_order"`
}

func (h *Handler) CreateSection(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateSectionRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	section, err := h.service.CreateSection(c.Request.Context(), docID, form.Name, form.SortOrder)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, section)
}

type UpdateSectionRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=255"`
	SortOrder *int    `json:"sort_order"`
}

func (h *Handler) UpdateSection(c *gin.Context) {
	sectionID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateSectionRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	section, err := h.service.UpdateSection(c.Request.Context(), sectionID, SectionUpdate{
		Name:      form.Name,
		SortOrder: form.SortOrder,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, section)
}

func (h *Handler) DeleteSection(c *gin.Context) {
	sectionID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteSection(c.Request.Context(), sectionID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type CreateSubsectionRequest struct {
	Name              string          `json:"name" binding:"omitempty,max=255"`
	SortOrder         int             `json:"sort_order"`
	MaterialsSale     decimal.Decimal `json:"materials_sale"`
	WorksSale         decimal.Decimal `json:"works_sale"`
	MaterialsPurchase decimal.Decimal `json:"materials_purchase"`
	WorksPurchase     decimal.Decimal `json:"works_purchase"`
}

func (h *Handler) CreateSubsection(c *gin.Context) {
	sectionID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateSubsectionRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	subsection, err := h.service.CreateSubsection(c.Request.Context(), sectionID, SubsectionInput{
		Name:              form.Name,
		SortOrder:         form.SortOrder,
		MaterialsSale:     form.MaterialsSale,
		WorksSale:         form.WorksSale,
		MaterialsPurchase: form.MaterialsPurchase,
		WorksPurchase:     form.WorksPurchase,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, subsection)
}

type UpdateSubsectionRequest struct {
	Name              *string          `json:"name" binding:"omitempty,max=255"`
	SortOrder         *int             `json:"sort_order"`
	MaterialsSale     *decimal.Decimal `json:"materials_sale"`
	WorksSale         *decimal.Decimal `json:"works_sale"`
	MaterialsPurchase *decimal.Decimal `json:"materials_purchase"`
	WorksPurchase     *decimal.Decimal `json:"works_purchase"`
}

func (h *Handler) UpdateSubsection(c *gin.Context) {
	subsectionID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateSubsectionRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	subsection, err := h.service.UpdateSubsection(c.Request.Context(), subsectionID, SubsectionUpdate{
		Name:              form.Name,
		SortOrder:         form.SortOrder,
		MaterialsSale:     form.MaterialsSale,
		WorksSale:         form.WorksSale,
		MaterialsPurchase: form.MaterialsPurchase,
		WorksPurchase:     form.WorksPurchase,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, subsection)
}

func (h *Handler) DeleteSubsection(c *gin.Context) {
	subsectionID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteSubsection(c.Request.Context(), subsectionID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type CreateCharacteristicRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=255"`
	SourceType     string          `json:"source_type" binding:"required,oneof=manual auto"`
	Rule           string          `json:"rule"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	SaleAmount     decimal.Decimal `json:"sale_amount"`
}

func (h *Handler) CreateCharacteristic(c *gin.Context) {
	docID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateCharacteristicRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	characteristic, err := h.service.CreateCharacteristic(c.Request.Context(), docID, CharacteristicInput{
		Name:           form.Name,
		SourceType:     form.SourceType,
		Rule:           form.Rule,
		PurchaseAmount: form.PurchaseAmount,
		SaleAmount:     form.SaleAmount,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, characteristic)
}

type UpdateCharacteristicRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1,max=255"`
	PurchaseAmount *decimal.Decimal `json:"purchase_amount"`
	SaleAmount     *decimal.Decimal `json:"sale_amount"`
}

func (h *Handler) UpdateCharacteristic(c *gin.Context) {
	characteristicID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var form UpdateCharacteristicRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	characteristic, err := h.service.UpdateCharacteristic(c.Request.Context(), characteristicID, CharacteristicUpdate{
		Name:           form.Name,
		PurchaseAmount: form.PurchaseAmount,
		SaleAmount:     form.SaleAmount,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, characteristic)
}

func (h *Handler) DeleteCharacteristic(c *gin.Context) {
	characteristicID, err := parseID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteCharacteristic(c.Request.Context(), characteristicID); err != nil {
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
