package document

import (
	"time"

	"estimate-service/internal/domain"
	"estimate-service/internal/rollup"

	"github.com/shopspring/decimal"
)

type SubsectionResponse struct {
	ID                uint64          `json:"id"`
	SectionID         uint64          `json:"section_id"`
	Name              string          `json:"name"`
	SortOrder         int             `json:"sort_order"`
	MaterialsSale     decimal.Decimal `json:"materials_sale"`
	WorksSale         decimal.Decimal `json:"works_sale"`
	MaterialsPurchase decimal.Decimal `json:"materials_purchase"`
	WorksPurchase     decimal.Decimal `json:"works_purchase"`
	TotalSale         decimal.Decimal `json:"total_sale"`
	TotalPurchase     decimal.Decimal `json:"total_purchase"`
}

type SectionResponse struct {
	ID            uint64               `json:"id"`
	DocumentID    uint64               `json:"document_id"`
	Name          string               `json:"name"`
	SortOrder     int                  `json:"sort_order"`
	TotalSale     decimal.Decimal      `json:"total_sale"`
	TotalPurchase decimal.Decimal      `json:"total_purchase"`
	Subsections   []SubsectionResponse `json:"subsections"`
}

type CharacteristicResponse struct {
	ID             uint64          `json:"id"`
	DocumentID     uint64          `json:"document_id"`
	Name           string          `json:"name"`
	SourceType     string          `json:"source_type"`
	Rule           *string         `json:"rule,omitempty"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	SaleAmount     decimal.Decimal `json:"sale_amount"`
}

type WorkResponse struct {
	ID         uint64          `json:"id"`
	DocumentID uint64          `json:"document_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// DocumentResponse is the full tree plus computed totals.
type DocumentResponse struct {
	ID            uint64 `json:"id"`
	ChainID       uint64 `json:"chain_id"`
	Kind          string `json:"kind"`
	Number        string `json:"number"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	VersionNumber uint   `json:"version_number"`
	IsCurrent     bool   `json:"is_current"`

	WithVAT bool            `json:"with_vat"`
	VATRate decimal.Decimal `json:"vat_rate"`

	ObjectID      *uint64 `json:"object_id,omitempty"`
	ObjectName    string  `json:"object_name,omitempty"`
	LegalEntityID *uint64 `json:"legal_entity_id,omitempty"`
	PriceListID   *uint64 `json:"price_list_id,omitempty"`

	SourceEstimateID     *uint64         `json:"source_estimate_id,omitempty"`
	AgreedCounterpartyID *uint64         `json:"agreed_counterparty_id,omitempty"`
	AgreedAt             *time.Time      `json:"agreed_at,omitempty"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	ManHours             decimal.Decimal `json:"man_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sections        []SectionResponse        `json:"sections"`
	Characteristics []CharacteristicResponse `json:"characteristics"`
	Works           []WorkResponse           `json:"works,omitempty"`

	Totals rollup.DocumentTotals `json:"totals"`
}

// DocumentListItem is the list view row; no tree, no totals.
type DocumentListItem struct {
	ID            uint64    `json:"id"`
	ChainID       uint64    `json:"chain_id"`
	Kind          string    `json:"kind"`
	Number        string    `json:"number"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	VersionNumber uint      `json:"version_number"`
	ObjectName    string    `json:"object_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToDocumentResponse maps a loaded document tree to the API shape, rounding
// every money amount half-up to two decimals at this boundary.
func ToDocumentResponse(doc *domain.Document) *DocumentResponse {
	sections := make([]SectionResponse, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		sections = append(sections, *toSectionResponse(s))
	}

	characteristics := make([]CharacteristicResponse, 0, len(doc.Characteristics))
	for _, ch := range doc.Characteristics {
		characteristics = append(characteristics, *toCharacteristicResponse(ch))
	}

	var works []WorkResponse
	for _, w := range doc.Works {
		works = append(works, WorkResponse{
			ID:         w.ID,
			DocumentID: w.DocumentID,
			Name:       w.Name,
			Quantity:   w.Quantity,
			UnitPrice:  w.UnitPrice,
			TotalPrice: w.TotalPrice.Round(2),
		})
	}

	return &DocumentResponse{
		ID:                   doc.ID,
		ChainID:              doc.ChainID,
		Kind:                 doc.Kind,
		Number:               doc.Number,
		Name:                 doc.Name,
		Status:               doc.Status,
		VersionNumber:        doc.VersionNumber,
		IsCurrent:            doc.IsCurrent,
		WithVAT:              doc.WithVAT,
		VATRate:              doc.VATRate,
		ObjectID:             doc.ObjectID,
		ObjectName:           doc.ObjectName,
		LegalEntityID:        doc.LegalEntityID,
		PriceListID:          doc.PriceListID,
		SourceEstimateID:     doc.SourceEstimateID,
		AgreedCounterpartyID: doc.AgreedCounterpartyID,
		AgreedAt:             doc.AgreedAt,
		TotalAmount:          doc.TotalAmount.Round(2),
		ManHours:             doc.ManHours,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
		Sections:             sections,
		Characteristics:      characteristics,
		Works:                works,
		Totals:               rollup.ForDocument(doc).Rounded(),
	}
}

func (s *DefaultService) buildResponse(doc *domain.Document) *DocumentResponse {
	return ToDocumentResponse(doc)
}

func toListItem(doc domain.Document) DocumentListItem {
	return DocumentListItem{
		ID:            doc.ID,
		ChainID:       doc.ChainID,
		Kind:          doc.Kind,
		Number:        doc.Number,
		Name:          doc.Name,
		Status:        doc.Status,
		VersionNumber: doc.VersionNumber,
		ObjectName:    doc.ObjectName,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func toSectionResponse(s domain.Section) *SectionResponse {
	totals := rollup.ForSection(s)

	subsections := make([]SubsectionResponse, 0, len(s.Subsections))
	for _, ss := range s.Subsections {
		subsections = append(subsections, *toSubsectionResponse(ss))
	}

	return &SectionResponse{
		ID:            s.ID,
		DocumentID:    s.DocumentID,
		Name:          s.Name,
		SortOrder:     s.SortOrder,
		TotalSale:     totals.TotalSale.Round(2),
		TotalPurchase: totals.TotalPurchase.Round(2),
		Subsections:   subsections,
	}
}

func toSubsectionResponse(ss domain.Subsection) *SubsectionResponse {
	totals := rollup.ForSubsection(ss)

	return &SubsectionResponse{
		ID:                ss.ID,
		SectionID:         ss.SectionID,
		Name:              ss.Name,
		SortOrder:         ss.SortOrder,
		MaterialsSale:     ss.MaterialsSale,
		WorksSale:         ss.WorksSale,
		MaterialsPurchase: ss.MaterialsPurchase,
		WorksPurchase:     ss.WorksPurchase,
		TotalSale:         totals.TotalSale.Round(2),
		TotalPurchase:     totals.TotalPurchase.Round(2),
	}
}

func toCharacteristicResponse(ch domain.Characteristic) *CharacteristicResponse {
	return &CharacteristicResponse{
		ID:             ch.ID,
		DocumentID:     ch.DocumentID,
		Name:           ch.Name,
		SourceType:     ch.SourceType,
		Rule:           ch.Rule,
		PurchaseAmount: ch.PurchaseAmount,
		SaleAmount:     ch.SaleAmount,
	}
}
