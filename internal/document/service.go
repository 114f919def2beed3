package document

import (
	"context"
	defError "errors"
	"fmt"
	"log"
	"time"

	"estimate-service/internal/domain"
	apiErrors "estimate-service/internal/errors"
	"estimate-service/internal/registry"
	"estimate-service/internal/worker"
	"estimate-service/redis"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateDocumentInput struct {
	Name          string
	Number        string
	WithVAT       bool
	VATRate       decimal.Decimal
	ObjectID      *uint64
	LegalEntityID *uint64
	PriceListID   *uint64
	ManHours      decimal.Decimal
}

type SubsectionInput struct {
	Name              string
	SortOrder         int
	MaterialsSale     decimal.Decimal
	WorksSale         decimal.Decimal
	MaterialsPurchase decimal.Decimal
	WorksPurchase     decimal.Decimal
}

type CharacteristicInput struct {
	Name           string
	SourceType     string
	Rule           string
	PurchaseAmount decimal.Decimal
	SaleAmount     decimal.Decimal
}

type Service interface {
	CreateDocument(ctx context.Context, kind string, input CreateDocumentInput) (*DocumentResponse, error)
	GetDocument(ctx context.Context, docID uint64) (*DocumentResponse, error)
	ListDocuments(ctx context.Context, kind string, page, pageSize int) (*PaginatedDocuments, error)
	UpdateStatus(ctx context.Context, docID uint64, status string) (*DocumentResponse, error)
	CreateVersion(ctx context.Context, docID uint64) (*DocumentResponse, error)
	ListVersions(ctx context.Context, chainID uint64) ([]VersionResponse, error)

	CreateSection(ctx context.Context, docID uint64, name string, sortOrder int) (*SectionResponse, error)
	UpdateSection(ctx context.Context, sectionID uint64, update SectionUpdate) (*SectionResponse, error)
	DeleteSection(ctx context.Context, sectionID uint64) error

	CreateSubsection(ctx context.Context, sectionID uint64, input SubsectionInput) (*SubsectionResponse, error)
	UpdateSubsection(ctx context.Context, subsectionID uint64, update SubsectionUpdate) (*SubsectionResponse, error)
	DeleteSubsection(ctx context.Context, subsectionID uint64) error

	CreateCharacteristic(ctx context.Context, docID uint64, input CharacteristicInput) (*CharacteristicResponse, error)
	UpdateCharacteristic(ctx context.Context, characteristicID uint64, update CharacteristicUpdate) (*CharacteristicResponse, error)
	DeleteCharacteristic(ctx context.Context, characteristicID uint64) error
}

type DefaultService struct {
	repository Repository
	registry   registry.Client
	cache      *redis.Cache
	pool       *worker.WorkerPool
}

func NewService(
	repository Repository,
	registryClient registry.Client,
	cache *redis.Cache,
	pool *worker.WorkerPool,
) Service {
	return &DefaultService{
		repository: repository,
		registry:   registryClient,
		cache:      cache,
		pool:       pool,
	}
}

func (s *DefaultService) CreateDocument(ctx context.Context, kind string, input CreateDocumentInput) (*DocumentResponse, error) {
	if input.Name == "" {
		return nil, apiErrors.Validation("Name is required", nil)
	}
	if input.VATRate.IsNegative() || input.ManHours.IsNegative() {
		return nil, apiErrors.Validation("Amounts can't be negative", nil)
	}

	chainID, err := s.repository.NextChainID(ctx)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ChainID:       chainID,
		Kind:          kind,
		Number:        input.Number,
		Name:          input.Name,
		Status:        domain.StatusDraft,
		VersionNumber: 1,
		IsCurrent:     true,
		WithVAT:       input.WithVAT,
		VATRate:       input.VATRate,
		ObjectID:      input.ObjectID,
		LegalEntityID: input.LegalEntityID,
		PriceListID:   input.PriceListID,
		ManHours:      input.ManHours,
	}

	// The object registry owns the name; we only denormalize it for display.
	if input.ObjectID != nil {
		name, err := s.registry.ObjectName(ctx, *input.ObjectID)
		if err != nil {
			log.Printf("[REGISTRY ERROR] Failed to resolve object %d name: %v", *input.ObjectID, err)
		} else {
			doc.ObjectName = name
		}
	}

	if err := s.repository.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	return s.buildResponse(doc), nil
}

func (s *DefaultService) GetDocument(ctx context.Context, docID uint64) (*DocumentResponse, error) {
	// Get the current data version for this document
	versionKey := fmt.Sprintf("doc:%d:version", docID)
	v := s.cache.GetVersion(ctx, versionKey)

	cacheKey := fmt.Sprintf("doc:%d:v:%d", docID, v)

	var cached DocumentResponse
	found, _ := s.cache.Get(ctx, cacheKey, &cached)
	if found {
		return &cached, nil
	}

	doc, err := s.repository.FindDocumentTree(ctx, docID)
	if err != nil {
		return nil, s.mapError(err, "Document not found")
	}

	result := s.buildResponse(doc)

	// populate cache off the request path
	s.pool.Submit(func(ctx context.Context) error {
		return s.cache.Set(ctx, cacheKey, result, 24*time.Hour)
	})

	return result, nil
}

type PaginatedDocuments struct {
	Data []DocumentListItem `json:"data"`
	Meta DocumentsMeta      `json:"meta"`
}

func (s *DefaultService) ListDocuments(ctx context.Context, kind string, page, pageSize int) (*PaginatedDocuments, error) {
	if kind != "" && kind != domain.KindEstimate && kind != domain.KindMountingEstimate && kind != domain.KindProject {
		return nil, apiErrors.Validation("Unknown document kind", nil)
	}

	documents, meta, err := s.repository.ListCurrent(ctx, kind, page, pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]DocumentListItem, 0, len(documents))
	for _, doc := range documents {
		items = append(items, toListItem(doc))
	}

	return &PaginatedDocuments{Data: items, Meta: meta}, nil
}

// UpdateStatus validates the transition against the table and applies it.
// The observed client offered every status freely; the server does not.
func (s *DefaultService) UpdateStatus(ctx context.Context, docID uint64, status string) (*DocumentResponse, error) {
	if !domain.ValidStatus(status) {
		return nil, apiErrors.Validation("Unknown status", nil)
	}

	doc, err := s.repository.UpdateStatus(ctx, docID, func(doc *domain.Document) error {
		if !domain.CanTransition(doc.Status, status) {
			return apiErrors.InvalidTransition(
				fmt.Sprintf("Can't move from %s to %s", doc.Status, status), nil)
		}
		doc.Status = status
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "Document not found")
	}

	s.invalidate(ctx, docID)
	return s.buildResponse(doc), nil
}

func (s *DefaultService) CreateVersion(ctx context.Context, docID uint64) (*DocumentResponse, error) {
	doc, err := s.repository.FindDocument(ctx, docID)
	if err != nil {
		return nil, s.mapError(err, "Document not found")
	}

	clone, err := s.repository.CreateVersion(ctx, doc.ChainID)
	if err != nil {
		return nil, s.mapError(err, "Document not found")
	}

	s.invalidate(ctx, docID)
	return s.buildResponse(clone), nil
}

type VersionResponse struct {
	ID            uint64    `json:"id"`
	ChainID       uint64    `json:"chain_id"`
	VersionNumber uint      `json:"version_number"`
	IsCurrent     bool      `json:"is_current"`
	Status        string    `json:"status"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *DefaultService) ListVersions(ctx context.Context, chainID uint64) ([]VersionResponse, error) {
	versions, err := s.repository.ListVersions(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, apiErrors.NotFound("Chain not found", nil)
	}

	result := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		result = append(result, VersionResponse{
			ID:            v.ID,
			ChainID:       v.ChainID,
			VersionNumber: v.VersionNumber,
			IsCurrent:     v.IsCurrent,
			Status:        v.Status,
			Name:          v.Name,
			CreatedAt:     v.CreatedAt,
		})
	}
	return result, nil
}

func (s *DefaultService) CreateSection(ctx context.Context, docID uint64, name string, sortOrder int) (*SectionResponse, error) {
	if name == "" {
		return nil, apiErrors.Validation("Name is required", nil)
	}

	section := &domain.Section{Name: name, SortOrder: sortOrder}
	if err := s.repository.CreateSection(ctx, docID, section); err != nil {
		return nil, s.mapError(err, "Document not found")
	}

	s.invalidate(ctx, docID)
	return toSectionResponse(*section), nil
}

func (s *DefaultService) UpdateSection(ctx context.Context, sectionID uint64, update SectionUpdate) (*SectionResponse, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, apiErrors.Validation("Name can't be empty", nil)
	}

	section, err := s.repository.UpdateSection(ctx, sectionID, update)
	if err != nil {
		return nil, s.mapError(err, "Section not found")
	}

	s.invalidate(ctx, section.DocumentID)
	return toSectionResponse(*section), nil
}

func (s *DefaultService) DeleteSection(ctx context.Context, sectionID uint64) error {
	docID, err := s.repository.DeleteSection(ctx, sectionID)
	if err != nil {
		return s.mapError(err, "Section not found")
	}

	s.invalidate(ctx, docID)
	return nil
}

func (s *DefaultService) CreateSubsection(ctx context.Context, sectionID uint64, input SubsectionInput) (*SubsectionResponse, error) {
	if anyNegative(input.MaterialsSale, input.WorksSale, input.MaterialsPurchase, input.WorksPurchase) {
		return nil, apiErrors.Validation("Amounts can't be negative", nil)
	}

	subsection := &domain.Subsection{
		Name:              input.Name,
		SortOrder:         input.SortOrder,
		MaterialsSale:     input.MaterialsSale,
		WorksSale:         input.WorksSale,
		MaterialsPurchase: input.MaterialsPurchase,
		WorksPurchase:     input.WorksPurchase,
	}
	docID, err := s.repository.CreateSubsection(ctx, sectionID, subsection)
	if err != nil {
		return nil, s.mapError(err, "Section not found")
	}

	s.invalidate(ctx, docID)
	return toSubsectionResponse(*subsection), nil
}

func (s *DefaultService) UpdateSubsection(ctx context.Context, subsectionID uint64, update SubsectionUpdate) (*SubsectionResponse, error) {
	for _, amount := range []*decimal.Decimal{update.MaterialsSale, update.WorksSale, update.MaterialsPurchase, update.WorksPurchase} {
		if amount != nil && amount.IsNegative() {
			return nil, apiErrors.Validation("Amounts can't be negative", nil)
		}
	}

	subsection, docID, err := s.repository.UpdateSubsection(ctx, subsectionID, update)
	if err != nil {
		return nil, s.mapError(err, "Subsection not found")
	}

	s.invalidate(ctx, docID)
	return toSubsectionResponse(*subsection), nil
}

func (s *DefaultService) DeleteSubsection(ctx context.Context, subsectionID uint64) error {
	docID, err := s.repository.DeleteSubsection(ctx, subsectionID)
	if err != nil {
		return s.mapError(err, "Subsection not found")
	}

	s.invalidate(ctx, docID)
	return nil
}

func (s *DefaultService) CreateCharacteristic(ctx context.Context, docID uint64, input CharacteristicInput) (*CharacteristicResponse, error) {
	if input.Name == "" {
		return nil, apiErrors.Validation("Name is required", nil)
	}

	characteristic := &domain.Characteristic{
		Name:       input.Name,
		SourceType: input.SourceType,
	}

	switch input.SourceType {
	case domain.SourceAuto:
		// amounts are server-computed; whatever the client sent is ignored
		if !domain.ValidRule(input.Rule) {
			return nil, apiErrors.Validation("Auto characteristic requires a known derivation rule", nil)
		}
		rule := input.Rule
		characteristic.Rule = &rule
	case domain.SourceManual:
		if anyNegative(input.PurchaseAmount, input.SaleAmount) {
			return nil, apiErrors.Validation("Amounts can't be negative", nil)
		}
		characteristic.PurchaseAmount = input.PurchaseAmount.Round(2)
		characteristic.SaleAmount = input.SaleAmount.Round(2)
	default:
		return nil, apiErrors.Validation("Unknown source type", nil)
	}

	if err := s.repository.CreateCharacteristic(ctx, docID, characteristic); err != nil {
		return nil, s.mapError(err, "Document not found")
	}

	s.invalidate(ctx, docID)
	return toCharacteristicResponse(*characteristic), nil
}

func (s *DefaultService) UpdateCharacteristic(ctx context.Context, characteristicID uint64, update CharacteristicUpdate) (*CharacteristicResponse, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, apiErrors.Validation("Name can't be empty", nil)
	}
	for _, amount := range []*decimal.Decimal{update.PurchaseAmount, update.SaleAmount} {
		if amount != nil && amount.IsNegative() {
			return nil, apiErrors.Validation("Amounts can't be negative", nil)
		}
	}

	characteristic, err := s.repository.UpdateCharacteristic(ctx, characteristicID, update)
	if err != nil {
		return nil, s.mapError(err, "Characteristic not found")
	}

	s.invalidate(ctx, characteristic.DocumentID)
	return toCharacteristicResponse(*characteristic), nil
}

func (s *DefaultService) DeleteCharacteristic(ctx context.Context, characteristicID uint64) error {
	docID, err := s.repository.DeleteCharacteristic(ctx, characteristicID)
	if err != nil {
		return s.mapError(err, "Characteristic not found")
	}

	s.invalidate(ctx, docID)
	return nil
}

// invalidate bumps the document's cache version so the next read misses.
func (s *DefaultService) invalidate(ctx context.Context, docID uint64) {
	versionKey := fmt.Sprintf("doc:%d:version", docID)
	s.cache.IncrementVersion(ctx, versionKey)
}

func (s *DefaultService) mapError(err error, notFoundMsg string) error {
	switch {
	case defError.Is(err, gorm.ErrRecordNotFound):
		return apiErrors.NotFound(notFoundMsg, err)
	case defError.Is(err, ErrNotCurrent):
		return apiErrors.Forbidden("Only the current version can be modified", err)
	case defError.Is(err, ErrVersionConflict):
		return apiErrors.Conflict("A new version was created concurrently", err)
	case defError.Is(err, ErrAutoCharacteristic):
		return apiErrors.ForbiddenOperation("Auto characteristics can't be deleted", err)
	}
	return err
}

func anyNegative(amounts ...decimal.Decimal) bool {
	for _, a := range amounts {
		if a.IsNegative() {
			return true
		}
	}
	return false
}
