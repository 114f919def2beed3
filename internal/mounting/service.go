package mounting

import (
	"context"
	defError "errors"
	"fmt"

	"estimate-service/internal/document"
	"estimate-service/internal/domain"
	apiErrors "estimate-service/internal/errors"
	"estimate-service/internal/registry"
	"estimate-service/internal/rollup"
	"estimate-service/redis"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WorkInput struct {
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// DocumentStore is the slice of the document repository the agreement
// workflow needs.
type DocumentStore interface {
	FindDocumentTree(ctx context.Context, id uint64) (*domain.Document, error)
	NextChainID(ctx context.Context) (uint64, error)
	CreateDocument(ctx context.Context, doc *domain.Document) error
}

type Service interface {
	CreateFromEstimate(ctx context.Context, estimateID uint64) (*document.DocumentResponse, error)
	Agree(ctx context.Context, docID uint64, counterpartyID uint64) (*document.DocumentResponse, error)
	AddWork(ctx context.Context, docID uint64, input WorkInput) (*document.WorkResponse, error)
	UpdateWork(ctx context.Context, workID uint64, update WorkUpdate) (*document.WorkResponse, error)
	DeleteWork(ctx context.Context, workID uint64) error
}

type DefaultService struct {
	repository Repository
	documents  DocumentStore
	registry   registry.Client
	cache      *redis.Cache
}

func NewService(
	repository Repository,
	documents DocumentStore,
	registryClient registry.Client,
	cache *redis.Cache,
) Service {
	return &DefaultService{
		repository: repository,
		documents:  documents,
		registry:   registryClient,
		cache:      cache,
	}
}

// CreateFromEstimate hands an estimate off to a subcontractor: a new
// mounting-estimate chain seeded from the source estimate's current rollup.
func (s *DefaultService) CreateFromEstimate(ctx context.Context, estimateID uint64) (*document.DocumentResponse, error) {
	source, err := s.documents.FindDocumentTree(ctx, estimateID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiErrors.NotFound("Estimate not found", err)
		}
		return nil, err
	}
	if source.Kind != domain.KindEstimate {
		return nil, apiErrors.NotFound("Estimate not found", nil)
	}
	if !source.IsCurrent {
		return nil, apiErrors.Forbidden("Only the current estimate version can be handed off", nil)
	}

	chainID, err := s.documents.NextChainID(ctx)
	if err != nil {
		return nil, err
	}

	totals := rollup.ForDocument(source)
	doc := &domain.Document{
		ChainID:          chainID,
		Kind:             domain.KindMountingEstimate,
		Name:             source.Name,
		Status:           domain.StatusDraft,
		VersionNumber:    1,
		IsCurrent:        true,
		ObjectID:         source.ObjectID,
		ObjectName:       source.ObjectName,
		LegalEntityID:    source.LegalEntityID,
		SourceEstimateID: &source.ID,
		TotalAmount:      totals.TotalSale.Round(2),
		ManHours:         source.ManHours,
	}

	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	return document.ToDocumentResponse(doc), nil
}

// Agree binds a counterparty to a sent mounting estimate, exactly once.
// Whether the counterparty may act as vendor/supplier is the registry's call.
func (s *DefaultService) Agree(ctx context.Context, docID uint64, counterpartyID uint64) (*document.DocumentResponse, error) {
	capable, err := s.registry.IsVendorCapable(ctx, counterpartyID)
	if err != nil {
		return nil, apiErrors.UnprocessableEntity("Can't verify counterparty", err)
	}
	if !capable {
		return nil, apiErrors.UnprocessableEntity("Counterparty is not vendor-capable", nil)
	}

	if _, err := s.repository.Agree(ctx, docID, counterpartyID); err != nil {
		return nil, s.mapError(err, "Mounting estimate not found")
	}

	s.invalidate(ctx, docID)

	tree, err := s.documents.FindDocumentTree(ctx, docID)
	if err != nil {
		return nil, err
	}
	return document.ToDocumentResponse(tree), nil
}

func (s *DefaultService) AddWork(ctx context.Context, docID uint64, input WorkInput) (*document.WorkResponse, error) {
	if input.Name == "" {
		return nil, apiErrors.Validation("Name is required", nil)
	}
	if input.Quantity.IsNegative() || input.UnitPrice.IsNegative() {
		return nil, apiErrors.Validation("Amounts can't be negative", nil)
	}

	work := &domain.Work{
		Name:      input.Name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
	}
	if err := s.repository.AddWork(ctx, docID, work); err != nil {
		return nil, s.mapError(err, "Mounting estimate not found")
	}

	s.invalidate(ctx, docID)
	return toWorkResponse(work), nil
}

func (s *DefaultService) UpdateWork(ctx context.Context, workID uint64, update WorkUpdate) (*document.WorkResponse, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, apiErrors.Validation("Name can't be empty", nil)
	}
	for _, amount := range []*decimal.Decimal{update.Quantity, update.UnitPrice} {
		if amount != nil && amount.IsNegative() {
			return nil, apiErrors.Validation("Amounts can't be negative", nil)
		}
	}

	work, docID, err := s.repository.UpdateWork(ctx, workID, update)
	if err != nil {
		return nil, s.mapError(err, "Work not found")
	}

	s.invalidate(ctx, docID)
	return toWorkResponse(work), nil
}

func (s *DefaultService) DeleteWork(ctx context.Context, workID uint64) error {
	docID, err := s.repository.DeleteWork(ctx, workID)
	if err != nil {
		return s.mapError(err, "Work not found")
	}

	s.invalidate(ctx, docID)
	return nil
}

func (s *DefaultService) invalidate(ctx context.Context, docID uint64) {
	versionKey := fmt.Sprintf("doc:%d:version", docID)
	s.cache.IncrementVersion(ctx, versionKey)
}

func (s *DefaultService) mapError(err error, notFoundMsg string) error {
	switch {
	case defError.Is(err, gorm.ErrRecordNotFound):
		return apiErrors.NotFound(notFoundMsg, err)
	case defError.Is(err, document.ErrNotCurrent):
		return apiErrors.Forbidden("Only the current version can be modified", err)
	case defError.Is(err, ErrAlreadyAgreed):
		return apiErrors.Conflict("Mounting estimate is already agreed", err)
	case defError.Is(err, ErrWrongStatus):
		return apiErrors.Conflict("Mounting estimate must be sent before agreement", err)
	}
	return err
}

func toWorkResponse(w *domain.Work) *document.WorkResponse {
	return &document.WorkResponse{
		ID:         w.ID,
		DocumentID: w.DocumentID,
		Name:       w.Name,
		Quantity:   w.Quantity,
		UnitPrice:  w.UnitPrice,
		TotalPrice: w.TotalPrice,
	}
}
