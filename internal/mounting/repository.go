package mounting

import (
	"context"
	"errors"
	"time"

	"estimate-service/internal/document"
	"estimate-service/internal/domain"
	"estimate-service/internal/rollup"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrWrongStatus: agreement requires the estimate to have been sent.
	ErrWrongStatus = errors.New("mounting estimate is not in sent status")
	// ErrAlreadyAgreed: a counterparty is already bound.
	ErrAlreadyAgreed = errors.New("mounting estimate is already agreed")
)

type WorkUpdate struct {
	Name      *string
	Quantity  *decimal.Decimal
	UnitPrice *decimal.Decimal
}

type Repository interface {
	Agree(ctx context.Context, docID uint64, counterpartyID uint64) (*domain.Document, error)
	AddWork(ctx context.Context, docID uint64, work *domain.Work) error
	UpdateWork(ctx context.Context, workID uint64, update WorkUpdate) (*domain.Work, uint64, error)
	DeleteWork(ctx context.Context, workID uint64) (docID uint64, err error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new mounting-estimate repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// Agree binds the counterparty and moves the document to approved, checking
// both preconditions under the row lock so the operation is exactly-once.
func (r *RepositoryImpl) Agree(ctx context.Context, docID uint64, counterpartyID uint64) (*domain.Document, error) {
	var doc domain.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("kind = ?", domain.KindMountingEstimate).
			First(&doc, docID).Error; err != nil {
			return err
		}
		if !doc.IsCurrent {
			return document.ErrNotCurrent
		}
		if doc.AgreedCounterpartyID != nil {
			return ErrAlreadyAgreed
		}
		if doc.Status != domain.StatusSent {
			return ErrWrongStatus
		}

		now := time.Now().UTC()
		doc.Status = domain.StatusApproved
		doc.AgreedCounterpartyID = &counterpartyID
		doc.AgreedAt = &now

		return tx.Model(&doc).Updates(map[string]any{
			"status":                 doc.Status,
			"agreed_counterparty_id": counterpartyID,
			"agreed_at":              now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *RepositoryImpl) AddWork(ctx context.Context, docID uint64, work *domain.Work) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockCurrentMounting(tx, docID); err != nil {
			return err
		}

		work.DocumentID = docID
		work.TotalPrice = rollup.WorkTotal(work.Quantity, work.UnitPrice).Round(2)
		return tx.Create(work).Error
	})
}

func (r *RepositoryImpl) UpdateWork(ctx context.Context, workID uint64, update WorkUpdate) (*domain.Work, uint64, error) {
	var work domain.Work
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&work, workID).Error; err != nil {
			return err
		}
		docID = work.DocumentID
		if err := r.lockCurrentMounting(tx, docID); err != nil {
			return err
		}

		if update.Name != nil {
			work.Name = *update.Name
		}
		if update.Quantity != nil {
			work.Quantity = *update.Quantity
		}
		if update.UnitPrice != nil {
			work.UnitPrice = *update.UnitPrice
		}
		// the stored total always derives from the stored inputs
		work.TotalPrice = rollup.WorkTotal(work.Quantity, work.UnitPrice).Round(2)

		return tx.Model(&work).Updates(map[string]any{
			"name":        work.Name,
			"quantity":    work.Quantity,
			"unit_price":  work.UnitPrice,
			"total_price": work.TotalPrice,
		}).Error
	})
	if err != nil {
		return nil, 0, err
	}

	return &work, docID, nil
}

func (r *RepositoryImpl) DeleteWork(ctx context.Context, workID uint64) (uint64, error) {
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var work domain.Work
		if err := tx.First(&work, workID).Error; err != nil {
			return err
		}
		docID = work.DocumentID
		if err := r.lockCurrentMounting(tx, docID); err != nil {
			return err
		}

		return tx.Delete(&work).Error
	})

	return docID, err
}

func (r *RepositoryImpl) lockCurrentMounting(tx *gorm.DB, docID uint64) error {
	var doc domain.Document
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ?", domain.KindMountingEstimate).
		First(&doc, docID).Error; err != nil {
		return err
	}
	if !doc.IsCurrent {
		return document.ErrNotCurrent
	}
	return nil
}
