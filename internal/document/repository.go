package document

import (
	"context"
	"errors"
	"time"

	"estimate-service/internal/domain"
	"estimate-service/internal/rollup"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel errors mapped to API errors by the services.
var (
	// ErrNotCurrent: the parent document is a superseded, read-only version.
	ErrNotCurrent = errors.New("document is not the current version")
	// ErrVersionConflict: a concurrent CreateVersion won the race.
	ErrVersionConflict = errors.New("version was created concurrently")
	// ErrAutoCharacteristic: auto characteristics can never be deleted.
	ErrAutoCharacteristic = errors.New("auto characteristic can't be deleted")
)

type SectionUpdate struct {
	Name      *string
	SortOrder *int
}

type SubsectionUpdate struct {
	Name              *string
	SortOrder         *int
	MaterialsSale     *decimal.Decimal
	WorksSale         *decimal.Decimal
	MaterialsPurchase *decimal.Decimal
	WorksPurchase     *decimal.Decimal
}

type CharacteristicUpdate struct {
	Name           *string
	PurchaseAmount *decimal.Decimal
	SaleAmount     *decimal.Decimal
}

type Repository interface {
	NextChainID(ctx context.Context) (uint64, error)
	CreateDocument(ctx context.Context, doc *domain.Document) error
	FindDocument(ctx context.Context, id uint64) (*domain.Document, error)
	FindDocumentTree(ctx context.Context, id uint64) (*domain.Document, error)
	ListCurrent(ctx context.Context, kind string, page, pageSize int) ([]domain.Document, DocumentsMeta, error)
	ListVersions(ctx context.Context, chainID uint64) ([]domain.Document, error)
	CreateVersion(ctx context.Context, chainID uint64) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id uint64, apply func(doc *domain.Document) error) (*domain.Document, error)

	CreateSection(ctx context.Context, docID uint64, section *domain.Section) error
	UpdateSection(ctx context.Context, sectionID uint64, update SectionUpdate) (*domain.Section, error)
	DeleteSection(ctx context.Context, sectionID uint64) (docID uint64, err error)

	CreateSubsection(ctx context.Context, sectionID uint64, subsection *domain.Subsection) (docID uint64, err error)
	UpdateSubsection(ctx context.Context, subsectionID uint64, update SubsectionUpdate) (*domain.Subsection, uint64, error)
	DeleteSubsection(ctx context.Context, subsectionID uint64) (docID uint64, err error)

	CreateCharacteristic(ctx context.Context, docID uint64, characteristic *domain.Characteristic) error
	UpdateCharacteristic(ctx context.Context, characteristicID uint64, update CharacteristicUpdate) (*domain.Characteristic, error)
	DeleteCharacteristic(ctx context.Context, characteristicID uint64) (docID uint64, err error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new document repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// NextChainID allocates a chain id for a brand-new document.
func (r *RepositoryImpl) NextChainID(ctx context.Context) (uint64, error) {
	var chainID uint64
	err := r.db.WithContext(ctx).
		Raw(`SELECT nextval('document_chain_seq')`).
		Scan(&chainID).Error
	return chainID, err
}

func (r *RepositoryImpl) CreateDocument(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *RepositoryImpl) FindDocument(ctx context.Context, id uint64) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindDocumentTree loads a document with its full tree, ordered for display.
func (r *RepositoryImpl) FindDocumentTree(ctx context.Context, id uint64) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Sections.Subsections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Characteristics", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Works", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

type DocumentsMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

func (r *RepositoryImpl) ListCurrent(ctx context.Context, kind string, page, pageSize int) ([]domain.Document, DocumentsMeta, error) {
	var documents []domain.Document
	var totalRecords int64

	query := r.db.WithContext(ctx).Model(&domain.Document{}).Where("is_current")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	// Count total records
	if err := query.Count(&totalRecords).Error; err != nil {
		return documents, DocumentsMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&documents).Error

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))

	return documents, DocumentsMeta{
		Total:       totalRecords,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, err
}

func (r *RepositoryImpl) ListVersions(ctx context.Context, chainID uint64) ([]domain.Document, error) {
	var versions []domain.Document
	err := r.db.WithContext(ctx).
		Where("chain_id = ?", chainID).
		Order("version_number DESC").
		Find(&versions).Error
	return versions, err
}

// CreateVersion deep-copies the chain's current document into a new current
// version and retires the old one, all in one transaction. The FOR UPDATE
// lock serializes racing calls; the guarded flip is the backstop that turns
// a lost race into ErrVersionConflict instead of two current rows.
func (r *RepositoryImpl) CreateVersion(ctx context.Context, chainID uint64) (*domain.Document, error) {
	var clone domain.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("chain_id = ? AND is_current", chainID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Under READ COMMITTED the loser of a concurrent call wakes
				// from the lock wait, re-evaluates is_current against the
				// winner's committed update and skips the row. Distinguish
				// that from a chain that never existed.
				var chainRows int64
				if countErr := tx.Model(&domain.Document{}).
					Where("chain_id = ?", chainID).
					Count(&chainRows).Error; countErr != nil {
					return countErr
				}
				return missingCurrentErr(chainRows)
			}
			return err
		}

		res := tx.Model(&domain.Document{}).
			Where("id = ? AND is_current AND version_number = ?", current.ID, current.VersionNumber).
			Update("is_current", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		tree, err := r.loadTree(tx, current.ID)
		if err != nil {
			return err
		}

		clone = *tree
		clone.ID = 0
		clone.VersionNumber = current.VersionNumber + 1
		clone.IsCurrent = true
		clone.CreatedAt = time.Time{}
		clone.UpdatedAt = time.Time{}

		sections := make([]domain.Section, len(tree.Sections))
		for i, s := range tree.Sections {
			sc := s
			sc.ID = 0
			sc.DocumentID = 0
			subs := make([]domain.Subsection, len(s.Subsections))
			for j, ss := range s.Subsections {
				ssc := ss
				ssc.ID = 0
				ssc.SectionID = 0
				subs[j] = ssc
			}
			sc.Subsections = subs
			sections[i] = sc
		}
		clone.Sections = sections

		characteristics := make([]domain.Characteristic, len(tree.Characteristics))
		for i, ch := range tree.Characteristics {
			chc := ch
			chc.ID = 0
			chc.DocumentID = 0
			characteristics[i] = chc
		}
		clone.Characteristics = characteristics

		works := make([]domain.Work, len(tree.Works))
		for i, w := range tree.Works {
			wc := w
			wc.ID = 0
			wc.DocumentID = 0
			works[i] = wc
		}
		clone.Works = works

		return tx.Create(&clone).Error
	})
	if err != nil {
		return nil, err
	}

	return &clone, nil
}

// UpdateStatus locks the document, lets apply validate and mutate it, and
// persists the new status. Superseded versions are immutable.
func (r *RepositoryImpl) UpdateStatus(ctx context.Context, id uint64, apply func(doc *domain.Document) error) (*domain.Document, error) {
	var doc domain.Document

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, id).Error; err != nil {
			return err
		}
		if !doc.IsCurrent {
			return ErrNotCurrent
		}
		if err := apply(&doc); err != nil {
			return err
		}
		return tx.Model(&doc).Update("status", doc.Status).Error
	})
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *RepositoryImpl) CreateSection(ctx context.Context, docID uint64, section *domain.Section) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}
		section.DocumentID = docID
		if err := tx.Create(section).Error; err != nil {
			return err
		}
		return r.refreshAutoCharacteristics(tx, docID)
	})
}

func (r *RepositoryImpl) UpdateSection(ctx context.Context, sectionID uint64, update SectionUpdate) (*domain.Section, error) {
	var section domain.Section

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&section, sectionID).Error; err != nil {
			return err
		}
		if _, err := r.lockCurrentDocument(tx, section.DocumentID); err != nil {
			return err
		}

		fields := map[string]any{}
		if update.Name != nil {
			section.Name = *update.Name
			fields["name"] = *update.Name
		}
		if update.SortOrder != nil {
			section.SortOrder = *update.SortOrder
			fields["sort_order"] = *update.SortOrder
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&section).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}

	return &section, nil
}

// DeleteSection removes a section and all its subsections, then refreshes
// the document's auto characteristics — one transaction, no partial state.
func (r *RepositoryImpl) DeleteSection(ctx context.Context, sectionID uint64) (uint64, error) {
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var section domain.Section
		if err := tx.First(&section, sectionID).Error; err != nil {
			return err
		}
		docID = section.DocumentID
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}

		if err := tx.Where("section_id = ?", sectionID).
			Delete(&domain.Subsection{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&section).Error; err != nil {
			return err
		}
		return r.refreshAutoCharacteristics(tx, docID)
	})

	return docID, err
}

func (r *RepositoryImpl) CreateSubsection(ctx context.Context, sectionID uint64, subsection *domain.Subsection) (uint64, error) {
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var section domain.Section
		if err := tx.First(&section, sectionID).Error; err != nil {
			return err
		}
		docID = section.DocumentID
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}

		subsection.SectionID = sectionID
		if err := tx.Create(subsection).Error; err != nil {
			return err
		}
		return r.refreshAutoCharacteristics(tx, docID)
	})

	return docID, err
}

func (r *RepositoryImpl) UpdateSubsection(ctx context.Context, subsectionID uint64, update SubsectionUpdate) (*domain.Subsection, uint64, error) {
	var subsection domain.Subsection
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&subsection, subsectionID).Error; err != nil {
			return err
		}
		var section domain.Section
		if err := tx.First(&section, subsection.SectionID).Error; err != nil {
			return err
		}
		docID = section.DocumentID
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}

		fields := map[string]any{}
		if update.Name != nil {
			subsection.Name = *update.Name
			fields["name"] = *update.Name
		}
		if update.SortOrder != nil {
			subsection.SortOrder = *update.SortOrder
			fields["sort_order"] = *update.SortOrder
		}
		if update.MaterialsSale != nil {
			subsection.MaterialsSale = *update.MaterialsSale
			fields["materials_sale"] = *update.MaterialsSale
		}
		if update.WorksSale != nil {
			subsection.WorksSale = *update.WorksSale
			fields["works_sale"] = *update.WorksSale
		}
		if update.MaterialsPurchase != nil {
			subsection.MaterialsPurchase = *update.MaterialsPurchase
			fields["materials_purchase"] = *update.MaterialsPurchase
		}
		if update.WorksPurchase != nil {
			subsection.WorksPurchase = *update.WorksPurchase
			fields["works_purchase"] = *update.WorksPurchase
		}
		if len(fields) > 0 {
			if err := tx.Model(&subsection).Updates(fields).Error; err != nil {
				return err
			}
		}
		return r.refreshAutoCharacteristics(tx, docID)
	})
	if err != nil {
		return nil, 0, err
	}

	return &subsection, docID, nil
}

func (r *RepositoryImpl) DeleteSubsection(ctx context.Context, subsectionID uint64) (uint64, error) {
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subsection domain.Subsection
		if err := tx.First(&subsection, subsectionID).Error; err != nil {
			return err
		}
		var section domain.Section
		if err := tx.First(&section, subsection.SectionID).Error; err != nil {
			return err
		}
		docID = section.DocumentID
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}

		if err := tx.Delete(&subsection).Error; err != nil {
			return err
		}
		return r.refreshAutoCharacteristics(tx, docID)
	})

	return docID, err
}

// CreateCharacteristic persists a characteristic. Auto rows get their
// amounts computed from the rule here; whatever the caller supplied for
// them was already discarded by the service.
func (r *RepositoryImpl) CreateCharacteristic(ctx context.Context, docID uint64, characteristic *domain.Characteristic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}

		characteristic.DocumentID = docID
		if characteristic.SourceType == domain.SourceAuto {
			totals, err := r.documentTotals(tx, docID)
			if err != nil {
				return err
			}
			sale, purchase := totals.Amounts(*characteristic.Rule)
			characteristic.SaleAmount = sale.Round(2)
			characteristic.PurchaseAmount = purchase.Round(2)
		}

		return tx.Create(characteristic).Error
	})
}

// UpdateCharacteristic applies field changes. Changing the amounts of an
// auto row severs its rule and converts it to manual — permanently.
func (r *RepositoryImpl) UpdateCharacteristic(ctx context.Context, characteristicID uint64, update CharacteristicUpdate) (*domain.Characteristic, error) {
	var characteristic domain.Characteristic

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&characteristic, characteristicID).Error; err != nil {
			return err
		}
		if _, err := r.lockCurrentDocument(tx, characteristic.DocumentID); err != nil {
			return err
		}

		fields := applyCharacteristicUpdate(&characteristic, update)
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&characteristic).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}

	return &characteristic, nil
}

// applyCharacteristicUpdate mutates the characteristic in place and returns
// the column updates to persist. Touching the amounts of an auto row severs
// its rule and converts it to manual; refreshAutoCharacteristics only targets
// rows still marked auto, so the edited amounts stay authoritative.
func applyCharacteristicUpdate(ch *domain.Characteristic, update CharacteristicUpdate) map[string]any {
	fields := map[string]any{}
	if update.Name != nil {
		ch.Name = *update.Name
		fields["name"] = *update.Name
	}

	amountsTouched := update.PurchaseAmount != nil || update.SaleAmount != nil
	if amountsTouched {
		if update.PurchaseAmount != nil {
			ch.PurchaseAmount = update.PurchaseAmount.Round(2)
			fields["purchase_amount"] = ch.PurchaseAmount
		}
		if update.SaleAmount != nil {
			ch.SaleAmount = update.SaleAmount.Round(2)
			fields["sale_amount"] = ch.SaleAmount
		}
		if ch.SourceType == domain.SourceAuto {
			ch.SourceType = domain.SourceManual
			ch.Rule = nil
			fields["source_type"] = domain.SourceManual
			fields["rule"] = nil
		}
	}

	return fields
}

func (r *RepositoryImpl) DeleteCharacteristic(ctx context.Context, characteristicID uint64) (uint64, error) {
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var characteristic domain.Characteristic
		if err := tx.First(&characteristic, characteristicID).Error; err != nil {
			return err
		}
		docID = characteristic.DocumentID
		if _, err := r.lockCurrentDocument(tx, docID); err != nil {
			return err
		}

		if characteristic.SourceType == domain.SourceAuto {
			return ErrAutoCharacteristic
		}
		return tx.Delete(&characteristic).Error
	})

	return docID, err
}

// missingCurrentErr classifies an empty current-row lookup: a chain that has
// rows but no visible current one was just versioned by a concurrent call.
func missingCurrentErr(chainRows int64) error {
	if chainRows > 0 {
		return ErrVersionConflict
	}
	return gorm.ErrRecordNotFound
}

// lockCurrentDocument takes the row lock every mutation and CreateVersion
// contend on, making the chain the unit of isolation.
func (r *RepositoryImpl) lockCurrentDocument(tx *gorm.DB, docID uint64) (*domain.Document, error) {
	var doc domain.Document
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&doc, docID).Error; err != nil {
		return nil, err
	}
	if !doc.IsCurrent {
		return nil, ErrNotCurrent
	}
	return &doc, nil
}

func (r *RepositoryImpl) loadTree(tx *gorm.DB, docID uint64) (*domain.Document, error) {
	var doc domain.Document
	err := tx.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Sections.Subsections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Characteristics").
		Preload("Works").
		First(&doc, docID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *RepositoryImpl) documentTotals(tx *gorm.DB, docID uint64) (rollup.DocumentTotals, error) {
	var sections []domain.Section
	err := tx.Preload("Subsections").
		Where("document_id = ?", docID).
		Find(&sections).Error
	if err != nil {
		return rollup.DocumentTotals{}, err
	}
	return rollup.ForDocument(&domain.Document{Sections: sections}), nil
}

// refreshAutoCharacteristics recomputes every still-auto characteristic of
// the document from its rule. Runs inside the mutating transaction so the
// triggering change and the refresh commit together.
func (r *RepositoryImpl) refreshAutoCharacteristics(tx *gorm.DB, docID uint64) error {
	totals, err := r.documentTotals(tx, docID)
	if err != nil {
		return err
	}

	var autos []domain.Characteristic
	if err := tx.Where("document_id = ? AND source_type = ?", docID, domain.SourceAuto).
		Find(&autos).Error; err != nil {
		return err
	}

	for i := range autos {
		rule := ""
		if autos[i].Rule != nil {
			rule = *autos[i].Rule
		}
		sale, purchase := totals.Amounts(rule)
		err := tx.Model(&autos[i]).Updates(map[string]any{
			"sale_amount":     sale.Round(2),
			"purchase_amount": purchase.Round(2),
		}).Error
		if err != nil {
			return err
		}
	}

	return nil
}
