package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document kinds. Estimates, mounting estimates and projects share one
// table and one versioning model; Kind tells them apart.
const (
	KindEstimate         = "estimate"
	KindMountingEstimate = "mounting_estimate"
	KindProject          = "project"
)

// Characteristic source types
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// Derivation rules for auto characteristics. The rule decides which pair of
// document totals feeds the characteristic's (sale, purchase) amounts.
const (
	RuleTotals    = "totals"
	RuleMaterials = "materials"
	RuleWorks     = "works"
)

// Document is one version of an estimate, mounting estimate or project.
// All versions of the same logical document share ChainID; exactly one row
// per chain has IsCurrent = true (enforced by a partial unique index).
// Superseded versions are read-only.
type Document struct {
	ID            uint64 `gorm:"primaryKey"`
	ChainID       uint64 `gorm:"not null;uniqueIndex:idx_chain_version"`
	Kind          string `gorm:"type:varchar(32);not null;index"`
	Number        string `gorm:"type:varchar(64)"`
	Name          string `gorm:"type:varchar(255);not null"`
	Status        string `gorm:"type:varchar(32);not null"`
	VersionNumber uint   `gorm:"not null;uniqueIndex:idx_chain_version"`
	IsCurrent     bool   `gorm:"not null;default:false"`

	WithVAT bool            `gorm:"not null;default:false"`
	VATRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`

	// Opaque references into external registries. Never resolved here.
	ObjectID      *uint64
	ObjectName    string `gorm:"type:varchar(255)"`
	LegalEntityID *uint64
	PriceListID   *uint64

	// Mounting-estimate only.
	SourceEstimateID     *uint64
	AgreedCounterpartyID *uint64
	AgreedAt             *time.Time
	TotalAmount          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	ManHours             decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Sections        []Section        `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	Characteristics []Characteristic `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
	Works           []Work           `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// Section groups subsections inside one document version.
type Section struct {
	ID         uint64 `gorm:"primaryKey"`
	DocumentID uint64 `gorm:"index;not null"`
	Name       string `gorm:"type:varchar(255);not null"`
	SortOrder  int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Subsections []Subsection `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}

// Subsection carries the four raw money amounts everything rolls up from.
type Subsection struct {
	ID        uint64 `gorm:"primaryKey"`
	SectionID uint64 `gorm:"index;not null"`
	Name      string `gorm:"type:varchar(255)"`
	SortOrder int    `gorm:"not null;default:0"`

	MaterialsSale     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	WorksSale         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	MaterialsPurchase decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	WorksPurchase     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Characteristic is a supplementary cost line on a document. While Rule is
// set (SourceType = auto) the stored amounts are derived and refreshed after
// every hierarchy mutation; once edited the rule is cleared and the stored
// amounts become authoritative.
type Characteristic struct {
	ID         uint64  `gorm:"primaryKey"`
	DocumentID uint64  `gorm:"index;not null"`
	Name       string  `gorm:"type:varchar(255);not null"`
	SourceType string  `gorm:"type:varchar(16);not null"`
	Rule       *string `gorm:"type:varchar(32)"`

	PurchaseAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	SaleAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Work is a flat line on a mounting estimate. TotalPrice is always
// recomputed server-side from Quantity × UnitPrice.
type Work struct {
	ID         uint64 `gorm:"primaryKey"`
	DocumentID uint64 `gorm:"index;not null"`
	Name       string `gorm:"type:varchar(255);not null"`

	Quantity   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectNote belongs to a project version and is owned by its author.
type ProjectNote struct {
	ID         uint64 `gorm:"primaryKey"`
	DocumentID uint64 `gorm:"index;not null"`
	AuthorID   uint64 `gorm:"not null"`
	Body       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidRule reports whether rule names a known derivation.
func ValidRule(rule string) bool {
	switch rule {
	case RuleTotals, RuleMaterials, RuleWorks:
		return true
	}
	return false
}
