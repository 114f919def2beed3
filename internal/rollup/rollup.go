package rollup

import (
	"estimate-service/internal/domain"

	"github.com/shopspring/decimal"
)

// SubsectionTotals are the per-subsection sale/purchase sums.
type SubsectionTotals struct {
	TotalSale     decimal.Decimal `json:"total_sale"`
	TotalPurchase decimal.Decimal `json:"total_purchase"`
}

// SectionTotals are the sums over a section's subsections.
type SectionTotals struct {
	TotalSale     decimal.Decimal `json:"total_sale"`
	TotalPurchase decimal.Decimal `json:"total_purchase"`
}

// DocumentTotals is the full rollup over all subsections of all sections.
type DocumentTotals struct {
	TotalMaterialsSale     decimal.Decimal `json:"total_materials_sale"`
	TotalWorksSale         decimal.Decimal `json:"total_works_sale"`
	TotalMaterialsPurchase decimal.Decimal `json:"total_materials_purchase"`
	TotalWorksPurchase     decimal.Decimal `json:"total_works_purchase"`
	TotalSale              decimal.Decimal `json:"total_sale"`
	TotalPurchase          decimal.Decimal `json:"total_purchase"`
	ProfitAmount           decimal.Decimal `json:"profit_amount"`
	ProfitPercent          decimal.Decimal `json:"profit_percent"`
	VATAmount              decimal.Decimal `json:"vat_amount"`
	TotalWithVAT           decimal.Decimal `json:"total_with_vat"`
}

var hundred = decimal.NewFromInt(100)

// ForSubsection computes the two totals of one subsection.
func ForSubsection(ss domain.Subsection) SubsectionTotals {
	return SubsectionTotals{
		TotalSale:     ss.MaterialsSale.Add(ss.WorksSale),
		TotalPurchase: ss.MaterialsPurchase.Add(ss.WorksPurchase),
	}
}

// ForSection sums the subsection totals of one section.
func ForSection(s domain.Section) SectionTotals {
	var totals SectionTotals
	for _, ss := range s.Subsections {
		sub := ForSubsection(ss)
		totals.TotalSale = totals.TotalSale.Add(sub.TotalSale)
		totals.TotalPurchase = totals.TotalPurchase.Add(sub.TotalPurchase)
	}
	return totals
}

// ForDocument computes the document-wide rollup from its section tree.
// profit_percent is 0 when total_purchase is 0.
func ForDocument(doc *domain.Document) DocumentTotals {
	var t DocumentTotals
	for _, s := range doc.Sections {
		for _, ss := range s.Subsections {
			t.TotalMaterialsSale = t.TotalMaterialsSale.Add(ss.MaterialsSale)
			t.TotalWorksSale = t.TotalWorksSale.Add(ss.WorksSale)
			t.TotalMaterialsPurchase = t.TotalMaterialsPurchase.Add(ss.MaterialsPurchase)
			t.TotalWorksPurchase = t.TotalWorksPurchase.Add(ss.WorksPurchase)
		}
	}

	t.TotalSale = t.TotalMaterialsSale.Add(t.TotalWorksSale)
	t.TotalPurchase = t.TotalMaterialsPurchase.Add(t.TotalWorksPurchase)
	t.ProfitAmount = t.TotalSale.Sub(t.TotalPurchase)
	if t.TotalPurchase.IsPositive() {
		t.ProfitPercent = t.ProfitAmount.Div(t.TotalPurchase).Mul(hundred)
	}

	if doc.WithVAT {
		t.VATAmount = t.TotalSale.Mul(doc.VATRate).Div(hundred)
		t.TotalWithVAT = t.TotalSale.Add(t.VATAmount)
	}

	return t
}

// Amounts returns the (sale, purchase) pair a derivation rule selects from
// the rollup. Unknown rules yield zeros; callers validate rules on write.
func (t DocumentTotals) Amounts(rule string) (sale, purchase decimal.Decimal) {
	switch rule {
	case domain.RuleTotals:
		return t.TotalSale, t.TotalPurchase
	case domain.RuleMaterials:
		return t.TotalMaterialsSale, t.TotalMaterialsPurchase
	case domain.RuleWorks:
		return t.TotalWorksSale, t.TotalWorksPurchase
	}
	return decimal.Zero, decimal.Zero
}

// Rounded returns a copy with every amount rounded half-up to two decimal
// places. Applied only at the response boundary; intermediate arithmetic
// keeps full precision.
func (t DocumentTotals) Rounded() DocumentTotals {
	return DocumentTotals{
		TotalMaterialsSale:     t.TotalMaterialsSale.Round(2),
		TotalWorksSale:         t.TotalWorksSale.Round(2),
		TotalMaterialsPurchase: t.TotalMaterialsPurchase.Round(2),
		TotalWorksPurchase:     t.TotalWorksPurchase.Round(2),
		TotalSale:              t.TotalSale.Round(2),
		TotalPurchase:          t.TotalPurchase.Round(2),
		ProfitAmount:           t.ProfitAmount.Round(2),
		ProfitPercent:          t.ProfitPercent.Round(2),
		VATAmount:              t.VATAmount.Round(2),
		TotalWithVAT:           t.TotalWithVAT.Round(2),
	}
}

// WorkTotal computes a work line's total price.
func WorkTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}
