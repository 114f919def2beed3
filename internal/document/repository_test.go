package document

import (
	"errors"
	"testing"

	"estimate-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func autoCharacteristic(rule string) domain.Characteristic {
	r := rule
	return domain.Characteristic{
		ID:             1,
		DocumentID:     1,
		Name:           "Итого",
		SourceType:     domain.SourceAuto,
		Rule:           &r,
		SaleAmount:     decimal.NewFromInt(1500),
		PurchaseAmount: decimal.NewFromInt(800),
	}
}

func TestApplyCharacteristicUpdate_AmountEditConvertsAutoToManual(t *testing.T) {
	ch := autoCharacteristic(domain.RuleTotals)
	sale := decimal.NewFromInt(2000)

	fields := applyCharacteristicUpdate(&ch, CharacteristicUpdate{SaleAmount: &sale})

	assert.Equal(t, domain.SourceManual, ch.SourceType)
	assert.Nil(t, ch.Rule)
	assert.True(t, ch.SaleAmount.Equal(sale))
	// the flipped row no longer matches the auto-refresh predicate, so the
	// edited amounts are what every later recomputation leaves in place
	assert.Equal(t, domain.SourceManual, fields["source_type"])
	rule, ok := fields["rule"]
	assert.True(t, ok)
	assert.Nil(t, rule)
}

func TestApplyCharacteristicUpdate_PurchaseEditAlsoConverts(t *testing.T) {
	ch := autoCharacteristic(domain.RuleMaterials)
	purchase := decimal.NewFromInt(900)

	applyCharacteristicUpdate(&ch, CharacteristicUpdate{PurchaseAmount: &purchase})

	assert.Equal(t, domain.SourceManual, ch.SourceType)
	assert.Nil(t, ch.Rule)
	assert.True(t, ch.PurchaseAmount.Equal(purchase))
}

func TestApplyCharacteristicUpdate_RenameKeepsAuto(t *testing.T) {
	ch := autoCharacteristic(domain.RuleTotals)
	name := "Итого по смете"

	fields := applyCharacteristicUpdate(&ch, CharacteristicUpdate{Name: &name})

	assert.Equal(t, domain.SourceAuto, ch.SourceType)
	assert.NotNil(t, ch.Rule)
	assert.Equal(t, domain.RuleTotals, *ch.Rule)
	assert.Equal(t, map[string]any{"name": name}, fields)
}

func TestApplyCharacteristicUpdate_ManualStaysManual(t *testing.T) {
	ch := domain.Characteristic{
		SourceType: domain.SourceManual,
		SaleAmount: decimal.NewFromInt(100),
	}
	sale := decimal.NewFromInt(250)

	fields := applyCharacteristicUpdate(&ch, CharacteristicUpdate{SaleAmount: &sale})

	assert.Equal(t, domain.SourceManual, ch.SourceType)
	assert.Nil(t, ch.Rule)
	assert.NotContains(t, fields, "source_type")
	assert.NotContains(t, fields, "rule")
}

func TestApplyCharacteristicUpdate_ConversionIsPermanent(t *testing.T) {
	ch := autoCharacteristic(domain.RuleWorks)

	first := decimal.NewFromInt(300)
	applyCharacteristicUpdate(&ch, CharacteristicUpdate{SaleAmount: &first})
	second := decimal.NewFromInt(400)
	fields := applyCharacteristicUpdate(&ch, CharacteristicUpdate{SaleAmount: &second})

	assert.Equal(t, domain.SourceManual, ch.SourceType)
	assert.Nil(t, ch.Rule)
	assert.True(t, ch.SaleAmount.Equal(second))
	assert.NotContains(t, fields, "source_type")
}

func TestApplyCharacteristicUpdate_RoundsAmounts(t *testing.T) {
	ch := domain.Characteristic{SourceType: domain.SourceManual}
	sale := decimal.RequireFromString("10.005")

	applyCharacteristicUpdate(&ch, CharacteristicUpdate{SaleAmount: &sale})

	assert.Equal(t, "10.01", ch.SaleAmount.StringFixed(2))
}

func TestApplyCharacteristicUpdate_Empty(t *testing.T) {
	ch := autoCharacteristic(domain.RuleTotals)

	fields := applyCharacteristicUpdate(&ch, CharacteristicUpdate{})

	assert.Empty(t, fields)
	assert.Equal(t, domain.SourceAuto, ch.SourceType)
}

func TestMissingCurrentErr_RacedChain(t *testing.T) {
	err := missingCurrentErr(2)

	assert.True(t, errors.Is(err, ErrVersionConflict))
}

func TestMissingCurrentErr_UnknownChain(t *testing.T) {
	err := missingCurrentErr(0)

	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
