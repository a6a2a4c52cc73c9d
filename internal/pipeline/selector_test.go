package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/contract-extract/internal/model"
)

func cls(role model.PageRole, cat model.ContentCategory, filled bool) *model.PageClassification {
	return &model.PageClassification{
		FormCode:        "RPA",
		FormPage:        1,
		Role:            role,
		ContentCategory: cat,
		HasFilledFields: filled,
		Confidence:      90,
	}
}

func TestSelect_FilledMainContractTerms(t *testing.T) {
	out := SelectCriticalPages([]*model.PageClassification{
		cls(model.RoleMainContract, model.CategoryTransactionTerms, true),
		cls(model.RoleMainContract, model.CategoryTransactionTerms, false),
	})
	assert.Len(t, out, 1)
	assert.Equal(t, 1, out[0].PageNumber)
}

func TestSelect_MainContractSignaturesAlwaysSelected(t *testing.T) {
	// Acceptance dates matter even when the page reads as unfilled.
	out := SelectCriticalPages([]*model.PageClassification{
		cls(model.RoleMainContract, model.CategorySignatures, false),
		cls(model.RoleMainContract, model.CategoryBrokerInfo, false),
	})
	assert.Len(t, out, 2)
}

func TestSelect_DisclosureStyledAddendumExcluded(t *testing.T) {
	out := SelectCriticalPages([]*model.PageClassification{
		cls(model.RoleAddendum, model.CategoryDisclosures, true),
		cls(model.RoleAddendum, model.CategoryTransactionTerms, true),
		cls(model.RoleAddendum, model.CategoryTransactionTerms, false),
	})
	assert.Len(t, out, 1)
	assert.Equal(t, 2, out[0].PageNumber)
}

func TestSelect_CounterOfferNeedsOnlyFilledFields(t *testing.T) {
	out := SelectCriticalPages([]*model.PageClassification{
		cls(model.RoleCounterOffer, model.CategoryOther, true),
		cls(model.RoleContingencyRelease, model.CategorySignatures, true),
		cls(model.RoleCounterOffer, model.CategoryTransactionTerms, false),
	})
	assert.Len(t, out, 2)
}

func TestSelect_PureDisclosuresDiscarded(t *testing.T) {
	out := SelectCriticalPages([]*model.PageClassification{
		cls(model.RoleDisclosure, model.CategoryDisclosures, true),
		cls(model.RoleTitlePage, model.CategoryOther, false),
		cls(model.RoleOther, model.CategoryBoilerplate, true),
		nil, // unclassified
	})
	assert.Empty(t, out)
}

func TestSelect_LabelSynthesis(t *testing.T) {
	c := cls(model.RoleMainContract, model.CategoryTransactionTerms, true)
	c.TotalPagesInForm = 10

	out := SelectCriticalPages([]*model.PageClassification{c})
	assert.Len(t, out, 1)
	assert.Equal(t, "RPA p.1/10 – TRANSACTION_TERMS (FILLED)", out[0].Label)
}

func TestSelect_LabelWithoutFormCode(t *testing.T) {
	c := cls(model.RoleCounterOffer, model.CategoryTransactionTerms, true)
	c.FormCode = ""
	c.FormPage = 0

	out := SelectCriticalPages([]*model.PageClassification{c})
	assert.Equal(t, "UNKNOWN FORM – TRANSACTION_TERMS (FILLED)", out[0].Label)
}

func TestFallbackLabel(t *testing.T) {
	assert.Equal(t, "PAGE 7 – KEY CONTRACT PAGE", FallbackLabel(7))
}
