package pipeline

import (
	"fmt"

	"github.com/sells-group/contract-extract/internal/model"
)

// ValidateTerms checks the merged, normalized term set for the fields a
// downstream consumer cannot live without. A missing or zero purchase
// price is an error and triggers the second extraction turn; the softer
// identity fields only raise review warnings.
func ValidateTerms(terms *model.ContractTerms) model.ValidationResult {
	var res model.ValidationResult

	if terms.PurchasePrice == nil {
		res.Errors = append(res.Errors, "purchase price missing")
	} else if terms.PurchasePrice.Float() <= 0 {
		// A zero price is a certain extraction failure, not a free house.
		res.Errors = append(res.Errors, fmt.Sprintf("purchase price invalid: %v", terms.PurchasePrice.Float()))
	}

	if len(terms.BuyerNames) == 0 {
		res.Warnings = append(res.Warnings, "buyer names missing")
	}
	if len(terms.SellerNames) == 0 {
		res.Warnings = append(res.Warnings, "seller names missing")
	}
	if terms.PropertyAddress == nil || len(*terms.PropertyAddress) < 5 {
		res.Warnings = append(res.Warnings, "property address missing or implausibly short")
	}
	if terms.EffectiveDate == nil {
		res.Warnings = append(res.Warnings, "effective date could not be determined from signature dates")
	}
	if terms.CloseOfEscrowDate == nil {
		res.Warnings = append(res.Warnings, "close of escrow date unresolved")
	}

	res.NeedsSecondTurn = len(res.Errors) > 0
	res.NeedsReview = len(res.Errors) > 0 || len(res.Warnings) > 0
	return res
}

// problemFields maps validation error text to the schema fields the
// second turn should call out. Matching is by substring so wording can
// carry detail without breaking the mapping.
var problemFields = []struct {
	substr string
	field  string
}{
	{"purchase price", "purchasePrice"},
	{"buyer names", "buyerNames"},
	{"seller names", "sellerNames"},
	{"property address", "propertyAddress"},
	{"effective date", "effectiveDate"},
}
