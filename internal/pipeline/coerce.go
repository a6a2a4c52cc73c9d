package pipeline

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/model"
)

// NormalizeTerms walks the merged term set and normalizes loosely-shaped
// values into the canonical schema: strings trimmed, empty entries
// dropped from lists, money rounded to cents, financing type lowered.
// Field access is typed and resolved at compile time; every value that
// actually changed is logged and reported.
func NormalizeTerms(terms *model.ContractTerms) []string {
	var changes []string
	note := func(field string) {
		changes = append(changes, field)
		zap.L().Debug("coerce: value normalized", zap.String("field", field))
	}

	normList(&terms.BuyerNames, "buyerNames", note)
	normList(&terms.SellerNames, "sellerNames", note)
	normStr(&terms.PropertyAddress, "propertyAddress", note)
	normMoney(&terms.PurchasePrice, "purchasePrice", note)
	normStr(&terms.ClosingDate, "closingDate", note)

	if d := terms.EarnestMoneyDeposit; d != nil {
		normMoney(&d.Amount, "earnestMoneyDeposit.amount", note)
		normStr(&d.Holder, "earnestMoneyDeposit.holder", note)
		normStr(&d.CheckOrEFT, "earnestMoneyDeposit.method", note)
	}

	if c := terms.Closing; c != nil {
		normStr(&c.Date, "closing.date", note)
		normStr(&c.PossessionDate, "closing.possessionDate", note)
		normStr(&c.PossessionTime, "closing.possessionTime", note)
		normStr(&c.EscrowHolder, "closing.escrowHolder", note)
	}

	if f := terms.Financing; f != nil {
		if f.Type != nil {
			lowered := strings.ToLower(strings.TrimSpace(*f.Type))
			if lowered != *f.Type {
				f.Type = &lowered
				note("financing.type")
			}
		}
		normMoney(&f.LoanAmount, "financing.loanAmount", note)
		normMoney(&f.DownPayment, "financing.downPayment", note)
		normStr(&f.LenderName, "financing.lenderName", note)
	}

	if cc := terms.ClosingCosts; cc != nil {
		normStr(&cc.EscrowFee, "closingCosts.escrowFee", note)
		normStr(&cc.TitlePolicy, "closingCosts.titlePolicy", note)
		normStr(&cc.TransferTax, "closingCosts.transferTax", note)
		normStr(&cc.HomeWarranty, "closingCosts.homeWarranty", note)
		normMoney(&cc.HomeWarrantyAmount, "closingCosts.homeWarrantyAmount", note)
		normStr(&cc.HOATransferFee, "closingCosts.hoaTransferFee", note)
	}

	if b := terms.Brokers; b != nil {
		normStr(&b.ListingBrokerage, "brokers.listingBrokerage", note)
		normStr(&b.ListingAgent, "brokers.listingAgent", note)
		normStr(&b.ListingAgentPhone, "brokers.listingAgentPhone", note)
		normStr(&b.ListingAgentEmail, "brokers.listingAgentEmail", note)
		normStr(&b.BuyerBrokerage, "brokers.buyerBrokerage", note)
		normStr(&b.BuyerAgent, "brokers.buyerAgent", note)
		normStr(&b.BuyerAgentPhone, "brokers.buyerAgentPhone", note)
		normStr(&b.BuyerAgentEmail, "brokers.buyerAgentEmail", note)
	}

	normList(&terms.PersonalPropertyIncluded, "personalPropertyIncluded", note)
	normList(&terms.AdditionalTerms, "additionalTerms", note)
	normList(&terms.BuyerSignatureDates, "buyerSignatureDates", note)
	normList(&terms.SellerSignatureDates, "sellerSignatureDates", note)

	return changes
}

func normStr(dst **string, field string, note func(string)) {
	if *dst == nil {
		return
	}
	trimmed := strings.TrimSpace(**dst)
	if trimmed == "" {
		*dst = nil
		note(field)
		return
	}
	if trimmed != **dst {
		*dst = &trimmed
		note(field)
	}
}

func normList(dst *model.StringList, field string, note func(string)) {
	if len(*dst) == 0 {
		return
	}
	out := make(model.StringList, 0, len(*dst))
	changed := false
	for _, item := range *dst {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			changed = true
			continue
		}
		if trimmed != item {
			changed = true
		}
		out = append(out, trimmed)
	}
	if changed {
		if len(out) == 0 {
			*dst = nil
		} else {
			*dst = out
		}
		note(field)
	}
}

func normMoney(dst **model.Number, field string, note func(string)) {
	if *dst == nil {
		return
	}
	rounded := model.Number(math.Round((*dst).Float()*100) / 100)
	if rounded != **dst {
		*dst = &rounded
		note(field)
	}
}
