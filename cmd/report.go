package main

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/contract-extract/internal/model"
)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// formatReport renders a short human-readable summary of an extraction
// result for terminal display.
func formatReport(result *model.ExtractionResult) string {
	t := result.FinalTerms
	var b strings.Builder

	fmt.Fprintf(&b, "\nContract summary (run %s)\n", result.RunID)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 48))

	writeLine(&b, "Buyers", strings.Join(t.BuyerNames, "; "))
	writeLine(&b, "Sellers", strings.Join(t.SellerNames, "; "))
	writeLine(&b, "Property", deref(t.PropertyAddress))
	if t.PurchasePrice != nil {
		writeLine(&b, "Purchase price", moneyPrinter.Sprintf("$%.2f", t.PurchasePrice.Float()))
	} else {
		writeLine(&b, "Purchase price", "")
	}
	if d := t.EarnestMoneyDeposit; d != nil && d.Amount != nil {
		writeLine(&b, "Earnest money", moneyPrinter.Sprintf("$%.2f", d.Amount.Float()))
	}
	writeLine(&b, "Effective date", deref(t.EffectiveDate))
	writeLine(&b, "Close of escrow", deref(t.CloseOfEscrowDate))

	if f := t.Financing; f != nil && f.Type != nil {
		line := *f.Type
		if f.LoanAmount != nil {
			line += moneyPrinter.Sprintf(", loan $%.2f", f.LoanAmount.Float())
		}
		writeLine(&b, "Financing", line)
	}

	if c := t.Contingencies; c != nil {
		writeContingency(&b, "Inspection", c.Inspection)
		writeContingency(&b, "Appraisal", c.Appraisal)
		writeContingency(&b, "Loan", c.Loan)
	}

	if br := t.Brokers; br != nil {
		writeLine(&b, "Listing agent", join2(deref(br.ListingAgent), deref(br.ListingBrokerage)))
		writeLine(&b, "Buyer agent", join2(deref(br.BuyerAgent), deref(br.BuyerBrokerage)))
	}

	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 48))
	fmt.Fprintf(&b, "Pages: %d classified, %d critical, %d extracted\n",
		len(result.Details.Classifications), len(result.Details.CriticalPages), len(result.Details.PageExtractions))
	fmt.Fprintf(&b, "Tokens: %d in / %d out, est. cost %s\n",
		result.Usage.InputTokens, result.Usage.OutputTokens, moneyPrinter.Sprintf("$%.4f", result.CostUSD))
	if result.NeedsReview {
		fmt.Fprintf(&b, "NEEDS REVIEW: %d error(s), %d warning(s)\n",
			len(result.Validation.Errors), len(result.Validation.Warnings))
	}
	return b.String()
}

func writeContingency(b *strings.Builder, name string, c *model.Contingency) {
	if c == nil {
		return
	}
	switch {
	case c.Waived != nil && bool(*c.Waived):
		writeLine(b, name+" contingency", "waived")
	case c.CalculatedDeadline != nil:
		writeLine(b, name+" contingency", "due "+*c.CalculatedDeadline)
	case c.Days != nil:
		writeLine(b, name+" contingency", fmt.Sprintf("%d days", c.Days.Int()))
	}
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		value = "(not found)"
	}
	fmt.Fprintf(b, "%-22s %s\n", label+":", value)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func join2(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + ", " + b
	}
}
