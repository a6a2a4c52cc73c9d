package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sells-group/contract-extract/internal/model"
)

const canonicalDateLayout = "2006-01-02"

// knownDateLayouts are tried in order before falling back to free-form
// parsing. Contract forms mix M/D/YY, M/D/YYYY, and ISO dates freely.
var knownDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"1-2-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeDate converts a heterogeneous date string to canonical
// YYYY-MM-DD. Returns false if the string cannot be read as a date.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, layout := range knownDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDateLayout), true
		}
	}

	// Free-form fallback for anything handwritten oddly.
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.Format(canonicalDateLayout), true
	}

	return "", false
}

// addDays offsets a canonical date by n calendar days.
func addDays(date string, n int) (string, bool) {
	t, err := time.Parse(canonicalDateLayout, date)
	if err != nil {
		return "", false
	}
	return t.AddDate(0, 0, n).Format(canonicalDateLayout), true
}

// ResolveTemporal derives the effective (acceptance) date and resolves
// the closing date and contingency deadlines on the merged term set.
// Runs after merge; every computation appends to the audit log.
func ResolveTemporal(terms *model.ContractTerms, audit *model.AuditLog) {
	resolveEffectiveDate(terms, audit)
	resolveClosingDate(terms, audit)
	resolveContingencyDeadlines(terms, audit)
}

// resolveEffectiveDate computes the acceptance date as the latest of
// all buyer and seller signature dates. Normalized YYYY-MM-DD strings
// compare lexicographically in chronological order, so ties and
// ordering reduce to string comparison.
func resolveEffectiveDate(terms *model.ContractTerms, audit *model.AuditLog) {
	var latest string
	var raw string

	consider := func(side string, dates model.StringList) {
		for _, d := range dates {
			norm, ok := NormalizeDate(d)
			if !ok {
				audit.Addf("effective date: unreadable %s signature date %q skipped", side, d)
				continue
			}
			if norm > latest {
				latest = norm
				raw = d
			}
		}
	}
	consider("buyer", terms.BuyerSignatureDates)
	consider("seller", terms.SellerSignatureDates)

	if latest == "" {
		audit.Addf("effective date: no signature dates found")
		return
	}

	terms.EffectiveDate = &latest
	audit.Addf("effective date: %s (latest signature date, from %q)", latest, raw)
}

// resolveClosingDate resolves close of escrow with explicit priority:
// an override-supplied calendar date wins outright; else a day offset
// from the effective date; else the legacy flat closing field read as a
// literal date, then as a day count; else null.
func resolveClosingDate(terms *model.ContractTerms, audit *model.AuditLog) {
	if c := terms.Closing; c != nil {
		if c.Date != nil {
			if norm, ok := NormalizeDate(*c.Date); ok {
				terms.CloseOfEscrowDate = &norm
				audit.Addf("close of escrow: %s (explicit date %q)", norm, *c.Date)
				return
			}
			audit.Addf("close of escrow: explicit date %q unreadable", *c.Date)
		}
		if c.DaysAfterAcceptance != nil && terms.EffectiveDate != nil {
			if resolved, ok := addDays(*terms.EffectiveDate, c.DaysAfterAcceptance.Int()); ok {
				terms.CloseOfEscrowDate = &resolved
				audit.Addf("close of escrow: %s (%d days after acceptance %s)",
					resolved, c.DaysAfterAcceptance.Int(), *terms.EffectiveDate)
				return
			}
		}
	}

	if terms.ClosingDate != nil {
		legacy := strings.TrimSpace(*terms.ClosingDate)
		if norm, ok := NormalizeDate(legacy); ok {
			terms.CloseOfEscrowDate = &norm
			audit.Addf("close of escrow: %s (legacy closing field %q as date)", norm, legacy)
			return
		}
		if days, err := strconv.Atoi(legacy); err == nil && terms.EffectiveDate != nil {
			if resolved, ok := addDays(*terms.EffectiveDate, days); ok {
				terms.CloseOfEscrowDate = &resolved
				audit.Addf("close of escrow: %s (legacy closing field %q as day count)", resolved, legacy)
				return
			}
		}
		audit.Addf("close of escrow: legacy closing field %q unresolvable", legacy)
	}

	audit.Addf("close of escrow: unresolved")
}

// resolveContingencyDeadlines computes a calculated deadline for each
// contingency from its explicit date or its day offset.
func resolveContingencyDeadlines(terms *model.ContractTerms, audit *model.AuditLog) {
	if terms.Contingencies == nil {
		return
	}
	resolveContingency("inspection", terms.Contingencies.Inspection, terms.EffectiveDate, audit)
	resolveContingency("appraisal", terms.Contingencies.Appraisal, terms.EffectiveDate, audit)
	resolveContingency("loan", terms.Contingencies.Loan, terms.EffectiveDate, audit)
}

func resolveContingency(name string, c *model.Contingency, effective *string, audit *model.AuditLog) {
	if c == nil {
		return
	}
	if c.Waived != nil && bool(*c.Waived) {
		audit.Addf("%s contingency: waived", name)
		return
	}
	if c.Date != nil {
		if norm, ok := NormalizeDate(*c.Date); ok {
			c.CalculatedDeadline = &norm
			audit.Addf("%s contingency deadline: %s (explicit date)", name, norm)
			return
		}
		audit.Addf("%s contingency: explicit date %q unreadable", name, *c.Date)
	}
	if c.Days != nil && effective != nil {
		if resolved, ok := addDays(*effective, c.Days.Int()); ok {
			c.CalculatedDeadline = &resolved
			audit.Addf("%s contingency deadline: %s (%d days after acceptance)", name, resolved, c.Days.Int())
		}
	}
}
