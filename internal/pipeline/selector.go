package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/model"
)

// addendumCategories is the content-category whitelist for addendum
// pages. Disclosure-styled or signature-only documents administratively
// labeled as addenda carry no negotiable terms and are excluded.
var addendumCategories = map[model.ContentCategory]bool{
	model.CategoryTransactionTerms: true,
	model.CategoryBoilerplate:      true,
}

// mainContractAlwaysSelect marks main-contract content categories that
// are selected regardless of filled fields: final acceptance dates and
// agent contacts matter even on an otherwise-unfilled page.
var mainContractAlwaysSelect = map[model.ContentCategory]bool{
	model.CategorySignatures: true,
	model.CategoryBrokerInfo: true,
}

// SelectCriticalPages is a pure rule engine over the classification
// array: it decides which pages carry extractable content and labels
// each with its form provenance. This is the main defense against
// extracting from disclosure-heavy packets — most pages are discarded.
func SelectCriticalPages(classifications []*model.PageClassification) []model.CriticalPage {
	var selected []model.CriticalPage

	for i, cls := range classifications {
		pageNum := i + 1
		if cls == nil {
			continue
		}
		if !isCritical(cls) {
			continue
		}
		selected = append(selected, model.CriticalPage{
			PageNumber: pageNum,
			Label:      pageLabel(cls),
		})
	}

	zap.L().Info("select: critical pages chosen",
		zap.Int("total_pages", len(classifications)),
		zap.Int("critical_pages", len(selected)),
	)

	return selected
}

func isCritical(cls *model.PageClassification) bool {
	switch {
	case model.IsOverrideRole(cls.Role):
		if !cls.HasFilledFields {
			return false
		}
		// Counters and releases always carry negotiated changes when
		// filled; addenda must also pass the category whitelist.
		if cls.Role == model.RoleCounterOffer || cls.Role == model.RoleContingencyRelease {
			return true
		}
		return addendumCategories[cls.ContentCategory]

	case cls.Role == model.RoleMainContract:
		if mainContractAlwaysSelect[cls.ContentCategory] {
			return true
		}
		switch cls.ContentCategory {
		case model.CategoryDisclosures, model.CategoryBoilerplate, model.CategoryOther:
			return false
		}
		return cls.HasFilledFields

	default:
		return false
	}
}

// pageLabel synthesizes the human-readable provenance label: form code,
// form-internal page, content category, with a (FILLED) suffix.
func pageLabel(cls *model.PageClassification) string {
	var b strings.Builder

	form := cls.FormCode
	if form == "" {
		form = "UNKNOWN FORM"
	}
	b.WriteString(form)

	if cls.FormPage > 0 {
		if cls.TotalPagesInForm > 0 {
			fmt.Fprintf(&b, " p.%d/%d", cls.FormPage, cls.TotalPagesInForm)
		} else {
			fmt.Fprintf(&b, " p.%d", cls.FormPage)
		}
	}

	fmt.Fprintf(&b, " – %s", strings.ToUpper(string(cls.ContentCategory)))

	if cls.HasFilledFields {
		b.WriteString(" (FILLED)")
	}

	return b.String()
}

// FallbackLabel is the generic label for a force-included page with no
// classification.
func FallbackLabel(pageNumber int) string {
	return fmt.Sprintf("PAGE %d – KEY CONTRACT PAGE", pageNumber)
}
