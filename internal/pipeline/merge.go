package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/model"
)

// fieldAllowedRoles is the per-field role allow-list: which page roles
// are permitted to set each top-level term field. A value from a
// disallowed role is dropped and logged, never merged — this is what
// keeps a disclosure-adjacent page from silently overwriting the deal
// price. A nil entry means any role may set the field.
var fieldAllowedRoles = map[string][]model.PageRole{
	"buyerNames":      {model.RoleMainContract, model.RoleCounterOffer},
	"sellerNames":     {model.RoleMainContract, model.RoleCounterOffer},
	"propertyAddress": {model.RoleMainContract, model.RoleCounterOffer},
	"purchasePrice":   {model.RoleMainContract, model.RoleCounterOffer},

	"earnestMoneyDeposit": {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},
	"closing":             {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},
	"closingDate":         {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},
	"financing":           {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},
	"closingCosts":        {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},

	"contingencies": {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum, model.RoleContingencyRelease},

	"brokers": {model.RoleBrokerInfo, model.RoleMainContract},

	"personalPropertyIncluded": {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},
	"additionalTerms":          {model.RoleMainContract, model.RoleCounterOffer, model.RoleAddendum, model.RoleLocalAddendum},

	// Signature dates matter wherever they appear; any role may add them.
	"buyerSignatureDates":  nil,
	"sellerSignatureDates": nil,
}

func roleAllowed(field string, role model.PageRole) bool {
	allowed, known := fieldAllowedRoles[field]
	if !known {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// merger accumulates the reconciled term set. provRole remembers which
// role set each field so override priority can be enforced later.
type merger struct {
	terms    model.ContractTerms
	prov     model.Provenance
	provRole map[string]model.PageRole
	log      []string
}

func (m *merger) logf(format string, args ...any) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
}

// MergeExtractions reconciles per-page extraction records into one term
// set. Records group by merge role and process in the fixed MergeOrder,
// pages ascending within a group, so the final price, dates, and terms
// reflect the last applicable amending document while broker and
// signature information is preserved from wherever it was most
// completely specified. Merging is deterministic: the same input always
// yields an identical term set and provenance map.
func MergeExtractions(records []model.PageExtraction) (model.ContractTerms, model.Provenance, []string) {
	m := &merger{
		prov:     model.Provenance{},
		provRole: make(map[string]model.PageRole),
	}

	groups := make(map[model.PageRole][]model.PageExtraction)
	for _, rec := range records {
		groups[model.MergeGroup(rec.PageRole)] = append(groups[model.MergeGroup(rec.PageRole)], rec)
	}

	for _, role := range model.MergeOrder {
		recs := groups[role]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].PageNumber < recs[j].PageNumber
		})
		for _, rec := range recs {
			m.mergeRecord(rec)
		}
		delete(groups, role)
	}

	for role, recs := range groups {
		zap.L().Warn("merge: records with unmergeable role skipped",
			zap.String("role", string(role)),
			zap.Int("records", len(recs)),
		)
	}

	return m.terms, m.prov, m.log
}

func (m *merger) mergeRecord(rec model.PageExtraction) {
	mergeScalarList(m, "buyerNames", &m.terms.BuyerNames, rec.BuyerNames, rec)
	mergeScalarList(m, "sellerNames", &m.terms.SellerNames, rec.SellerNames, rec)
	mergeScalarStr(m, "propertyAddress", &m.terms.PropertyAddress, rec.PropertyAddress, rec)
	mergeScalar(m, "purchasePrice", &m.terms.PurchasePrice, rec.PurchasePrice, rec)
	mergeScalar(m, "earnestMoneyDeposit", &m.terms.EarnestMoneyDeposit, rec.EarnestMoneyDeposit, rec)
	mergeScalarStr(m, "closingDate", &m.terms.ClosingDate, rec.ClosingDate, rec)

	m.mergeClosing(rec)
	m.mergeFinancing(rec)
	m.mergeContingencies(rec)
	m.mergeClosingCosts(rec)
	m.mergeBrokers(rec)

	mergeAccumulate(m, "personalPropertyIncluded", &m.terms.PersonalPropertyIncluded, rec.PersonalPropertyIncluded, rec)
	mergeAccumulate(m, "additionalTerms", &m.terms.AdditionalTerms, rec.AdditionalTerms, rec)
	mergeAccumulate(m, "buyerSignatureDates", &m.terms.BuyerSignatureDates, rec.BuyerSignatureDates, rec)
	mergeAccumulate(m, "sellerSignatureDates", &m.terms.SellerSignatureDates, rec.SellerSignatureDates, rec)
}

// canOverride reports whether a candidate from rec may replace the
// current value of field. A field set by a higher-priority role is only
// replaced by an equal or higher priority role; within the same role a
// later page overrides an earlier one (multi-page counters).
func (m *merger) canOverride(field string, rec model.PageExtraction) bool {
	prevRole, set := m.provRole[field]
	if !set {
		return true
	}
	return model.RolePriority(rec.PageRole) >= model.RolePriority(prevRole)
}

func (m *merger) record(field string, rec model.PageExtraction, overwrote bool) {
	m.prov.Set(field, rec.PageNumber)
	m.provRole[field] = rec.PageRole
	action := "set"
	if overwrote {
		action = "overrode"
	}
	m.logf("%s %s from page %d (%s)", action, field, rec.PageNumber, rec.PageRole)
}

func (m *merger) dropDisallowed(field string, rec model.PageExtraction) {
	m.logf("dropped %s from page %d: role %s not allowed", field, rec.PageNumber, rec.PageRole)
	zap.L().Warn("merge: field from disallowed role dropped",
		zap.String("field", field),
		zap.Int("page", rec.PageNumber),
		zap.String("role", string(rec.PageRole)),
	)
}

// mergeScalar applies simple-field semantics to a pointer field: a
// non-null candidate replaces the current value when the role allow-list
// and override priority permit; null never overwrites.
func mergeScalar[T any](m *merger, field string, dst **T, src *T, rec model.PageExtraction) {
	if src == nil {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}
	if *dst != nil && !m.canOverride(field, rec) {
		return
	}
	overwrote := *dst != nil
	*dst = src
	m.record(field, rec, overwrote)
}

// mergeScalarStr is mergeScalar for *string fields, additionally
// treating empty strings as null.
func mergeScalarStr(m *merger, field string, dst **string, src *string, rec model.PageExtraction) {
	if src == nil || strings.TrimSpace(*src) == "" {
		return
	}
	mergeScalar(m, field, dst, src, rec)
}

// mergeScalarList applies simple-field semantics to a list-valued field
// that is restated wholesale (party names): the candidate list replaces
// the current one rather than accumulating.
func mergeScalarList(m *merger, field string, dst *model.StringList, src model.StringList, rec model.PageExtraction) {
	if len(src) == 0 {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}
	if len(*dst) > 0 && !m.canOverride(field, rec) {
		return
	}
	overwrote := len(*dst) > 0
	*dst = src
	m.record(field, rec, overwrote)
}

// mergeAccumulate unions new items into a running array, de-duplicated
// case-insensitively, preserving order of first appearance.
func mergeAccumulate(m *merger, field string, dst *model.StringList, src model.StringList, rec model.PageExtraction) {
	if len(src) == 0 {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}

	seen := make(map[string]bool, len(*dst))
	for _, item := range *dst {
		seen[strings.ToLower(strings.TrimSpace(item))] = true
	}

	added := 0
	for _, item := range src {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		*dst = append(*dst, item)
		added++
	}
	if added > 0 {
		m.record(field, rec, false)
	}
}

// mergeClosing applies most-complete-object-wins to the closing terms.
func (m *merger) mergeClosing(rec model.PageExtraction) {
	const field = "closing"
	src := rec.Closing
	if src == nil {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}

	cur := m.terms.Closing
	if cur == nil || (src.FilledCount() > cur.FilledCount() && m.canOverride(field, rec)) {
		cp := *src
		m.terms.Closing = &cp
		m.record(field, rec, cur != nil)
		return
	}

	fillStr(m, field+".date", &cur.Date, src.Date, rec)
	fillNum(m, field+".daysAfterAcceptance", &cur.DaysAfterAcceptance, src.DaysAfterAcceptance, rec)
	fillStr(m, field+".possessionDate", &cur.PossessionDate, src.PossessionDate, rec)
	fillStr(m, field+".possessionTime", &cur.PossessionTime, src.PossessionTime, rec)
	fillStr(m, field+".escrowHolder", &cur.EscrowHolder, src.EscrowHolder, rec)
}

// mergeFinancing applies most-complete-object-wins to financing.
func (m *merger) mergeFinancing(rec model.PageExtraction) {
	const field = "financing"
	src := rec.Financing
	if src == nil {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}

	cur := m.terms.Financing
	if cur == nil || (src.FilledCount() > cur.FilledCount() && m.canOverride(field, rec)) {
		cp := *src
		m.terms.Financing = &cp
		m.record(field, rec, cur != nil)
		return
	}

	fillStr(m, field+".type", &cur.Type, src.Type, rec)
	fillNum(m, field+".loanAmount", &cur.LoanAmount, src.LoanAmount, rec)
	fillNum(m, field+".downPayment", &cur.DownPayment, src.DownPayment, rec)
	fillNum(m, field+".interestRateMax", &cur.InterestRateMax, src.InterestRateMax, rec)
	fillStr(m, field+".lenderName", &cur.LenderName, src.LenderName, rec)
	fillBool(m, field+".preapproved", &cur.Preapproved, src.Preapproved, rec)
}

// mergeClosingCosts applies most-complete-object-wins to the closing
// cost allocations.
func (m *merger) mergeClosingCosts(rec model.PageExtraction) {
	const field = "closingCosts"
	src := rec.ClosingCosts
	if src == nil {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}

	cur := m.terms.ClosingCosts
	if cur == nil || (src.FilledCount() > cur.FilledCount() && m.canOverride(field, rec)) {
		cp := *src
		m.terms.ClosingCosts = &cp
		m.record(field, rec, cur != nil)
		return
	}

	fillStr(m, field+".escrowFee", &cur.EscrowFee, src.EscrowFee, rec)
	fillStr(m, field+".titlePolicy", &cur.TitlePolicy, src.TitlePolicy, rec)
	fillStr(m, field+".transferTax", &cur.TransferTax, src.TransferTax, rec)
	fillStr(m, field+".homeWarranty", &cur.HomeWarranty, src.HomeWarranty, rec)
	fillNum(m, field+".homeWarrantyAmount", &cur.HomeWarrantyAmount, src.HomeWarrantyAmount, rec)
	fillStr(m, field+".hoaTransferFee", &cur.HOATransferFee, src.HOATransferFee, rec)
}

// mergeBrokers applies most-complete-object-wins to broker info.
// Amendments rarely restate agent contacts, so the most completely
// specified page wins regardless of processing position.
func (m *merger) mergeBrokers(rec model.PageExtraction) {
	const field = "brokers"
	src := rec.Brokers
	if src == nil {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}

	cur := m.terms.Brokers
	if cur == nil || (src.FilledCount() > cur.FilledCount() && m.canOverride(field, rec)) {
		cp := *src
		m.terms.Brokers = &cp
		m.record(field, rec, cur != nil)
		return
	}

	fillStr(m, field+".listingBrokerage", &cur.ListingBrokerage, src.ListingBrokerage, rec)
	fillStr(m, field+".listingAgent", &cur.ListingAgent, src.ListingAgent, rec)
	fillStr(m, field+".listingAgentLicense", &cur.ListingAgentLicense, src.ListingAgentLicense, rec)
	fillStr(m, field+".listingAgentPhone", &cur.ListingAgentPhone, src.ListingAgentPhone, rec)
	fillStr(m, field+".listingAgentEmail", &cur.ListingAgentEmail, src.ListingAgentEmail, rec)
	fillStr(m, field+".buyerBrokerage", &cur.BuyerBrokerage, src.BuyerBrokerage, rec)
	fillStr(m, field+".buyerAgent", &cur.BuyerAgent, src.BuyerAgent, rec)
	fillStr(m, field+".buyerAgentLicense", &cur.BuyerAgentLicense, src.BuyerAgentLicense, rec)
	fillStr(m, field+".buyerAgentPhone", &cur.BuyerAgentPhone, src.BuyerAgentPhone, rec)
	fillStr(m, field+".buyerAgentEmail", &cur.BuyerAgentEmail, src.BuyerAgentEmail, rec)
}

// mergeContingencies merges at the sub-field level: a sub-field already
// set by an earlier processed page is never overwritten, only
// previously-null sub-fields fill from later pages.
func (m *merger) mergeContingencies(rec model.PageExtraction) {
	const field = "contingencies"
	src := rec.Contingencies
	if src == nil {
		return
	}
	if !roleAllowed(field, rec.PageRole) {
		m.dropDisallowed(field, rec)
		return
	}

	if m.terms.Contingencies == nil {
		m.terms.Contingencies = &model.Contingencies{}
	}
	cur := m.terms.Contingencies

	m.mergeContingency(field+".inspection", &cur.Inspection, src.Inspection, rec)
	m.mergeContingency(field+".appraisal", &cur.Appraisal, src.Appraisal, rec)
	m.mergeContingency(field+".loan", &cur.Loan, src.Loan, rec)
}

func (m *merger) mergeContingency(path string, dst **model.Contingency, src *model.Contingency, rec model.PageExtraction) {
	if src == nil {
		return
	}
	if *dst == nil {
		*dst = &model.Contingency{}
	}
	fillBool(m, path+".waived", &(*dst).Waived, src.Waived, rec)
	fillNum(m, path+".days", &(*dst).Days, src.Days, rec)
	fillStr(m, path+".date", &(*dst).Date, src.Date, rec)
}

// fillStr backfills a string sub-field only when the destination is
// still null. Empty candidates never overwrite populated values.
func fillStr(m *merger, path string, dst **string, src *string, rec model.PageExtraction) {
	if src == nil || strings.TrimSpace(*src) == "" || *dst != nil && **dst != "" {
		return
	}
	*dst = src
	m.prov.Set(path, rec.PageNumber)
	m.logf("filled %s from page %d (%s)", path, rec.PageNumber, rec.PageRole)
}

// fillNum backfills a numeric sub-field only when still null.
func fillNum(m *merger, path string, dst **model.Number, src *model.Number, rec model.PageExtraction) {
	if src == nil || *dst != nil {
		return
	}
	*dst = src
	m.prov.Set(path, rec.PageNumber)
	m.logf("filled %s from page %d (%s)", path, rec.PageNumber, rec.PageRole)
}

// fillBool backfills a boolean sub-field only when still null.
func fillBool(m *merger, path string, dst **model.Bool, src *model.Bool, rec model.PageExtraction) {
	if src == nil || *dst != nil {
		return
	}
	*dst = src
	m.prov.Set(path, rec.PageNumber)
	m.logf("filled %s from page %d (%s)", path, rec.PageNumber, rec.PageRole)
}
