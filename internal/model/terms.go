package model

// ContractTerms is the structured term schema shared by per-page
// extraction records (sparse, nil means "not visible on this page") and
// the final merged result. Pointer fields distinguish "absent" from
// zero values; absence is never evidence of falsity.
type ContractTerms struct {
	BuyerNames      StringList `json:"buyerNames,omitempty"`
	SellerNames     StringList `json:"sellerNames,omitempty"`
	PropertyAddress *string    `json:"propertyAddress,omitempty"`
	PurchasePrice   *Number    `json:"purchasePrice,omitempty"`

	EarnestMoneyDeposit *Deposit       `json:"earnestMoneyDeposit,omitempty"`
	Closing             *ClosingTerms  `json:"closing,omitempty"`
	Financing           *Financing     `json:"financing,omitempty"`
	Contingencies       *Contingencies `json:"contingencies,omitempty"`
	ClosingCosts        *ClosingCosts  `json:"closingCosts,omitempty"`
	Brokers             *Brokers       `json:"brokers,omitempty"`

	// ClosingDate is the legacy flat field older forms carry. It holds
	// either a literal date or a bare day count; temporal resolution
	// disambiguates it when no structured closing terms exist.
	ClosingDate *string `json:"closingDate,omitempty"`

	PersonalPropertyIncluded StringList `json:"personalPropertyIncluded,omitempty"`
	AdditionalTerms          StringList `json:"additionalTerms,omitempty"`

	BuyerSignatureDates  StringList `json:"buyerSignatureDates,omitempty"`
	SellerSignatureDates StringList `json:"sellerSignatureDates,omitempty"`

	// Derived by temporal resolution, never extracted directly.
	EffectiveDate     *string `json:"effectiveDate,omitempty"`
	CloseOfEscrowDate *string `json:"closeOfEscrowDate,omitempty"`
}

// Deposit describes the earnest money deposit.
type Deposit struct {
	Amount     *Number `json:"amount,omitempty"`
	Holder     *string `json:"holder,omitempty"`
	DueDays    *Number `json:"dueDays,omitempty"`
	Increased  *Number `json:"increasedAmount,omitempty"`
	CheckOrEFT *string `json:"method,omitempty"`
}

// ClosingTerms describes when and how escrow closes.
type ClosingTerms struct {
	Date                *string `json:"date,omitempty"`
	DaysAfterAcceptance *Number `json:"daysAfterAcceptance,omitempty"`
	PossessionDate      *string `json:"possessionDate,omitempty"`
	PossessionTime      *string `json:"possessionTime,omitempty"`
	EscrowHolder        *string `json:"escrowHolder,omitempty"`
}

// Financing describes the buyer's financing terms.
type Financing struct {
	Type            *string `json:"type,omitempty"` // cash, conventional, fha, va, seller
	LoanAmount      *Number `json:"loanAmount,omitempty"`
	DownPayment     *Number `json:"downPayment,omitempty"`
	InterestRateMax *Number `json:"interestRateMax,omitempty"`
	LenderName      *string `json:"lenderName,omitempty"`
	Preapproved     *Bool   `json:"preapproved,omitempty"`
}

// Contingency is one contingency's negotiated shape: either waived, or
// active with a day count or explicit removal date. CalculatedDeadline
// is derived during temporal resolution.
type Contingency struct {
	Waived             *Bool   `json:"waived,omitempty"`
	Days               *Number `json:"days,omitempty"`
	Date               *string `json:"date,omitempty"`
	CalculatedDeadline *string `json:"calculatedDeadline,omitempty"`
}

// Contingencies groups the standard purchase contingencies.
type Contingencies struct {
	Inspection *Contingency `json:"inspection,omitempty"`
	Appraisal  *Contingency `json:"appraisal,omitempty"`
	Loan       *Contingency `json:"loan,omitempty"`
}

// ClosingCosts records which side pays each closing cost item. Values
// are free text as written on the form ("buyer", "seller", "50/50").
type ClosingCosts struct {
	EscrowFee          *string `json:"escrowFee,omitempty"`
	TitlePolicy        *string `json:"titlePolicy,omitempty"`
	TransferTax        *string `json:"transferTax,omitempty"`
	HomeWarranty       *string `json:"homeWarranty,omitempty"`
	HomeWarrantyAmount *Number `json:"homeWarrantyAmount,omitempty"`
	HOATransferFee     *string `json:"hoaTransferFee,omitempty"`
}

// Brokers carries the brokerage and agent details for both sides.
type Brokers struct {
	ListingBrokerage    *string `json:"listingBrokerage,omitempty"`
	ListingAgent        *string `json:"listingAgent,omitempty"`
	ListingAgentLicense *string `json:"listingAgentLicense,omitempty"`
	ListingAgentPhone   *string `json:"listingAgentPhone,omitempty"`
	ListingAgentEmail   *string `json:"listingAgentEmail,omitempty"`
	BuyerBrokerage      *string `json:"buyerBrokerage,omitempty"`
	BuyerAgent          *string `json:"buyerAgent,omitempty"`
	BuyerAgentLicense   *string `json:"buyerAgentLicense,omitempty"`
	BuyerAgentPhone     *string `json:"buyerAgentPhone,omitempty"`
	BuyerAgentEmail     *string `json:"buyerAgentEmail,omitempty"`
}

// FilledCount returns how many sub-fields are populated, used by the
// most-complete-object-wins merge strategy.
func (d *Deposit) FilledCount() int {
	if d == nil {
		return 0
	}
	return countFilled(d.Amount != nil, strSet(d.Holder), d.DueDays != nil, d.Increased != nil, strSet(d.CheckOrEFT))
}

// FilledCount returns how many sub-fields are populated.
func (c *ClosingTerms) FilledCount() int {
	if c == nil {
		return 0
	}
	return countFilled(strSet(c.Date), c.DaysAfterAcceptance != nil, strSet(c.PossessionDate), strSet(c.PossessionTime), strSet(c.EscrowHolder))
}

// FilledCount returns how many sub-fields are populated.
func (f *Financing) FilledCount() int {
	if f == nil {
		return 0
	}
	return countFilled(strSet(f.Type), f.LoanAmount != nil, f.DownPayment != nil, f.InterestRateMax != nil, strSet(f.LenderName), f.Preapproved != nil)
}

// FilledCount returns how many sub-fields are populated.
func (c *ClosingCosts) FilledCount() int {
	if c == nil {
		return 0
	}
	return countFilled(strSet(c.EscrowFee), strSet(c.TitlePolicy), strSet(c.TransferTax), strSet(c.HomeWarranty), c.HomeWarrantyAmount != nil, strSet(c.HOATransferFee))
}

// FilledCount returns how many sub-fields are populated.
func (b *Brokers) FilledCount() int {
	if b == nil {
		return 0
	}
	return countFilled(
		strSet(b.ListingBrokerage), strSet(b.ListingAgent), strSet(b.ListingAgentLicense),
		strSet(b.ListingAgentPhone), strSet(b.ListingAgentEmail),
		strSet(b.BuyerBrokerage), strSet(b.BuyerAgent), strSet(b.BuyerAgentLicense),
		strSet(b.BuyerAgentPhone), strSet(b.BuyerAgentEmail),
	)
}

func countFilled(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func strSet(s *string) bool {
	return s != nil && *s != ""
}
