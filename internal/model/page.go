package model

// Page is a single scanned page supplied by the caller. PageNumber is
// 1-based and contiguous within a packet.
type Page struct {
	PageNumber int
	Image      []byte
	MediaType  string // "image/png" or "image/jpeg"
}

// PageRole identifies what kind of document a page belongs to.
type PageRole string

const (
	RoleMainContract       PageRole = "main_contract"
	RoleCounterOffer       PageRole = "counter_offer"
	RoleAddendum           PageRole = "addendum"
	RoleLocalAddendum      PageRole = "local_addendum"
	RoleContingencyRelease PageRole = "contingency_release"
	RoleDisclosure         PageRole = "disclosure"
	RoleFinancing          PageRole = "financing"
	RoleBrokerInfo         PageRole = "broker_info"
	RoleTitlePage          PageRole = "title_page"
	RoleOther              PageRole = "other"
)

// AllPageRoles returns every defined page role.
func AllPageRoles() []PageRole {
	return []PageRole{
		RoleMainContract,
		RoleCounterOffer,
		RoleAddendum,
		RoleLocalAddendum,
		RoleContingencyRelease,
		RoleDisclosure,
		RoleFinancing,
		RoleBrokerInfo,
		RoleTitlePage,
		RoleOther,
	}
}

// IsOverrideRole returns true for roles that layer on top of the main
// contract and modify its terms (counter offers, addenda, releases).
func IsOverrideRole(r PageRole) bool {
	switch r {
	case RoleCounterOffer, RoleAddendum, RoleLocalAddendum, RoleContingencyRelease:
		return true
	}
	return false
}

// ContentCategory identifies what a page's content is about, independent
// of which form it belongs to.
type ContentCategory string

const (
	CategoryTransactionTerms ContentCategory = "transaction_terms"
	CategorySignatures       ContentCategory = "signatures"
	CategoryBrokerInfo       ContentCategory = "broker_info"
	CategoryDisclosures      ContentCategory = "disclosures"
	CategoryBoilerplate      ContentCategory = "boilerplate"
	CategoryOther            ContentCategory = "other"
)

// PageClassification is the classifier's verdict for one page. A nil
// *PageClassification means no form was detected on the page.
type PageClassification struct {
	PDFPage          int             `json:"pdfPage"`
	FormCode         string          `json:"formCode"`
	FormRevision     string          `json:"formRevision,omitempty"`
	FormPage         int             `json:"formPage,omitempty"`
	TotalPagesInForm int             `json:"totalPagesInForm,omitempty"`
	Role             PageRole        `json:"role"`
	ContentCategory  ContentCategory `json:"contentCategory"`
	HasFilledFields  bool            `json:"hasFilledFields"`
	Confidence       float64         `json:"confidence"` // 0-100
	TitleSnippet     string          `json:"titleSnippet,omitempty"`
	FooterText       string          `json:"footerText,omitempty"`
}

// CriticalPage is a page selected for extraction, paired with a
// human-readable provenance label.
type CriticalPage struct {
	PageNumber int    `json:"pageNumber"`
	Label      string `json:"label"`
}
