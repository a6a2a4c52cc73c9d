package model

import "encoding/json"

// PageExtraction is one critical page's sparse extraction record. The
// term fields embed inline so the model's flat JSON object decodes
// directly into it.
type PageExtraction struct {
	PageNumber int      `json:"pageNumber"`
	PageLabel  string   `json:"pageLabel"`
	FormCode   string   `json:"formCode"`
	FormPage   int      `json:"formPage,omitempty"`
	PageRole   PageRole `json:"pageRole"`
	Confidence float64  `json:"confidence"`

	ContractTerms
}

// UnmarshalJSON decodes the flat record, then nulls out any number
// field whose value could not be coerced. Downstream layers only ever
// see a real value or an absent field.
func (p *PageExtraction) UnmarshalJSON(b []byte) error {
	type plain PageExtraction
	var rec plain
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	*p = PageExtraction(rec)
	p.dropUnparsedNumbers()
	return nil
}

// ValidationResult is the validator's verdict on a merged term set.
// Content problems are data, not errors: they steer review and retry
// behavior instead of failing the run.
type ValidationResult struct {
	NeedsReview     bool     `json:"needsReview"`
	NeedsSecondTurn bool     `json:"needsSecondTurn"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// ExtractionDetails carries the intermediate artifacts of a run for
// audit and debugging.
type ExtractionDetails struct {
	Classifications []*PageClassification `json:"classifications"`
	CriticalPages   []CriticalPage        `json:"criticalPages"`
	PageExtractions []PageExtraction      `json:"pageExtractions"`
	Provenance      Provenance            `json:"provenance"`
	MergeLog        []string              `json:"mergeLog"`
	AuditLog        []string              `json:"auditLog"`
	SecondTurnRan   bool                  `json:"secondTurnRan"`
	FailedBatches   int                   `json:"failedBatches,omitempty"`
}

// ExtractionResult is the pipeline's caller contract: the reconciled
// terms, the full audit detail, and the review verdict.
type ExtractionResult struct {
	RunID       string            `json:"runId"`
	FinalTerms  ContractTerms     `json:"finalTerms"`
	Details     ExtractionDetails `json:"details"`
	Validation  ValidationResult  `json:"validation"`
	NeedsReview bool              `json:"needsReview"`
	Usage       TokenUsage        `json:"usage"`
	CostUSD     float64           `json:"costUsd"`
	DurationMS  int64             `json:"durationMs"`
}
