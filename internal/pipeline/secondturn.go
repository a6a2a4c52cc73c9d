package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/pkg/anthropic"
)

// SecondTurnResult is one retry pass's outcome. Records is the record
// set after splicing the retry's pages over the first turn's; Ran is
// false when the retry call failed and the first-turn records stand.
type SecondTurnResult struct {
	Records []model.PageExtraction
	Usage   model.TokenUsage
	Ran     bool
}

// RunSecondTurn re-extracts the critical pages after validation found a
// hard error. The retry prompt carries the first-turn merged result for
// context plus the fields that failed, and each fresh record replaces
// its first-turn counterpart by page number. A failed second turn
// degrades gracefully: the caller keeps the first-turn result.
func RunSecondTurn(ctx context.Context, pages []model.Page, critical []model.CriticalPage, firstTurn []model.PageExtraction, merged *model.ContractTerms, validation model.ValidationResult, client anthropic.Client, aiCfg config.AnthropicConfig) SecondTurnResult {
	fields := ProblemFields(validation)
	contextJSON, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		contextJSON = []byte("{}")
	}

	prompt := fmt.Sprintf(secondTurnUserPrompt,
		len(critical), pageListing(critical), string(contextJSON), strings.Join(fields, ", "))

	zap.L().Info("second turn: retrying extraction",
		zap.Strings("problem_fields", fields),
		zap.Int("critical_pages", len(critical)))

	records, usage, err := extractCall(ctx, pages, critical, prompt, client, aiCfg)
	if err != nil {
		zap.L().Warn("second turn: retry failed, keeping first-turn result", zap.Error(err))
		return SecondTurnResult{Records: firstTurn, Usage: usage}
	}

	return SecondTurnResult{
		Records: spliceRecords(firstTurn, records),
		Usage:   usage,
		Ran:     true,
	}
}

// ProblemFields derives the schema fields named by validation errors.
// Unmapped errors fall back to a generic hint so the retry prompt never
// interpolates an empty list.
func ProblemFields(validation model.ValidationResult) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, errText := range validation.Errors {
		for _, pf := range problemFields {
			if strings.Contains(errText, pf.substr) && !seen[pf.field] {
				seen[pf.field] = true
				fields = append(fields, pf.field)
			}
		}
	}
	if len(fields) == 0 {
		fields = []string{"all required fields"}
	}
	return fields
}

// spliceRecords overlays retry records onto the first-turn set by page
// number. First-turn records for pages the retry did not return survive,
// and retry records for unknown pages are appended rather than dropped.
func spliceRecords(firstTurn, retry []model.PageExtraction) []model.PageExtraction {
	out := make([]model.PageExtraction, len(firstTurn))
	copy(out, firstTurn)

	index := make(map[int]int, len(out))
	for i, rec := range out {
		index[rec.PageNumber] = i
	}

	for _, rec := range retry {
		if i, ok := index[rec.PageNumber]; ok {
			out[i] = rec
		} else {
			zap.L().Warn("second turn: record for unexpected page", zap.Int("page", rec.PageNumber))
			out = append(out, rec)
		}
	}
	return out
}
