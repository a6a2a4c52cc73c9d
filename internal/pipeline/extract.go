package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/jsonscan"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/internal/resilience"
	"github.com/sells-group/contract-extract/pkg/anthropic"
)

// ExtractPages issues one model call carrying every critical page image
// and parses the response into one sparse extraction record per page.
// All critical pages travel in a single call so the model can infer
// document roles across the set, but it is instructed to extract each
// page independently — no cross-page value merging happens inside the
// model.
func ExtractPages(ctx context.Context, pages []model.Page, critical []model.CriticalPage, client anthropic.Client, aiCfg config.AnthropicConfig) ([]model.PageExtraction, model.TokenUsage, error) {
	prompt := fmt.Sprintf(extractUserPrompt, len(critical), pageListing(critical))
	return extractCall(ctx, pages, critical, prompt, client, aiCfg)
}

// extractCall runs one extraction-shaped model call (first turn or
// second turn) and validates the parsed array. Unlike classification, a
// malformed extraction cannot be usefully merged, so every violation
// here is fatal for the call.
func extractCall(ctx context.Context, pages []model.Page, critical []model.CriticalPage, userPrompt string, client anthropic.Client, aiCfg config.AnthropicConfig) ([]model.PageExtraction, model.TokenUsage, error) {
	var usage model.TokenUsage

	images, err := criticalImages(pages, critical)
	if err != nil {
		return nil, usage, err
	}

	req := anthropic.MessageRequest{
		Model:     aiCfg.ExtractModel,
		MaxTokens: 16384,
		System:    extractSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: userPrompt, Images: images},
		},
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: aiCfg.MaxRetries,
		Service:     "anthropic",
		Operation:   "extract",
	}
	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, usage, eris.Wrap(err, "extract: model call")
	}

	usage = model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
	resp.Usage.LogCost(aiCfg.ExtractModel, "extract")

	var records []model.PageExtraction
	if err := jsonscan.FirstArray(resp.Text(), &records); err != nil {
		return nil, usage, eris.Wrap(err, "extract: parse response")
	}

	if err := validateExtractionShape(records); err != nil {
		return nil, usage, err
	}

	return records, usage, nil
}

// validateExtractionShape enforces the mandatory envelope on the parsed
// array: non-empty, and the first record carries the keys every record
// is supposed to have.
func validateExtractionShape(records []model.PageExtraction) error {
	if len(records) == 0 {
		return eris.New("extract: response array is empty")
	}
	first := records[0]
	switch {
	case first.PageNumber == 0:
		return eris.New("extract: first record missing pageNumber")
	case first.PageLabel == "":
		return eris.New("extract: first record missing pageLabel")
	case first.FormCode == "":
		return eris.New("extract: first record missing formCode")
	case first.PageRole == "":
		return eris.New("extract: first record missing pageRole")
	}
	return nil
}

// criticalImages resolves the critical page set against the packet's
// pages, in critical-set order.
func criticalImages(pages []model.Page, critical []model.CriticalPage) ([]anthropic.Image, error) {
	byNumber := make(map[int]model.Page, len(pages))
	for _, p := range pages {
		byNumber[p.PageNumber] = p
	}

	images := make([]anthropic.Image, 0, len(critical))
	for _, cp := range critical {
		p, ok := byNumber[cp.PageNumber]
		if !ok {
			return nil, eris.Errorf("extract: critical page %d not in packet", cp.PageNumber)
		}
		images = append(images, anthropic.Image{MediaType: p.MediaType, Data: p.Image})
	}
	return images, nil
}

// pageListing formats the critical page set for prompt interpolation.
func pageListing(critical []model.CriticalPage) string {
	var b strings.Builder
	for _, cp := range critical {
		fmt.Fprintf(&b, "- page %d: %s\n", cp.PageNumber, cp.Label)
	}
	return b.String()
}
