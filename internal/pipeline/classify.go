package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/jsonscan"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/internal/resilience"
	"github.com/sells-group/contract-extract/pkg/anthropic"
)

// maxClassifyConcurrency caps concurrent classification calls. Batches
// are independent so the cap only protects the API, not correctness.
const maxClassifyConcurrency = 10

// ClassifyResult is the reassembled classification array plus fan-out
// bookkeeping.
type ClassifyResult struct {
	Classifications []*model.PageClassification // indexed pageNumber-1, nil = no form / failed batch
	FailedBatches   int
	TotalBatches    int
	Usage           model.TokenUsage
}

// classifyBatchResult is one batch's outcome. Each goroutine writes
// only its own slot, so no locking is needed across the fan-out.
type classifyBatchResult struct {
	start   int // 0-based index of the batch's first page
	pages   []*model.PageClassification
	usage   anthropic.TokenUsage
	failed  bool
	failErr error
}

// ClassifyPages splits the packet into fixed-size contiguous batches,
// classifies every batch concurrently, and reassembles one page-indexed
// classification array. A failed batch (transport, unparsable, wrong
// shape) leaves its pages unclassified without aborting the others;
// only a packet where every batch fails is a fatal error.
func ClassifyPages(ctx context.Context, pages []model.Page, client anthropic.Client, aiCfg config.AnthropicConfig, batchSize int) (*ClassifyResult, error) {
	if len(pages) == 0 {
		return nil, eris.New("classify: no pages supplied")
	}
	if batchSize <= 0 {
		batchSize = 15
	}

	numBatches := (len(pages) + batchSize - 1) / batchSize
	results := make([]classifyBatchResult, numBatches)

	rps := aiCfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	retryCfg := resilience.RetryConfig{
		MaxAttempts: aiCfg.MaxRetries,
		Service:     "anthropic",
		Operation:   "classify",
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxClassifyConcurrency)

	for b := 0; b < numBatches; b++ {
		b := b
		start := b * batchSize
		end := min(start+batchSize, len(pages))
		batch := pages[start:end]

		g.Go(func() error {
			if err := limiter.Wait(gCtx); err != nil {
				results[b] = classifyBatchResult{start: start, failed: true, failErr: err}
				return nil
			}

			parsed, usage, err := classifyBatch(gCtx, batch, len(pages), client, aiCfg, retryCfg)
			if err != nil {
				zap.L().Warn("classify: batch failed",
					zap.Int("batch", b),
					zap.Int("first_page", batch[0].PageNumber),
					zap.Int("pages", len(batch)),
					zap.Error(err),
				)
				results[b] = classifyBatchResult{start: start, failed: true, failErr: err}
				return nil
			}

			results[b] = classifyBatchResult{start: start, pages: parsed, usage: usage}
			return nil
		})
	}

	_ = g.Wait()

	out := &ClassifyResult{
		Classifications: make([]*model.PageClassification, len(pages)),
		TotalBatches:    numBatches,
	}

	for _, r := range results {
		if r.failed {
			out.FailedBatches++
			continue
		}
		out.Usage.Add(model.TokenUsage{
			InputTokens:         int(r.usage.InputTokens),
			OutputTokens:        int(r.usage.OutputTokens),
			CacheCreationTokens: int(r.usage.CacheCreationInputTokens),
			CacheReadTokens:     int(r.usage.CacheReadInputTokens),
		})
		for j, cls := range r.pages {
			abs := r.start + j + 1 // 1-based absolute page number
			if cls != nil && cls.PDFPage != abs {
				// Trust position over the model-reported index.
				zap.L().Warn("classify: page number mismatch corrected",
					zap.Int("reported", cls.PDFPage),
					zap.Int("actual", abs),
				)
				cls.PDFPage = abs
			}
			out.Classifications[r.start+j] = cls
		}
	}

	if out.FailedBatches == numBatches {
		return nil, eris.Errorf("classify: all %d batches failed", numBatches)
	}

	zap.L().Info("classify: packet classified",
		zap.Int("pages", len(pages)),
		zap.Int("batches", numBatches),
		zap.Int("failed_batches", out.FailedBatches),
	)
	anthropic.TokenUsage{
		InputTokens:              int64(out.Usage.InputTokens),
		OutputTokens:             int64(out.Usage.OutputTokens),
		CacheCreationInputTokens: int64(out.Usage.CacheCreationTokens),
		CacheReadInputTokens:     int64(out.Usage.CacheReadTokens),
	}.LogCost(aiCfg.ClassifyModel, "classify")

	return out, nil
}

// classifyBatch issues one model call for a contiguous page batch and
// defensively parses the response. The response must contain a JSON
// object {"pages": [...appearing once per input image...]}; a length
// mismatch is a schema violation that fails the whole batch.
func classifyBatch(ctx context.Context, batch []model.Page, totalPages int, client anthropic.Client, aiCfg config.AnthropicConfig, retryCfg resilience.RetryConfig) ([]*model.PageClassification, anthropic.TokenUsage, error) {
	images := make([]anthropic.Image, len(batch))
	for i, p := range batch {
		images[i] = anthropic.Image{MediaType: p.MediaType, Data: p.Image}
	}

	first := batch[0].PageNumber
	last := batch[len(batch)-1].PageNumber
	req := anthropic.MessageRequest{
		Model:     aiCfg.ClassifyModel,
		MaxTokens: 8192,
		System:    classifySystemPrompt,
		Messages: []anthropic.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(classifyUserPrompt, first, last, totalPages),
				Images:  images,
			},
		},
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, anthropic.TokenUsage{}, eris.Wrap(err, "classify: model call")
	}

	var parsed struct {
		Pages []*model.PageClassification `json:"pages"`
	}
	if err := jsonscan.FirstObject(resp.Text(), &parsed); err != nil {
		return nil, resp.Usage, eris.Wrap(err, "classify: parse response")
	}

	if len(parsed.Pages) != len(batch) {
		return nil, resp.Usage, eris.Errorf("classify: response has %d entries for %d pages", len(parsed.Pages), len(batch))
	}

	return parsed.Pages, resp.Usage, nil
}
