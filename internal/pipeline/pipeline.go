package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/pkg/anthropic"
)

// fallbackCriticalCount is how many leading pages get force-included
// when classification yields no critical pages at all. Purchase
// contracts front-load their terms, so the packet head is the best
// blind guess.
const fallbackCriticalCount = 5

// RecordSource produces per-page extraction records for a critical page
// set. The vision extractor is the default; the document-annotation
// backend is the alternate implementation.
type RecordSource interface {
	Extract(ctx context.Context, pages []model.Page, critical []model.CriticalPage) ([]model.PageExtraction, model.TokenUsage, error)
	Name() string
}

// visionSource is the default RecordSource: one multi-image model call.
type visionSource struct {
	client anthropic.Client
	aiCfg  config.AnthropicConfig
}

func (v visionSource) Extract(ctx context.Context, pages []model.Page, critical []model.CriticalPage) ([]model.PageExtraction, model.TokenUsage, error) {
	return ExtractPages(ctx, pages, critical, v.client, v.aiCfg)
}

func (v visionSource) Name() string { return "vision" }

// Pipeline runs the full classify → select → extract → merge → resolve
// → validate sequence over one scanned contract packet.
type Pipeline struct {
	client anthropic.Client
	source RecordSource
	cfg    *config.Config
}

// New builds a pipeline. A nil source selects the vision extractor;
// pass the annotation backend's source to use document mode instead.
// Classification and the second-turn retry always use the vision
// client regardless of source.
func New(client anthropic.Client, cfg *config.Config, source RecordSource) *Pipeline {
	if source == nil {
		source = visionSource{client: client, aiCfg: cfg.Anthropic}
	}
	return &Pipeline{client: client, source: source, cfg: cfg}
}

// Extract runs the pipeline over one packet's page images. It returns a
// result even when fields are missing or suspect (flagged needsReview);
// the only fatal outcomes are classification failing wholesale or the
// extraction call producing nothing usable.
func (p *Pipeline) Extract(ctx context.Context, pages []model.Page) (*model.ExtractionResult, error) {
	if len(pages) == 0 {
		return nil, eris.New("pipeline: no pages supplied")
	}

	start := time.Now()
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: starting extraction",
		zap.Int("pages", len(pages)),
		zap.String("backend", p.source.Name()))

	var usage model.TokenUsage
	var costUSD float64

	classified, err := ClassifyPages(ctx, pages, p.client, p.cfg.Anthropic, p.cfg.Pipeline.ClassifyBatchSize)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: classification")
	}
	usage.Add(classified.Usage)
	costUSD += stageCost(classified.Usage, p.cfg.Anthropic.ClassifyModel)

	critical := SelectCriticalPages(classified.Classifications)
	if len(critical) == 0 {
		n := min(fallbackCriticalCount, len(pages))
		log.Warn("pipeline: no critical pages selected, force-including packet head", zap.Int("pages", n))
		for i := 0; i < n; i++ {
			critical = append(critical, model.CriticalPage{
				PageNumber: pages[i].PageNumber,
				Label:      FallbackLabel(pages[i].PageNumber),
			})
		}
	}
	log.Info("pipeline: critical pages selected",
		zap.Int("selected", len(critical)),
		zap.Int("discarded", len(pages)-len(critical)))

	records, extractUsage, err := p.source.Extract(ctx, pages, critical)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extraction")
	}
	usage.Add(extractUsage)
	costUSD += stageCost(extractUsage, p.cfg.Anthropic.ExtractModel)

	terms, prov, mergeLog, audit, validation := p.reconcile(records)

	secondTurnRan := false
	for pass := 0; pass < p.cfg.Pipeline.MaxSecondTurnPasses && validation.NeedsSecondTurn; pass++ {
		st := RunSecondTurn(ctx, pages, critical, records, &terms, validation, p.client, p.cfg.Anthropic)
		usage.Add(st.Usage)
		costUSD += stageCost(st.Usage, p.cfg.Anthropic.ExtractModel)
		if !st.Ran {
			break
		}
		secondTurnRan = true
		records = st.Records
		terms, prov, mergeLog, audit, validation = p.reconcile(records)
	}

	log.Info("pipeline: extraction complete",
		zap.Bool("needs_review", validation.NeedsReview),
		zap.Bool("second_turn_ran", secondTurnRan),
		zap.Int("total_tokens", usage.Total()),
		zap.Float64("cost_usd", costUSD),
		zap.Duration("elapsed", time.Since(start)))

	return &model.ExtractionResult{
		RunID:      runID,
		FinalTerms: terms,
		Details: model.ExtractionDetails{
			Classifications: classified.Classifications,
			CriticalPages:   critical,
			PageExtractions: records,
			Provenance:      prov,
			MergeLog:        mergeLog,
			AuditLog:        audit.Entries,
			SecondTurnRan:   secondTurnRan,
			FailedBatches:   classified.FailedBatches,
		},
		Validation:  validation,
		NeedsReview: validation.NeedsReview,
		Usage:       usage,
		CostUSD:     costUSD,
		DurationMS:  time.Since(start).Milliseconds(),
	}, nil
}

// reconcile runs the deterministic tail of the pipeline: merge,
// temporal resolution, normalization, validation. It is re-run as-is
// after a second turn splices fresh records in.
func (p *Pipeline) reconcile(records []model.PageExtraction) (model.ContractTerms, model.Provenance, []string, model.AuditLog, model.ValidationResult) {
	terms, prov, mergeLog := MergeExtractions(records)

	var audit model.AuditLog
	ResolveTemporal(&terms, &audit)

	for _, field := range NormalizeTerms(&terms) {
		audit.Addf("normalized %s", field)
	}

	return terms, prov, mergeLog, audit, ValidateTerms(&terms)
}

func stageCost(u model.TokenUsage, modelName string) float64 {
	return anthropic.TokenUsage{
		InputTokens:              int64(u.InputTokens),
		OutputTokens:             int64(u.OutputTokens),
		CacheCreationInputTokens: int64(u.CacheCreationTokens),
		CacheReadInputTokens:     int64(u.CacheReadTokens),
	}.EstimateCost(modelName)
}
