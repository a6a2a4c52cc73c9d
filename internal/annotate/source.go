// Package annotate implements the document-annotation extraction
// backend: instead of sending page images to a vision model, it uploads
// the assembled packet PDF once and runs schema-guided annotation over
// the critical pages in bounded chunks.
package annotate

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/pkg/mistral"
)

// defaultPageLimit caps pages per annotation call; the API degrades on
// larger spans.
const defaultPageLimit = 8

// Source extracts per-page records by annotating an uploaded PDF. It
// satisfies the pipeline's RecordSource interface.
type Source struct {
	client    mistral.Client
	cfg       config.MistralConfig
	pageLimit int

	doc      []byte
	filename string

	// signedURL caches the upload across calls within a run. The file
	// store is write-once, so one upload serves every chunk and the
	// second turn alike.
	signedURL string
}

// NewSource builds a document-annotation source over the packet's
// assembled PDF bytes.
func NewSource(client mistral.Client, cfg config.MistralConfig, pageLimit int, doc []byte, filename string) *Source {
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	if filename == "" {
		filename = "packet.pdf"
	}
	return &Source{client: client, cfg: cfg, pageLimit: pageLimit, doc: doc, filename: filename}
}

// Name identifies the backend in logs and results.
func (s *Source) Name() string { return "document" }

// Extract annotates the critical pages in chunks of at most pageLimit
// and returns one sparse record per page. Chunks are isolated the same
// way classification batches are: a failed chunk drops its pages with a
// warning, and only all chunks failing is fatal.
func (s *Source) Extract(ctx context.Context, pages []model.Page, critical []model.CriticalPage) ([]model.PageExtraction, model.TokenUsage, error) {
	var usage model.TokenUsage

	if len(critical) == 0 {
		return nil, usage, eris.New("annotate: no critical pages")
	}

	url, err := s.ensureUploaded(ctx)
	if err != nil {
		return nil, usage, err
	}

	labels := make(map[int]string, len(critical))
	for _, cp := range critical {
		labels[cp.PageNumber] = cp.Label
	}

	var records []model.PageExtraction
	failed := 0
	chunks := chunkPages(critical, s.pageLimit)
	for i, chunk := range chunks {
		recs, err := s.annotateChunk(ctx, url, chunk)
		if err != nil {
			failed++
			zap.L().Warn("annotate: chunk failed",
				zap.Int("chunk", i),
				zap.Int("pages", len(chunk)),
				zap.Error(err))
			continue
		}
		records = append(records, recs...)
	}
	if failed == len(chunks) {
		return nil, usage, eris.Errorf("annotate: all %d chunks failed", len(chunks))
	}

	for i := range records {
		if records[i].PageLabel == "" {
			records[i].PageLabel = labels[records[i].PageNumber]
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PageNumber < records[j].PageNumber })

	return records, usage, nil
}

// ensureUploaded uploads the packet once and caches its signed URL.
func (s *Source) ensureUploaded(ctx context.Context) (string, error) {
	if s.signedURL != "" {
		return s.signedURL, nil
	}
	if len(s.doc) == 0 {
		return "", eris.New("annotate: no document bytes")
	}

	file, err := s.client.UploadFile(ctx, s.filename, s.doc)
	if err != nil {
		return "", eris.Wrap(err, "annotate: upload packet")
	}
	url, err := s.client.SignedURL(ctx, file.ID)
	if err != nil {
		return "", eris.Wrap(err, "annotate: signed URL")
	}

	zap.L().Info("annotate: packet uploaded",
		zap.String("file_id", file.ID),
		zap.Int("bytes", len(s.doc)))
	s.signedURL = url
	return url, nil
}

// annotateChunk runs one annotation call and decodes its payload.
func (s *Source) annotateChunk(ctx context.Context, url string, chunk []model.CriticalPage) ([]model.PageExtraction, error) {
	indexes := make([]int, len(chunk))
	for i, cp := range chunk {
		indexes[i] = cp.PageNumber - 1 // API pages are zero-based
	}

	resp, err := s.client.Annotate(ctx, mistral.AnnotationRequest{
		Model:       s.cfg.Model,
		DocumentURL: url,
		Pages:       indexes,
		SchemaName:  "contract_page_terms",
		Schema:      recordSchema,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Pages []model.PageExtraction `json:"pages"`
	}
	if err := resp.DocumentAnnotation.Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Pages) == 0 {
		return nil, eris.New("annotate: annotation carried no page records")
	}
	if len(payload.Pages) != len(chunk) {
		return nil, eris.Errorf("annotate: expected %d records, got %d", len(chunk), len(payload.Pages))
	}

	// The model sees only the chunk, so it numbers pages relative to
	// it. Restore packet page numbers positionally.
	for i := range payload.Pages {
		payload.Pages[i].PageNumber = chunk[i].PageNumber
	}
	return payload.Pages, nil
}

func chunkPages(critical []model.CriticalPage, limit int) [][]model.CriticalPage {
	var chunks [][]model.CriticalPage
	for start := 0; start < len(critical); start += limit {
		end := min(start+limit, len(critical))
		chunks = append(chunks, critical[start:end])
	}
	return chunks
}
