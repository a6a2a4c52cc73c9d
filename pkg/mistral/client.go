// Package mistral provides a client for the Mistral document AI API:
// file upload, signed URL retrieval, and schema-guided document
// annotation.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultModel is the annotation model used when none is configured.
const DefaultModel = "mistral-ocr-latest"

// Client defines the Mistral document AI operations.
type Client interface {
	// UploadFile uploads a document for OCR processing and returns the
	// stored file's metadata. Uploads are write-once.
	UploadFile(ctx context.Context, filename string, data []byte) (*File, error)
	// SignedURL returns a short-lived download URL for an uploaded file,
	// suitable for passing to Annotate.
	SignedURL(ctx context.Context, fileID string) (string, error)
	// Annotate runs schema-guided annotation over the given pages of a
	// document.
	Annotate(ctx context.Context, req AnnotationRequest) (*AnnotationResponse, error)
}

// File is an uploaded document's metadata.
type File struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Purpose   string `json:"purpose"`
}

// AnnotationRequest describes one annotation call. Pages are zero-based
// page indexes within the uploaded document.
type AnnotationRequest struct {
	Model       string
	DocumentURL string
	Pages       []int
	SchemaName  string
	Schema      json.RawMessage
}

// AnnotationResponse is the parsed annotation result.
type AnnotationResponse struct {
	Pages              []AnnotationPage `json:"pages"`
	DocumentAnnotation RawAnnotation    `json:"document_annotation"`
	UsageInfo          Usage            `json:"usage_info"`
}

// AnnotationPage is one page's OCR output.
type AnnotationPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// Usage tracks pages processed per call.
type Usage struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes"`
}

// RawAnnotation holds the annotation payload. The API returns it
// inconsistently, sometimes a JSON object and sometimes that object
// re-encoded as a JSON string, so decoding normalizes both shapes to
// the inner object's bytes.
type RawAnnotation []byte

// UnmarshalJSON accepts either a JSON string wrapping an object or the
// object itself.
func (r *RawAnnotation) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		*r = RawAnnotation(inner)
		return nil
	}
	*r = RawAnnotation(b)
	return nil
}

// Decode unmarshals the annotation payload into dst.
func (r RawAnnotation) Decode(dst any) error {
	if len(r) == 0 {
		return eris.New("mistral: empty annotation payload")
	}
	if err := json.Unmarshal(r, dst); err != nil {
		return eris.Wrap(err, "mistral: decode annotation")
	}
	return nil
}

// Option configures the Mistral client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Mistral document AI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.mistral.ai",
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) UploadFile(ctx context.Context, filename string, data []byte) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "ocr"); err != nil {
		return nil, eris.Wrap(err, "mistral: write purpose field")
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, eris.Wrap(err, "mistral: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return nil, eris.Wrap(err, "mistral: write file data")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "mistral: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", &buf)
	if err != nil {
		return nil, eris.Wrap(err, "mistral: create upload request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var file File
	if err := c.do(req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *httpClient) SignedURL(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("%s/v1/files/%s/url?expiry=24", c.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "mistral: create signed URL request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", eris.Errorf("mistral: empty signed URL for file %s", fileID)
	}
	return out.URL, nil
}

func (c *httpClient) Annotate(ctx context.Context, areq AnnotationRequest) (*AnnotationResponse, error) {
	model := areq.Model
	if model == "" {
		model = DefaultModel
	}

	body := map[string]any{
		"model": model,
		"document": map[string]any{
			"type":         "document_url",
			"document_url": areq.DocumentURL,
		},
		"pages": areq.Pages,
		"document_annotation_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   areq.SchemaName,
				"schema": areq.Schema,
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "mistral: marshal annotation request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "mistral: create annotation request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var out AnnotationResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) do(req *http.Request, dst any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "mistral: %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "mistral: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("mistral: %s returned status %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return eris.Wrap(err, "mistral: unmarshal response")
	}
	return nil
}
