package annotate

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/pkg/mistral"
)

type mockMistralClient struct {
	mock.Mock
}

func (m *mockMistralClient) UploadFile(ctx context.Context, filename string, data []byte) (*mistral.File, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mistral.File), args.Error(1)
}

func (m *mockMistralClient) SignedURL(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *mockMistralClient) Annotate(ctx context.Context, req mistral.AnnotationRequest) (*mistral.AnnotationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mistral.AnnotationResponse), args.Error(1)
}

func criticalSet(pageNumbers ...int) []model.CriticalPage {
	out := make([]model.CriticalPage, len(pageNumbers))
	for i, n := range pageNumbers {
		out[i] = model.CriticalPage{PageNumber: n, Label: fmt.Sprintf("RPA p.%d – TRANSACTION_TERMS (FILLED)", n)}
	}
	return out
}

// annotationFor builds a response carrying one record per requested
// page, numbered relative to the chunk the way the model sees it.
func annotationFor(n int) *mistral.AnnotationResponse {
	payload := `{"pages":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			payload += ","
		}
		payload += fmt.Sprintf(`{"pageNumber":%d,"pageLabel":"","formCode":"RPA","pageRole":"main_contract","confidence":90,"purchasePrice":500000}`, i+1)
	}
	payload += `]}`
	return &mistral.AnnotationResponse{DocumentAnnotation: mistral.RawAnnotation(payload)}
}

func expectUpload(client *mockMistralClient) {
	client.On("UploadFile", mock.Anything, "packet.pdf", mock.Anything).
		Return(&mistral.File{ID: "file-1"}, nil)
	client.On("SignedURL", mock.Anything, "file-1").
		Return("https://files.example/file-1?sig=abc", nil)
}

func newTestSource(client mistral.Client, pageLimit int) *Source {
	return NewSource(client, config.MistralConfig{Model: "mistral-ocr-latest"}, pageLimit, []byte("%PDF-1.7"), "packet.pdf")
}

func TestExtract_SingleChunk(t *testing.T) {
	client := new(mockMistralClient)
	expectUpload(client)
	client.On("Annotate", mock.Anything, mock.MatchedBy(func(req mistral.AnnotationRequest) bool {
		return len(req.Pages) == 2 && req.Pages[0] == 0 && req.Pages[1] == 11
	})).Return(annotationFor(2), nil)

	src := newTestSource(client, 8)
	records, _, err := src.Extract(context.Background(), nil, criticalSet(1, 12))
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	// Packet page numbers restored positionally, labels backfilled.
	assert.Equal(t, 1, records[0].PageNumber)
	assert.Equal(t, 12, records[1].PageNumber)
	assert.Equal(t, "RPA p.12 – TRANSACTION_TERMS (FILLED)", records[1].PageLabel)
	client.AssertExpectations(t)
}

func TestExtract_ChunksAtPageLimit(t *testing.T) {
	client := new(mockMistralClient)
	expectUpload(client)
	client.On("Annotate", mock.Anything, mock.MatchedBy(func(req mistral.AnnotationRequest) bool {
		return len(req.Pages) == 3
	})).Return(annotationFor(3), nil)
	client.On("Annotate", mock.Anything, mock.MatchedBy(func(req mistral.AnnotationRequest) bool {
		return len(req.Pages) == 1
	})).Return(annotationFor(1), nil)

	src := newTestSource(client, 3)
	records, _, err := src.Extract(context.Background(), nil, criticalSet(1, 2, 3, 4))
	assert.NoError(t, err)
	assert.Len(t, records, 4)
	client.AssertNumberOfCalls(t, "Annotate", 2)
	client.AssertNumberOfCalls(t, "UploadFile", 1)
}

func TestExtract_FailedChunkIsIsolated(t *testing.T) {
	client := new(mockMistralClient)
	expectUpload(client)
	client.On("Annotate", mock.Anything, mock.MatchedBy(func(req mistral.AnnotationRequest) bool {
		return req.Pages[0] == 0
	})).Return(nil, eris.New("status 500"))
	client.On("Annotate", mock.Anything, mock.MatchedBy(func(req mistral.AnnotationRequest) bool {
		return req.Pages[0] == 2
	})).Return(annotationFor(1), nil)

	src := newTestSource(client, 2)
	records, _, err := src.Extract(context.Background(), nil, criticalSet(1, 2, 3))
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 3, records[0].PageNumber)
}

func TestExtract_AllChunksFailedIsFatal(t *testing.T) {
	client := new(mockMistralClient)
	expectUpload(client)
	client.On("Annotate", mock.Anything, mock.Anything).
		Return(nil, eris.New("status 500"))

	src := newTestSource(client, 8)
	_, _, err := src.Extract(context.Background(), nil, criticalSet(1, 2))
	assert.Error(t, err)
}

func TestExtract_RecordCountMismatchFailsChunk(t *testing.T) {
	client := new(mockMistralClient)
	expectUpload(client)
	client.On("Annotate", mock.Anything, mock.Anything).
		Return(annotationFor(1), nil)

	src := newTestSource(client, 8)
	_, _, err := src.Extract(context.Background(), nil, criticalSet(1, 2))
	assert.Error(t, err)
}

func TestExtract_UploadFailureIsFatal(t *testing.T) {
	client := new(mockMistralClient)
	client.On("UploadFile", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.New("status 503"))

	src := newTestSource(client, 8)
	_, _, err := src.Extract(context.Background(), nil, criticalSet(1))
	assert.Error(t, err)
}

func TestExtract_NoDocumentBytes(t *testing.T) {
	src := NewSource(new(mockMistralClient), config.MistralConfig{}, 8, nil, "")
	_, _, err := src.Extract(context.Background(), nil, criticalSet(1))
	assert.Error(t, err)
}
