package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/contract-extract/internal/config"
	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- helpers ---

func testAICfg() config.AnthropicConfig {
	return config.AnthropicConfig{
		ClassifyModel:  "claude-haiku-4-5-20251001",
		ExtractModel:   "claude-sonnet-4-5-20250929",
		MaxRetries:     1,
		RequestsPerSec: 50,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: testAICfg(),
		Pipeline: config.PipelineConfig{
			Backend:             "vision",
			ClassifyBatchSize:   15,
			MaxSecondTurnPasses: 1,
		},
	}
}

// makePages builds n fake pages whose image bytes identify them, so
// request matchers can tell batches apart.
func makePages(n int) []model.Page {
	pages := make([]model.Page, n)
	for i := range pages {
		pages[i] = model.Page{
			PageNumber: i + 1,
			Image:      []byte(fmt.Sprintf("page-%d", i+1)),
			MediaType:  "image/png",
		}
	}
	return pages
}

// firstImageIs matches a request whose first attached image carries the
// given bytes. Classification batches are contiguous, so the first
// image pins the batch.
func firstImageIs(data string) func(anthropic.MessageRequest) bool {
	return func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 &&
			len(req.Messages[0].Images) > 0 &&
			string(req.Messages[0].Images[0].Data) == data
	}
}

// promptContains matches a request whose user message carries the
// given text.
func promptContains(text string) func(anthropic.MessageRequest) bool {
	return func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 &&
			strings.Contains(req.Messages[0].Content, text)
	}
}

func textResponse(body string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: body}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}
}
