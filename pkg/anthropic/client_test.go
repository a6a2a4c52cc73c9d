package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestMockClient_RoundTrip(t *testing.T) {
	client := new(MockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&MessageResponse{Content: []ContentBlock{{Type: "text", Text: "ok"}}}, nil)

	resp, err := client.CreateMessage(context.Background(), MessageRequest{Model: "claude-haiku-4-5-20251001"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
}

func TestMessageResponse_TextConcatenatesBlocks(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "first"},
			{Type: "text", Text: ""},
			{Type: "text", Text: "second"},
		},
	}
	assert.Equal(t, "first\nsecond", resp.Text())

	var nilResp *MessageResponse
	assert.Equal(t, "", nilResp.Text())
}

func TestToSDKMessages_ImagesPrecedeText(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{
			Role:    "user",
			Content: "classify these pages",
			Images: []Image{
				{MediaType: "image/png", Data: []byte("a")},
				{MediaType: "image/jpeg", Data: []byte("b")},
			},
		},
	})
	require.Len(t, msgs, 1)
	// Two image blocks then the text block.
	require.Len(t, msgs[0].Content, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
}

func TestToSDKMessages_TextOnly(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "assistant", Content: "previous turn"},
		{Role: "user", Content: "extract the terms"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", string(msgs[0].Role))
	require.Len(t, msgs[1].Content, 1)
}

func TestEstimateCost_KnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000}
	// 1M input at $3.00 + 100K output at $15.00.
	assert.InDelta(t, 4.50, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
}

func TestEstimateCost_CacheTokens(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	// Cache writes at 1.25x input, reads at 0.1x input ($0.80 base).
	assert.InDelta(t, 1.08, u.EstimateCost("claude-haiku-4-5-20251001"), 0.0001)
}

func TestEstimateCost_UnknownModelIsZero(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000}
	assert.Zero(t, u.EstimateCost("some-future-model"))
}
