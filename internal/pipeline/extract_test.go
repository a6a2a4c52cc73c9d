package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/pkg/anthropic"
)

const extractionArrayJSON = `[
  {"pageNumber":1,"pageLabel":"RPA p.1/10 – TRANSACTION_TERMS (FILLED)","formCode":"RPA","pageRole":"main_contract","confidence":95,
   "buyerNames":["Jane Buyer"],"purchasePrice":"$500,000"},
  {"pageNumber":12,"pageLabel":"SCO p.1/2 – TRANSACTION_TERMS (FILLED)","formCode":"SCO","pageRole":"counter_offer","confidence":90,
   "purchasePrice":510000}
]`

func testCritical() []model.CriticalPage {
	return []model.CriticalPage{
		{PageNumber: 1, Label: "RPA p.1/10 – TRANSACTION_TERMS (FILLED)"},
		{PageNumber: 12, Label: "SCO p.1/2 – TRANSACTION_TERMS (FILLED)"},
	}
}

func TestExtractPages_ParsesSparseRecords(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("```json\n"+extractionArrayJSON+"\n```"), nil)

	records, usage, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 500000.0, records[0].PurchasePrice.Float())
	assert.Nil(t, records[1].BuyerNames)
	assert.Equal(t, 1000, usage.InputTokens)
}

func TestExtractPages_UncoercibleFieldDoesNotFailTheCall(t *testing.T) {
	// A record carrying prose where a number or checkbox belongs still
	// parses; the bad values come back null or unchecked and validation
	// deals with them.
	raw := `[
	  {"pageNumber":1,"pageLabel":"RPA p.1/10 – TRANSACTION_TERMS (FILLED)","formCode":"RPA","pageRole":"main_contract","confidence":90,
	   "buyerNames":["Jane Buyer"],"purchasePrice":"TBD",
	   "contingencies":{"inspection":{"waived":"n/a","days":17}}},
	  {"pageNumber":12,"pageLabel":"SCO p.1/2 – TRANSACTION_TERMS (FILLED)","formCode":"SCO","pageRole":"counter_offer","confidence":90,
	   "purchasePrice":510000}
	]`
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(raw), nil)

	records, _, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Nil(t, records[0].PurchasePrice)
	assert.False(t, bool(*records[0].Contingencies.Inspection.Waived))
	assert.Equal(t, 510000.0, records[1].PurchasePrice.Float())
}

func TestExtractPages_SendsOnlyCriticalImages(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 &&
			len(req.Messages[0].Images) == 2 &&
			string(req.Messages[0].Images[0].Data) == "page-1" &&
			string(req.Messages[0].Images[1].Data) == "page-12"
	})).Return(textResponse(extractionArrayJSON), nil)

	_, _, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestExtractPages_EmptyArrayIsFatal(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("[]"), nil)

	_, _, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.Error(t, err)
}

func TestExtractPages_MissingMandatoryKeysIsFatal(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"pageNumber":1,"pageRole":"main_contract"}]`), nil)

	_, _, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.Error(t, err)
}

func TestExtractPages_UnparsableResponseIsFatal(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("I was unable to read the pages."), nil)

	_, _, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.Error(t, err)
}

func TestExtractPages_TransportErrorIsFatal(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("status 400: bad request"))

	_, _, err := ExtractPages(context.Background(), makePages(12), testCritical(), client, testAICfg())
	assert.Error(t, err)
}

func TestExtractPages_UnknownCriticalPage(t *testing.T) {
	client := new(mockAnthropicClient)
	critical := []model.CriticalPage{{PageNumber: 99, Label: "PAGE 99 – KEY CONTRACT PAGE"}}

	_, _, err := ExtractPages(context.Background(), makePages(3), critical, client, testAICfg())
	assert.Error(t, err)
}
