package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/contract-extract/pkg/anthropic"
)

func isClassify(req anthropic.MessageRequest) bool {
	return req.System == classifySystemPrompt
}

func isFirstTurnExtract(req anthropic.MessageRequest) bool {
	return req.System == extractSystemPrompt &&
		!strings.Contains(req.Messages[0].Content, "FOR CONTEXT ONLY")
}

func isSecondTurnExtract(req anthropic.MessageRequest) bool {
	return req.System == extractSystemPrompt &&
		strings.Contains(req.Messages[0].Content, "FOR CONTEXT ONLY")
}

const goodExtraction = `[
  {"pageNumber":1,"pageLabel":"RPA p.1/10 – TRANSACTION_TERMS (FILLED)","formCode":"RPA","pageRole":"main_contract","confidence":95,
   "buyerNames":["Jane Buyer"],"sellerNames":["Sam Seller"],"propertyAddress":"12 Elm St, Springfield",
   "purchasePrice":"$500,000","buyerSignatureDates":["03/15/2024"],"sellerSignatureDates":["03/14/2024"],
   "closing":{"daysAfterAcceptance":30}},
  {"pageNumber":2,"pageLabel":"RPA p.2/10 – TRANSACTION_TERMS (FILLED)","formCode":"RPA","pageRole":"main_contract","confidence":92,
   "contingencies":{"inspection":{"days":17}}}
]`

const zeroPriceExtraction = `[
  {"pageNumber":1,"pageLabel":"RPA p.1/10 – TRANSACTION_TERMS (FILLED)","formCode":"RPA","pageRole":"main_contract","confidence":95,
   "buyerNames":["Jane Buyer"],"sellerNames":["Sam Seller"],"propertyAddress":"12 Elm St, Springfield",
   "purchasePrice":0,"buyerSignatureDates":["03/15/2024"],"sellerSignatureDates":["03/14/2024"]},
  {"pageNumber":2,"pageLabel":"RPA p.2/10 – TRANSACTION_TERMS (FILLED)","formCode":"RPA","pageRole":"main_contract","confidence":92}
]`

func TestPipeline_HappyPath(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isClassify)).
		Return(textResponse(classificationJSON(1, 2)), nil)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isFirstTurnExtract)).
		Return(textResponse(goodExtraction), nil)

	p := New(client, testConfig(), nil)
	result, err := p.Extract(context.Background(), makePages(2))
	assert.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 500000.0, result.FinalTerms.PurchasePrice.Float())
	assert.Equal(t, "2024-03-15", *result.FinalTerms.EffectiveDate)
	assert.Equal(t, "2024-04-14", *result.FinalTerms.CloseOfEscrowDate)
	assert.Equal(t, "2024-04-01", *result.FinalTerms.Contingencies.Inspection.CalculatedDeadline)
	assert.False(t, result.NeedsReview)
	assert.False(t, result.Details.SecondTurnRan)
	assert.Equal(t, 1, result.Details.Provenance.Page("purchasePrice"))
	assert.NotEmpty(t, result.Details.MergeLog)
	assert.NotEmpty(t, result.Details.AuditLog)
	assert.Positive(t, result.Usage.Total())
	assert.Positive(t, result.CostUSD)
}

func TestPipeline_ZeroPriceTriggersSecondTurn(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isClassify)).
		Return(textResponse(classificationJSON(1, 2)), nil)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isFirstTurnExtract)).
		Return(textResponse(zeroPriceExtraction), nil)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isSecondTurnExtract)).
		Return(textResponse(goodExtraction), nil)

	p := New(client, testConfig(), nil)
	result, err := p.Extract(context.Background(), makePages(2))
	assert.NoError(t, err)
	assert.True(t, result.Details.SecondTurnRan)
	assert.Equal(t, 500000.0, result.FinalTerms.PurchasePrice.Float())
	assert.False(t, result.Validation.NeedsSecondTurn)
	client.AssertExpectations(t)
}

func TestPipeline_SecondTurnFailureDegradesGracefully(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isClassify)).
		Return(textResponse(classificationJSON(1, 2)), nil)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isFirstTurnExtract)).
		Return(textResponse(zeroPriceExtraction), nil)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isSecondTurnExtract)).
		Return(nil, eris.New("status 400: bad request"))

	p := New(client, testConfig(), nil)
	result, err := p.Extract(context.Background(), makePages(2))
	assert.NoError(t, err)
	// First-turn result survives, still flagged for review.
	assert.False(t, result.Details.SecondTurnRan)
	assert.Equal(t, 0.0, result.FinalTerms.PurchasePrice.Float())
	assert.True(t, result.NeedsReview)
	assert.True(t, result.Validation.NeedsSecondTurn)
}

func TestPipeline_ClassificationFailureIsFatal(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isClassify)).
		Return(nil, eris.New("status 400: bad request"))

	p := New(client, testConfig(), nil)
	_, err := p.Extract(context.Background(), makePages(2))
	assert.Error(t, err)
}

func TestPipeline_NoCriticalPagesFallsBackToPacketHead(t *testing.T) {
	// Everything classifies as disclosure; the selector returns nothing
	// and the pipeline force-includes the packet head.
	disclosures := `{"pages":[
	  {"pdfPage":1,"formCode":"TDS","role":"disclosure","contentCategory":"disclosures","hasFilledFields":true,"confidence":90},
	  {"pdfPage":2,"formCode":"TDS","role":"disclosure","contentCategory":"disclosures","hasFilledFields":true,"confidence":90}
	]}`

	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(isClassify)).
		Return(textResponse(disclosures), nil)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return isFirstTurnExtract(req) &&
			len(req.Messages[0].Images) == 2 &&
			strings.Contains(req.Messages[0].Content, "KEY CONTRACT PAGE")
	})).Return(textResponse(goodExtraction), nil)

	p := New(client, testConfig(), nil)
	result, err := p.Extract(context.Background(), makePages(2))
	assert.NoError(t, err)
	assert.Len(t, result.Details.CriticalPages, 2)
	client.AssertExpectations(t)
}

func TestPipeline_NoPages(t *testing.T) {
	p := New(new(mockAnthropicClient), testConfig(), nil)
	_, err := p.Extract(context.Background(), nil)
	assert.Error(t, err)
}
