package annotate

import "encoding/json"

// recordSchema is the JSON schema handed to the annotation API. It
// mirrors the extraction record shape: one sparse object per page, term
// fields null when the page does not show them. Kept deliberately loose
// on nested objects so the defensive decode, not the API, is the
// arbiter of shape.
var recordSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "pageNumber": {"type": "integer"},
          "pageLabel": {"type": "string"},
          "formCode": {"type": "string"},
          "formPage": {"type": "integer"},
          "pageRole": {
            "type": "string",
            "enum": ["main_contract", "counter_offer", "addendum", "local_addendum", "contingency_release", "disclosure", "financing", "broker_info", "title_page", "other"]
          },
          "confidence": {"type": "number"},
          "buyerNames": {"type": "array", "items": {"type": "string"}},
          "sellerNames": {"type": "array", "items": {"type": "string"}},
          "propertyAddress": {"type": ["string", "null"]},
          "purchasePrice": {"type": ["number", "null"]},
          "earnestMoneyDeposit": {"type": ["object", "null"]},
          "closing": {"type": ["object", "null"]},
          "financing": {"type": ["object", "null"]},
          "contingencies": {"type": ["object", "null"]},
          "closingCosts": {"type": ["object", "null"]},
          "brokers": {"type": ["object", "null"]},
          "closingDate": {"type": ["string", "null"]},
          "personalPropertyIncluded": {"type": "array", "items": {"type": "string"}},
          "additionalTerms": {"type": "array", "items": {"type": "string"}},
          "buyerSignatureDates": {"type": "array", "items": {"type": "string"}},
          "sellerSignatureDates": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["pageNumber", "pageRole"]
      }
    }
  },
  "required": ["pages"]
}`)
