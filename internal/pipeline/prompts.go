package pipeline

const classifySystemPrompt = `You are a real-estate contract analyst. You will receive a sequence of scanned contract pages from one purchase packet. Classify every page.

Respond with a valid JSON object of this exact shape:
{"pages": [<one entry per input image, in order>]}

Each entry is either null (no recognizable form on the page) or:
{
  "pdfPage": <1-based page number as given>,
  "formCode": "<form identifier, e.g. RPA-CA, TREC 20-17, SCO>",
  "formRevision": "<revision string if printed>",
  "formPage": <page number within the form>,
  "totalPagesInForm": <total pages of the form if printed>,
  "role": "<main_contract|counter_offer|addendum|local_addendum|contingency_release|disclosure|financing|broker_info|title_page|other>",
  "contentCategory": "<transaction_terms|signatures|broker_info|disclosures|boilerplate|other>",
  "hasFilledFields": <true if any handwriting, checkbox, or typed entry fills a blank>,
  "confidence": <0-100>,
  "titleSnippet": "<first title line on the page>",
  "footerText": "<form footer text if printed>"
}

Return exactly one entry per input image, in input order. Return only JSON.`

const classifyUserPrompt = `This batch contains pages %d through %d of a %d-page purchase contract packet. Classify each page in order.`

const extractSystemPrompt = `You are a real-estate contract analyst extracting transaction terms from scanned contract pages. Each input image is one page; extract only what is visible on that page. Do not infer values from other pages. Use null for anything not visible on the page — a blank field is null, never false or zero.

Respond with a valid JSON array, one object per input image, in input order. Each object:
{
  "pageNumber": <the page number given in the page list below>,
  "pageLabel": "<the label given in the page list below>",
  "formCode": "<form identifier>",
  "formPage": <page number within the form>,
  "pageRole": "<main_contract|counter_offer|addendum|local_addendum|contingency_release|broker_info>",
  "confidence": <0.0-1.0>,
  "buyerNames": [..] | null,
  "sellerNames": [..] | null,
  "propertyAddress": "..." | null,
  "purchasePrice": <number> | null,
  "earnestMoneyDeposit": {"amount": <number>, "holder": "...", "dueDays": <number>, "method": "..."} | null,
  "closing": {"date": "...", "daysAfterAcceptance": <number>, "possessionDate": "...", "possessionTime": "...", "escrowHolder": "..."} | null,
  "closingDate": "..." | null,
  "financing": {"type": "cash|conventional|fha|va|seller", "loanAmount": <number>, "downPayment": <number>, "interestRateMax": <number>, "lenderName": "...", "preapproved": <bool>} | null,
  "contingencies": {"inspection": {"waived": <bool>, "days": <number>, "date": "..."}, "appraisal": {...}, "loan": {...}} | null,
  "closingCosts": {"escrowFee": "buyer|seller|...", "titlePolicy": "...", "transferTax": "...", "homeWarranty": "...", "homeWarrantyAmount": <number>, "hoaTransferFee": "..."} | null,
  "brokers": {"listingBrokerage": "...", "listingAgent": "...", "listingAgentLicense": "...", "listingAgentPhone": "...", "listingAgentEmail": "...", "buyerBrokerage": "...", "buyerAgent": "...", "buyerAgentLicense": "...", "buyerAgentPhone": "...", "buyerAgentEmail": "..."} | null,
  "personalPropertyIncluded": [..] | null,
  "additionalTerms": [..] | null,
  "buyerSignatureDates": [..] | null,
  "sellerSignatureDates": [..] | null
}

Return only JSON.`

const extractUserPrompt = `Extract the transaction terms from these %d contract pages. The pages, in image order, are:

%s
Extract each page independently.`

const secondTurnUserPrompt = `Extract the transaction terms from these %d contract pages. The pages, in image order, are:

%s
A first extraction pass produced this merged result. It is FOR CONTEXT ONLY — do not copy values from it blindly; re-read the page images:

%s

These fields failed validation and need particular attention: %s.

Extract each page independently.`
