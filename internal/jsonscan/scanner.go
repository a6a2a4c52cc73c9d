// Package jsonscan recovers JSON values from untrusted model output.
// Vision models are instructed to return bare JSON but routinely wrap it
// in markdown fences, preamble prose, or trailing commentary, so the
// scanner walks the text for balanced brace/bracket spans instead of
// trusting the whole response to unmarshal.
package jsonscan

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// maxCandidates bounds how many balanced spans are attempted before
// giving up. The first span is occasionally a JSON fragment quoted in
// the model's own preamble; one retry at the next boundary recovers
// those responses.
const maxCandidates = 2

// FirstObject scans text for the first balanced {...} span that
// unmarshals into dst. On unmarshal failure it retries from the next
// opening brace before giving up.
func FirstObject(text string, dst any) error {
	return first(text, '{', '}', dst)
}

// FirstArray scans text for the first balanced [...] span that
// unmarshals into dst, with the same retry behavior as FirstObject.
func FirstArray(text string, dst any) error {
	return first(text, '[', ']', dst)
}

func first(text string, open, close byte, dst any) error {
	text = stripFences(text)

	var lastErr error
	offset := 0
	for attempt := 0; attempt < maxCandidates; attempt++ {
		start := strings.IndexByte(text[offset:], open)
		if start < 0 {
			break
		}
		start += offset

		span, ok := balancedSpan(text[start:], open, close)
		if !ok {
			lastErr = eris.Errorf("jsonscan: unbalanced %q at offset %d", string(open), start)
			break
		}

		err := json.Unmarshal([]byte(text[start:start+span]), dst)
		if err == nil {
			return nil
		}
		lastErr = eris.Wrap(err, "jsonscan: unmarshal candidate")

		offset = start + 1
	}

	if lastErr == nil {
		lastErr = eris.Errorf("jsonscan: no %q found in %d bytes of text", string(open), len(text))
	}
	return lastErr
}

// balancedSpan returns the length of the balanced span starting at
// text[0] (which must be the open byte). String literals and escape
// sequences are honored so braces inside extracted field values do not
// corrupt the depth count.
func balancedSpan(text string, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// stripFences removes a leading markdown code fence (``` or ```json)
// and its closing fence so fenced responses scan like bare ones.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
