package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// The extractor's JSON output is loosely typed: prices arrive as
// "$510,000", day counts as "17", booleans as "yes". These wrapper
// types coerce those shapes at the unmarshal boundary so the rest of
// the pipeline works with canonical values.

// Number is a float64 that also accepts numeric strings, optionally
// with currency symbols, commas, or surrounding whitespace.
type Number float64

// UnmarshalJSON implements json.Unmarshaler. An uncoercible value
// ("TBD", prose) is a content problem, not a parse failure: it decodes
// as a NaN sentinel that PageExtraction drops to null after decoding,
// so one odd field never discards an otherwise usable response.
func (n *Number) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f, ok := CoerceFloat(v)
	if !ok {
		zap.L().Warn("model: uncoercible number dropped", zap.String("value", string(b)))
		*n = Number(math.NaN())
		return nil
	}
	*n = Number(f)
	return nil
}

// Unparsed reports whether the value is the uncoercible sentinel.
func (n *Number) Unparsed() bool {
	return n != nil && math.IsNaN(float64(*n))
}

// Float returns the underlying float64.
func (n Number) Float() float64 { return float64(n) }

// Int returns the truncated integer value.
func (n Number) Int() int { return int(n) }

// Bool is a bool that also accepts "yes"/"no", "true"/"false", "1"/"0",
// and numeric zero/non-zero.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler. An uncoercible value
// degrades to false: these fields are checkbox reads, and anything
// short of an affirmative mark means unchecked.
func (fb *Bool) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	val, ok := CoerceBool(v)
	if !ok {
		zap.L().Warn("model: uncoercible bool treated as unchecked", zap.String("value", string(b)))
		*fb = false
		return nil
	}
	*fb = Bool(val)
	return nil
}

// StringList is a []string that also accepts a single string or a list
// containing non-string scalars.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = nil
	case string:
		if strings.TrimSpace(t) == "" {
			*s = nil
		} else {
			*s = StringList{t}
		}
	case []any:
		out := make(StringList, 0, len(t))
		for _, item := range t {
			str, ok := CoerceString(item)
			if !ok || strings.TrimSpace(str) == "" {
				continue
			}
			out = append(out, str)
		}
		*s = out
	default:
		str, ok := CoerceString(t)
		if !ok {
			zap.L().Warn("model: uncoercible string list dropped", zap.String("value", string(b)))
			*s = nil
			break
		}
		*s = StringList{str}
	}
	return nil
}

// dropUnparsedNumbers nils out every number field holding the
// uncoercible sentinel, restoring "absent" semantics before the merge
// layer sees the record.
func (t *ContractTerms) dropUnparsedNumbers() {
	dropUnparsed(&t.PurchasePrice)
	if d := t.EarnestMoneyDeposit; d != nil {
		dropUnparsed(&d.Amount)
		dropUnparsed(&d.DueDays)
		dropUnparsed(&d.Increased)
	}
	if c := t.Closing; c != nil {
		dropUnparsed(&c.DaysAfterAcceptance)
	}
	if f := t.Financing; f != nil {
		dropUnparsed(&f.LoanAmount)
		dropUnparsed(&f.DownPayment)
		dropUnparsed(&f.InterestRateMax)
	}
	if cs := t.Contingencies; cs != nil {
		for _, c := range []*Contingency{cs.Inspection, cs.Appraisal, cs.Loan} {
			if c != nil {
				dropUnparsed(&c.Days)
			}
		}
	}
	if cc := t.ClosingCosts; cc != nil {
		dropUnparsed(&cc.HomeWarrantyAmount)
	}
}

func dropUnparsed(n **Number) {
	if (*n).Unparsed() {
		*n = nil
	}
}

// CoerceFloat converts a loosely typed value to a float64. Strings are
// stripped of "$", commas, and whitespace before parsing.
func CoerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		cleaned := strings.TrimSpace(n)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CoerceBool converts a loosely typed value to a bool.
func CoerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "x", "checked", "1":
			return true, true
		case "false", "no", "n", "unchecked", "0", "":
			return false, true
		}
		return false, false
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	default:
		return false, false
	}
}

// CoerceString converts a scalar to its string form. Maps and slices
// are rejected.
func CoerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
