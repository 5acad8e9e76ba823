package billing

import (
	"bytes"
	"encoding/json"
)

// InvalidJSONMessage is reported when the model's answer is not a JSON object.
const InvalidJSONMessage = "Invalid JSON response from AI"

// Field defaults applied when the model omits a key.
var (
	defaultCode        = json.RawMessage(`""`)
	defaultDescription = json.RawMessage(`""`)
	defaultUnitPrice   = json.RawMessage(`0.0`)
)

// BillingCode is one extracted line. Values are kept exactly as the model
// wrote them: no type checking, so a quoted unitPrice stays a string.
type BillingCode struct {
	Code        json.RawMessage `json:"code"`
	Description json.RawMessage `json:"description"`
	UnitPrice   json.RawMessage `json:"unitPrice"`
	Unit        int             `json:"unit"`
}

// Result is either a list of codes or a parse error with the raw answer, never both.
type Result struct {
	Codes       []BillingCode
	Error       string
	RawResponse string
}

// Failed reports whether r carries the error shape.
func (r Result) Failed() bool {
	return r.Error != ""
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error       string `json:"error"`
			RawResponse string `json:"raw_response"`
		}{r.Error, r.RawResponse})
	}
	codes := r.Codes
	if codes == nil {
		codes = []BillingCode{}
	}
	return json.Marshal(struct {
		Codes []BillingCode `json:"codes"`
	}{codes})
}

// ParseResult sanitizes raw and maps the JSON object inside onto a single-code Result.
// Anything that is not a JSON object yields the error shape carrying the unsanitized raw text.
func ParseResult(raw string) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(Sanitize(raw)), &fields); err != nil || fields == nil {
		return Result{Error: InvalidJSONMessage, RawResponse: raw}
	}
	return Result{Codes: []BillingCode{{
		Code:        field(fields, "code", defaultCode),
		Description: field(fields, "description", defaultDescription),
		UnitPrice:   field(fields, "unitPrice", defaultUnitPrice),
		Unit:        1,
	}}}
}

// field returns the raw value under key, or def when the key is absent.
// An explicit null is kept.
func field(fields map[string]json.RawMessage, key string, def json.RawMessage) json.RawMessage {
	v, ok := fields[key]
	if !ok {
		return def
	}
	return bytes.TrimSpace(v)
}
