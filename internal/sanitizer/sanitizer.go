// Package sanitizer implements best-effort tainting detection and
// rewriting of read-path responses before they reach the agent, guarding
// against contract return data crafted as a prompt-injection payload
// against the agent's own reasoning loop. A sanitizer failure leaves the
// original response untouched and logs a warning — it never rejects a
// read.
package sanitizer

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Sanitizer inspects a read-path response for injected content and, if
// found, returns a cleaned replacement.
type Sanitizer interface {
	Sanitize(result json.RawMessage) (tainted bool, detail []string, rewritten json.RawMessage, err error)
}

// Methods is the closed subset of read methods eligible for
// sanitization (receipt/log/call/transaction returns).
var Methods = map[string]struct{}{
	"eth_getTransactionReceipt": {},
	"eth_getLogs":               {},
	"eth_call":                  {},
	"eth_getTransactionByHash":  {},
}

// Eligible reports whether method is in the closed sanitize subset.
func Eligible(method string) bool {
	_, ok := Methods[method]
	return ok
}

// Apply runs sanitizer over result if enabled and method is eligible. On
// any internal sanitizer failure, it logs a warning and returns the
// original result unchanged — a READ path never turns a sanitizer bug
// into a rejected request.
func Apply(log *zap.Logger, sanitizer Sanitizer, enabled bool, method string, result json.RawMessage) json.RawMessage {
	if !enabled || !Eligible(method) || sanitizer == nil {
		return result
	}

	tainted, detail, rewritten, err := sanitizer.Sanitize(result)
	if err != nil {
		log.Warn("response sanitization failed, forwarding original", zap.String("method", method), zap.Error(err))
		return result
	}
	if !tainted {
		return result
	}

	log.Warn("response sanitized: possible injected content in contract return data",
		zap.String("method", method), zap.Strings("detail", detail))
	return rewritten
}

// NoopSanitizer is a pass-through implementation used when no real
// sanitizer collaborator is wired, keeping Apply's signature uniform.
type NoopSanitizer struct{}

func (NoopSanitizer) Sanitize(result json.RawMessage) (bool, []string, json.RawMessage, error) {
	return false, nil, result, nil
}

// ControlCharSanitizer is the default Sanitizer: it walks every string
// leaf of result and strips characters commonly used to smuggle
// instructions into an LLM agent's context from contract return data —
// zero-width joiners/spaces and bidi-override marks. A malicious
// contract cannot hide an injected instruction behind invisible
// formatting characters if those characters never survive the read
// path.
type ControlCharSanitizer struct{}

var suspiciousRunes = map[rune]struct{}{
	'​': {}, // zero-width space
	'‌': {}, // zero-width non-joiner
	'‍': {}, // zero-width joiner
	'‎': {}, // left-to-right mark
	'‏': {}, // right-to-left mark
	'⁠': {}, // word joiner
	0xFEFF: {}, // BOM / zero-width no-break space (written as a number: a literal BOM is not allowed in Go source)
	'‪': {}, // left-to-right embedding
	'‫': {}, // right-to-left embedding
	'‬': {}, // pop directional formatting
	'‭': {}, // left-to-right override
	'‮': {}, // right-to-left override
}

func (ControlCharSanitizer) Sanitize(result json.RawMessage) (bool, []string, json.RawMessage, error) {
	var value interface{}
	if err := json.Unmarshal(result, &value); err != nil {
		return false, nil, result, err
	}

	var detail []string
	cleaned := scrubValue(value, &detail)
	if len(detail) == 0 {
		return false, nil, result, nil
	}

	rewritten, err := json.Marshal(cleaned)
	if err != nil {
		return false, nil, result, err
	}
	return true, detail, rewritten, nil
}

func scrubValue(v interface{}, detail *[]string) interface{} {
	switch val := v.(type) {
	case string:
		return scrubString(val, detail)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = scrubValue(item, detail)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = scrubValue(item, detail)
		}
		return out
	default:
		return v
	}
}

func scrubString(s string, detail *[]string) string {
	found := false
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if _, bad := suspiciousRunes[r]; bad {
			found = true
			continue
		}
		out = append(out, r)
	}
	if found {
		*detail = append(*detail, "stripped hidden-formatting characters from a string field")
	}
	return string(out)
}
