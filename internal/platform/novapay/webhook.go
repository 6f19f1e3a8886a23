// Package novapay implements the NovaPay gateway adapters: webhook parsing
// and validation, source-IP checks, and the outbound REST client.
package novapay

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopstack/novapay-connector/internal/core/domain"
)

// requiredFields lists, per top-level category, the fields that must be
// present before a webhook is processed.
var requiredFields = []struct {
	category string
	fields   []string
}{
	{"event", []string{"type", "checksum", "tid"}},
	{"merchant", []string{"vendor", "project"}},
	{"result", []string{"status"}},
	{"transaction", []string{"tid", "payment_type", "status"}},
}

// ParseNotification decodes an inbound webhook body into the typed model.
// The gateway sends either a single JSON object or a one-element array;
// both are accepted. Mandatory-field validation runs here, before any
// checksum or routing logic touches the payload.
func ParseNotification(body []byte) (*domain.WebhookNotification, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, domain.NewServiceError(domain.ErrMissingField,
				"webhook body is not valid JSON", "PARSE_ERROR")
		}
		if len(items) == 0 {
			return nil, domain.NewServiceError(domain.ErrMissingField,
				"webhook body is an empty array", "PARSE_ERROR")
		}
		trimmed = items[0]
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, domain.NewServiceError(domain.ErrMissingField,
			"webhook body is not valid JSON", "PARSE_ERROR")
	}

	if err := checkRequiredFields(raw); err != nil {
		return nil, err
	}

	var n domain.WebhookNotification
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, domain.NewServiceError(domain.ErrMissingField,
			"webhook body does not match the expected shape", "PARSE_ERROR")
	}

	// Keep members the typed model does not cover.
	n.Raw = make(map[string]json.RawMessage)
	for k, v := range raw {
		switch k {
		case "event", "merchant", "result", "transaction", "custom":
		default:
			n.Raw[k] = v
		}
	}

	return &n, nil
}

// checkRequiredFields asserts each category object and its mandatory fields
// exist, failing on the first miss.
func checkRequiredFields(raw map[string]json.RawMessage) error {
	for _, cat := range requiredFields {
		obj, ok := raw[cat.category]
		if !ok || isJSONNull(obj) {
			return domain.NewServiceError(domain.ErrMissingField,
				fmt.Sprintf("required parameter %q is missing", cat.category),
				"MISSING_CATEGORY")
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(obj, &fields); err != nil {
			return domain.NewServiceError(domain.ErrMissingField,
				fmt.Sprintf("parameter %q is not an object", cat.category),
				"MISSING_CATEGORY")
		}

		for _, f := range cat.fields {
			v, ok := fields[f]
			if !ok || isJSONNull(v) || isEmptyJSONString(v) {
				return domain.NewServiceError(domain.ErrMissingField,
					fmt.Sprintf("required parameter %q is missing in %q", f, cat.category),
					"MISSING_FIELD")
			}
		}
	}
	return nil
}

func isJSONNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func isEmptyJSONString(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte(`""`))
}
