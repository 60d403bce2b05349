package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/shopspring/decimal"
)

// Fields is a flattened payload. Nested JSON objects are addressed with
// dotted keys, e.g. "data.transaction_id".
type Fields map[string]string

func FlattenJSON(body []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root map[string]interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedPayload, err)
	}

	fields := Fields{}
	flatten(fields, "", root)
	return fields, nil
}

func flatten(fields Fields, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			name := key
			if prefix != "" {
				name = prefix + "." + key
			}
			flatten(fields, name, child)
		}
	case string:
		fields[prefix] = v
	case json.Number:
		fields[prefix] = v.String()
	case bool:
		fields[prefix] = strconv.FormatBool(v)
	}
}

func FlattenQuery(query url.Values) Fields {
	fields := Fields{}
	for key, values := range query {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields
}

// Lookup returns the first non-empty value among aliases, in order.
func (f Fields) Lookup(aliases []string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := f[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// FieldSchema lists, per logical field, the names a provider has been seen
// to use for it. Earlier aliases win.
type FieldSchema struct {
	TransactionID []string
	Status        []string
	Amount        []string
	Currency      []string
	ErrorMessage  []string
}

type Extracted struct {
	TransactionID string
	Status        string
	Amount        decimal.NullDecimal
	Currency      string
	ErrorMessage  string
}

// Extract fails with ErrMalformedPayload naming the missing field when no
// alias of a required field is present.
func (s FieldSchema) Extract(fields Fields) (Extracted, error) {
	var out Extracted

	txID, ok := fields.Lookup(s.TransactionID)
	if !ok {
		return out, fmt.Errorf("%w: transaction id not found in any of %v", errs.ErrMalformedPayload, s.TransactionID)
	}
	out.TransactionID = txID

	status, ok := fields.Lookup(s.Status)
	if !ok {
		return out, fmt.Errorf("%w: status not found in any of %v", errs.ErrMalformedPayload, s.Status)
	}
	out.Status = status

	if raw, ok := fields.Lookup(s.Amount); ok {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return out, fmt.Errorf("%w: amount %q: %v", errs.ErrMalformedPayload, raw, err)
		}
		out.Amount = decimal.NewNullDecimal(amount)
	}

	out.Currency, _ = fields.Lookup(s.Currency)
	out.ErrorMessage, _ = fields.Lookup(s.ErrorMessage)

	return out, nil
}
