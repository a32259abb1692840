package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Decode adapts the "data" member of a generation request. A JSON string is
// treated as {"text": s} for known types and passed through verbatim for
// unknown ones; a JSON object is flattened into Fields.
func Decode(dataType string, data json.RawMessage) (Payload, Fields, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(dataType)))
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil, fmt.Errorf("%w: data is required", ErrEmptyPayload)
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, nil, fmt.Errorf("decode data: %w", err)
		}
		fields := Fields{"text": s}
		if !IsKnown(string(kind)) {
			p, err := ParseRaw(s)
			return p, fields, err
		}
		p, err := Parse(kind, fields)
		return p, fields, err
	}

	if data[0] != '{' {
		return nil, nil, fmt.Errorf("%w: data must be a string or an object", ErrStructuredData)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, nil, fmt.Errorf("decode data: %w", err)
	}
	if !IsKnown(string(kind)) {
		return nil, nil, fmt.Errorf("%w: %q", ErrStructuredData, dataType)
	}
	fields := make(Fields, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case string:
			fields[k] = t
		case float64:
			fields[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			fields[k] = strconv.FormatBool(t)
		case nil:
		default:
			return nil, nil, fmt.Errorf("%w: field %q is not a scalar", ErrStructuredData, k)
		}
	}
	p, err := Parse(kind, fields)
	return p, fields, err
}
