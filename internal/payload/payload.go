// Package payload turns typed user input into the exact string handed to the
// QR matrix codec. Each data kind is its own type carrying its own fields;
// Parse is the only constructor and rejects inputs missing a required field.
package payload

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind is the logical data type of a payload.
type Kind string

const (
	KindURL   Kind = "url"
	KindText  Kind = "text"
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
	KindWiFi  Kind = "wifi"
	KindSMS   Kind = "sms"
	KindRaw   Kind = "raw"
)

// AllKinds lists every kind Parse understands.
var AllKinds = []Kind{KindURL, KindText, KindEmail, KindPhone, KindWiFi, KindSMS, KindRaw}

var (
	// ErrEmptyPayload is returned when the required field of a kind is
	// missing or blank. Callers must not proceed to rendering.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrStructuredData is returned for structured input of an unknown kind.
	ErrStructuredData = errors.New("structured data is not supported for this type")
)

// Fields is the structured user input, keyed by form field name.
type Fields map[string]string

// first returns the first non-blank value among keys, in priority order.
func (f Fields) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(f[k]); v != "" {
			return f[k]
		}
	}
	return ""
}

// Payload is implemented by exactly one struct per Kind.
type Payload interface {
	Kind() Kind
	String() string
	sealed()
}

type URL struct{ Value string }
type Text struct{ Value string }
type Email struct{ Address, Subject, Body string }
type Phone struct{ Number string }
type WiFi struct{ SSID, Password, Security string }
type SMS struct{ Number, Message string }
type Raw struct{ Value string }

func (URL) Kind() Kind   { return KindURL }
func (Text) Kind() Kind  { return KindText }
func (Email) Kind() Kind { return KindEmail }
func (Phone) Kind() Kind { return KindPhone }
func (WiFi) Kind() Kind  { return KindWiFi }
func (SMS) Kind() Kind   { return KindSMS }
func (Raw) Kind() Kind   { return KindRaw }

func (URL) sealed()   {}
func (Text) sealed()  {}
func (Email) sealed() {}
func (Phone) sealed() {}
func (WiFi) sealed()  {}
func (SMS) sealed()   {}
func (Raw) sealed()   {}

func (p URL) String() string  { return p.Value }
func (p Text) String() string { return p.Value }
func (p Raw) String() string  { return p.Value }

func (p Email) String() string {
	var params []string
	if p.Subject != "" {
		params = append(params, "subject="+escape(p.Subject))
	}
	if p.Body != "" {
		params = append(params, "body="+escape(p.Body))
	}
	s := "mailto:" + p.Address
	if len(params) > 0 {
		s += "?" + strings.Join(params, "&")
	}
	return s
}

func (p Phone) String() string { return "tel:" + p.Number }

// String uses the sms: URI form for every caller, single and batch alike.
func (p SMS) String() string {
	s := "sms:" + p.Number
	if p.Message != "" {
		s += "?body=" + escape(p.Message)
	}
	return s
}

func (p WiFi) String() string {
	var b strings.Builder
	b.WriteString("WIFI:S:")
	b.WriteString(escapeWiFi(p.SSID))
	b.WriteString(";")
	switch {
	case p.Security == "nopass":
		b.WriteString("T:nopass;")
	case p.Password != "":
		b.WriteString("P:")
		b.WriteString(escapeWiFi(p.Password))
		b.WriteString(";T:")
		b.WriteString(escapeWiFi(p.Security))
		b.WriteString(";")
	}
	b.WriteString(";")
	return b.String()
}

// Parse builds the payload for kind from fields.
func Parse(kind Kind, fields Fields) (Payload, error) {
	var p Payload
	switch kind {
	case KindURL:
		p = URL{Value: fields.first("url", "text", "content", "input")}
	case KindText:
		p = Text{Value: fields.first("url", "text", "content", "input")}
	case KindEmail:
		p = Email{
			Address: fields.first("email", "input"),
			Subject: fields["subject"],
			Body:    fields["body"],
		}
	case KindPhone:
		p = Phone{Number: fields.first("phone", "text", "input")}
	case KindWiFi:
		sec := fields.first("security")
		if sec == "" {
			sec = "WPA"
		}
		p = WiFi{
			SSID:     fields.first("ssid", "input"),
			Password: fields["password"],
			Security: sec,
		}
	case KindSMS:
		p = SMS{
			Number:  fields.first("phone", "number", "input"),
			Message: fields.first("message", "text"),
		}
	case KindRaw:
		p = Raw{Value: fields.first("text", "input", "content")}
	default:
		return nil, fmt.Errorf("unhandled payload kind %q", kind)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// validate enforces the required field of every kind.
func validate(p Payload) error {
	var required string
	switch v := p.(type) {
	case URL:
		required = v.Value
	case Text:
		required = v.Value
	case Email:
		required = v.Address
	case Phone:
		required = v.Number
	case WiFi:
		required = v.SSID
	case SMS:
		required = v.Number
	case Raw:
		required = v.Value
	default:
		return fmt.Errorf("unhandled payload type %T", p)
	}
	if strings.TrimSpace(required) == "" {
		return fmt.Errorf("%w: %s requires a value", ErrEmptyPayload, p.Kind())
	}
	return nil
}

// ParseRaw wraps an already-encoded string.
func ParseRaw(s string) (Payload, error) {
	return Parse(KindRaw, Fields{"text": s})
}

// IsKnown reports whether dataType names a kind other than raw.
func IsKnown(dataType string) bool {
	for _, k := range AllKinds {
		if k != KindRaw && string(k) == dataType {
			return true
		}
	}
	return false
}

// Encode converts a typed input record into the codec string. Unknown types
// are not accepted here since fields are always structured; use Decode for
// request bodies that may carry a bare string.
func Encode(dataType string, fields map[string]string) (string, error) {
	kind := Kind(strings.ToLower(dataType))
	if !IsKnown(string(kind)) && kind != KindRaw {
		return "", fmt.Errorf("%w: %q", ErrStructuredData, dataType)
	}
	p, err := Parse(kind, fields)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// escape percent-encodes a query value with %20 for spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var wifiEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `"`, `\"`, `:`, `\:`)

func escapeWiFi(s string) string {
	return wifiEscaper.Replace(s)
}
