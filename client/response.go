package client

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Kind identifies how a response body was decoded.
type Kind int

const (
	// KindBinary is an opaque byte sequence; the default for unrecognized content types.
	KindBinary Kind = iota
	// KindText is a UTF-8 string.
	KindText
	// KindJSON is a syntactically valid JSON document.
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindText:
		return "text"
	default:
		return "binary"
	}
}

// Body is a decoded response body.
type Body struct {
	kind Kind
	data []byte
}

// Kind reports how the body was decoded.
func (b Body) Kind() Kind { return b.kind }

// Len returns the body length in bytes. An empty successful
// response has length zero whatever its kind.
func (b Body) Len() int { return len(b.data) }

// Bytes returns the raw body.
func (b Body) Bytes() []byte { return b.data }

// String returns the body as text.
func (b Body) String() string { return string(b.data) }

// Decode unmarshals a JSON body into v.
func (b Body) Decode(v any) error {
	if b.kind != KindJSON {
		return malformed("expected json body, got %s", b.kind)
	}
	if err := json.Unmarshal(b.data, v); err != nil {
		return malformed("decoding body: %v", err)
	}

	return nil
}

// kindOf selects the decoder for a Content-Type header value.
func kindOf(contentType string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return KindJSON
	case strings.Contains(ct, "text"):
		return KindText
	default:
		return KindBinary
	}
}

var decoders = map[Kind]func(raw []byte) (Body, error){
	KindJSON:   decodeJSON,
	KindText:   decodeText,
	KindBinary: decodeBinary,
}

func decodeJSON(raw []byte) (Body, error) {
	if !json.Valid(raw) {
		return Body{}, malformed("invalid json body of %d bytes", len(raw))
	}
	return Body{kind: KindJSON, data: raw}, nil
}

func decodeText(raw []byte) (Body, error) {
	return Body{kind: KindText, data: []byte(strings.ToValidUTF8(string(raw), "�"))}, nil
}

func decodeBinary(raw []byte) (Body, error) {
	return Body{kind: KindBinary, data: raw}, nil
}

// decode picks a decoder by content type. Error responses that claim to
// be JSON but aren't are kept as text so the message survives.
func decode(contentType string, raw []byte, ok bool) (Body, error) {
	kind := kindOf(contentType)

	// Empty bodies are common on success (DELETE, PUT ?properties)
	// even when the server labels them JSON.
	if kind == KindJSON && len(raw) == 0 && ok {
		return Body{kind: KindJSON}, nil
	}

	body, err := decoders[kind](raw)
	if err != nil {
		if !ok {
			return decodeText(raw)
		}
		return Body{}, err
	}

	return body, nil
}

// classify turns a decoded response into nil on 2xx, or a typed error.
func classify(method, path string, status int, body Body) error {
	if success(status) {
		return nil
	}

	msg := errorMessage(body)

	if status == http.StatusNotFound {
		switch {
		case strings.Contains(msg, "Unable to find item"):
			return &ItemNotFoundError{Path: path}
		case strings.Contains(msg, "No properties could be found."):
			return errNoProperties
		}
	}

	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    msg,
	}
}

// errorMessage concatenates the messages of a JSON "errors" list, or
// falls back to the body itself.
func errorMessage(body Body) string {
	if body.kind == KindJSON {
		var payload struct {
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := json.Unmarshal(body.data, &payload); err == nil && len(payload.Errors) > 0 {
			var b strings.Builder
			for _, e := range payload.Errors {
				b.WriteString(e.Message)
			}
			return b.String()
		}
	}

	return body.String()
}
