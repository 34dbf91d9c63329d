// Package decode turns the native response into the value returned to the host, based on
// the declared content type.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

type Kind int

const (
	KindText Kind = iota
	KindStructured
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindBinary:
		return "binary"
	default:
		return "text"
	}
}

// Result is one of a structured value, raw bytes or text, depending on Kind.
type Result struct {
	Kind  Kind
	Value any
	Bytes []byte
	Text  string
}

// MarshalJSON serializes the result for the host: structured values as they are, raw bytes
// as a base64 string and text as a JSON string.
func (r *Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindStructured:
		return json.Marshal(r.Value)
	case KindBinary:
		return json.Marshal(r.Bytes)
	default:
		return json.Marshal(r.Text)
	}
}

// Decode applies, in this order: a content type containing "json" yields the parsed body,
// or its text when it does not parse; "octet-stream" or "binary" yields the exact bytes;
// anything else yields the text up to the first NUL. contentType is expected lower-cased.
func Decode(contentType string, body []byte) *Result {
	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "json"):
		text := untilNUL(body)
		value, err := parseJSON(text)
		if err != nil {
			return &Result{Kind: KindText, Text: string(text)}
		}
		return &Result{Kind: KindStructured, Value: value}
	case strings.Contains(contentType, "octet-stream"), strings.Contains(contentType, "binary"):
		return &Result{Kind: KindBinary, Bytes: bytes.Clone(body)}
	default:
		return &Result{Kind: KindText, Text: string(untilNUL(body))}
	}
}

var errTrailingData = errors.New("trailing data after JSON value")

// parseJSON keeps numbers as json.Number so large integers survive the round trip.
func parseJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return value, nil
}

func untilNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
