package decode

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDirectly(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestDecodeJSON(t *testing.T) {
	bodies := []string{
		`{"ok":true}`,
		`[1, 2.5, "three", null, {"nested": [false]}]`,
		`"just a string"`,
		`12345678901234567890`,
		`  {"padded": 1}  `,
	}
	for _, contentType := range []string{"application/json", "application/json; charset=utf-8", "APPLICATION/VND.API+JSON", "text/x-json"} {
		for _, body := range bodies {
			result := Decode(contentType, []byte(body))
			require.Equal(t, KindStructured, result.Kind, "%s %s", contentType, body)
			assert.Equal(t, parseDirectly(t, body), result.Value)
		}
	}
}

func TestDecodeJSONExample(t *testing.T) {
	result := Decode("application/json; charset=utf-8", []byte(`{"ok":true}`))

	require.Equal(t, KindStructured, result.Kind)
	assert.Equal(t, map[string]any{"ok": true}, result.Value)
}

func TestDecodeInvalidJSONFallsBackToText(t *testing.T) {
	for _, body := range []string{
		`{"ok":`,
		`not json at all`,
		`{"a":1} {"b":2}`,
		``,
	} {
		result := Decode("application/json", []byte(body))
		require.Equal(t, KindText, result.Kind, body)
		assert.Equal(t, body, result.Text)
	}
}

func TestDecodeJSONStopsAtTerminator(t *testing.T) {
	result := Decode("application/json", []byte("{\"ok\":true}\x00\x00stale"))

	require.Equal(t, KindStructured, result.Kind)
	assert.Equal(t, map[string]any{"ok": true}, result.Value)
}

func TestDecodeBinaryKeepsExactBytes(t *testing.T) {
	body := []byte{0x00, 0xff, 'j', 's', 'o', 'n', 0x00, 0x10}
	for _, contentType := range []string{"application/octet-stream", "binary/octet-stream", "application/x-binary", "image/png+binary"} {
		result := Decode(contentType, body)
		require.Equal(t, KindBinary, result.Kind, contentType)
		assert.Equal(t, body, result.Bytes)
	}
}

func TestDecodeBinaryDoesNotAlias(t *testing.T) {
	body := []byte("abc")
	result := Decode("application/octet-stream", body)
	body[0] = 'X'

	assert.Equal(t, []byte("abc"), result.Bytes)
}

func TestDecodeJSONWinsOverBinary(t *testing.T) {
	result := Decode("application/json+binary", []byte(`[1]`))

	assert.Equal(t, KindStructured, result.Kind)
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		contentType string
		body        []byte
		expected    string
	}{
		{"text/plain", []byte("hello"), "hello"},
		{"", []byte("no content type"), "no content type"},
		{"text/html", []byte("<p>hi</p>\x00residue"), "<p>hi</p>"},
		{"text/plain", []byte("\x00"), ""},
	}
	for _, tt := range tests {
		result := Decode(tt.contentType, tt.body)
		require.Equal(t, KindText, result.Kind)
		assert.Equal(t, tt.expected, result.Text)
	}
}

func TestResultMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		result   *Result
		expected string
	}{
		{"structured", Decode("application/json", []byte(`{"n":12345678901234567890}`)), `{"n":12345678901234567890}`},
		{"binary", Decode("application/octet-stream", []byte{0x01, 0x02}), `"AQI="`},
		{"text", Decode("text/plain", []byte(`say "hi"`)), `"say \"hi\""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(b))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "structured", KindStructured.String())
	assert.Equal(t, "binary", KindBinary.String())
	assert.Equal(t, "text", KindText.String())
}
