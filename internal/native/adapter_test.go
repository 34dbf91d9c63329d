package native

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/localstack/lambda-native-bridge/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoEntry behaves like a well-mannered native handler: it copies the configured
// response into the areas it was given, clamped to their capacities.
type echoEntry struct {
	contentType string
	body        []byte
	exitCode    int32

	calls []CallArgs
}

func (e *echoEntry) Call(args *CallArgs) int {
	e.calls = append(e.calls, *args)
	copy(args.ContentType, e.contentType)
	n := copy(args.Body, e.body)
	args.ExitCode = e.exitCode
	return n
}

func newTestAdapter(t *testing.T, entry Entrypoint, bodySize, contentTypeSize int) *Adapter {
	t.Helper()
	buffers, err := NewBuffers(bodySize, contentTypeSize)
	require.NoError(t, err)
	return NewAdapter(entry, buffers)
}

func TestAdapterCall(t *testing.T) {
	entry := &echoEntry{contentType: "Application/JSON; charset=UTF-8", body: []byte(`{"ok":true}`), exitCode: 0}
	adapter := newTestAdapter(t, entry, 64, 32)

	result, err := adapter.Call(context.Background(), Request{
		HandlerName: "main.Hello",
		Payload:     []byte(`{"event":{},"context":{}}`),
		Credentials: credentials.Credentials{AccessKey: "AKID", SecretKey: "SECRET", SessionToken: "TOKEN"},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json; charset=utf-8", result.ContentType)
	assert.Equal(t, []byte(`{"ok":true}`), result.Body)
	assert.Equal(t, len(`{"ok":true}`), result.BytesWritten)
	assert.Equal(t, 0, result.ExitCode)

	require.Len(t, entry.calls, 1)
	call := entry.calls[0]
	assert.Equal(t, []byte("main.Hello\x00"), call.HandlerName)
	assert.Equal(t, []byte("AKID\x00"), call.AccessKey)
	assert.Equal(t, []byte("SECRET\x00"), call.SecretKey)
	assert.Equal(t, []byte("TOKEN\x00"), call.SessionToken)
	assert.Len(t, call.ContentType, 32)
	// one byte of the body area is reserved for the terminator
	assert.Len(t, call.Body, 63)
}

func TestAdapterPassesNullSessionToken(t *testing.T) {
	entry := &echoEntry{contentType: "text/plain", body: []byte("hi")}
	adapter := newTestAdapter(t, entry, 16, 16)

	_, err := adapter.Call(context.Background(), Request{
		HandlerName: "h",
		Payload:     []byte("{}"),
		Credentials: credentials.Credentials{AccessKey: "a", SecretKey: "s"},
	})
	require.NoError(t, err)
	assert.Nil(t, entry.calls[0].SessionToken)
}

func TestAdapterZeroesBuffersBetweenCalls(t *testing.T) {
	entry := &echoEntry{contentType: "application/octet-stream", body: bytes.Repeat([]byte("A"), 40)}
	adapter := newTestAdapter(t, entry, 64, 64)

	long, err := adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
	require.NoError(t, err)
	assert.Len(t, long.Body, 40)

	// the second handler writes less and does not report its length at all
	short := EntrypointFunc(func(args *CallArgs) int {
		copy(args.ContentType, "text")
		copy(args.Body, "B")
		assert.Equal(t, make([]byte, len(args.Body)-1), args.Body[1:], "body area was not zeroed")
		assert.Equal(t, make([]byte, len(args.ContentType)-4), args.ContentType[4:], "content type area was not zeroed")
		return len(args.Body)
	})
	adapter.entry = short

	result, err := adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, "text", result.ContentType)
	assert.Equal(t, byte('B'), result.Body[0])
	assert.NotContains(t, string(result.Body), "A")
}

func TestAdapterClampsBytesWritten(t *testing.T) {
	tests := []struct {
		name     string
		reported int
		expected int
	}{
		{"negative", -5, 0},
		{"beyond capacity", 1 << 20, 15},
		{"exact", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := EntrypointFunc(func(args *CallArgs) int {
				copy(args.Body, "abc")
				return tt.reported
			})
			adapter := newTestAdapter(t, entry, 16, 8)

			result, err := adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.BytesWritten)
			assert.Len(t, result.Body, tt.expected)
		})
	}
}

func TestAdapterResultDoesNotAliasBuffers(t *testing.T) {
	entry := &echoEntry{contentType: "text/plain", body: []byte("first")}
	adapter := newTestAdapter(t, entry, 16, 16)

	first, err := adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
	require.NoError(t, err)

	entry.body = []byte("xxxxx")
	_, err = adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
	require.NoError(t, err)

	assert.Equal(t, []byte("first"), first.Body)
}

func TestAdapterReadsContentTypeUntilTerminator(t *testing.T) {
	entry := EntrypointFunc(func(args *CallArgs) int {
		copy(args.ContentType, "TEXT/HTML\x00garbage")
		return 0
	})
	adapter := newTestAdapter(t, entry, 8, 32)

	result, err := adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, "text/html", result.ContentType)
}

func TestAdapterRejectsUnencodableArguments(t *testing.T) {
	called := false
	adapter := newTestAdapter(t, EntrypointFunc(func(args *CallArgs) int {
		called = true
		return 0
	}), 8, 8)

	tests := []Request{
		{HandlerName: "bad\x00name", Payload: []byte("{}")},
		{HandlerName: "h", Payload: []byte{0xff, 0xfe}},
		{HandlerName: "h", Payload: []byte("{}"), Credentials: credentials.Credentials{SessionToken: "\x00"}},
	}
	for _, req := range tests {
		_, err := adapter.Call(context.Background(), req)
		var encodingErr *EncodingError
		assert.True(t, errors.As(err, &encodingErr), "expected EncodingError, got %v", err)
	}
	assert.False(t, called)
}

func TestAdapterSerializesCalls(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		overlap bool
	)
	entry := EntrypointFunc(func(args *CallArgs) int {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return 0
	})
	adapter := newTestAdapter(t, entry, 8, 8)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adapter.Call(context.Background(), Request{HandlerName: "h", Payload: []byte("{}")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
}
