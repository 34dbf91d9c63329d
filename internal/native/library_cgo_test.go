//go:build cgo && linux

package native

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localstack/lambda-native-bridge/internal/credentials"
)

// buildEchoLibrary compiles testdata/echo.c into a shared object.
func buildEchoLibrary(t *testing.T) string {
	t.Helper()
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		t.Skipf("no C compiler available: %s", err)
	}

	out := filepath.Join(t.TempDir(), "libecho.so")
	cmd := exec.Command(cc, "-shared", "-fPIC", "-o", out, filepath.Join("testdata", "echo.c"))
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	return out
}

type echoResponse struct {
	Name            string `json:"name"`
	PayloadLength   int    `json:"payloadLength"`
	AccessKey       string `json:"accessKey"`
	SecretKey       string `json:"secretKey"`
	HasSessionToken bool   `json:"hasSessionToken"`
}

func TestValidateExportOfSharedObject(t *testing.T) {
	path := buildEchoLibrary(t)

	assert.NoError(t, ValidateExport(path, "Lambda"))
	assert.ErrorContains(t, ValidateExport(path, "Missing"), "symbol Missing is not exported")
	assert.ErrorContains(t, ValidateExport(path, "NotAFunction"), "not a function")
}

func TestLoadAndCallSharedObject(t *testing.T) {
	path := buildEchoLibrary(t)

	lib, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, lib.Path())

	buffers, err := NewBuffers(4096, 64)
	require.NoError(t, err)
	adapter := NewAdapter(lib, buffers)

	payload := []byte(`{"event":{},"context":{}}`)
	result, err := adapter.Call(context.Background(), Request{
		HandlerName: "hello",
		Payload:     payload,
		Credentials: credentials.Credentials{AccessKey: "AK", SecretKey: "SK"},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, result.ExitCode)
	assert.Equal(t, "application/json", result.ContentType)
	assert.Equal(t, len(result.Body), result.BytesWritten)

	var echoed echoResponse
	require.NoError(t, json.Unmarshal(result.Body, &echoed))
	assert.Equal(t, echoResponse{
		Name:          "hello",
		PayloadLength: len(payload),
		AccessKey:     "AK",
		SecretKey:     "SK",
	}, echoed)
	assert.False(t, echoed.HasSessionToken, "an empty session token is passed as NULL")

	result, err = adapter.Call(context.Background(), Request{
		HandlerName: "hello",
		Payload:     payload,
		Credentials: credentials.Credentials{AccessKey: "AK", SecretKey: "SK", SessionToken: "TOKEN"},
	})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(result.Body, &echoed))
	assert.True(t, echoed.HasSessionToken)

	require.NoError(t, lib.Close())
	assert.NoError(t, lib.Close(), "closing twice is a no-op")
}

func TestSharedObjectSeesCapacities(t *testing.T) {
	path := buildEchoLibrary(t)

	lib, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)
	defer lib.Close()

	buffers, err := NewBuffers(32, 8)
	require.NoError(t, err)

	result, err := NewAdapter(lib, buffers).Call(context.Background(), Request{HandlerName: "hello", Payload: []byte("{}")})
	require.NoError(t, err)

	// the last byte of the body area is held back for the terminator
	assert.Equal(t, "applica", result.ContentType)
	assert.Equal(t, 30, result.BytesWritten)
	assert.Equal(t, `{"name":"hello","payloadLength"`[:30], string(result.Body))
}

func TestLoadRejectsMissingEntryPoint(t *testing.T) {
	path := buildEchoLibrary(t)

	_, err := Load(LoadOptions{Path: path, Symbol: "Missing"})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "Missing", loadErr.Symbol)
}
