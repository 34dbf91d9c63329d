package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint(t *testing.T) {
	r := &InvokeReport{
		InvokeId:         "r1",
		DurationMs:       1.234,
		BilledDurationMs: 2,
		MemorySizeMB:     128,
		MaxMemoryUsedMB:  42,
		BytesWritten:     11,
		ContentType:      "application/json",
	}

	var out bytes.Buffer
	require.NoError(t, r.Print(&out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "END RequestId: r1", lines[0])
	assert.Equal(t, "REPORT RequestId: r1\tDuration: 1.23 ms\tBilled Duration: 2 ms\tMemory Size: 128 MB\t"+
		"Max Memory Used: 42 MB\tBytes Written: 11\tContent Type: application/json\tExit Code: 0\t", lines[1])
}

func TestPrintStatus(t *testing.T) {
	r := &InvokeReport{InvokeId: "r2", Status: "Native.NonZeroExit", ExitCode: 1}

	var out bytes.Buffer
	require.NoError(t, r.Print(&out))
	assert.Contains(t, out.String(), "Exit Code: 1\tStatus: Native.NonZeroExit\t")
}

func TestNewInvokeReport(t *testing.T) {
	start := time.Now().Add(-1500 * time.Microsecond)

	r := NewInvokeReport("r3", start, 256)
	assert.Equal(t, "r3", r.InvokeId)
	assert.Equal(t, 256, r.MemorySizeMB)
	assert.GreaterOrEqual(t, r.DurationMs, 1.5)
	assert.GreaterOrEqual(t, r.BilledDurationMs, r.DurationMs)
}
