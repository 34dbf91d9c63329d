package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

const bytesPerMB = 1024 * 1024

type InvokeReport struct {
	InvokeId         string
	DurationMs       float64
	BilledDurationMs float64
	MemorySizeMB     int
	MaxMemoryUsedMB  uint64

	BytesWritten int
	ContentType  string
	ExitCode     int
	// Status is empty on success, otherwise the error type of the invocation.
	Status string
}

// NewInvokeReport computes durations from start and samples the memory in use.
func NewInvokeReport(invokeId string, start time.Time, memorySizeMB int) *InvokeReport {
	durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
	return &InvokeReport{
		InvokeId:         invokeId,
		DurationMs:       durationMs,
		BilledDurationMs: math.Ceil(durationMs),
		MemorySizeMB:     memorySizeMB,
		MaxMemoryUsedMB:  MemoryUsedMB(),
	}
}

// MemoryUsedMB returns the resident set size of the process, native allocations included.
func MemoryUsedMB() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.WithError(err).Debug("Failed to inspect own process")
		return 0
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		log.WithError(err).Debug("Failed to read memory info")
		return 0
	}
	return memInfo.RSS / bytesPerMB
}

func (r *InvokeReport) Print(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "END RequestId: "+r.InvokeId); err != nil {
		return err
	}
	status := ""
	if r.Status != "" {
		status = "Status: " + r.Status + "\t"
	}
	_, err := fmt.Fprintf(w,
		"REPORT RequestId: %s\t"+
			"Duration: %.2f ms\t"+
			"Billed Duration: %.f ms\t"+
			"Memory Size: %d MB\t"+
			"Max Memory Used: %d MB\t"+
			"Bytes Written: %d\t"+
			"Content Type: %s\t"+
			"Exit Code: %d\t"+
			status+"\n",
		r.InvokeId, r.DurationMs, r.BilledDurationMs, r.MemorySizeMB, r.MaxMemoryUsedMB,
		r.BytesWritten, r.ContentType, r.ExitCode)

	return err
}
