package logging

import (
	"bytes"
	"encoding/base64"
	"sync"
)

// MaxTailSize is the number of trailing log bytes returned for LogType=Tail invocations.
const MaxTailSize = 4 * 1024

type LogResponse struct {
	Logs string `json:"logs"`
}

// LogCollector buffers log output between two calls to GetLogs.
type LogCollector struct {
	logs bytes.Buffer
	mu   *sync.Mutex
}

func NewLogCollector() *LogCollector {
	return &LogCollector{
		mu: &sync.Mutex{},
	}
}

func (lc *LogCollector) Write(p []byte) (n int, err error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	n, err = lc.logs.Write(p)
	return
}

// GetLogs returns everything collected so far and resets the collector.
func (lc *LogCollector) GetLogs() LogResponse {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	resp := LogResponse{Logs: lc.logs.String()}
	lc.logs.Reset()
	return resp
}

// Tail returns the base64 encoded last MaxTailSize bytes and resets the collector,
// the format of the X-Amz-Log-Result header.
func (lc *LogCollector) Tail() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	b := lc.logs.Bytes()
	if len(b) > MaxTailSize {
		b = b[len(b)-MaxTailSize:]
	}
	encoded := base64.StdEncoding.EncodeToString(b)
	lc.logs.Reset()
	return encoded
}
