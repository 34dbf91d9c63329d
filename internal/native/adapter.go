package native

import (
	"bytes"
	"context"
	"strings"

	"github.com/localstack/lambda-native-bridge/internal/credentials"
	log "github.com/sirupsen/logrus"
)

// Request is one call of the native entry point.
type Request struct {
	HandlerName string
	Payload     []byte
	Credentials credentials.Credentials
}

// CallResult is owned by the caller, it does not alias the shared buffers.
type CallResult struct {
	ExitCode     int
	BytesWritten int
	// ContentType is read up to the first NUL and lower-cased.
	ContentType string
	Body        []byte
}

// Adapter performs entry point calls using the shared buffers.
type Adapter struct {
	entry   Entrypoint
	buffers *Buffers
}

func NewAdapter(entry Entrypoint, buffers *Buffers) *Adapter {
	return &Adapter{
		entry:   entry,
		buffers: buffers,
	}
}

// Call invokes the entry point once. It blocks until the native side returns; ctx only
// bounds the wait for the buffers, a running native call cannot be cancelled.
func (a *Adapter) Call(ctx context.Context, req Request) (*CallResult, error) {
	args, err := encodeArgs(req)
	if err != nil {
		return nil, err
	}

	lease, err := a.buffers.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	body := lease.Body()
	args.ContentType = lease.ContentType()
	args.Body = body[:len(body)-1]

	log.WithFields(log.Fields{
		"handler":     req.HandlerName,
		"payloadSize": len(req.Payload),
	}).Debug("Calling native entry point")

	written := a.entry.Call(args)

	n := written
	if n < 0 {
		log.WithField("bytesWritten", written).Warn("Native entry point returned a negative byte count")
		n = 0
	}
	if n > len(args.Body) {
		log.WithFields(log.Fields{
			"bytesWritten": written,
			"capacity":     len(args.Body),
		}).Warn("Native entry point reported more bytes than the buffer holds")
		n = len(args.Body)
	}

	result := &CallResult{
		ExitCode:     int(args.ExitCode),
		BytesWritten: n,
		ContentType:  strings.ToLower(string(untilNUL(args.ContentType))),
		Body:         bytes.Clone(body[:n]),
	}
	log.WithFields(log.Fields{
		"exitCode":     result.ExitCode,
		"bytesWritten": result.BytesWritten,
		"contentType":  result.ContentType,
	}).Debug("Native entry point returned")
	return result, nil
}

func encodeArgs(req Request) (*CallArgs, error) {
	var (
		args CallArgs
		err  error
	)
	if args.HandlerName, err = cString("handlerName", req.HandlerName); err != nil {
		return nil, err
	}
	if args.Payload, err = cString("payload", string(req.Payload)); err != nil {
		return nil, err
	}
	if args.AccessKey, err = cString("accessKey", req.Credentials.AccessKey); err != nil {
		return nil, err
	}
	if args.SecretKey, err = cString("secretKey", req.Credentials.SecretKey); err != nil {
		return nil, err
	}
	if args.SessionToken, err = optionalCString("sessionToken", req.Credentials.SessionToken); err != nil {
		return nil, err
	}
	return &args, nil
}

func untilNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
