// Package bridge connects a Lambda invocation to the native entry point: the event and
// context are encoded, the native handler is called with fresh credentials and the
// response is decoded according to its content type.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/localstack/lambda-native-bridge/internal/aws/lambda"
	"github.com/localstack/lambda-native-bridge/internal/config"
	"github.com/localstack/lambda-native-bridge/internal/credentials"
	"github.com/localstack/lambda-native-bridge/internal/decode"
	"github.com/localstack/lambda-native-bridge/internal/invocation"
	"github.com/localstack/lambda-native-bridge/internal/metrics"
	"github.com/localstack/lambda-native-bridge/internal/native"
	"github.com/localstack/lambda-native-bridge/internal/report"
)

// StampedBuildID is set at link time with -ldflags "-X ...bridge.StampedBuildID=<id>".
var StampedBuildID string

// Caller performs one native call, see native.Adapter.
type Caller interface {
	Call(ctx context.Context, req native.Request) (*native.CallResult, error)
}

type Options struct {
	ExitCodePolicy string
	// ReportWriter receives END/REPORT lines after each invocation, nil disables them.
	ReportWriter io.Writer
	Metrics      *metrics.Publisher
}

type Bridge struct {
	caller      Caller
	credentials credentials.Provider
	function    lambda.FunctionConfig
	options     Options
}

func New(caller Caller, provider credentials.Provider, function lambda.FunctionConfig, options Options) *Bridge {
	if options.ExitCodePolicy == "" {
		options.ExitCodePolicy = config.ExitCodeIgnore
	}
	return &Bridge{
		caller:      caller,
		credentials: provider,
		function:    function,
		options:     options,
	}
}

// Invoke runs a single invocation. Errors are always *InvocationError.
func (b *Bridge) Invoke(ctx context.Context, handlerName string, event json.RawMessage, ic invocation.InvocationContext) (*decode.Result, error) {
	start := time.Now()
	result, callResult, creds, err := b.invokeRecovered(ctx, handlerName, event, ic)

	var invocationErr *InvocationError
	if err != nil {
		invocationErr = classify(err)
	}
	if callResult != nil {
		b.options.Metrics.Publish(ctx, creds, metrics.Sample{
			HandlerName:    handlerName,
			ResponseLength: callResult.BytesWritten,
			Duration:       time.Since(start),
		})
	}
	b.printReport(ic.AwsRequestID, start, callResult, invocationErr)

	if invocationErr != nil {
		return nil, invocationErr
	}
	return result, nil
}

// invokeRecovered turns a panic anywhere in the invocation into an InvocationError, so
// every host gets an error result and the next invocation is still served.
func (b *Bridge) invokeRecovered(ctx context.Context, handlerName string, event json.RawMessage, ic invocation.InvocationContext) (result *decode.Result, callResult *native.CallResult, creds credentials.Credentials, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"reqID": ic.AwsRequestID,
				"stack": string(debug.Stack()),
			}).Errorf("Recovered from panic: %v", r)
			result, callResult = nil, nil
			err = &InvocationError{
				Type:    ErrorTypeUnexpected,
				Message: fmt.Sprintf("panic during invocation: %v", r),
			}
		}
	}()
	return b.invoke(ctx, handlerName, event, ic)
}

func (b *Bridge) invoke(ctx context.Context, handlerName string, event json.RawMessage, ic invocation.InvocationContext) (*decode.Result, *native.CallResult, credentials.Credentials, error) {
	payload, err := invocation.EncodeRequest(event, ic)
	if err != nil {
		return nil, nil, credentials.Credentials{}, err
	}

	creds, err := b.credentials.Retrieve(ctx)
	if err != nil {
		return nil, nil, creds, &InvocationError{
			Type:    ErrorTypeCredentialsFailed,
			Message: fmt.Sprintf("failed to retrieve AWS credentials: %s", err),
			Err:     err,
		}
	}

	callResult, err := b.caller.Call(ctx, native.Request{
		HandlerName: handlerName,
		Payload:     payload,
		Credentials: creds,
	})
	if err != nil {
		return nil, nil, creds, err
	}

	if callResult.ExitCode != 0 {
		if b.options.ExitCodePolicy == config.ExitCodeFail {
			return nil, callResult, creds, nonZeroExit(callResult)
		}
		log.WithFields(log.Fields{
			"exitCode":    callResult.ExitCode,
			"contentType": callResult.ContentType,
		}).Warn("Native handler reported a non-zero exit code")
	}

	return decode.Decode(callResult.ContentType, callResult.Body), callResult, creds, nil
}

func nonZeroExit(callResult *native.CallResult) *InvocationError {
	message := decode.Decode("text/plain", callResult.Body).Text
	if message == "" {
		message = fmt.Sprintf("native handler exited with code %d", callResult.ExitCode)
	}
	return &InvocationError{Type: ErrorTypeNonZeroExit, Message: message}
}

func (b *Bridge) printReport(requestID string, start time.Time, callResult *native.CallResult, invocationErr *InvocationError) {
	if b.options.ReportWriter == nil {
		return
	}
	r := report.NewInvokeReport(requestID, start, b.function.FunctionMemorySizeMb)
	if callResult != nil {
		r.BytesWritten = callResult.BytesWritten
		r.ContentType = callResult.ContentType
		r.ExitCode = callResult.ExitCode
	}
	if invocationErr != nil {
		r.Status = invocationErr.Type
	}
	if err := r.Print(b.options.ReportWriter); err != nil {
		log.WithError(err).Warn("Failed to write invoke report")
	}
}

// HandlerFunc is the signature registered with lambda.Start.
type HandlerFunc func(ctx context.Context, event json.RawMessage) (*decode.Result, error)

// Handler returns the function registered with the Lambda runtime. Failures are returned as
// messages.InvokeResponse_Error so the service reports errorType and errorMessage. Panics
// outside of Invoke are recovered here as well.
func (b *Bridge) Handler(handlerName string) HandlerFunc {
	return func(ctx context.Context, event json.RawMessage) (result *decode.Result, err error) {
		lc, _ := lambdacontext.FromContext(ctx)
		ic := invocation.Normalize(lc, b.function)
		if ic.AwsRequestID == "" {
			ic.AwsRequestID = uuid.New().String()
		}

		logger := log.WithFields(log.Fields{
			"reqID": ic.AwsRequestID,
			"arn":   ic.InvokedFunctionArn,
			"build": StampedBuildID,
		})

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).Errorf("Recovered from panic: %v", r)
				result = nil
				err = (&InvocationError{
					Type:    ErrorTypeUnexpected,
					Message: fmt.Sprintf("panic during invocation: %v", r),
				}).ToInvokeResponse()
			}
		}()

		logger.Debug("Invoking native handler")
		result, err = b.Invoke(ctx, handlerName, event, ic)
		if err != nil {
			invocationErr := classify(err)
			logger.WithError(err).WithField("errorType", invocationErr.Type).Error("Invocation failed")
			return nil, invocationErr.ToInvokeResponse()
		}
		logger.WithField("kind", result.Kind.String()).Debug("Invocation succeeded")
		return result, nil
	}
}
