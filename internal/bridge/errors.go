package bridge

import (
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda/messages"
	"github.com/localstack/lambda-native-bridge/internal/invocation"
	"github.com/localstack/lambda-native-bridge/internal/native"
)

const (
	ErrorTypeEncodeFailed      = "Bridge.EncodeFailed"
	ErrorTypeCredentialsFailed = "Bridge.CredentialsFailed"
	ErrorTypeNativeEncoding    = "Bridge.NativeEncoding"
	ErrorTypeUnexpected        = "Bridge.Unexpected"
	ErrorTypeNonZeroExit       = "Native.NonZeroExit"
)

// InvocationError is the failure of a single invocation. It never stops the bridge.
type InvocationError struct {
	Type    string
	Message string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// ToInvokeResponse converts the error into the payload returned to the Lambda service.
func (e *InvocationError) ToInvokeResponse() messages.InvokeResponse_Error {
	return messages.InvokeResponse_Error{
		Message: e.Message,
		Type:    e.Type,
	}
}

// classify maps any error of the invocation pipeline to an InvocationError.
func classify(err error) *InvocationError {
	var invocationErr *InvocationError
	if errors.As(err, &invocationErr) {
		return invocationErr
	}
	var encodeErr *invocation.EncodeError
	if errors.As(err, &encodeErr) {
		return &InvocationError{Type: ErrorTypeEncodeFailed, Message: encodeErr.Error(), Err: err}
	}
	var encodingErr *native.EncodingError
	if errors.As(err, &encodingErr) {
		return &InvocationError{Type: ErrorTypeNativeEncoding, Message: encodingErr.Error(), Err: err}
	}
	return &InvocationError{Type: ErrorTypeUnexpected, Message: err.Error(), Err: err}
}
