package server

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	InvokeId           string `json:"request-id"`
	InvokedFunctionArn string `json:"invoked-function-arn"`
	Payload            string `json:"payload"`
	// ClientContext is base64 encoded JSON, as in the X-Amz-Client-Context header.
	ClientContext string `json:"client-context"`
}

// The ErrorResponse is returned when an invocation fails
type ErrorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType,omitempty"`
	RequestId    string `json:"requestId,omitempty"`
}

const (
	headerClientContext   = "X-Amz-Client-Context"
	headerLogType         = "X-Amz-Log-Type"
	headerLogResult       = "X-Amz-Log-Result"
	headerFunctionError   = "X-Amz-Function-Error"
	headerExecutedVersion = "X-Amz-Executed-Version"
	headerRequestId       = "X-Amzn-RequestId"

	logTypeTail            = "Tail"
	functionErrorUnhandled = "Unhandled"

	errorTypeInvalidRequest = "InvalidRequestContentException"
)
