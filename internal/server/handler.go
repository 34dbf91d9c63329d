// Package server exposes the bridge over HTTP for local invocations, with the request shape
// of the Lambda Invoke API.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/localstack/lambda-native-bridge/internal/aws/lambda"
	"github.com/localstack/lambda-native-bridge/internal/bridge"
	"github.com/localstack/lambda-native-bridge/internal/decode"
	"github.com/localstack/lambda-native-bridge/internal/invocation"
	"github.com/localstack/lambda-native-bridge/internal/logging"
)

const accountId = "000000000000"

// Invoker runs one invocation, see bridge.Bridge.
type Invoker interface {
	Invoke(ctx context.Context, handlerName string, event json.RawMessage, ic invocation.InvocationContext) (*decode.Result, error)
}

type InvokeService struct {
	invoker      Invoker
	handlerName  string
	function     lambda.FunctionConfig
	logCollector *logging.LogCollector

	// one invocation at a time, so the collected logs belong to it
	mu sync.Mutex
}

func NewInvokeService(invoker Invoker, handlerName string, function lambda.FunctionConfig, logCollector *logging.LogCollector) *InvokeService {
	if logCollector == nil {
		logCollector = logging.NewLogCollector()
	}
	return &InvokeService{
		invoker:      invoker,
		handlerName:  handlerName,
		function:     function,
		logCollector: logCollector,
	}
}

func NewServer(addr string, api *InvokeService) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: NewRouter(api),
	}
}

func NewRouter(api *InvokeService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/invoke", InvokeHandler(api))
	r.Post("/2015-03-31/functions/{function}/invocations", FunctionInvocationsHandler(api))

	return r
}

type invokeOutcome struct {
	requestId string
	body      []byte
	failed    bool
	logTail   string
}

func (s *InvokeService) invoke(ctx context.Context, lc *lambdacontext.LambdaContext, event json.RawMessage) (*invokeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lc.AwsRequestID == "" {
		lc.AwsRequestID = uuid.New().String()
	}
	if lc.InvokedFunctionArn == "" {
		lc.InvokedFunctionArn = s.functionArn(s.function.FunctionName)
	}
	ic := invocation.Normalize(lc, s.function)

	// drop whatever was logged between invocations
	s.logCollector.GetLogs()

	logger := log.WithFields(log.Fields{
		"reqID": ic.AwsRequestID,
		"arn":   ic.InvokedFunctionArn,
		"build": bridge.StampedBuildID,
	})
	logger.Debug("Local invocation started")

	outcome := &invokeOutcome{requestId: ic.AwsRequestID}
	result, err := s.invoker.Invoke(ctx, s.handlerName, event, ic)
	if err != nil {
		errorResponse := ErrorResponse{
			ErrorMessage: err.Error(),
			ErrorType:    bridge.ErrorTypeUnexpected,
			RequestId:    ic.AwsRequestID,
		}
		var invocationErr *bridge.InvocationError
		if errors.As(err, &invocationErr) {
			errorResponse.ErrorMessage = invocationErr.Message
			errorResponse.ErrorType = invocationErr.Type
		}
		logger.WithError(err).Error("Local invocation failed")
		outcome.failed = true
		outcome.body, err = json.Marshal(errorResponse)
	} else {
		logger.Debug("Local invocation finished")
		outcome.body, err = json.Marshal(result)
	}
	outcome.logTail = s.logCollector.Tail()
	return outcome, err
}

func (s *InvokeService) functionArn(functionName string) string {
	region := s.function.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", region, accountId, functionName)
}

// InvokeHandler serves the JSON envelope format of POST /invoke.
func InvokeHandler(api *InvokeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InvokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.WithError(err).Error("Failed to decode invoke request")
			writeError(w, http.StatusBadRequest, ErrorResponse{ErrorMessage: err.Error(), ErrorType: errorTypeInvalidRequest})
			return
		}

		lc := &lambdacontext.LambdaContext{
			AwsRequestID:       req.InvokeId,
			InvokedFunctionArn: req.InvokedFunctionArn,
		}
		if err := decodeClientContext(req.ClientContext, lc); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{ErrorMessage: err.Error(), ErrorType: errorTypeInvalidRequest, RequestId: req.InvokeId})
			return
		}

		outcome, err := api.invoke(r.Context(), lc, json.RawMessage(req.Payload))
		if err != nil {
			log.WithError(err).Error("Failed to encode invoke response")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeOutcome(w, outcome, false)
	}
}

// FunctionInvocationsHandler serves the Lambda Invoke API: the body is the event.
func FunctionInvocationsHandler(api *InvokeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{ErrorMessage: err.Error(), ErrorType: errorTypeInvalidRequest})
			return
		}

		lc := &lambdacontext.LambdaContext{
			InvokedFunctionArn: api.functionArn(chi.URLParam(r, "function")),
		}
		if err := decodeClientContext(r.Header.Get(headerClientContext), lc); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{ErrorMessage: err.Error(), ErrorType: errorTypeInvalidRequest})
			return
		}

		outcome, err := api.invoke(r.Context(), lc, event)
		if err != nil {
			log.WithError(err).Error("Failed to encode invoke response")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set(headerExecutedVersion, api.function.FunctionVersion)
		writeOutcome(w, outcome, r.Header.Get(headerLogType) == logTypeTail)
	}
}

func decodeClientContext(encoded string, lc *lambdacontext.LambdaContext) error {
	if encoded == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("client context is not valid base64: %w", err)
	}
	if err := json.Unmarshal(raw, &lc.ClientContext); err != nil {
		return fmt.Errorf("client context is not valid JSON: %w", err)
	}
	return nil
}

func writeOutcome(w http.ResponseWriter, outcome *invokeOutcome, tail bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(headerRequestId, outcome.requestId)
	if tail {
		w.Header().Set(headerLogResult, outcome.logTail)
	}
	if outcome.failed {
		w.Header().Set(headerFunctionError, functionErrorUnhandled)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(outcome.body); err != nil {
		log.WithError(err).Warn("Failed to write invoke response")
	}
}

func writeError(w http.ResponseWriter, status int, errorResponse ErrorResponse) {
	body, err := json.Marshal(errorResponse)
	if err != nil {
		log.Fatalln("unable to marshal json error response")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
