package invocation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is the payload crossing the native boundary.
type Request struct {
	Event   json.RawMessage   `json:"event"`
	Context InvocationContext `json:"context"`
}

// EncodeError is returned when the event cannot be embedded into the request payload.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode invocation request: %s", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

var nullEvent = json.RawMessage("null")

// EncodeRequest combines the raw event and the context into the JSON text passed to the
// native entry point. The event is embedded as is, so no number or key is rewritten.
func EncodeRequest(event json.RawMessage, ic InvocationContext) ([]byte, error) {
	if len(bytes.TrimSpace(event)) == 0 {
		event = nullEvent
	}
	if !json.Valid(event) {
		return nil, &EncodeError{Err: fmt.Errorf("event is not valid JSON")}
	}

	payload, err := json.Marshal(Request{
		Event:   event,
		Context: ic,
	})
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return payload, nil
}
