// Package native loads the native handler library and calls its entry point.
//
// The entry point has the fixed C signature
//
//	int Lambda(char *handlerName, char *requestJSON,
//	           char *accessKey, char *secretKey, char *sessionToken,
//	           int *exitCode,
//	           char *contentType, int contentTypeLen,
//	           char *body, int bodyLen);
//
// All text arguments are NUL terminated UTF-8. The native side writes at most
// contentTypeLen bytes of content type and bodyLen bytes of body, sets *exitCode and
// returns the number of body bytes written.
package native

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CallArgs carries the arguments of one entry point call. Text fields are already NUL
// terminated. A nil SessionToken is passed as a NULL pointer.
type CallArgs struct {
	HandlerName  []byte
	Payload      []byte
	AccessKey    []byte
	SecretKey    []byte
	SessionToken []byte

	// ExitCode is written by the native side.
	ExitCode int32

	// ContentType and Body are the output areas, their lengths are the capacities passed.
	ContentType []byte
	Body        []byte
}

// Entrypoint is a resolved native entry point.
type Entrypoint interface {
	Call(args *CallArgs) int
}

// EntrypointFunc adapts a Go function to Entrypoint.
type EntrypointFunc func(args *CallArgs) int

func (f EntrypointFunc) Call(args *CallArgs) int {
	return f(args)
}

// EncodingError reports a text argument that cannot cross the boundary.
type EncodingError struct {
	Arg    string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("argument %s cannot be passed to the native handler: %s", e.Arg, e.Reason)
}

// cString encodes s as a NUL terminated UTF-8 C string.
func cString(arg string, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, &EncodingError{Arg: arg, Reason: "not valid UTF-8"}
	}
	if strings.IndexByte(s, 0) >= 0 {
		return nil, &EncodingError{Arg: arg, Reason: "contains a NUL byte"}
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, nil
}

// optionalCString is cString, except that an empty s becomes NULL.
func optionalCString(arg string, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return cString(arg, s)
}
