//go:build cgo && linux

package native

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef int (*bridge_entry_fn)(char*, char*, char*, char*, char*, int*, char*, int, char*, int);

static void* bridge_dlopen(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static const char* bridge_dlerror(void) {
	return dlerror();
}

// Clear dlerror, call dlsym, and return the error (if any) alongside the symbol.
static void* bridge_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	*err = e;
	return e ? NULL : p;
}

static int bridge_dlclose(void* h) {
	return dlclose(h);
}

static int bridge_call(void* fn, char* name, char* payload,
		char* accessKey, char* secretKey, char* sessionToken,
		int* exitCode,
		char* contentType, int contentTypeLen,
		char* body, int bodyLen) {
	return ((bridge_entry_fn)fn)(name, payload, accessKey, secretKey, sessionToken,
		exitCode, contentType, contentTypeLen, body, bodyLen);
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

// Library is a loaded native library with its resolved entry point.
type Library struct {
	path   string
	symbol string

	mu     sync.Mutex
	handle unsafe.Pointer
	fn     unsafe.Pointer
}

func openLibrary(path string, symbol string) (*Library, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.bridge_dlopen(cPath)
	if handle == nil {
		return nil, errors.New(C.GoString(C.bridge_dlerror()))
	}

	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))

	var cErr *C.char
	fn := C.bridge_dlsym(handle, cSymbol, &cErr)
	if cErr != nil || fn == nil {
		msg := "symbol resolved to NULL"
		if cErr != nil {
			msg = C.GoString(cErr)
		}
		C.bridge_dlclose(handle)
		return nil, errors.New(msg)
	}

	return &Library{
		path:   path,
		symbol: symbol,
		handle: handle,
		fn:     fn,
	}, nil
}

func (l *Library) Path() string {
	return l.path
}

// Call implements Entrypoint. Go memory is handed to the native side for the duration
// of the call only; none of the areas contain Go pointers.
func (l *Library) Call(args *CallArgs) int {
	var exitCode C.int
	written := C.bridge_call(l.fn,
		charPtr(args.HandlerName),
		charPtr(args.Payload),
		charPtr(args.AccessKey),
		charPtr(args.SecretKey),
		charPtr(args.SessionToken),
		&exitCode,
		charPtr(args.ContentType), C.int(len(args.ContentType)),
		charPtr(args.Body), C.int(len(args.Body)),
	)
	args.ExitCode = int32(exitCode)
	return int(written)
}

// Close unloads the library. The entry point must not be called afterwards.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	if C.bridge_dlclose(l.handle) != 0 {
		return errors.New(C.GoString(C.bridge_dlerror()))
	}
	l.handle = nil
	l.fn = nil
	return nil
}

func charPtr(b []byte) *C.char {
	if len(b) == 0 {
		return nil
	}
	return (*C.char)(unsafe.Pointer(&b[0]))
}
