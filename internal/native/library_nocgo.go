//go:build !cgo || !linux

package native

// Library is unavailable without cgo, openLibrary always fails.
type Library struct {
	path string
}

func openLibrary(path string, _ string) (*Library, error) {
	return nil, ErrCgoRequired
}

func (l *Library) Path() string {
	return l.path
}

func (l *Library) Call(_ *CallArgs) int {
	return 0
}

func (l *Library) Close() error {
	return nil
}
