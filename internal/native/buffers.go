package native

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/semaphore"
)

// Buffers owns the response areas shared by all invocations of the process. They are
// allocated once, and only one Lease can hold them at a time.
type Buffers struct {
	body        []byte
	contentType []byte
	sem         *semaphore.Weighted
}

func NewBuffers(bodySize int, contentTypeSize int) (*Buffers, error) {
	// one byte of each area stays reserved for the terminator
	if bodySize < 2 || contentTypeSize < 2 {
		return nil, fmt.Errorf("buffer sizes too small: body=%d contentType=%d", bodySize, contentTypeSize)
	}
	// capacities cross the boundary as C int
	if bodySize > math.MaxInt32 || contentTypeSize > math.MaxInt32 {
		return nil, fmt.Errorf("buffer sizes exceed a C int: body=%d contentType=%d", bodySize, contentTypeSize)
	}
	return &Buffers{
		body:        make([]byte, bodySize),
		contentType: make([]byte, contentTypeSize),
		sem:         semaphore.NewWeighted(1),
	}, nil
}

func (b *Buffers) BodySize() int {
	return len(b.body)
}

func (b *Buffers) ContentTypeSize() int {
	return len(b.contentType)
}

// Acquire waits until the buffers are free, zero-fills them and hands them out.
// The caller must Release the lease.
func (b *Buffers) Acquire(ctx context.Context) (*Lease, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	clear(b.body)
	clear(b.contentType)
	return &Lease{buffers: b}, nil
}

// Lease is the scoped right to use the shared buffers. It is not safe for concurrent use.
type Lease struct {
	buffers  *Buffers
	released bool
}

// Body returns the whole body area.
func (l *Lease) Body() []byte {
	return l.buffers.body
}

// ContentType returns the whole content type area.
func (l *Lease) ContentType() []byte {
	return l.buffers.contentType
}

// Release gives the buffers back. Calling it more than once is a no-op.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.buffers.sem.Release(1)
}
