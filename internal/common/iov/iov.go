// Package iov contains the generic building blocks used to turn sampled payloads into intervals of validity:
// a working buffer, a cursor to merge-join a second time-ordered feed into it, and the committed timeline that
// only accepts payloads differing from the previous one.
package iov

import (
	"github.com/armadaproject/popcon/internal/common/cond"
)

// Payload is the capability set required from a conditions payload. The zero value of T must be the empty
// payload, i.e. the one marking the absence of data.
type Payload[T any] interface {
	// Equal reports whether two payloads carry the same conditions, so that the second one is redundant.
	Equal(other T) bool
	// IsEmpty reports whether the payload is the empty payload.
	IsEmpty() bool
}

// Entry is a payload together with the since from which it is valid.
type Entry[T Payload[T]] struct {
	Since   cond.Time
	Payload T
}

// Buffer is a transient, since-ordered sequence of entries sampled for one window.
type Buffer[T Payload[T]] []Entry[T]

// Append adds an entry to the end of the buffer.
func (b *Buffer[T]) Append(since cond.Time, payload T) {
	*b = append(*b, Entry[T]{Since: since, Payload: payload})
}

// Span returns the sinces of the first and last entries. ok is false for an empty buffer.
func (b Buffer[T]) Span() (first, last cond.Time, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	return b[0].Since, b[len(b)-1].Since, true
}
