package iov

import "github.com/armadaproject/popcon/internal/common/cond"

// Filter walks a Buffer forward in step with a second, time-ordered feed. For each timestamp of the feed,
// Process moves the cursor to the first buffered entry valid at or after that timestamp; the entries from the
// cursor to the end of the buffer are those a measurement taken at that timestamp applies to.
// The cursor never moves backwards, so timestamps must be passed in non-decreasing order.
type Filter[T Payload[T]] struct {
	buffer Buffer[T]
	cursor int
}

func NewFilter[T Payload[T]](buffer Buffer[T]) *Filter[T] {
	return &Filter[T]{buffer: buffer}
}

// Process advances the cursor for a measurement taken at t and reports whether some buffered entry has a since
// at or after t.
func (f *Filter[T]) Process(t cond.Time) bool {
	for f.cursor < len(f.buffer) && f.buffer[f.cursor].Since < t {
		f.cursor++
	}
	return f.cursor < len(f.buffer)
}

// Current returns the index of the entry under the cursor; it equals the buffer length once exhausted.
func (f *Filter[T]) Current() int {
	return f.cursor
}
