package iov

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/poperrors"
)

// Timeline is the committed, strictly since-ordered output of one execution.
//
// A Timeline may be seeded with the last IOV already stored in the tag. The seed takes part in ordering and
// deduplication decisions but is not returned by Entries, since it has already been persisted.
type Timeline[T Payload[T]] struct {
	entries  []Entry[T]
	seed     *Entry[T]
	lastSeen T
}

// NewTimeline returns a timeline for a tag with no IOVs.
func NewTimeline[T Payload[T]]() *Timeline[T] {
	return &Timeline[T]{}
}

// NewTimelineAfter returns a timeline continuing a tag whose last IOV is (since, payload).
func NewTimelineAfter[T Payload[T]](since cond.Time, payload T) *Timeline[T] {
	return &Timeline[T]{
		seed:     &Entry[T]{Since: since, Payload: payload},
		lastSeen: payload,
	}
}

// Len returns the number of entries committed during this execution.
func (t *Timeline[T]) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries committed during this execution, in since order.
func (t *Timeline[T]) Entries() []Entry[T] {
	return slices.Clone(t.entries)
}

// Last returns the last committed entry, falling back to the seed. ok is false if there is neither.
func (t *Timeline[T]) Last() (Entry[T], bool) {
	if len(t.entries) > 0 {
		return t.entries[len(t.entries)-1], true
	}
	if t.seed != nil {
		return *t.seed, true
	}
	return Entry[T]{}, false
}

// LastSeen returns the payload most recently passed to the timeline, whether or not it was committed.
func (t *Timeline[T]) LastSeen() T {
	return t.lastSeen
}

// Add commits payload at since. since must be strictly after the last committed since.
func (t *Timeline[T]) Add(since cond.Time, payload T) error {
	if last, ok := t.Last(); ok && since <= last.Since {
		return errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:    "since",
			Value:   uint64(since),
			Message: "must be after the last committed since " + last.Since.String(),
		})
	}
	t.entries = append(t.entries, Entry[T]{Since: since, Payload: payload})
	t.lastSeen = payload
	return nil
}

// AddEmpty commits the empty payload at since, unless the last committed payload is already empty.
// It returns true if a payload was added.
func (t *Timeline[T]) AddEmpty(since cond.Time) (bool, error) {
	if last, ok := t.Last(); ok && last.Payload.IsEmpty() {
		return false, nil
	}
	var empty T
	if err := t.Add(since, empty); err != nil {
		return false, err
	}
	return true, nil
}

// IsOrdered reports whether sinces strictly increase and no two consecutive payloads are equal, seed included.
func (t *Timeline[T]) IsOrdered() bool {
	all := t.entries
	if t.seed != nil {
		all = append([]Entry[T]{*t.seed}, t.entries...)
	}
	for i := 1; i < len(all); i++ {
		if all[i].Since <= all[i-1].Since || all[i].Payload.Equal(all[i-1].Payload) {
			return false
		}
	}
	return true
}
