package iov

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/popcontext"
)

// testPayload compares on Value only, mimicking payloads whose equality ignores bookkeeping fields.
type testPayload struct {
	Value int
	Note  string
}

func (p testPayload) Equal(other testPayload) bool { return p.Value == other.Value }
func (p testPayload) IsEmpty() bool                { return p.Value == 0 }

func testContext() *popcontext.Context {
	return popcontext.New(context.Background(), logging.NullEntry())
}

func bufferOf(entries ...Entry[testPayload]) Buffer[testPayload] {
	return Buffer[testPayload](entries)
}

func entry(since cond.Time, value int) Entry[testPayload] {
	return Entry[testPayload]{Since: since, Payload: testPayload{Value: value}}
}

func TestBuffer_AppendAndSpan(t *testing.T) {
	var b Buffer[testPayload]
	_, _, ok := b.Span()
	assert.False(t, ok)

	b.Append(10, testPayload{Value: 1})
	b.Append(20, testPayload{Value: 2})
	first, last, ok := b.Span()
	require.True(t, ok)
	assert.Equal(t, cond.Time(10), first)
	assert.Equal(t, cond.Time(20), last)
	assert.Len(t, b, 2)
}

func TestFilter_Process(t *testing.T) {
	f := NewFilter(bufferOf(entry(10, 1), entry(20, 1), entry(30, 1)))

	assert.True(t, f.Process(5))
	assert.Equal(t, 0, f.Current())

	assert.True(t, f.Process(10))
	assert.Equal(t, 0, f.Current())

	assert.True(t, f.Process(15))
	assert.Equal(t, 1, f.Current())

	assert.True(t, f.Process(25))
	assert.Equal(t, 2, f.Current())

	assert.False(t, f.Process(31))
	assert.Equal(t, 3, f.Current())

	// The cursor never moves back
	assert.False(t, f.Process(10))
	assert.Equal(t, 3, f.Current())
}

func TestFilter_EmptyBuffer(t *testing.T) {
	f := NewFilter(Buffer[testPayload]{})
	assert.False(t, f.Process(0))
}

func TestTimeline_AddOrdering(t *testing.T) {
	tl := NewTimeline[testPayload]()
	require.NoError(t, tl.Add(10, testPayload{Value: 1}))
	require.NoError(t, tl.Add(20, testPayload{Value: 2}))
	assert.Error(t, tl.Add(20, testPayload{Value: 3}))
	assert.Error(t, tl.Add(15, testPayload{Value: 3}))
	assert.Equal(t, 2, tl.Len())
	assert.True(t, tl.IsOrdered())
}

func TestTimeline_Seeded(t *testing.T) {
	tl := NewTimelineAfter[testPayload](100, testPayload{Value: 7})

	last, ok := tl.Last()
	require.True(t, ok)
	assert.Equal(t, cond.Time(100), last.Since)
	assert.Equal(t, testPayload{Value: 7}, tl.LastSeen())
	assert.Empty(t, tl.Entries())

	assert.Error(t, tl.Add(100, testPayload{Value: 8}))
	require.NoError(t, tl.Add(101, testPayload{Value: 8}))
	assert.Equal(t, []Entry[testPayload]{entry(101, 8)}, tl.Entries())
}

func TestTimeline_AddEmpty(t *testing.T) {
	tl := NewTimeline[testPayload]()

	added, err := tl.AddEmpty(1)
	require.NoError(t, err)
	assert.True(t, added)

	// Never two empty payloads in succession
	added, err = tl.AddEmpty(5)
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, tl.Add(10, testPayload{Value: 3}))
	added, err = tl.AddEmpty(20)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, tl.LastSeen().IsEmpty())

	assert.Equal(t, []Entry[testPayload]{entry(1, 0), entry(10, 3), entry(20, 0)}, tl.Entries())
}

func TestTimeline_AddEmptyAfterEmptySeed(t *testing.T) {
	tl := NewTimelineAfter[testPayload](50, testPayload{})
	added, err := tl.AddEmpty(60)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 0, tl.Len())
}

func TestTransfer(t *testing.T) {
	tests := map[string]struct {
		seed     *Entry[testPayload]
		buffer   Buffer[testPayload]
		expected []Entry[testPayload]
	}{
		"empty timeline takes the first entry": {
			buffer:   bufferOf(entry(10, 1)),
			expected: []Entry[testPayload]{entry(10, 1)},
		},
		"consecutive duplicates are dropped": {
			buffer:   bufferOf(entry(10, 1), entry(20, 1), entry(30, 2), entry(40, 2), entry(50, 1)),
			expected: []Entry[testPayload]{entry(10, 1), entry(30, 2), entry(50, 1)},
		},
		"duplicate of the seed is dropped": {
			seed:     &Entry[testPayload]{Since: 5, Payload: testPayload{Value: 1}},
			buffer:   bufferOf(entry(10, 1), entry(20, 2)),
			expected: []Entry[testPayload]{entry(20, 2)},
		},
		"entries not after the seed are dropped": {
			seed:     &Entry[testPayload]{Since: 15, Payload: testPayload{Value: 9}},
			buffer:   bufferOf(entry(10, 1), entry(20, 2)),
			expected: []Entry[testPayload]{entry(20, 2)},
		},
		"empty buffer": {
			buffer:   bufferOf(),
			expected: []Entry[testPayload]{},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			tl := NewTimeline[testPayload]()
			if tc.seed != nil {
				tl = NewTimelineAfter(tc.seed.Since, tc.seed.Payload)
			}
			added := Transfer(testContext(), tc.buffer, tl)
			assert.Equal(t, len(tc.expected), added)
			assert.Equal(t, len(tc.expected), tl.Len())
			if len(tc.expected) > 0 {
				assert.Equal(t, tc.expected, tl.Entries())
			}
			assert.True(t, tl.IsOrdered())
		})
	}
}

func TestTransfer_UpdatesLastSeenForDroppedEntries(t *testing.T) {
	tl := NewTimeline[testPayload]()
	buffer := Buffer[testPayload]{
		{Since: 10, Payload: testPayload{Value: 1, Note: "first"}},
		{Since: 20, Payload: testPayload{Value: 1, Note: "second"}},
	}
	assert.Equal(t, 1, Transfer(testContext(), buffer, tl))
	assert.Equal(t, "second", tl.LastSeen().Note)

	last, ok := tl.Last()
	require.True(t, ok)
	assert.Equal(t, "first", last.Payload.Note)
}

func TestTransfer_RejectedEntryIsNotLastSeen(t *testing.T) {
	tl := NewTimelineAfter[testPayload](15, testPayload{Value: 9})
	buffer := bufferOf(entry(10, 1), entry(20, 9), entry(30, 2))

	assert.Equal(t, 1, Transfer(testContext(), buffer, tl))
	assert.Equal(t, []Entry[testPayload]{entry(30, 2)}, tl.Entries())

	tl = NewTimelineAfter[testPayload](15, testPayload{Value: 9})
	assert.Equal(t, 0, Transfer(testContext(), bufferOf(entry(10, 1)), tl))
	assert.Equal(t, testPayload{Value: 9}, tl.LastSeen())
}
