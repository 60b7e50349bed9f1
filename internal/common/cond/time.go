// Package cond holds the time type used to key intervals of validity in the conditions database.
package cond

import (
	"fmt"
	"time"
)

// Time is a point in time packed the way the conditions database keys time-based tags: the number of seconds
// since the Unix epoch in the upper 32 bits and the microseconds within that second in the lower 32 bits.
// Packed values compare in the same order as the times they represent.
type Time uint64

const (
	// MinTime is the smallest since accepted by a tag; it is used for the first IOV of a new tag.
	MinTime Time = 1
	// MaxTime marks an open-ended interval.
	MaxTime Time = ^Time(0)
)

// FromTime packs t. Times before the epoch are clamped to the epoch.
func FromTime(t time.Time) Time {
	if t.IsZero() || t.Before(time.Unix(0, 0)) {
		return 0
	}
	seconds := uint64(t.Unix())
	micros := uint64(t.Nanosecond() / 1000)
	return Time(seconds<<32 | micros)
}

// Pack builds a Time from seconds and microseconds.
func Pack(seconds, micros uint32) Time {
	return Time(uint64(seconds)<<32 | uint64(micros))
}

// Unpack returns the seconds and microseconds components of t.
func (t Time) Unpack() (seconds, micros uint32) {
	return uint32(t >> 32), uint32(t & 0xffffffff)
}

// Time converts back to a UTC time.Time.
func (t Time) Time() time.Time {
	seconds, micros := t.Unpack()
	return time.Unix(int64(seconds), int64(micros)*1000).UTC()
}

func (t Time) String() string {
	return fmt.Sprintf("%d (%s)", uint64(t), t.Time().Format("2006-01-02 15:04:05.000000"))
}

// OptionalTime is a Time that may be absent, e.g. the end of a fill that is still ongoing.
// The zero value is absent.
type OptionalTime struct {
	Time  Time
	Valid bool
}

// Some returns a present OptionalTime holding t.
func Some(t Time) OptionalTime {
	return OptionalTime{Time: t, Valid: true}
}

// None returns an absent OptionalTime.
func None() OptionalTime {
	return OptionalTime{}
}

// OptionalFromTime returns an absent value for the zero time.Time and the packed time otherwise.
func OptionalFromTime(t time.Time) OptionalTime {
	if t.IsZero() {
		return None()
	}
	return Some(FromTime(t))
}

func (o OptionalTime) String() string {
	if !o.Valid {
		return "none"
	}
	return o.Time.String()
}
