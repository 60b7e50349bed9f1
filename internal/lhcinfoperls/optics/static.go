package optics

import (
	"time"

	"github.com/armadaproject/popcon/internal/common/popcontext"
)

// StaticSource serves a fixed set of measurements, e.g. replayed from a file or in tests. Rows must be given in
// update time order; rows without an update time are served wherever they appear.
type StaticSource struct {
	Rows []Row
	// If set, returned by every call instead of iterating
	Err error
	// Windows requested so far
	Requests [][2]time.Time
}

func (s *StaticSource) ForEachRow(_ *popcontext.Context, begin, end time.Time, fn func(Row) error) error {
	s.Requests = append(s.Requests, [2]time.Time{begin, end})
	if s.Err != nil {
		return s.Err
	}
	for _, row := range s.Rows {
		if row.UpdateTime != nil && (row.UpdateTime.Before(begin) || !row.UpdateTime.Before(end)) {
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
