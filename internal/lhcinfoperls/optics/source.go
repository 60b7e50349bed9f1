// Package optics reads the beam optics parameters measured at the interaction point: crossing angles and beta*.
package optics

import (
	"time"

	"github.com/sanity-io/litter"

	"github.com/armadaproject/popcon/internal/common/popcontext"
)

// Row is one measurement. A nil field was not recorded in that measurement.
type Row struct {
	UpdateTime     *time.Time
	LumiSection    *int32
	RunNumber      *int32
	CrossingAngleX *float32
	CrossingAngleY *float32
	BetaStarX      *float32
	BetaStarY      *float32
}

var rowDumper = litter.Options{
	Compact:           true,
	StripPackageNames: true,
	HidePrivateFields: true,
}

// String dumps the row, formatting the update time separately.
func (r Row) String() string {
	updateTime := "NULL"
	if r.UpdateTime != nil {
		updateTime = r.UpdateTime.UTC().Format("2006-01-02 15:04:05.000000")
	}
	values := r
	values.UpdateTime = nil
	return updateTime + " " + rowDumper.Sdump(values)
}

// Source iterates over the measurements updated in [begin, end), ordered by update time.
// Iteration stops at the first error returned by fn, which is then returned.
type Source interface {
	ForEachRow(ctx *popcontext.Context, begin, end time.Time, fn func(Row) error) error
}
