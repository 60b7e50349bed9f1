package lhcinfoperls

import (
	"github.com/pkg/errors"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/oms"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/common/poperrors"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/metrics"
)

const (
	fillsResource = "fills"

	fillNumberField      = "fill_number"
	startTimeField       = "start_time"
	endTimeField         = "end_time"
	startStableBeamField = "start_stable_beam"
)

// Fill is an LHC fill as reported by OMS. End is absent while the fill is ongoing.
type Fill struct {
	Number uint16
	Start  cond.Time
	End    cond.OptionalTime
}

func (f Fill) IsOngoing() bool {
	return !f.End.Valid
}

// Payload returns the payload every lumisection of the fill starts from.
func (f Fill) Payload() LHCInfoPerLS {
	return LHCInfoPerLS{FillNumber: f.Number}
}

type fillResolver struct {
	oms     oms.Executor
	metrics *metrics.Metrics
}

func fillQuery() *oms.Query {
	return oms.NewQuery(fillsResource).AddOutputVars(fillNumberField, startTimeField, endTimeField)
}

// fillByNumberQuery selects a given fill.
func fillByNumberQuery(number uint16) *oms.Query {
	return fillQuery().FilterEQ(fillNumberField, number)
}

// nextFillQuery selects the fills with stable beams starting from cursor and before endTime, earliest first.
// strict excludes a fill starting exactly at cursor. If finishedOnly is set, ongoing fills are excluded.
func nextFillQuery(cursor cond.Time, strict bool, endTime cond.Time, finishedOnly bool) *oms.Query {
	q := fillQuery().
		FilterNotNull(startStableBeamField).
		FilterNotNull(fillNumberField).
		FilterGTOrGE(startTimeField, cursor, strict).
		FilterLT(startTimeField, endTime)
	if finishedOnly {
		q.FilterNotNull(endTimeField)
	}
	return q.Sort(startTimeField)
}

// findFill runs query and returns the first fill found. ok is false if the query failed or returned nothing.
func (r *fillResolver) findFill(ctx *popcontext.Context, query *oms.Query) (fill Fill, ok bool) {
	result, err := r.oms.Execute(ctx, query)
	if err != nil {
		r.metrics.RecordQueryFailure("oms", fillsResource)
		logging.WithStacktrace(ctx.Log, err).Errorf("OMS query %s failed", query)
		return Fill{}, false
	}
	row, ok := result.Front()
	if !ok {
		return Fill{}, false
	}
	fill, err = parseFill(row)
	if err != nil {
		logging.WithStacktrace(ctx.Log, err).Errorf("Invalid fill returned by OMS query %s", query)
		return Fill{}, false
	}
	return fill, true
}

// fillTimes returns the start and end time of a fill. A fill OMS does not know about is an *poperrors.ErrNotFound.
func (r *fillResolver) fillTimes(ctx *popcontext.Context, number uint16) (start, end cond.OptionalTime, err error) {
	query := fillByNumberQuery(number)
	result, err := r.oms.Execute(ctx, query)
	if err != nil {
		r.metrics.RecordQueryFailure("oms", fillsResource)
		return cond.None(), cond.None(), err
	}
	row, ok := result.Front()
	if !ok {
		return cond.None(), cond.None(), errors.WithStack(&poperrors.ErrNotFound{
			Type:  "fill",
			Value: oms.FormatValue(number),
		})
	}
	if start, err = optionalTime(row, startTimeField); err != nil {
		return cond.None(), cond.None(), err
	}
	if end, err = optionalTime(row, endTimeField); err != nil {
		return cond.None(), cond.None(), err
	}
	return start, end, nil
}

func parseFill(row oms.Row) (Fill, error) {
	number, ok := row.GetUint(fillNumberField)
	if !ok || number == 0 || number > 0xffff {
		return Fill{}, errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:  fillNumberField,
			Value: number,
		})
	}
	start, err := optionalTime(row, startTimeField)
	if err != nil {
		return Fill{}, err
	}
	if !start.Valid {
		return Fill{}, errors.WithStack(&poperrors.ErrInvalidArgument{
			Name:    startTimeField,
			Value:   nil,
			Message: "fill has no start time",
		})
	}
	end, err := optionalTime(row, endTimeField)
	if err != nil {
		return Fill{}, err
	}
	return Fill{Number: uint16(number), Start: start.Time, End: end}, nil
}

func optionalTime(row oms.Row, name string) (cond.OptionalTime, error) {
	t, ok, err := row.GetTime(name)
	if err != nil {
		return cond.None(), err
	}
	if !ok {
		return cond.None(), nil
	}
	return cond.Some(cond.FromTime(t)), nil
}
