package lhcinfoperls

import (
	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/iov"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/oms"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/configuration"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/metrics"
)

const (
	lumisectionsResource = "lumisections"
	// OMS pages are capped; a fill has far fewer lumisections in practice.
	lumisectionsQueryLimit = 4000

	runNumberField         = "run_number"
	beamsStableField       = "beams_stable"
	lumisectionNumberField = "lumisection_number"
)

type lumiSampler struct {
	oms     oms.Executor
	policy  configuration.LumiSamplingPolicy
	metrics *metrics.Metrics
}

func lumisectionsQuery(fill uint16, windowStart, windowEnd cond.Time) *oms.Query {
	return oms.NewQuery(lumisectionsResource).
		AddOutputVars(startTimeField, runNumberField, beamsStableField, lumisectionNumberField).
		FilterEQ(fillNumberField, fill).
		FilterGT(startTimeField, windowStart).
		FilterLT(startTimeField, windowEnd).
		WithLimit(lumisectionsQueryLimit).
		Sort(startTimeField)
}

// sample buffers a copy of the fill payload for the lumisections of fill starting in (windowStart, windowEnd)
// selected by the sampling policy. A failed query yields an empty buffer.
func (s *lumiSampler) sample(ctx *popcontext.Context, fill Fill, windowStart, windowEnd cond.Time) iov.Buffer[LHCInfoPerLS] {
	query := lumisectionsQuery(fill.Number, windowStart, windowEnd)
	result, err := s.oms.Execute(ctx, query)
	if err != nil {
		s.metrics.RecordQueryFailure("oms", lumisectionsResource)
		logging.WithStacktrace(ctx.Log, err).Errorf("OMS query for lumisections of fill %d failed", fill.Number)
		return nil
	}

	var buffer iov.Buffer[LHCInfoPerLS]
	switch {
	case s.policy == configuration.SampleAllLumis:
		for _, row := range result.Rows() {
			s.add(ctx, &buffer, fill, row)
		}
	case fill.IsOngoing():
		if row, ok := result.Back(); ok && row.GetBool(beamsStableField) {
			if s.add(ctx, &buffer, fill, row) {
				ctx.Log.Infof("Buffered most recent lumisection: %s", describeLumisection(row))
			}
		}
	default:
		for _, row := range result.Rows() {
			if row.GetBool(beamsStableField) {
				if s.add(ctx, &buffer, fill, row) {
					ctx.Log.Infof("Buffered first lumisection of stable beam: %s", describeLumisection(row))
				}
				break
			}
		}
	}
	ctx.Log.Infof("Found %d lumisections during the fill %d", result.Len(), fill.Number)
	s.metrics.RecordLumisections(len(buffer))
	return buffer
}

func (s *lumiSampler) add(ctx *popcontext.Context, buffer *iov.Buffer[LHCInfoPerLS], fill Fill, row oms.Row) bool {
	start, ok, err := row.GetTime(startTimeField)
	if err != nil || !ok {
		ctx.Log.Warnf("Skipping lumisection without a valid start time: %s", row.Raw())
		return false
	}
	buffer.Append(cond.FromTime(start), fill.Payload())
	return true
}

func describeLumisection(row oms.Row) string {
	ls, _ := row.GetString(lumisectionNumberField)
	run, _ := row.GetString(runNumberField)
	return "LS: " + ls + " run: " + run
}
