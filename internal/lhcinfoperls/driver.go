package lhcinfoperls

import (
	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/iov"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/oms"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/configuration"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/metrics"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/optics"
)

// ResumeState is what the driver needs to know about the tag it continues.
type ResumeState struct {
	// Number of IOVs in the tag
	Size int
	// Since of the last IOV in the tag
	LastSince cond.Time
	// Payload of the last IOV in the tag
	LastPayload LHCInfoPerLS
}

func (r ResumeState) IsEmpty() bool {
	return r.Size == 0
}

// fillState is the window of the last fill payloads were committed for.
type fillState struct {
	prevStart cond.OptionalTime
	prevEnd   cond.OptionalTime
}

// Driver walks the fills from where the tag left off up to now and builds the timeline of payloads to append.
type Driver struct {
	config configuration.LHCInfoPerLSConfiguration

	fills   *fillResolver
	lumis   *lumiSampler
	optics  *opticsEnricher
	clock   clock.PassiveClock
	metrics *metrics.Metrics
}

func NewDriver(
	config configuration.LHCInfoPerLSConfiguration,
	omsExecutor oms.Executor,
	opticsSource optics.Source,
	clock clock.PassiveClock,
	metrics *metrics.Metrics,
) *Driver {
	return &Driver{
		config:  config,
		fills:   &fillResolver{oms: omsExecutor, metrics: metrics},
		lumis:   &lumiSampler{oms: omsExecutor, policy: config.SamplingPolicy(), metrics: metrics},
		optics:  &opticsEnricher{source: opticsSource},
		clock:   clock,
		metrics: metrics,
	}
}

// Run samples the fills following resume. Upstream failures end the sampling early but are not errors: the
// timeline built so far is returned and the next execution picks up from there. Cancelling ctx aborts the run.
func (d *Driver) Run(ctx *popcontext.Context, resume ResumeState) (*iov.Timeline[LHCInfoPerLS], error) {
	executionTime := d.clock.Now()
	now := cond.FromTime(executionTime)
	endTime := cond.FromTime(d.config.EffectiveEndTime(executionTime))

	var timeline *iov.Timeline[LHCInfoPerLS]
	lastSince := resume.LastSince
	if resume.IsEmpty() {
		// A new tag starts with an empty payload valid from the beginning of time
		timeline = iov.NewTimeline[LHCInfoPerLS]()
		d.addEmptyPayload(ctx, timeline, cond.MinTime)
		lastSince = cond.MinTime
	} else {
		timeline = iov.NewTimelineAfter(resume.LastSince, resume.LastPayload)
		ctx.Log.Infof("The last IOV in the tag is valid since %s", lastSince)
	}

	target := cond.FromTime(d.config.StartTime)
	if lastSince > target {
		target = lastSince
	}
	ctx.Log.Infof("Starting sampling at %s", target)

	state := fillState{}
	if prev := resume.LastPayload; !resume.IsEmpty() && !prev.IsEmpty() {
		start, end, err := d.fills.fillTimes(ctx, prev.FillNumber)
		if err != nil {
			logging.WithStacktrace(ctx.Log, err).Errorf("Could not find end time of fill #%d", prev.FillNumber)
		} else {
			state = fillState{prevStart: start, prevEnd: end}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithMessage(err, "sampling interrupted")
		}
		if target >= now {
			ctx.Log.Infof("Sampling ended at the time %s", now)
			break
		}

		var fill Fill
		var windowStart cond.Time
		if prev := timeline.LastSeen(); !d.config.EndFill && !prev.IsEmpty() && !state.prevEnd.Valid {
			// Continue a fill which was ongoing when the tag was last written
			ctx.Log.Infof("Searching started fill #%d", prev.FillNumber)
			found, ok := d.fills.findFill(ctx, fillByNumberQuery(prev.FillNumber))
			if !ok {
				ctx.Log.Errorf("Could not find fill #%d", prev.FillNumber)
				break
			}
			fill = found
			windowStart = target
		} else {
			ctx.Log.Infof("Searching new fill after %s", target)
			strict := state.prevStart.Valid && target <= state.prevStart.Time
			found, ok := d.fills.findFill(ctx, nextFillQuery(target, strict, endTime, d.config.EndFill))
			if !ok {
				ctx.Log.Info("No fill found - END of job.")
				break
			}
			fill = found
			windowStart = fill.Start
		}
		d.metrics.RecordFill()
		fillCtx := popcontext.WithLogField(ctx, "fill", fill.Number)

		var windowEnd cond.Time
		if fill.IsOngoing() {
			fillCtx.Log.Infof("Found ongoing fill %d created at %s", fill.Number, fill.Start)
			windowEnd = now
		} else {
			fillCtx.Log.Infof("Found fill %d created at %s ending at %s", fill.Number, fill.Start, fill.End.Time)
			windowEnd = fill.End.Time
		}
		if windowEnd <= target {
			fillCtx.Log.Warnf("Fill %d ends at %s, not after the sampling cursor %s", fill.Number, windowEnd, target)
			break
		}
		target = windowEnd

		var buffer iov.Buffer[LHCInfoPerLS]
		if d.config.EndFill || fill.IsOngoing() {
			buffer = d.lumis.sample(fillCtx, fill, windowStart, windowEnd)
			if first, last, ok := buffer.Span(); ok {
				fillCtx.Log.Infof("First buffered lumi starts at %s last lumi starts at %s", first, last)
				applied, err := d.optics.enrich(fillCtx, buffer, windowStart, windowEnd)
				d.metrics.RecordEnrichment(applied, err)
				if err != nil {
					logging.WithStacktrace(fillCtx.Log, err).Error("Could not read optics parameters; payloads are stored without them")
				}
			}
		}

		added := iov.Transfer(fillCtx, buffer, timeline)
		d.metrics.RecordIovsAdded(added)
		fillCtx.Log.Infof("Added %d iovs within the Fill time", added)
		if added > 0 {
			state = fillState{prevStart: cond.Some(fill.Start), prevEnd: fill.End}
		}
		if !timeline.LastSeen().IsEmpty() && !fill.IsOngoing() {
			if d.addEmptyPayload(fillCtx, timeline, fill.End.Time) {
				state = fillState{}
			}
		}
	}
	return timeline, nil
}

// addEmptyPayload closes the last fill at since, unless the timeline already ends with an empty payload.
func (d *Driver) addEmptyPayload(ctx *popcontext.Context, timeline *iov.Timeline[LHCInfoPerLS], since cond.Time) bool {
	added, err := timeline.AddEmpty(since)
	if err != nil {
		logging.WithStacktrace(ctx.Log, err).Warnf("Could not add empty payload with IOV %s", since)
		return false
	}
	if added {
		d.metrics.RecordEmptyPayload()
		ctx.Log.Infof("Added empty payload with IOV %s", since)
	}
	return added
}
