package lhcinfoperls

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/armadaproject/popcon/internal/common/conddb"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/metrics"
)

const tagDescription = "LHC machine conditions per lumisection"

// Populator runs one execution against a tag: it resumes from the last IOV stored, samples new payloads and
// appends them to the tag. Each execution is recorded in the store's execution log.
type Populator struct {
	tag     string
	name    string
	store   *conddb.Store
	driver  *Driver
	clock   clock.PassiveClock
	metrics *metrics.Metrics
}

func NewPopulator(tag string, name string, store *conddb.Store, driver *Driver, clock clock.PassiveClock, metrics *metrics.Metrics) *Populator {
	return &Populator{
		tag:     tag,
		name:    name,
		store:   store,
		driver:  driver,
		clock:   clock,
		metrics: metrics,
	}
}

// Run performs an execution and returns the number of IOVs written.
func (p *Populator) Run(ctx *popcontext.Context) (int, error) {
	start := p.clock.Now()
	written, err := p.populate(ctx)
	end := p.clock.Now()

	execution := conddb.Execution{
		Tag:         p.tag,
		Handler:     p.name,
		StartTime:   start,
		EndTime:     end,
		IovsWritten: written,
		Status:      conddb.ExecutionSucceeded,
	}
	if err != nil {
		execution.Status = conddb.ExecutionFailed
		execution.Message = err.Error()
	}
	p.metrics.RecordExecution(string(execution.Status), written, start, end)

	// The execution is logged even if ctx was cancelled
	logCtx, cancel := popcontext.Detached(ctx, 10*time.Second)
	defer cancel()
	id, logErr := p.store.LogExecution(logCtx, execution)
	if logErr != nil {
		logging.WithStacktrace(ctx.Log, logErr).Error("Could not record execution")
		return written, multierror.Append(err, logErr).ErrorOrNil()
	}
	ctx.Log.Infof("Execution %s %s: %d iovs written", id, execution.Status, written)
	return written, err
}

func (p *Populator) populate(ctx *popcontext.Context) (int, error) {
	info, err := p.store.TagInfo(ctx, p.tag)
	if err != nil {
		return 0, errors.WithMessagef(err, "could not read info of tag %s", p.tag)
	}
	resume := ResumeState{Size: info.Size, LastSince: info.LastInterval.Since}
	if info.IsEmpty() {
		ctx.Log.Infof("New tag %s", p.tag)
	} else {
		ctx.Log.Infof("Got info for tag %s: size %d, last object valid since %s", p.tag, info.Size, info.LastInterval.Since)
		payload, err := conddb.FetchPayload[LHCInfoPerLS](ctx, p.store, ObjectType, info.LastInterval.PayloadId)
		if err != nil {
			return 0, errors.WithMessagef(err, "could not fetch the last payload of tag %s", p.tag)
		}
		resume.LastPayload = payload
	}

	timeline, err := p.driver.Run(ctx, resume)
	if err != nil {
		return 0, err
	}

	written, err := conddb.AppendIovs(ctx, p.store, conddb.Tag{
		Name:        p.tag,
		ObjectType:  ObjectType,
		Description: tagDescription,
	}, timeline.Entries())
	if err != nil {
		return 0, errors.WithMessagef(err, "could not append iovs to tag %s", p.tag)
	}
	ctx.Log.Infof("Appended %d iovs to tag %s", written, p.tag)
	return written, nil
}
