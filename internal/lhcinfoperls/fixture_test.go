package lhcinfoperls

import (
	"context"
	"time"

	clock "k8s.io/utils/clock/testing"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/iov"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/oms/omstest"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/configuration"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/metrics"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/optics"
)

var baseTime = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

// at returns the time s seconds after baseTime.
func at(s int) time.Time {
	return baseTime.Add(time.Duration(s) * time.Second)
}

func since(s int) cond.Time {
	return cond.FromTime(at(s))
}

const ongoing = -1

type fixture struct {
	oms     *omstest.FakeService
	optics  *optics.StaticSource
	clock   *clock.FakePassiveClock
	metrics *metrics.Metrics
}

func newFixture(now int) *fixture {
	return &fixture{
		oms:     omstest.NewFakeService(),
		optics:  &optics.StaticSource{},
		clock:   clock.NewFakePassiveClock(at(now)),
		metrics: metrics.New("test"),
	}
}

// fill adds a fill with stable beams; pass ongoing as end for a fill that has not ended.
func (f *fixture) fill(number uint16, start int, end int) *fixture {
	var endTime any
	if end != ongoing {
		endTime = at(end)
	}
	f.oms.Add(fillsResource, omstest.Row{
		fillNumberField:      number,
		startTimeField:       at(start),
		endTimeField:         endTime,
		startStableBeamField: at(start),
	})
	return f
}

func (f *fixture) lumi(fill uint16, start int, run uint32, ls uint32, stable bool) *fixture {
	f.oms.Add(lumisectionsResource, omstest.Row{
		fillNumberField:        fill,
		startTimeField:         at(start),
		runNumberField:         run,
		lumisectionNumberField: ls,
		beamsStableField:       stable,
	})
	return f
}

func (f *fixture) opticsRow(t int, run int32, ls int32, crossingAngle float32, betaStar float32) *fixture {
	updateTime := at(t)
	f.optics.Rows = append(f.optics.Rows, optics.Row{
		UpdateTime:     &updateTime,
		LumiSection:    &ls,
		RunNumber:      &run,
		CrossingAngleX: &crossingAngle,
		CrossingAngleY: &crossingAngle,
		BetaStarX:      &betaStar,
		BetaStarY:      &betaStar,
	})
	return f
}

func (f *fixture) driver(config configuration.LHCInfoPerLSConfiguration) *Driver {
	return NewDriver(config, f.oms, f.optics, f.clock, f.metrics)
}

func testConfig(endFill bool) configuration.LHCInfoPerLSConfiguration {
	return configuration.LHCInfoPerLSConfiguration{
		StartTime: baseTime,
		EndFill:   endFill,
		Tag:       "LHCInfoPerLS_test",
		Name:      "test",
	}
}

func testContext() *popcontext.Context {
	return popcontext.New(context.Background(), logging.NullEntry())
}

// bootstrap is the empty payload a new tag starts with.
func bootstrap() iov.Entry[LHCInfoPerLS] {
	return iov.Entry[LHCInfoPerLS]{Since: cond.MinTime}
}

func empty(s int) iov.Entry[LHCInfoPerLS] {
	return iov.Entry[LHCInfoPerLS]{Since: since(s)}
}

func payload(s int, p LHCInfoPerLS) iov.Entry[LHCInfoPerLS] {
	return iov.Entry[LHCInfoPerLS]{Since: since(s), Payload: p}
}

func withOptics(fill uint16, run uint32, ls uint32, crossingAngle float32, betaStar float32) LHCInfoPerLS {
	return LHCInfoPerLS{
		FillNumber:     fill,
		RunNumber:      run,
		LumiSection:    ls,
		CrossingAngleX: crossingAngle,
		CrossingAngleY: crossingAngle,
		BetaStarX:      betaStar,
		BetaStarY:      betaStar,
	}
}
