package lhcinfoperls

import (
	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/iov"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/common/poperrors"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/optics"
)

type opticsEnricher struct {
	source optics.Source
	// Set after a failure that would repeat on every window; no more queries are made.
	disabled bool
}

// opticsValues holds the last value seen for each optics quantity.
type opticsValues struct {
	lumiSection    uint32
	runNumber      uint32
	crossingAngleX float32
	crossingAngleY float32
	betaStarX      float32
	betaStarY      float32
}

func (v *opticsValues) update(row optics.Row) {
	if row.LumiSection != nil {
		v.lumiSection = uint32(*row.LumiSection)
	}
	if row.RunNumber != nil {
		v.runNumber = uint32(*row.RunNumber)
	}
	if row.CrossingAngleX != nil {
		v.crossingAngleX = *row.CrossingAngleX
	}
	if row.CrossingAngleY != nil {
		v.crossingAngleY = *row.CrossingAngleY
	}
	if row.BetaStarX != nil {
		v.betaStarX = *row.BetaStarX
	}
	if row.BetaStarY != nil {
		v.betaStarY = *row.BetaStarY
	}
}

func (v *opticsValues) applyTo(p *LHCInfoPerLS) {
	p.CrossingAngleX = v.crossingAngleX
	p.CrossingAngleY = v.crossingAngleY
	p.BetaStarX = v.betaStarX
	p.BetaStarY = v.betaStarY
	p.LumiSection = v.lumiSection
	p.RunNumber = v.runNumber
}

// enrich merges the optics measurements of [windowStart, windowEnd) into buffer. A measurement taken at t applies to
// every buffered payload valid at or after t, so each payload ends up with the latest values measured up to its
// since. It returns true if at least one measurement was applied.
func (e *opticsEnricher) enrich(ctx *popcontext.Context, buffer iov.Buffer[LHCInfoPerLS], windowStart, windowEnd cond.Time) (bool, error) {
	if e.disabled {
		ctx.Log.Debug("Optics enrichment is disabled for this execution")
		return false, nil
	}
	filter := iov.NewFilter(buffer)
	var values opticsValues
	applied := false
	err := e.source.ForEachRow(ctx, windowStart.Time(), windowEnd.Time(), func(row optics.Row) error {
		ctx.Log.Debugf("Optics row %s", row)
		if row.UpdateTime == nil {
			return nil
		}
		if !filter.Process(cond.FromTime(*row.UpdateTime)) {
			return nil
		}
		applied = true
		values.update(row)
		for i := filter.Current(); i < len(buffer); i++ {
			values.applyTo(&buffer[i].Payload)
		}
		return nil
	})
	if poperrors.IsPermanentQueryFailure(err) {
		ctx.Log.Errorf("Disabling optics enrichment for this execution: %s", err)
		e.disabled = true
	}
	return applied, err
}
