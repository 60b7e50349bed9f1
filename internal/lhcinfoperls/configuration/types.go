package configuration

import (
	"time"

	"github.com/armadaproject/popcon/internal/common/database"
)

// LumiSamplingPolicy selects which lumisections of a fill are turned into payloads.
type LumiSamplingPolicy string

const (
	// SampleAllLumis buffers one payload per lumisection.
	SampleAllLumis LumiSamplingPolicy = "all"
	// SampleFirstStableBeam buffers a single payload: the first stable lumisection of a finished fill, or the most
	// recent lumisection of an ongoing fill if it is stable.
	SampleFirstStableBeam LumiSamplingPolicy = "firstStableBeam"
)

type OmsConfig struct {
	// Timeout of a single OMS request
	Timeout time.Duration
	// Number of attempts made for each OMS query
	Attempts uint `validate:"gte=1"`
	// Base delay between attempts
	RetryDelay time.Duration
}

type ConditionsDbConfig struct {
	// Path of the SQLite conditions database; it is created if it does not exist
	Path string `validate:"required"`
}

type MetricsConfig struct {
	// If set, metrics are pushed to this Prometheus Pushgateway at the end of every execution
	PushGatewayUrl string `validate:"omitempty,url"`
	// Job label used when pushing
	Job string
}

type LHCInfoPerLSConfiguration struct {
	Debug bool
	// Sampling does not start before this time
	StartTime time.Time `validate:"required"`
	// Fills starting at or after this time are ignored. Zero, or a time in the future, means the execution time.
	EndTime time.Time
	// Kept for compatibility with existing job configurations; sampling is driven by lumisections.
	SamplingInterval time.Duration
	// If true only finished fills are processed, otherwise ongoing fills are sampled and continued on the next run.
	EndFill bool
	// Lumisection sampling policy; defaults to "all" if EndFill is set and "firstStableBeam" otherwise
	LumiSampling LumiSamplingPolicy `validate:"omitempty,oneof=all firstStableBeam"`
	// Tag the payloads are appended to
	Tag string `validate:"required"`
	// Name of the populator, used to label logs, metrics and execution log entries
	Name string `validate:"required"`

	// Connection to the database holding the optics parameters
	Postgres database.PostgresConfig
	// Schema of the optics parameters table
	DipSchema string `validate:"required"`
	// Directory holding authentication.yaml, whose entries are added to the Postgres connection parameters
	AuthenticationPath string

	OmsBaseUrl   string `validate:"required,url"`
	Oms          OmsConfig
	ConditionsDb ConditionsDbConfig
	Metrics      MetricsConfig
}

// SamplingPolicy returns the configured lumisection sampling policy, or the default for the fill mode.
func (c LHCInfoPerLSConfiguration) SamplingPolicy() LumiSamplingPolicy {
	if c.LumiSampling != "" {
		return c.LumiSampling
	}
	if c.EndFill {
		return SampleAllLumis
	}
	return SampleFirstStableBeam
}

// EffectiveEndTime returns the configured end time capped to now.
func (c LHCInfoPerLSConfiguration) EffectiveEndTime(now time.Time) time.Time {
	if c.EndTime.IsZero() || c.EndTime.After(now) {
		return now
	}
	return c.EndTime
}
