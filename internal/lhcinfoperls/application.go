package lhcinfoperls

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/popcon/internal/common/app"
	"github.com/armadaproject/popcon/internal/common/conddb"
	"github.com/armadaproject/popcon/internal/common/database"
	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/oms"
	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/configuration"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/metrics"
	"github.com/armadaproject/popcon/internal/lhcinfoperls/optics"
)

const metricsPushTimeout = 10 * time.Second

// Run performs one execution of the LHCInfoPerLS populator with the given configuration. It returns once the
// sampled payloads have been appended to the tag, or on SIGINT/SIGTERM.
func Run(config configuration.LHCInfoPerLSConfiguration) error {
	if err := logging.SetLevel("info", config.Debug); err != nil {
		return err
	}
	ctx, shutdown := app.CreateContextWithShutdown(log.WithField("handler", config.Name))
	defer shutdown()

	ctx.Log.Infof("Starting %s: tag %s, endFill %t, lumi sampling %s, sampling interval %s",
		config.Name, config.Tag, config.EndFill, config.SamplingPolicy(), config.SamplingInterval)

	config, err := config.WithAuthentication()
	if err != nil {
		return err
	}

	ctx.Log.Infof("Opening conditions database %s", config.ConditionsDb.Path)
	store, err := conddb.Open(ctx, config.ConditionsDb.Path)
	if err != nil {
		return errors.WithMessage(err, "error opening conditions database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.WithStacktrace(ctx.Log, err).Warn("Error closing conditions database")
		}
	}()

	ctx.Log.Info("Opening connection pool to postgres")
	db, err := database.OpenPgxPool(ctx, config.Postgres)
	if err != nil {
		return errors.WithMessage(err, "error opening connection to postgres")
	}
	defer db.Close()

	omsClient := oms.NewClient(oms.ClientConfig{
		BaseUrl:    config.OmsBaseUrl,
		Timeout:    config.Oms.Timeout,
		Attempts:   config.Oms.Attempts,
		RetryDelay: config.Oms.RetryDelay,
	})
	m := metrics.New(config.Name)
	clk := clock.RealClock{}

	driver := NewDriver(config, omsClient, optics.NewPostgresSource(db, config.DipSchema), clk, m)
	populator := NewPopulator(config.Tag, config.Name, store.WithClock(clk), driver, clk, m)
	_, runErr := populator.Run(ctx)

	if config.Metrics.PushGatewayUrl != "" {
		pushMetrics(ctx, m, config)
	}
	return runErr
}

func pushMetrics(ctx *popcontext.Context, m *metrics.Metrics, config configuration.LHCInfoPerLSConfiguration) {
	job := config.Metrics.Job
	if job == "" {
		job = config.Name
	}
	pushCtx, cancel := popcontext.Detached(ctx, metricsPushTimeout)
	defer cancel()
	if err := m.Push(pushCtx, config.Metrics.PushGatewayUrl, job); err != nil {
		logging.WithStacktrace(ctx.Log, err).Warn("Could not push metrics")
	}
}
