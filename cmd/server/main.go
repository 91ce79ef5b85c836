package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/aqlhr/import-engine/internal/server"
	"github.com/aqlhr/import-engine/modules"
	importerservices "github.com/aqlhr/import-engine/modules/importer/services"
	"github.com/aqlhr/import-engine/pkg/application"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/configuration"
	"github.com/aqlhr/import-engine/pkg/eventbus"
	"github.com/aqlhr/import-engine/pkg/logging"
	"github.com/aqlhr/import-engine/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules()...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Run(context.Background()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	startReconcilerBackground(conf, pool, logger, app)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	options := &server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	}
	serverInstance, err := server.Default(options)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// startReconcilerBackground schedules the periodic counter recount. It runs
// off the pool without a tenant context since it touches every tenant's jobs.
func startReconcilerBackground(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	app application.Application,
) {
	if !conf.Reconciler.Enabled {
		return
	}
	reconcilerLog := logger.WithField("component", "reconciler")
	reconciler := app.Service(importerservices.ReconcilerService{}).(*importerservices.ReconcilerService)

	c := cron.New()
	_, err := c.AddFunc(conf.Reconciler.Schedule, func() {
		ctx := composables.WithPool(context.Background(), pool)
		recounted, err := reconciler.ReconcileRecent(ctx)
		if err != nil {
			reconcilerLog.WithError(err).Error("reconcile run failed")
			return
		}
		if recounted > 0 {
			reconcilerLog.WithField("jobs", recounted).Info("recounted job counters")
		}
	})
	if err != nil {
		reconcilerLog.WithError(err).Warnf("invalid RECONCILER_SCHEDULE %q; reconciler disabled", conf.Reconciler.Schedule)
		return
	}
	c.Start()
}
