package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/Kingsman71/Binary-Learning/apps/api/echo"
	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/program"
	"github.com/Kingsman71/Binary-Learning/core/student"
	emailsvc "github.com/Kingsman71/Binary-Learning/services/email"
	logsvc "github.com/Kingsman71/Binary-Learning/services/logger"
	"github.com/Kingsman71/Binary-Learning/services/metrics"
	"github.com/Kingsman71/Binary-Learning/services/ratelimit"
	"github.com/Kingsman71/Binary-Learning/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	stores, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
		defer cancel()
		if err = stores.Close(ctx); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	dbLogger.Info(fmt.Sprintf("using %s store", stores.Engine))

	// set up rate limiting; requests go through when redis is not configured
	rdb, err := ratelimit.NewRedisClient(context.Background(), conf.Redis)
	if err != nil {
		logger.Warn(fmt.Sprintf("rate limiting disabled: %v", err), err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	limiter := ratelimit.NewRedisLimiter(rdb, conf.RateLimit.SubmitLimit, conf.RateLimit.SubmitWindow)

	// set up services
	var sender core.EmailSender
	if conf.Debug {
		sender = emailsvc.NewConsoleSender(conf)
	} else {
		sender = emailsvc.NewSendgridSender(conf)
	}
	mailSvc := emailsvc.NewService(sender, logger, conf, metrics.Notifications{})

	catalog, err := program.DefaultCatalog()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading program catalog: %v", err), err)
	}
	validate := core.NewValidator()

	stdSvc := student.NewService(stores.Students, validate)
	appSvc := application.NewService(stores.Applications, catalog, mailSvc, validate, logger).
		WithMetrics(metrics.Lifecycle{})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus registry.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("store").Set(stores.Engine)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	deps := echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Catalog:        catalog,
		StudentSvc:     stdSvc,
		ApplicationSvc: appSvc,
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	server := echoapi.NewServer(deps)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB opens the configured store; postgres databases are created and migrated first.
func setUpDB(conf *core.Config) (*database.Stores, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	if conf.Database.Engine == core.EnginePostgres {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
	}

	stores, err := database.OpenStores(ctx, conf)
	if err != nil {
		return nil, err
	}
	if stores.SQL != nil {
		if err = database.Migrate(stores.SQL.DB, "up"); err != nil {
			_ = stores.Close(ctx)
			return nil, err
		}
	}
	return stores, nil
}
