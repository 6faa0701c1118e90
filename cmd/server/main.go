package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	basehdl "optometry_report/internal/api/base/handler"
	reportrouter "optometry_report/internal/api/report/router"
	reportsvc "optometry_report/internal/api/report/service"
	apirouter "optometry_report/internal/api/router"
	"optometry_report/internal/database"
	"optometry_report/internal/global"
	"optometry_report/internal/logger"
	"optometry_report/internal/worker"
)

// initLogger configures the application loggers from the environment.
func initLogger() {
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

func main() {
	initLogger()
	InitGlobal()
	InitRegistry()
	InitAliasTable()

	log := logger.GetAppLogger()
	cfg := global.MongoDB_ServerConfig

	svc, err := reportsvc.NewReportService()
	if err != nil {
		log.Fatalf("Failed to create report service: %v", err)
	}
	svc.RegisterHooks()

	mongoPing := func(ctx context.Context) error {
		return global.MongoDB_Session.Ping(ctx, nil)
	}
	var redisPing basehdl.Pinger
	if rc := svc.Cache(); rc.Enabled() {
		redisPing = rc.Ping
	}

	app := InitFiberApp(cfg)
	if err := apirouter.SetupRoutes(app,
		reportrouter.Register(svc, cfg.AccessKey),
		apirouter.SystemRoutes(basehdl.NewSystemHandler(mongoPing, redisPing)),
	); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}
	if cfg.AccessKey == "" {
		log.Warn("ACCESS_KEY is empty, report write routes are open")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshotWorker := worker.NewSnapshotWorker(svc, cfg.SnapshotWorkerInterval(), cfg.SnapshotWorker_Batch)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("📊 [SNAPSHOT] Worker goroutine panic")
			}
		}()
		snapshotWorker.Start(ctx)
	}()

	var scheduler *worker.SnapshotScheduler
	if cfg.SnapshotRebuildCron != "" {
		scheduler, err = worker.NewSnapshotScheduler(svc, cfg.SnapshotRebuildCron)
		if err != nil {
			log.WithError(err).Error("🗓️ [SNAPSHOT_CRON] Invalid SNAPSHOT_REBUILD_CRON, nightly rebuild disabled")
		} else {
			scheduler.Start()
		}
	}

	go func() {
		address := ":" + cfg.Address
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")
		if err := app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			log.Fatalf("Error in Fiber Listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("Fiber shutdown did not complete cleanly")
	}
	if err := database.CloseRedis(global.Redis_Client); err != nil {
		log.WithError(err).Warn("Failed to close Redis")
	}
	if err := database.CloseInstance(global.MongoDB_Session); err != nil {
		log.WithError(err).Warn("Failed to close MongoDB")
	}
	log.Info("Server stopped")
}
