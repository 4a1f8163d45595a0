package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/views"
	"github.com/spec-kit/complaint-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	complaintRepo := repository.NewComplaintRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	historyRepo := repository.NewComplaintHistoryRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		ComplaintRepo: complaintRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:  complaintRepo,
		DepartmentRepo: departmentRepo,
		HistoryRepo:    historyRepo,
		Assigner:       assignmentService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ratingService := service.NewRatingService(service.RatingDependencies{
		ComplaintRepo: complaintRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	staffService := service.NewStaffService(service.OrgDependencies{
		DepartmentRepo: departmentRepo,
		StaffRepo:      staffRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	synchronizer := views.NewSynchronizer(views.SynchronizerDependencies{
		ComplaintRepo: complaintRepo,
		RedisClient:   redis.ClientHandle(),
		Channel:       cfg.Escalation.MirrorChannel,
		Logger:        logger,
	})
	synchronizer.RegisterHandlers(dispatcher)
	if err := synchronizer.Register(ctx, views.NewEscalationMirror()); err != nil {
		logger.Warn("escalation mirror priming failed", zap.Error(err))
	}
	synchronizer.StartListener(ctx)

	sweeper := worker.NewSweeper(worker.SweeperDependencies{
		Source:        complaintRepo,
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Interval:      cfg.Escalation.SweepInterval(),
		RecordTimeout: cfg.Escalation.RecordTimeout(),
	})
	go sweeper.Run(ctx)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, staffRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Complaints:      handlers.NewComplaintsHandler(complaintService, ratingService, staffService),
		StaffComplaints: handlers.NewStaffComplaintsHandler(complaintService),
		Staff:           handlers.NewStaffHandler(staffService, assignmentService, sweeper),
		AuthMiddleware:  authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
