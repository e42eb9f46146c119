package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shiftsense/tracking-engine-go/internal/config"
	appHTTP "github.com/shiftsense/tracking-engine-go/internal/handler/http"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/cron"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/database"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/eventbus"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/jwt"
	"github.com/shiftsense/tracking-engine-go/internal/pkg/tracker"
	"github.com/shiftsense/tracking-engine-go/internal/repository/postgresql"
	scheduleService "github.com/shiftsense/tracking-engine-go/internal/service/schedule"
	sessionService "github.com/shiftsense/tracking-engine-go/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	sessionRepo := postgresql.NewSessionRepository(db)
	scheduleRepo := postgresql.NewScheduleRepository(db)
	jobSiteRepo := postgresql.NewJobSiteRepository(db)
	policyRepo := postgresql.NewPolicyRepository(db)
	consentRepo := postgresql.NewConsentRepository(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.StreamExpiration)
	hub := eventbus.NewHub()

	sessionSvc := sessionService.NewSessionService(sessionRepo, scheduleRepo, jobSiteRepo, policyRepo, hub, logger)
	scheduleSvc := scheduleService.NewScheduleService(scheduleRepo, jobSiteRepo, policyRepo, hub)

	coordinator := tracker.NewCoordinator(sessionSvc, consentRepo, tracker.NewNullSource(), cfg.Tracking.SampleInterval, logger)
	defer coordinator.StopAll()

	scheduler := cron.NewScheduler()
	cron.NewSessionJobs(sessionSvc).RegisterJobs(scheduler, cfg.Tracking.SweepInterval)
	scheduler.Start()
	defer scheduler.Stop()

	sessionHandler := appHTTP.NewSessionHandler(sessionSvc)
	scheduleHandler := appHTTP.NewScheduleHandler(scheduleSvc)
	trackingHandler := appHTTP.NewTrackingHandler(consentRepo, sessionSvc, coordinator)
	eventsHandler := appHTTP.NewEventsHandler(hub, jwtService)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Env:         cfg.App.Env,
		FrontendURL: cfg.App.FrontendURL,
	}, jwtService, sessionHandler, scheduleHandler, trackingHandler, eventsHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server starting", slog.Int("port", cfg.App.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
}
