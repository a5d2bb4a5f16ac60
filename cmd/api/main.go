package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/gate"
	appHTTP "github.com/cmlabs-hris/presence-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/facedetect"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/geocode"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/postgresql"
	authService "github.com/cmlabs-hris/presence-backend-go/internal/service/auth"
	employeeService "github.com/cmlabs-hris/presence-backend-go/internal/service/employee"
	recordService "github.com/cmlabs-hris/presence-backend-go/internal/service/record"
	sessionService "github.com/cmlabs-hris/presence-backend-go/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dsn := cfg.DatabaseURL()
	if err := database.RunMigrations(context.Background(), dsn); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	userRepo := postgresql.NewUserRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	recordRepo := postgresql.NewRecordRepository(db)
	txRunner := postgresql.NewTxRunner(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration)

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(
			cfg.Storage.BasePath,
			cfg.Storage.BaseURL,
		)
		if err != nil {
			log.Fatal("Failed to initialize local storage:", err)
		}
	default:
		log.Fatal("Unsupported storage type: ", cfg.Storage.Type)
	}

	resolver := geocode.NewNominatimResolver(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout)
	hub := sse.NewHub()

	records := recordService.NewRecordService(recordRepo, txRunner, cfg.Location(), logger)
	employees := employeeService.NewEmployeeService(employeeRepo)
	auth := authService.NewAuthService(userRepo, employeeRepo, jwtService)

	gateCfg := gate.Config{
		ConfidenceThreshold: cfg.Gate.ConfidenceThreshold,
		SmileThreshold:      cfg.Gate.SmileThreshold,
		ArmDelay:            cfg.Gate.ArmDelay,
		Cooldown:            cfg.Gate.Cooldown,
	}

	sessions := sessionService.NewManager(
		records,
		employeeRepo,
		resolver,
		fileStorage,
		hub,
		gateCfg,
		cfg.Gate.PollInterval,
		cfg.Session.IdleTimeout,
		cfg.Location(),
		logger,
	)
	defer sessions.Shutdown()

	scheduler := cron.NewScheduler()
	scheduler.AddJob("reap_idle_sessions", cfg.Session.ReapInterval, sessions.Reap)
	scheduler.Start()
	defer scheduler.Stop()

	var detector facedetect.Detector
	if cfg.Detector.BaseURL != "" {
		detector = facedetect.NewHTTPDetector(cfg.Detector.BaseURL, cfg.Detector.Timeout)
	}

	authHandler := appHTTP.NewAuthHandler(jwtService, auth)
	attendanceHandler := appHTTP.NewAttendanceHandler(sessions, records, jwtService, hub, detector)
	employeeHandler := appHTTP.NewEmployeeHandler(employees)

	router := appHTTP.NewRouter(cfg, jwtService, authHandler, attendanceHandler, employeeHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
