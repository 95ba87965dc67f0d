package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/soleilfit/class-booking/internal/config"
	"github.com/soleilfit/class-booking/internal/database"
	"github.com/soleilfit/class-booking/internal/handler"
	"github.com/soleilfit/class-booking/internal/middleware"
	"github.com/soleilfit/class-booking/internal/queue"
	"github.com/soleilfit/class-booking/internal/repository"
	"github.com/soleilfit/class-booking/internal/router"
	"github.com/soleilfit/class-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	bookingCfg := config.LoadBookingConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable

	templates := repository.NewTemplateRepo(db)
	sessions := repository.NewSessionRepo(db)
	bookings := repository.NewBookingRepo(db)
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenRepo(db)

	guard := service.NewGuard(bookings, rdb, bookingCfg.MaxActiveBookings, bookingCfg.MaxOriginPerDay)
	generator := service.NewGenerator(templates, sessions, bookingCfg.HorizonDays)
	sweeper := service.NewSweeper(bookings, sessions, bookingCfg.PendingDeadline)

	var notifier service.Notifier = service.NopNotifier{}
	if bookingCfg.BrokerEnabled {
		notifier = service.QueueNotifier{}
		// Reconnect loop; runs for the life of the process.
		go func() {
			if err := queue.StartBookingConsumer(); err != nil {
				log.Printf("queue consumer stopped: %v", err)
			}
		}()
	}

	bookingSvc := service.NewBookingService(
		bookingCfg, sessions, sessions, bookings, members,
		guard, service.SandboxPayments{}, notifier,
	)

	// Background workers stop with the server.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go generator.Run(workerCtx, bookingCfg.GenerateEvery)
	go sweeper.Run(workerCtx, bookingCfg.SweepEvery)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	var cache echo.MiddlewareFunc
	if rdb != nil {
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	authHandler := handler.NewAuthHandler(cfg, members, tokens)
	sessionHandler := handler.NewSessionHandler(sessions, bookingCfg.HorizonDays)
	bookingHandler := handler.NewBookingHandler(bookingSvc, bookings)
	adminHandler := handler.NewAdminHandler(templates, sessions, bookings, generator, bookingSvc)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, sessionHandler, cache)
	router.RegisterMember(e, bookingHandler, cfg.JWTSecret)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
