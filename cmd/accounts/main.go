package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts_service/internal/config"
	"github.com/Skotchmaster/accounts_service/internal/events"
	"github.com/Skotchmaster/accounts_service/internal/httpserver"
	"github.com/Skotchmaster/accounts_service/internal/middleware"
	"github.com/Skotchmaster/accounts_service/internal/repo"
	"github.com/Skotchmaster/accounts_service/internal/service"
	"github.com/Skotchmaster/accounts_service/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(middleware.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
	}

	gormRepo := repo.GormRepo{DB: db}

	var publisher events.Publisher
	if producer != nil {
		publisher = producer
	}

	authSvc := &service.AuthService{
		Repo:       gormRepo,
		Events:     publisher,
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	accountSvc := &service.AccountService{
		Repo:   gormRepo,
		Events: publisher,
	}

	httpserver.Register(e, &httpserver.Deps{
		Auth:     &httpserver.AuthHTTP{Svc: authSvc},
		Accounts: &httpserver.AccountsHTTP{Svc: accountSvc},
		Gate:     middleware.NewAuthorize(gormRepo, cfg.JWTSecret),
	})

	go func() {
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
