package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"golang.org/x/sync/errgroup"

	"uk.co.dudmesh.pinboard/internal/boot"
	"uk.co.dudmesh.pinboard/internal/handlers"
	"uk.co.dudmesh.pinboard/internal/logging"
	"uk.co.dudmesh.pinboard/internal/service/chat"
	"uk.co.dudmesh.pinboard/internal/service/password"
	"uk.co.dudmesh.pinboard/internal/service/quota"
	"uk.co.dudmesh.pinboard/internal/service/user"
	"uk.co.dudmesh.pinboard/internal/store"
)

// configureLogging keeps production quiet: no banner and INFO and above.
// Other environments log at DEBUG.
func configureLogging(server *echo.Echo, config *boot.Config) log.Lvl {
	level := logging.LevelFor(config.IsProduction())
	server.HideBanner = config.IsProduction()
	server.Logger.SetLevel(level)
	return level
}

func newServer(config *boot.Config, db *store.Store) *echo.Echo {
	server := echo.New()
	level := configureLogging(server, config)

	enforcer := quota.New(db.Messages(), quota.Policy{
		StandardLimitBytes: config.Quota.StandardLimitBytes,
		VerifiedLimitBytes: config.Quota.VerifiedLimitBytes,
	}, logging.New("quota", level))

	chatService := chat.New(db.Users(), db.Messages(), enforcer, chat.Options{
		FailClosed: config.Quota.FailClosed,
	}, logging.New("chat", level))

	guard := password.New(db.Users(), password.Policy{
		MaxAttempts:     config.Password.MaxChanges,
		LockoutDuration: config.LockoutDuration(),
	}, logging.New("password", level))

	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("pinboard"))
	server.Use(middleware.Recover())

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.AllowedOrigins(),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	handlers.Register(server, handlers.Config{
		JWTSecret:  config.Auth.JWTSecret,
		TokenTTL:   config.Auth.TokenTTL,
		AdminToken: config.Auth.AdminToken,
	}, user.New(db.Users()), chatService, guard, db)

	return server
}

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, config.DatabasePath(), store.Options{
		Retries:   config.Storage.Retries,
		RetryBase: config.Storage.RetryBase,
	})
	if err != nil {
		log.Fatalf("opening store: %+v", err)
	}
	defer db.Close()

	server := newServer(config, db)

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.GET("/metrics", echoprometheus.NewHandler())

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := server.Start(":" + config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), metrics.Shutdown(shutdownCtx))
	})

	if err := group.Wait(); err != nil {
		server.Logger.Fatal(err)
	}
}
