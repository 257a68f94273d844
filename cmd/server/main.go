package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hello-actuator/internal/buildinfo"
	"github.com/iliyamo/hello-actuator/internal/config"
	"github.com/iliyamo/hello-actuator/internal/database"
	"github.com/iliyamo/hello-actuator/internal/handler"
	"github.com/iliyamo/hello-actuator/internal/health"
	"github.com/iliyamo/hello-actuator/internal/middleware"
	"github.com/iliyamo/hello-actuator/internal/router"
)

func main() {
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	reg := health.NewRegistry(cfg.HealthTimeout)
	reg.Register(health.Ping())

	// Optional backends: a failure is logged and the backend skipped.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		e.Logger.Warnf("redis disabled: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		reg.Register(health.Redis(rdb))
	}
	if cfg.DB.Enabled() {
		if db, err := database.Open(cfg.DB); err != nil {
			e.Logger.Warnf("db health indicator disabled: %v", err)
		} else {
			defer db.Close()
			reg.Register(health.DB(db))
		}
	}
	if cfg.RabbitMQ != "" {
		reg.Register(health.Rabbit(cfg.RabbitMQ))
	}

	router.RegisterRoutes(e,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	app := handler.AppInfo{Name: cfg.AppName, Description: cfg.AppDescription}
	router.RegisterActuator(e, handler.NewActuatorHandler(reg, app, cfg.ShowDetails))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("%s listening on %s (env=%s, health=%v)", buildinfo.String(), addr, cfg.Env, reg.Names())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}

func logLevel(s string) log.Lvl {
	switch s {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
