package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pps-segura/pesotrack/internal/config"
	"github.com/pps-segura/pesotrack/internal/hash"
	"github.com/pps-segura/pesotrack/internal/httpserver"
	"github.com/pps-segura/pesotrack/internal/logging"
	appmw "github.com/pps-segura/pesotrack/internal/middleware"
	"github.com/pps-segura/pesotrack/internal/password"
	"github.com/pps-segura/pesotrack/internal/service"
	"github.com/pps-segura/pesotrack/internal/store"
	"github.com/pps-segura/pesotrack/internal/tokens"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.GeneratedSecret {
		logger.Warn("JWT_SECRET not configured; generated a process-lifetime secret, " +
			"all outstanding tokens become invalid on restart")
	}

	st, err := store.Open(cfg.StorageBackend, cfg.SQLitePath, cfg.StorageKey)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()
	logger.Info("store ready", "backend", cfg.StorageBackend)

	engine := tokens.NewEngine(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, st)

	failMode := password.FailClosed
	if !cfg.HIBPFailClosed {
		failMode = password.FailOpen
	}
	policy := &password.Policy{
		MinLength:        cfg.PasswordMinLength,
		CommonListPath:   cfg.CommonPasswordsPath,
		FallbackListPath: cfg.FallbackPasswordsPath,
		Breach:           password.NewBreachClient(cfg.HIBPAPIURL, cfg.HIBPTimeout),
		FailMode:         failMode,
	}

	hasher := hash.New(hash.Params{
		TimeCost:    cfg.Argon2TimeCost,
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Parallelism: cfg.Argon2Parallelism,
		SaltLen:     cfg.Argon2SaltLen,
		KeyLen:      cfg.Argon2KeyLen,
	}, cfg.PasswordPepper)

	authSvc := &service.AuthService{
		Store:  st,
		Hasher: hasher,
		Policy: policy,
		Tokens: engine,
	}
	weightSvc := &service.WeightService{Store: st}

	sweepCtx, stopSweep := context.WithCancel(logging.IntoContext(context.Background(), logger))
	defer stopSweep()
	go authSvc.SweepLoop(sweepCtx, cfg.SweepEvery)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		Auth:    &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		Weights: &httpserver.WeightsHTTP{Svc: weightSvc},
		AuthMW:  appmw.NewAuth(engine),
		Logger:  logger,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
}
