package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"draftbff/internal/bff"
	"draftbff/pkg/config"
	"draftbff/pkg/db"
	"draftbff/pkg/logger"
	"draftbff/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()
	if err != nil {
		log.Errorw("invalid configuration", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shutdownTracing := middleware.InitTracing("draftbff", log)

	pool := db.MustConnect(cfg, log)
	if pool != nil {
		defer pool.Close()
	}
	rdb := db.MustRedis(cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	app, err := bff.New(log, cfg, bff.WithPostgres(pool), bff.WithRedis(rdb))
	if err != nil {
		log.Errorw("startup failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("bff-service listening", "addr", cfg.HTTPAddr, "strategy", app.Strategy())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = shutdownTracing(ctx)
	log.Infow("bff-service stopped")
}
