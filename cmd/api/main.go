// @title           Ledger API
// @version         1.0
// @description     Account ledger: registration, login, balance queries and atomic balance updates.
// @host            localhost:8080
// @BasePath        /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Ledger/internal/app"
	"Ledger/internal/config"
	"Ledger/internal/logging"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("logger")
	}
	log.WithField("driver", cfg.Store.Driver).Info("config loaded, connecting account store")

	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("app init")
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown")
	}

	if err := application.Close(ctx); err != nil {
		log.WithError(err).Error("app close")
	}
}
