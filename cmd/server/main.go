package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/xmlray/internal/api"
	"github.com/dgallion1/xmlray/internal/config"
	"github.com/dgallion1/xmlray/internal/history"
	"github.com/dgallion1/xmlray/internal/narthex"
	"github.com/dgallion1/xmlray/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	nx := narthex.NewClient(cfg.NarthexURL, cfg.NarthexAPIKey, cfg.UpstreamTimeout)

	var (
		recorder session.Recorder
		hist     api.History
		store    *history.Store
	)
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			log.Error("open delimiter history", "path", cfg.HistoryDB, "error", err)
			os.Exit(1)
		}
		recorder, hist = store, store
	}

	// Initialize sessions.
	mgr := session.NewManager(session.ManagerConfig{
		TTL:          cfg.SessionTTL,
		OrgID:        cfg.OrgID,
		PublicPrefix: cfg.PublicAPIPrefix,
	}, nx, recorder, log)
	mgr.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(mgr, hist, nx.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * cfg.UpstreamTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		mgr.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		nx.Close()
		if store != nil {
			store.Close()
		}
	}()

	log.Info("starting xmlray", "port", cfg.Port, "narthex", cfg.NarthexURL, "history", cfg.HistoryDB != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
