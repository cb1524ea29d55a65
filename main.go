package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"chatroom/internal/auth"
	"chatroom/internal/config"
	"chatroom/internal/handlers"
	"chatroom/internal/middleware"
	"chatroom/internal/store/sqlstore"
	"chatroom/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	st, err := sqlstore.New(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	verifier := auth.NewVerifier(tokens, st)

	hub := ws.NewHub(logger, st, verifier, ws.Options{
		HistoryLimit:     cfg.HistoryLimit,
		MaxMessageLength: cfg.MaxMessageLength,
		SendBuffer:       cfg.SendBuffer,
	})
	go hub.Run()

	// Keep the messages table near the configured cap.
	go func() {
		ticker := time.NewTicker(cfg.PruneInterval)
		defer ticker.Stop()
		for range ticker.C {
			n, err := st.PruneMessages(cfg.MessageCap)
			if err != nil {
				logger.Warn("prune messages", "err", err)
			} else if n > 0 {
				logger.Info("pruned messages", "count", n)
			}
		}
	}()

	authHandler := &handlers.AuthHandler{Store: st, Tokens: tokens, Log: logger}
	messageHandler := &handlers.MessageHandler{Store: st, Hub: hub, Log: logger, MaxLength: cfg.MaxMessageLength}
	healthHandler := &handlers.HealthHandler{Store: st, Hub: hub, Log: logger}

	requireAuth := middleware.Auth(tokens)
	readLimit := middleware.RateLimit(rate.Every(100*time.Millisecond), 30)
	writeLimit := middleware.RateLimit(rate.Every(time.Second), 6)
	deleteLimit := middleware.RateLimit(rate.Every(time.Second), 5)

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/api/stats", healthHandler.Stats).Methods("GET")

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/verify", authHandler.Verify).Methods("GET")

	r.Handle("/api/messages", readLimit(http.HandlerFunc(messageHandler.List))).Methods("GET")
	r.Handle("/api/messages", writeLimit(requireAuth(http.HandlerFunc(messageHandler.Create)))).Methods("POST")
	r.Handle("/api/messages/recent", readLimit(http.HandlerFunc(messageHandler.Recent))).Methods("GET")
	r.Handle("/api/messages/{id}", deleteLimit(requireAuth(http.HandlerFunc(messageHandler.Delete)))).Methods("DELETE")

	r.HandleFunc("/ws", hub.ServeWS)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
