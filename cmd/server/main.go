package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoice-agent/internal/adapters/web"
	"invoice-agent/internal/ai"
	"invoice-agent/internal/app"
	"invoice-agent/internal/config"
	"invoice-agent/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.UsePostgres() {
		pg, err := store.NewPGStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer pg.Close()
		st = pg
		log.Println("State backend: postgres")
	} else {
		fs, err := store.NewFileStore(cfg.StateFile)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		st = fs
		log.Printf("State backend: file (%s)", cfg.StateFile)
	}

	agent, err := ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	svc, err := app.NewSessionService(ctx, st, agent)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           web.NewRouter(svc, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
