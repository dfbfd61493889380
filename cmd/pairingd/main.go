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

	"github.com/justinjudd/pairings/config"
	"github.com/justinjudd/pairings/models/storm"
	"github.com/justinjudd/pairings/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading configuration: %s", err.Error())
	}

	store, err := storm.NewStorageEngine(cfg.DBPath)
	if err != nil {
		log.Fatalf("error opening %s: %s", cfg.DBPath, err.Error())
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(store, cfg.Seed, cfg.MaxBatch, cfg.MaxVertices),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %s", err.Error())
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	<-stopChan
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %s", err.Error())
	}

	log.Println("Shutdown complete")
}
