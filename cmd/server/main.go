package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/enum"
	"github.com/cateradmin/api/internal/gateway"
	"github.com/cateradmin/api/internal/router"
	"github.com/cateradmin/api/internal/service"
	"github.com/cateradmin/api/internal/store"
	"github.com/cateradmin/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	schemes, err := config.LoadSchemes(cfg.SchemesFile)
	if err != nil {
		log.Fatalf("Unable to load schemes: %v", err)
	}
	log.Printf("Loaded %d schemes", len(schemes))

	var backend service.Backend
	switch cfg.Backend {
	case enum.BackendHTTP:
		if cfg.APISecret == "" {
			log.Println("WARNING: API_SECRET is empty, requests to the catalog API are unsigned")
		}
		backend = gateway.NewClient(cfg.APIBaseURL, cfg.APISecret, cfg.APITimeout)
		log.Printf("Using catalog API at %s", cfg.APIBaseURL)
	case enum.BackendPostgres:
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("Unable to ping database: %v", err)
		}
		log.Println("Connected to database")
		backend = store.NewPositionStore(pool)
	default:
		log.Fatalf("Unknown BACKEND %q (want %q or %q)", cfg.Backend, enum.BackendHTTP, enum.BackendPostgres)
	}

	hub := ws.NewHub()
	go hub.Run()

	sessions := service.NewManager(schemes, backend, hub)
	r := router.New(cfg, sessions, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
