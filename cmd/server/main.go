package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xpertbrdev/thermal-print-service/internal/api"
	"github.com/xpertbrdev/thermal-print-service/internal/api/handlers"
	"github.com/xpertbrdev/thermal-print-service/internal/config"
	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/db"
	"github.com/xpertbrdev/thermal-print-service/internal/printer"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
	"github.com/xpertbrdev/thermal-print-service/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	store := printers.NewStore(database)

	monitor := core.NewMonitor(cfg.Monitoring)
	monitor.Start()
	defer monitor.Stop()

	sender := webhook.NewSender(database, cfg.Webhooks)
	sender.Start()
	defer sender.Stop()

	hub := handlers.NewEventHub()

	executor := printer.NewExecutor(store, cfg.Printing)
	engine := core.NewEngine(store, executor, cfg.Queue, monitor, sender, hub)

	ctx := context.Background()
	if err := engine.Start(ctx); err != nil {
		log.Fatalf("failed to start queue engine: %v", err)
	}
	defer engine.Stop()

	router, err := api.NewRouter(api.Dependencies{
		DB:       database,
		Engine:   engine,
		Monitor:  monitor,
		Store:    store,
		Executor: executor,
		Hub:      hub,
	})
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[server] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] forced shutdown: %v", err)
	}
}
