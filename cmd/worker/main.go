package main

import (
	"context"
	"log"
	"time"

	"labtrace/internal/activities"
	"labtrace/internal/config"
	"labtrace/internal/storage"
	"labtrace/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	activities.Register(w, activities.New(cfg, db))

	log.Printf("labtrace worker listening on %s queue=%s in=%s out=%s", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.DataInRoot, cfg.DataOutRoot)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
