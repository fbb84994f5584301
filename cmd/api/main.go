package main

import (
	"log"
	"net/http"

	"labtrace/internal/api"
	"labtrace/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("labtrace api listening on %s temporal=%s", cfg.APIAddr, cfg.TemporalAddress)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
