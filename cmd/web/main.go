package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"mockexam/internal/app"
	"mockexam/internal/db"
	"mockexam/internal/grading"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	dbConn, err := db.OpenWithConfig(context.Background(), cfg.DBDriver, cfg.DBDSN, db.Config{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.Printf("database error: %v", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	janitor := grading.NewJanitor(grading.NewService(dbConn), cfg.ResultRetentionDays)
	janitor.Start()
	defer janitor.Stop()

	r := app.NewRouter(cfg, dbConn)

	log.Printf("mockexam web listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
