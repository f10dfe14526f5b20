package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"pixelcanvas/internal/db"
	"pixelcanvas/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations instead of listing them")
	dir := flag.String("dir", filepath.Join("internal", "migrations"), "migrations directory")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), false)
	defer logger.Sync()

	if !*apply {
		files, err := db.MigrationFiles(*dir)
		if err != nil {
			logger.Fatal("read migrations dir", "error", err)
		}
		for _, f := range files {
			fmt.Println(filepath.Base(f))
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	if err := db.ApplyMigrations(context.Background(), pool, *dir); err != nil {
		logger.Fatal("migrations failed", "error", err)
	}
}
