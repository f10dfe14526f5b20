package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pixelcanvas/internal/db"
	"pixelcanvas/internal/logger"
	"pixelcanvas/internal/repository"
	"pixelcanvas/internal/service"

	"github.com/joho/godotenv"
)

// Provisions a user in Postgres and prints a bearer token for it.
func main() {
	uid := flag.String("uid", "testuser", "user id")
	name := flag.String("name", "Tester", "display name")
	email := flag.String("email", "", "email")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init("info", false)

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	users := service.NewUserService(repo, service.NewAuditService(repository.NewAuditRepository(pool)), 0)

	id := service.Identity{UID: *uid, Name: *name, Email: *email}
	u, err := users.Provision(context.Background(), id, service.ProfileUpdate{})
	if err != nil {
		logger.Fatal("provision failed", "error", err)
	}
	logger.Info("user ready", "uid", u.UID, "name", u.DisplayName, "free_pixels", u.FreePixels, "code", u.UniqueCode)

	service.InitJWT(secret)
	token, err := service.GenerateJWT(id)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
