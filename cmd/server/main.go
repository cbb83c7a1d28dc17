// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/nrujac/gamehub/internal/auth"
	"github.com/nrujac/gamehub/internal/cache"
	"github.com/nrujac/gamehub/internal/database"
	"github.com/nrujac/gamehub/internal/handlers"
	"github.com/nrujac/gamehub/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, game event history disabled: %v", err)
	}

	srv := handlers.NewLobbyServer(logger)

	mux := http.NewServeMux()

	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LobbyWSHandler(logger, srv),
	)))
	mux.Handle("/rooms", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListRoomsHandler(srv),
	)))
	mux.Handle("/tournaments", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListTournamentsHandler(srv),
	)))
	mux.HandleFunc("/healthz", handlers.HealthHandler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
