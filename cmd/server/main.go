// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/akatsuki-games/liveroom/internal/cache"
	"github.com/akatsuki-games/liveroom/internal/database"
	"github.com/akatsuki-games/liveroom/internal/handlers"
	"github.com/akatsuki-games/liveroom/internal/middleware"
	"github.com/akatsuki-games/liveroom/internal/room"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx)
	if err != nil {
		logger.Fatalf("database connect: %v", err)
	}
	defer pool.Close()

	// Redis is optional; without it token lookups always hit Postgres.
	var tokenCache *cache.TokenCache
	if os.Getenv("REDIS_ADDR") != "" {
		rdb, err := cache.ConnectRedis(ctx)
		if err != nil {
			logger.Fatalf("redis connect: %v", err)
		}
		defer rdb.Close()
		tokenCache = cache.NewTokenCache(rdb, cache.DefaultTokenTTL)
	}

	users := database.NewUsers(pool, tokenCache)
	svc := room.NewService(database.NewStore(pool), users, logger)

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// user endpoints
	mux.Handle("/user/create", logged(handlers.CreateUserHandler(users)))
	mux.Handle("/user/me", logged(handlers.MeHandler(users)))
	mux.Handle("/user/update", logged(handlers.UpdateUserHandler(users)))

	// room endpoints
	mux.Handle("/room/create", logged(handlers.CreateRoomHandler(svc)))
	mux.Handle("/room/list", logged(handlers.ListRoomsHandler(svc)))
	mux.Handle("/room/join", logged(handlers.JoinRoomHandler(svc)))
	mux.Handle("/room/wait", logged(handlers.WaitRoomHandler(svc)))
	mux.Handle("/room/start", logged(handlers.StartRoomHandler(svc)))
	mux.Handle("/room/end", logged(handlers.EndRoomHandler(svc)))
	mux.Handle("/room/result", logged(handlers.ResultRoomHandler(svc)))
	mux.Handle("/room/leave", logged(handlers.LeaveRoomHandler(svc)))

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	l, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
