package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"device-relay/internal/db"
	"device-relay/internal/device"
	"device-relay/internal/httpapi"
	"device-relay/internal/logger"
	"device-relay/internal/notify"
	"device-relay/internal/relay"
	"device-relay/internal/telemetry"
)

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", ":8080", "http service address")
	flag.Parse()

	log := logger.New(os.Getenv("LOG_LEVEL"))

	sinkKind := os.Getenv("TELEMETRY_SINK")
	if sinkKind == "" {
		sinkKind = "redis"
	}

	// 2. Telemetry Sink (Platform Layer)
	var sink telemetry.Sink
	switch sinkKind {
	case "postgres":
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			log.Fatal().Msg("DB_DSN is not set")
		}
		database, err := db.NewDatabase(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Postgres")
		}
		if err := database.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		sink = telemetry.NewPostgresSink(database.Conn)
		log.Info().Msg("telemetry sink: postgres")

	case "redis":
		redisAddr := os.Getenv("REDIS_ADDR")
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}
		redisClient := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		sink = telemetry.NewRedisSink(redisClient, log)
		log.Info().Str("addr", redisAddr).Msg("telemetry sink: redis")

	default:
		log.Fatal().Str("sink", sinkKind).Msg("unknown TELEMETRY_SINK")
	}

	// 3. Core State
	registry := device.NewRegistry()

	// 4. Live Feed Hub
	hub := notify.NewHub(log)
	go hub.Run()

	// 5. Dispatcher + HTTP Handlers
	dispatcher := relay.NewDispatcher(registry, sink, hub, log)
	api := httpapi.NewHandler(registry, dispatcher, sink, log)

	// 6. Routes
	r := chi.NewRouter()
	r.Use(httpapi.RequestLogger(log))
	r.Use(middleware.Recoverer)

	api.Mount(r)
	r.Get("/ws", notify.ServeWs(hub, registry, log))

	log.Info().Str("addr", *addr).Msg("server starting")
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
