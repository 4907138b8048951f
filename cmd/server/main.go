package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/stratagem/internal/auth"
	"github.com/freeeve/stratagem/internal/config"
	"github.com/freeeve/stratagem/internal/handler"
	"github.com/freeeve/stratagem/internal/logger"
	"github.com/freeeve/stratagem/internal/middleware"
	"github.com/freeeve/stratagem/internal/repository/postgres"
	redisrepo "github.com/freeeve/stratagem/internal/repository/redis"
	"github.com/freeeve/stratagem/internal/service"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for timer expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (timer expiry may not work)")
	}

	// Repos
	matchRepo := postgres.NewMatchRepo(db)
	turnRepo := postgres.NewTurnRepo(db)
	messageRepo := postgres.NewMessageRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	matchSvc := service.NewMatchService(matchRepo, turnRepo, redisClient, jwtMgr)
	orderSvc := service.NewOrderService(matchRepo, turnRepo, redisClient)
	turnSvc := service.NewTurnService(matchRepo, turnRepo, redisClient, wsHub)
	viewSvc := service.NewViewService(matchRepo, turnRepo, redisClient)

	// Timer listener (auto-resolve on deadline expiry)
	timerListener := service.NewTimerListener(redisClient.Underlying(), turnSvc, turnRepo)

	// Handlers
	matchHandler := handler.NewMatchHandler(matchSvc, turnSvc, cfg.TurnDuration, cfg.MaxTurns)
	orderHandler := handler.NewOrderHandler(orderSvc, turnSvc, wsHub)
	viewHandler := handler.NewViewHandler(viewSvc)
	turnHandler := handler.NewTurnHandler(turnRepo, turnSvc)
	messageHandler := handler.NewMessageHandler(messageRepo, turnRepo, wsHub)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes. Match creation is open: credentials are minted with the
	// match and returned exactly once in the creation response.
	mux.HandleFunc("POST /api/v1/matches", matchHandler.CreateMatch)
	mux.HandleFunc("GET /api/v1/matches", matchHandler.ListMatches)
	mux.HandleFunc("GET /api/v1/matches/{id}", matchHandler.GetMatch)

	// Protected routes (match-scoped tokens)
	api := http.NewServeMux()
	api.HandleFunc("POST /matches/{id}/stop", matchHandler.StopMatch)
	api.HandleFunc("POST /matches/{id}/orders", orderHandler.SubmitOrders)
	api.HandleFunc("GET /matches/{id}/orders", orderHandler.GetOrders)
	api.HandleFunc("POST /matches/{id}/ready", orderHandler.MarkReady)
	api.HandleFunc("DELETE /matches/{id}/ready", orderHandler.UnmarkReady)
	api.HandleFunc("GET /matches/{id}/view", viewHandler.GetView)
	api.HandleFunc("GET /matches/{id}/turns", turnHandler.ListTurns)
	api.HandleFunc("GET /matches/{id}/turns/current", turnHandler.CurrentTurn)
	api.HandleFunc("GET /matches/{id}/turns/{turn}", turnHandler.GetTurn)
	api.HandleFunc("POST /matches/{id}/turns/{turn}/verify", turnHandler.VerifyTurn)
	api.HandleFunc("GET /matches/{id}/messages", messageHandler.ListMessages)
	api.HandleFunc("POST /matches/{id}/messages", messageHandler.SendMessage)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Recover active matches (rehydrate Redis from Postgres after restart)
	if err := turnSvc.RecoverActiveMatches(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active matches (non-fatal)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		timerListener.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}
