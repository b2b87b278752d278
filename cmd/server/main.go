package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/optcgsim/duel-server-go/internal/auth"
	"github.com/optcgsim/duel-server-go/internal/catalog"
	"github.com/optcgsim/duel-server-go/internal/config"
	"github.com/optcgsim/duel-server-go/internal/game"
	"github.com/optcgsim/duel-server-go/internal/server"
	"github.com/optcgsim/duel-server-go/internal/storage"
	"github.com/optcgsim/duel-server-go/internal/timers"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.NewWithStarterSet()
	if cfg.Cards.Dir != "" {
		if err := cat.LoadDir(cfg.Cards.Dir); err != nil {
			logger.Fatal("failed to load card definitions",
				zap.String("dir", cfg.Cards.Dir),
				zap.Error(err))
		}
	}
	logger.Info("card catalog loaded", zap.Int("cards", cat.Len()))

	var store storage.HistoryStore = storage.NoopStore{}
	if cfg.Database.URL != "" {
		pg, err := storage.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		store = pg
	} else {
		logger.Warn("no database configured; match results will not be persisted")
	}
	defer store.Close()

	engine := game.NewEngine(logger, cat, game.WithMatchEndHook(func(res game.MatchResult) {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rec := storage.MatchRecord{
			MatchID:    res.MatchID,
			PlayerA:    res.Players[0],
			PlayerB:    res.Players[1],
			WinnerID:   res.WinnerID,
			Reason:     string(res.Reason),
			Turns:      res.Turns,
			Duration:   res.EndedAt.Sub(res.StartedAt),
			FinishedAt: res.EndedAt,
		}
		if err := store.RecordResult(recordCtx, rec); err != nil {
			logger.Error("failed to record match result",
				zap.String("matchId", res.MatchID),
				zap.Error(err))
		}
	}))

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret, err = randomSecret()
		if err != nil {
			logger.Fatal("failed to generate token secret", zap.Error(err))
		}
		logger.Warn("jwt secret not configured; rejoin tokens will not survive a restart")
	}
	tokens := auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL)

	gate, err := auth.NewAdminGate(cfg.Auth.AdminUser, cfg.Auth.AdminPassword)
	if err != nil {
		logger.Fatal("failed to initialize admin gate", zap.Error(err))
	}
	if !gate.Enabled() {
		logger.Warn("admin password not configured; ops endpoints disabled")
	}

	clocks := timers.NewService(logger, engine, timers.Limits{
		Turn:      cfg.Timers.TurnLimit,
		Response:  cfg.Timers.ResponseLimit,
		Effect:    cfg.Timers.EffectLimit,
		Mulligan:  cfg.Timers.MulliganLimit,
		TurnOrder: cfg.Timers.TurnOrderLimit,
	})

	hub := server.NewHub(logger, engine, cat, tokens, clocks, server.Options{
		RejoinWindow: cfg.Timers.RejoinWindow,
		BotEnabled:   cfg.AI.Enabled,
		BotName:      cfg.AI.Name,
		BotDelay:     cfg.AI.MoveDelay,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/admin/matches", requireAdmin(gate, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string][]string{"matches": engine.MatchIDs()})
	}))
	mux.HandleFunc("/admin/replay", requireAdmin(gate, func(w http.ResponseWriter, r *http.Request) {
		rl, err := engine.Replay(r.URL.Query().Get("match"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		payload, err := rl.Export()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))

	httpServer := &http.Server{
		Addr:    cfg.Server.WebSocketAddress,
		Handler: mux,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("websocket gateway listening",
			zap.String("address", cfg.Server.WebSocketAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddress)
		if err != nil {
			return err
		}
		logger.Info("grpc health endpoint listening",
			zap.String("address", cfg.Server.GRPCAddress))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown error", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}

	// Stop any match workers still running so their goroutines exit.
	for _, id := range engine.MatchIDs() {
		engine.CloseMatch(id)
	}

	logger.Info("duel server stopped")
}

func requireAdmin(gate *auth.AdminGate, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !gate.Check(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="duel-server"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func randomSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
