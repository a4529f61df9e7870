package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizlive-service/internal/app"
	"quizlive-service/internal/config"
	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/memory"
	pginfra "quizlive-service/internal/infra/postgres"
	redisinfra "quizlive-service/internal/infra/redis"
	transport "quizlive-service/internal/transport/http"
)

const defaultReapInterval = 10 * time.Minute

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var sessions app.SessionRepository
	var players app.PlayerRepository
	var answers app.AnswerRepository
	var loader memory.BankLoader
	if pool != nil {
		sessions = pginfra.NewSessionRepo(pool)
		players = pginfra.NewPlayerRepo(pool)
		answers = pginfra.NewAnswerRepo(pool)
		loader = pginfra.NewQuestionBank(pool)
	} else {
		sessions = memory.NewSessionRepo()
		players = memory.NewPlayerRepo()
		answers = memory.NewAnswerRepo()
		loader = memory.NewStaticBank(sampleSets(), nil)
	}

	cacheTTL := config.Duration(cfg.Questions.CacheTTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewBankCache(redisClient, loader, cacheTTL)
	} else {
		bank = memory.NewCachedBank(loader, cacheTTL)
	}

	service := app.NewGameService(sessions, players, answers, bank, logger)

	var presence transport.PresenceTracker
	if redisClient != nil {
		presence = redisinfra.NewPresence(redisClient, config.Duration(cfg.Redis.TTL, 10*time.Minute))
	}

	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret)
	staleAfter := config.Duration(cfg.Game.StaleAfter, app.DefaultStaleThreshold)
	hostHandler := transport.NewHostHandler(service, auth, staleAfter, logger)
	wsHandler := transport.NewWSHandler(service, presence, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	hostHandler.Register(mux)

	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go service.RunReaper(reapCtx, config.Duration(cfg.Game.ReapInterval, defaultReapInterval), staleAfter)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz session server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleSets seeds the in-memory bank for local runs without Postgres.
func sampleSets() map[string][]domain.Question {
	return map[string][]domain.Question{
		"set-demo": {
			{Index: 0, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Answer: "4"},
			{Index: 1, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon", "Nice"}, Answer: "Paris", Explanation: "Paris has been the capital since 987."},
		},
	}
}
