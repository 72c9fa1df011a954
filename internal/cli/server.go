package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"checkout-trainer/internal/app"
	"checkout-trainer/internal/config"
	"checkout-trainer/internal/game"
	"checkout-trainer/internal/infra/memory"
	"checkout-trainer/internal/infra/postgres"
	redisstore "checkout-trainer/internal/infra/redis"
	"checkout-trainer/internal/logging"
	"checkout-trainer/internal/metrics"
	"checkout-trainer/internal/scoring"
	transport "checkout-trainer/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trainer server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New("checkout-trainer", cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	trainer, cleanup, err := buildTrainer(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(trainer, log, m, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting checkout trainer")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// let in-flight result writes finish before the stores close
	trainer.Wait()
	return err
}

// buildTrainer wires the stores selected by cfg: Postgres for results when a
// URL is set, else Redis, else memory. The returned cleanup closes clients.
func buildTrainer(ctx context.Context, cfg config.Config, log *logrus.Entry, m *metrics.Metrics) (*app.Trainer, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts, err := trainerOptions(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, pool.Close)
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.SampleQuestions())
	switch {
	case cfg.Questions.Path != "":
		loader = memory.NewFileQuestionLoader(cfg.Questions.Path)
	case pool != nil:
		loader = postgres.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionBank
	if redisClient != nil {
		questions = redisstore.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewCachedQuestionBank(loader, questionTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	stores := app.Stores{Sessions: sessions, Questions: questions}
	switch {
	case cfg.Postgres.URL != "":
		db := openBun(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })
		setResultStores(&stores, postgres.NewStore(db))
	case redisClient != nil:
		setResultStores(&stores, redisstore.NewResultStore(redisClient, cfg.Redis.SessionHistory))
	default:
		setResultStores(&stores, memory.NewResultStore())
	}

	trainer := app.NewTrainer(stores, opts, app.WithLogger(log), app.WithMetrics(m))
	return trainer, cleanup, nil
}

type resultStore interface {
	app.SessionWriter
	app.StatsRepository
	app.LeaderboardRepository
	app.RapidScoreRepository
	app.BestTimeStore
}

func setResultStores(stores *app.Stores, rs resultStore) {
	stores.Results = rs
	stores.Stats = rs
	stores.Leaderboard = rs
	stores.Rapid = rs
	stores.BestTimes = rs
}

func trainerOptions(cfg config.Config) (app.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return app.Options{}, err
	}
	opts := app.DefaultOptions()
	opts.Quiz = game.QuizConfig{
		QuestionCount: cfg.Game.Quiz.QuestionCount,
		Countdown:     config.TTLDuration(cfg.Game.Quiz.Countdown, game.DefaultQuizConfig.Countdown),
		AnswerDelay:   config.TTLDuration(cfg.Game.Quiz.AnswerDelay, game.DefaultQuizConfig.AnswerDelay),
	}
	opts.Rapid = game.RapidConfig{
		Duration: config.TTLDuration(cfg.Game.Rapid.Duration, game.DefaultRapidConfig.Duration),
		Rules: scoring.RapidRules{
			PointsPerCorrect: cfg.Game.Rapid.PointsPerCorrect,
			PerfectBonus:     cfg.Game.Rapid.PerfectBonus,
		},
	}
	opts.Subtract = game.SubtractConfig{StartScore: cfg.Game.Subtract.StartScore}
	opts.TickInterval = config.TTLDuration(cfg.Game.TickInterval, game.DefaultTickInterval)
	opts.PersistTimeout = config.TTLDuration(cfg.Game.PersistTimeout, opts.PersistTimeout)
	opts.Location = loc
	return opts, nil
}
