package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/app"
	"github.com/xuanlam2007/scholium/internal/config"
	"github.com/xuanlam2007/scholium/internal/controller"
	"github.com/xuanlam2007/scholium/internal/controller/handlers"
	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/repository"
	"github.com/xuanlam2007/scholium/internal/repository/memory"
	"github.com/xuanlam2007/scholium/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting scholium server",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.String("notifier", cfg.Notifier),
		zap.String("addr", cfg.HTTPAddr))

	// ============ Хранилище ============

	var (
		repos service.Repositories
		pool  *pgxpool.Pool
	)
	switch cfg.Store {
	case config.StorePostgres:
		var err error
		pool, err = pgxpool.New(ctx, cfg.GetDBDSN())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return err
		}
		logger.Info("Connected to database")

		if cfg.RunMigrations {
			migrator, err := app.NewMigrator(pool, logger)
			if err != nil {
				return err
			}
			err = migrator.Run(ctx)
			migrator.Close()
			if err != nil {
				return err
			}
		}

		repos = service.Repositories{
			Scholiums: repository.NewScholiumRepository(pool, logger),
			Members:   repository.NewMemberRepository(pool, logger),
			Homework:  repository.NewHomeworkRepository(pool, logger),
			Subjects:  repository.NewSubjectRepository(pool, logger),
		}
	default:
		store := memory.NewStore()
		repos = service.Repositories{
			Scholiums: store.Scholiums(),
			Members:   store.Members(),
			Homework:  store.Homework(),
			Subjects:  store.Subjects(),
		}
		logger.Warn("Using in-memory store, data is lost on restart")
	}

	// ============ Доставка событий ============

	scheduler := app.NewScheduler(logger)
	bus := notifier.NewBus(logger)

	var (
		n         notifier.Notifier = bus
		publisher notifier.Notifier
	)
	switch cfg.Notifier {
	case config.NotifierPostgres:
		pg := notifier.NewPostgresNotifier(pool, bus, logger)
		scheduler.AddRunner("postgres-listener", pg)
		n = pg
		// триггеры публикуют изменения данных, явные события идут в шину
		publisher = bus
	case config.NotifierRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()

		rn := notifier.NewRedisNotifier(client, bus, logger)
		scheduler.AddRunner("redis-relay", rn)
		n = rn
	}
	scheduler.Every("bus-stats", cfg.StatsInterval, app.LogBusStats(bus, logger))

	// ============ HTTP ============

	cipher, err := service.NewAccessIDCipher(cfg.AccessIDKey)
	if err != nil {
		return err
	}
	services := service.NewServices(repos, cipher, n, logger)
	h := handlers.NewHandlers(services, n, publisher, cfg.KeepaliveInterval, logger,
		handlers.WithAllowedOrigins(cfg.AllowedOrigins...))
	router := controller.NewRouter(h, []byte(cfg.JWTSecret), logger)

	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := controller.NewServer(cfg.HTTPAddr, router, logger)
	return server.Start(ctx)
}
