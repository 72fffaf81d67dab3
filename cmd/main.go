package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/adapter/mailer"
	"github.com/YelzhanWeb/bistro/internal/adapter/memory"
	"github.com/YelzhanWeb/bistro/internal/adapter/postgres"
	"github.com/YelzhanWeb/bistro/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/bistro/internal/adapter/report"
	"github.com/YelzhanWeb/bistro/internal/app/idempotency"
	"github.com/YelzhanWeb/bistro/internal/app/notification"
	"github.com/YelzhanWeb/bistro/internal/app/order"
	"github.com/YelzhanWeb/bistro/internal/app/reservation"
	"github.com/YelzhanWeb/bistro/internal/config"
	"github.com/YelzhanWeb/bistro/internal/domain"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"golang.org/x/sync/errgroup"

	amqpAdapter "github.com/YelzhanWeb/bistro/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/bistro/internal/adapter/http"
)

const (
	storagePostgres = "postgres"
	storageMemory   = "memory"
)

func main() {
	mode := flag.String("mode", "", "Service mode: api, notification-subscriber, migrate, slots-report, issue-token")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	storage := flag.String("storage", storagePostgres, "Storage backend for api mode: postgres or memory")
	concurrency := flag.Int("concurrency", 4, "Concurrent notification deliveries")
	date := flag.String("date", "", "Service date YYYY-MM-DD (for slots-report)")
	subject := flag.String("subject", "admin", "Token subject (for issue-token)")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token lifetime (for issue-token)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	lgr := logger.New(*mode, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "api":
		err = runAPI(ctx, cfg, lgr, *storage, *concurrency)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr, *concurrency)
	case "migrate":
		err = runMigrate(ctx, cfg, lgr)
	case "slots-report":
		err = runSlotsReport(ctx, cfg, *date)
	case "issue-token":
		err = runIssueToken(cfg, *subject, *ttl)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil {
		lgr.Error("service_failed", "Service stopped with an error", "runtime", map[string]interface{}{
			"mode": *mode,
		}, err)
		os.Exit(1)
	}
}

// backend is the storage and messaging a running API needs.
type backend struct {
	orders       interfaces.OrderRepository
	reservations interfaces.ReservationRepository
	idempotency  interfaces.IdempotencyStore
	publisher    interfaces.NotificationPublisher
	// background runs alongside the HTTP server, nil when nothing does.
	background func(ctx context.Context) error
	close      func()
}

func runAPI(ctx context.Context, cfg *config.Config, lgr logger.Logger, storage string, concurrency int) error {
	var (
		be  *backend
		err error
	)
	switch storage {
	case storagePostgres:
		be, err = postgresBackend(ctx, cfg, lgr)
	case storageMemory:
		be, err = memoryBackend(ctx, cfg, lgr, concurrency)
	default:
		return fmt.Errorf("unknown storage %q", storage)
	}
	if err != nil {
		return err
	}
	defer be.close()

	guard := idempotency.NewGuard(be.idempotency, cfg.Idempotency.TTL(), lgr)
	janitor := idempotency.NewJanitor(be.idempotency, cfg.Idempotency.PurgeInterval(), lgr)

	orderService := order.NewService(be.orders, guard, be.publisher, lgr, order.Options{
		DefaultDeliveryFee: cfg.Restaurant.DeliveryFee(),
	})
	reservationService := reservation.NewService(be.reservations, be.publisher, lgr)

	handler := httpAdapter.NewRouter(
		httpAdapter.NewOrderHandler(orderService, lgr),
		httpAdapter.NewReservationHandler(reservationService, lgr),
		cfg.Auth.JWTSecret,
		lgr,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Auth.JWTSecret == "" {
		lgr.Warn("admin_auth_disabled", "auth.jwt_secret is empty, staff routes are open", "startup", nil, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lgr.Info("service_started", fmt.Sprintf("API started on port %d", cfg.Server.Port), "startup", map[string]interface{}{
			"port":    cfg.Server.Port,
			"storage": storage,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	if be.background != nil {
		g.Go(func() error {
			return be.background(gctx)
		})
	}

	return g.Wait()
}

func postgresBackend(ctx context.Context, cfg *config.Config, lgr logger.Logger) (*backend, error) {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	relay := notification.NewRelay(rabbitmq.NewPublisher(mqConn), 1024, 5*time.Second, lgr)

	return &backend{
		orders:       postgres.NewOrderRepository(db),
		reservations: postgres.NewReservationRepository(db),
		idempotency:  postgres.NewIdempotencyStore(db),
		publisher:    relay,
		background:   relay.Run,
		close: func() {
			mqConn.Close()
			db.Close()
		},
	}, nil
}

// memoryBackend keeps everything in process and delivers notifications from
// a local queue. State is lost on restart.
func memoryBackend(ctx context.Context, cfg *config.Config, lgr logger.Logger, concurrency int) (*backend, error) {
	tables := memory.NewTableRepository()
	if err := seedTables(ctx, tables, cfg.Restaurant.Tables, lgr); err != nil {
		return nil, err
	}

	queue := memory.NewNotificationQueue(256)
	worker := notification.NewWorker(mailer.NewLogNotifier(lgr), concurrency, lgr)

	return &backend{
		orders:       memory.NewOrderRepository(),
		reservations: memory.NewReservationRepository(tables),
		idempotency:  memory.NewIdempotencyStore(),
		publisher:    queue,
		background: func(ctx context.Context) error {
			return worker.Run(ctx, queue.Events())
		},
		close: func() {},
	}, nil
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger, prefetch int) error {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, prefetch, lgr)
	handler := amqpAdapter.NewNotificationHandler(mailer.NewLogNotifier(lgr), lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"prefetch": prefetch,
	})

	err = consumer.ConsumeNotifications(ctx, handler.HandleNotification)
	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	return err
}

func runMigrate(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, lgr); err != nil {
		return err
	}
	return seedTables(ctx, postgres.NewTableRepository(db), cfg.Restaurant.Tables, lgr)
}

func runSlotsReport(ctx context.Context, cfg *config.Config, rawDate string) error {
	date := time.Now()
	if rawDate != "" {
		parsed, err := time.Parse(time.DateOnly, rawDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		date = parsed
	}
	date = domain.DateOf(date)

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	sheet, err := reservation.DaySheet(ctx, postgres.NewReservationRepository(db), date)
	if err != nil {
		return err
	}
	return report.WriteDaySheet(os.Stdout, date, sheet)
}

func runIssueToken(cfg *config.Config, subject string, ttl time.Duration) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is empty, staff routes are open and need no token")
	}
	token, err := httpAdapter.SignAdminToken(cfg.Auth.JWTSecret, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func seedTables(ctx context.Context, repo interfaces.TableRepository, tables []config.TableConfig, lgr logger.Logger) error {
	seats := 0
	for _, t := range tables {
		if err := repo.Upsert(ctx, &domain.Table{Label: t.Label, Capacity: t.Capacity, Zone: t.Zone}); err != nil {
			return err
		}
		seats += t.Capacity
	}
	lgr.Info("tables_seeded", fmt.Sprintf("Seeded %d tables", len(tables)), "startup", map[string]interface{}{
		"seats": seats,
	})
	return nil
}
