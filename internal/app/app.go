package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/marketfleet/dispatch/config"
	"github.com/marketfleet/dispatch/internal/adapter/http/server"
	repo "github.com/marketfleet/dispatch/internal/adapter/postgres"
	broker "github.com/marketfleet/dispatch/internal/adapter/rabbit"
	"github.com/marketfleet/dispatch/internal/adapter/redisstore"
	"github.com/marketfleet/dispatch/internal/adapter/ws"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/service/dispatch"
	"github.com/marketfleet/dispatch/internal/service/fare"
	"github.com/marketfleet/dispatch/internal/service/geo"
	"github.com/marketfleet/dispatch/internal/service/settlement"
	"github.com/marketfleet/dispatch/pkg/logger"
	"github.com/marketfleet/dispatch/pkg/postgres"
	"github.com/marketfleet/dispatch/pkg/rabbit"
	"github.com/marketfleet/dispatch/pkg/trm"
	"github.com/marketfleet/dispatch/pkg/wshub"
)

// App wires the dispatch service together: storage, broker, websocket
// hub, domain services and the HTTP API.
type App struct {
	postgresDB  *postgres.PostgreDB
	redisClient *redis.Client
	rabbitMQ    *rabbit.RabbitMQ
	hub         *wshub.Hub
	broker      *broker.DispatchBroker

	dispatchService *dispatch.Service
	httpServer      *server.API

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to setup database", err)
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error(ctx, "failed to connect to redis", err)
		postgresDB.Pool.Close()
		return nil, err
	}

	rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "failed to connect to rabbitmq", err)
		postgresDB.Pool.Close()
		return nil, err
	}

	dispatchBroker := broker.NewDispatchBroker(rabbitMQ, log)
	if err := dispatchBroker.Setup(ctx); err != nil {
		log.Error(ctx, "failed to setup rabbitmq topology", err)
		postgresDB.Pool.Close()
		return nil, err
	}

	requestRepo := repo.NewRequestRepo(postgresDB.Pool)
	courierRepo := repo.NewCourierRepo(postgresDB.Pool)
	voucherRepo := repo.NewVoucherRepo(postgresDB.Pool)
	settlementRepo := repo.NewSettlementRepo(postgresDB.Pool)
	positions := redisstore.NewPositionStore(redisClient)

	hub := wshub.NewHub(log)
	notifier := ws.NewNotifier(hub, log)

	txManager := trm.New(postgresDB.Pool)
	calculator := fare.NewCalculator(cfg.Tariffs)

	dispatchService := dispatch.New(
		requestRepo,
		courierRepo,
		voucherRepo,
		positions,
		dispatchBroker,
		notifier,
		calculator,
		txManager,
		cfg.Dispatch,
		log,
	)
	settlementService := settlement.New(settlementRepo, cfg.Settlement, log)
	geoIndex := geo.NewIndex(courierRepo, positions)

	httpServer, err := server.New(cfg, dispatchService, dispatchService, settlementService, geoIndex, hub, log)
	if err != nil {
		log.Error(ctx, "failed to setup http server", err)
		postgresDB.Pool.Close()
		return nil, err
	}

	return &App{
		postgresDB:      postgresDB,
		redisClient:     redisClient,
		rabbitMQ:        rabbitMQ,
		hub:             hub,
		broker:          dispatchBroker,
		dispatchService: dispatchService,
		httpServer:      httpServer,
		cfg:             cfg,
		log:             log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	go a.dispatchService.RunSweeper(ctx)

	go func() {
		err := a.broker.ConsumeCourierLocations(ctx, func(ctx context.Context, msg models.CourierLocationMessage) error {
			return a.dispatchService.UpdateCourierPosition(ctx, msg.CourierID, msg.Latitude, msg.Longitude, msg.Timestamp)
		})
		if err != nil {
			a.log.Error(ctx, "courier location consumer stopped", err)
		}
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "failed to close rabbitmq connection", "error", err.Error())
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn(ctx, "failed to close redis client", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
