package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"shoply/shop-service/internal/cache"
	"shoply/shop-service/internal/catalog"
	"shoply/shop-service/internal/config"
	"shoply/shop-service/internal/contracts"
	"shoply/shop-service/internal/httpapi"
	"shoply/shop-service/internal/messaging"
	"shoply/shop-service/internal/order"
	"shoply/shop-service/internal/payment"
	"shoply/shop-service/internal/storage"
	"shoply/shop-service/internal/telemetry"
	"shoply/shop-service/internal/websocket"

	"github.com/rabbitmq/amqp091-go"
)

const demoWebhookSecret = "whsec_demo"

type App struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.Store
	catalogSvc *catalog.Service
	orderSvc   *order.Service
	wsHub      *websocket.Hub
	publisher  messaging.Publisher
	consumer   *messaging.Consumer
	outbox     *messaging.OutboxDispatcher
	httpSrv    *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	catalogRepo := catalog.NewPgxRepository(store.Pool())
	catalogCache := cache.NewRedis(cfg.RedisAddr, "shop")
	catalogSvc := catalog.NewService(catalogRepo, catalogCache, cfg.CatalogCacheTTL, logger)

	provider := newProvider(cfg, logger)
	ledger := order.NewPgxLedger(store.Pool())
	orderSvc := order.NewService(catalogSvc, provider, ledger, logger)

	publisher, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.OrdersExchange)
	if err != nil {
		store.Close()
		return nil, err
	}

	consumer, err := messaging.NewRabbitConsumer(cfg.RabbitURL, cfg.OrdersExchange, cfg.PaidQueue, contracts.EventTypeOrderPaid, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		return nil, err
	}

	wsHub := websocket.NewHub()
	wsHandler := websocket.NewHandler(wsHub, orderSvc, logger)

	api := httpapi.NewServer(catalogSvc, orderSvc, wsHandler.ServeWS, logger)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	outbox := messaging.NewOutboxDispatcher(store.Pool(), publisher, "order_outbox", cfg.OutboxInterval, cfg.OutboxBatchSize, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		catalogSvc: catalogSvc,
		orderSvc:   orderSvc,
		wsHub:      wsHub,
		publisher:  publisher,
		consumer:   consumer,
		outbox:     outbox,
		httpSrv:    httpSrv,
	}, nil
}

func newProvider(cfg config.Config, logger *slog.Logger) payment.Provider {
	if cfg.DemoMode() {
		secret := cfg.ProviderWebhookSecret
		if secret == "" {
			secret = demoWebhookSecret
		}
		logger.Warn("no provider secret key configured, running with fake provider")
		return payment.NewFakeProvider(secret)
	}
	return payment.NewClient(cfg.ProviderAPIBase, cfg.ProviderSecretKey, cfg.ProviderWebhookSecret, cfg.ProviderTimeout, cfg.SignatureTolerance)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	a.outbox.Start(ctx)
	go a.wsHub.Run(ctx)

	go func() {
		errCh <- a.consumer.Start(ctx, a.handleOrderPaidMessage)
	}()

	go func() {
		a.logger.Info("shop http server listening", "addr", a.cfg.HTTPAddr, "demo_mode", a.cfg.DemoMode())
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGracePeriod)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	a.consumer.Close()
	a.publisher.Close()
	a.store.Close()
}

// handleOrderPaidMessage pushes broker-delivered paid events to connected
// websocket clients. Redelivery is harmless: broadcasting "paid" twice is a
// no-op for the browser.
func (a *App) handleOrderPaidMessage(ctx context.Context, msg amqp091.Delivery) {
	var evt contracts.OrderPaidEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		a.logger.Error("invalid order paid event", "err", err)
		_ = msg.Nack(false, false)
		return
	}

	a.wsHub.BroadcastOrderUpdate(evt.OrderID, string(order.StatusPaid))
	_ = msg.Ack(false)
}

// Run is the process entry point. With seedOnly set it migrates, seeds the
// catalog, and exits without serving.
func Run(seedOnly bool) error {
	logger := telemetry.NewLogger()
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if seedOnly {
		store, err := storage.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		defer store.Close()
		repo := catalog.NewPgxRepository(store.Pool())
		svc := catalog.NewService(repo, cache.NewRedis(cfg.RedisAddr, "shop"), cfg.CatalogCacheTTL, logger)
		return svc.Seed(ctx)
	}

	app, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close(ctx)

	return app.Run(ctx)
}
