package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marketfleet/dispatch/config"
	"github.com/marketfleet/dispatch/internal/adapter/http/handler"
	"github.com/marketfleet/dispatch/internal/adapter/http/middleware"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/wshub"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	request    *handler.Request
	courier    *handler.Courier
	settlement *handler.Settlement
	admin      *handler.Admin
	health     *handler.Health
}

func New(
	cfg config.Config,
	dispatchService handler.DispatchService,
	courierService handler.CourierService,
	settlementService handler.SettlementService,
	geoService handler.GeoService,
	hub *wshub.Hub,
	log logger.Logger,
) (*API, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}

	addr := fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.HTTP.Port)

	routes := &handlers{
		request:    handler.NewRequest(dispatchService, log),
		courier:    handler.NewCourier(courierService, hub, log),
		settlement: handler.NewSettlement(settlementService, log),
		admin:      handler.NewAdmin(geoService, log),
		health:     handler.NewHealth("dispatch", log),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(cfg.Auth.JWTSecret, log),
		addr:   addr,
		cfg:    cfg,
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	api.setupRoutes()

	return api, nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}
