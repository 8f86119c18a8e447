package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("/health", a.routes.health.HealthCheck)
	a.mux.Handle("/metrics", promhttp.Handler())

	// Delivery requests
	a.mux.Handle("POST /requests", a.m.RequireRoles(a.routes.request.Create, types.RoleCustomer))                        // Create a food order or ride request
	a.mux.HandleFunc("GET /requests/{request_id}", a.routes.request.Get)                                                 // Get one request
	a.mux.Handle("POST /requests/{request_id}/claim", a.m.RequireRoles(a.routes.request.Claim, types.RoleCourier))       // Courier claims a pending request
	a.mux.Handle("POST /requests/{request_id}/status", a.m.RequireRoles(a.routes.request.AdvanceStatus, types.RoleCourier)) // Courier advances fulfillment
	a.mux.Handle("POST /requests/{request_id}/cancel", a.m.RequireRoles(a.routes.request.Cancel, types.RoleCustomer))    // Requester cancels

	// Couriers
	a.mux.Handle("GET /couriers/{courier_id}/candidates", a.m.RequireRoles(a.routes.courier.Candidates, types.RoleCourier)) // Nearby claimable requests
	a.mux.Handle("POST /couriers/{courier_id}/location", a.m.RequireRoles(a.routes.courier.UpdateLocation, types.RoleCourier))
	a.mux.Handle("POST /couriers/{courier_id}/online", a.m.RequireRoles(a.routes.courier.GoOnline, types.RoleCourier))
	a.mux.Handle("POST /couriers/{courier_id}/offline", a.m.RequireRoles(a.routes.courier.GoOffline, types.RoleCourier))
	a.mux.HandleFunc("GET /ws/couriers/{courier_id}", a.routes.courier.HandleWS) // WebSocket connection for couriers

	// Settlements
	a.mux.Handle("POST /settlements/run", a.m.RequireRoles(a.routes.settlement.Run, types.RoleAdmin))
	a.mux.Handle("GET /settlements/{settlement_id}", a.m.RequireRoles(a.routes.settlement.Get, types.RoleAdmin))
	a.mux.Handle("POST /settlements/{settlement_id}/advance", a.m.RequireRoles(a.routes.settlement.Advance, types.RoleAdmin))

	// Operations
	a.mux.Handle("GET /admin/couriers/nearby", a.m.RequireRoles(a.routes.admin.NearbyCouriers, types.RoleAdmin)) // Online couriers around a point
}
