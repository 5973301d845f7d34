package api

import (
	"net/http"

	"github.com/airflowiq/hub/api/middleware"
	"github.com/airflowiq/hub/api/resources"
	"github.com/gorilla/mux"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.JWTMiddleware
	resources *resources.Resources
}

func NewRouter(res *resources.Resources, auth *middleware.JWTMiddleware) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      auth,
		resources: res,
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	if r.resources.HealthCheck != nil {
		api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	}
	if r.resources.Metrics != nil {
		api.HandleFunc("/metrics", r.resources.Metrics).Methods(http.MethodGet)
	}

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Readings
	readings := protected.PathPrefix("/readings").Subrouter()
	readings.HandleFunc("", r.resources.Readings.GetSeries).Methods(http.MethodGet)
	readings.HandleFunc("/averages", r.resources.Readings.GetAverages).Methods(http.MethodGet)
	readings.HandleFunc("/multi", r.resources.Readings.GetMulti).Methods(http.MethodGet)
	readings.HandleFunc("/export", r.resources.Readings.Export).Methods(http.MethodGet)

	// Devices
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("", r.resources.Devices.CreateDevice).Methods(http.MethodPost)
	devices.HandleFunc("/lookup", r.resources.Devices.LookupDevice).Methods(http.MethodGet)
	devices.HandleFunc("/claim", r.resources.Devices.ClaimDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{id}", r.resources.Devices.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{id}", r.resources.Devices.UpdateDevice).Methods(http.MethodPut)
	devices.HandleFunc("/{id}/unclaim", r.resources.Devices.UnclaimDevice).Methods(http.MethodPost)

	// Orders
	protected.HandleFunc("/products", r.resources.Orders.ListProducts).Methods(http.MethodGet)
	orders := protected.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("", r.resources.Orders.ListOrders).Methods(http.MethodGet)
	orders.HandleFunc("", r.resources.Orders.PlaceOrder).Methods(http.MethodPost)
	orders.HandleFunc("/{id}/receipt", r.resources.Orders.GetReceipt).Methods(http.MethodGet)

	// Profile
	protected.HandleFunc("/profile", r.resources.Profile.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/profile", r.resources.Profile.UpdateProfile).Methods(http.MethodPut)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
