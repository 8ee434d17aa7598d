package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/middleware"
	"github.com/ukydev/bike-service/internal/models"
	"github.com/ukydev/bike-service/internal/service"
)

// Services bundles what the router needs.
type Services struct {
	Identity  *service.IdentityService
	Mechanics *service.MechanicRegistry
	Bookings  *service.BookingEngine
	Resolver  middleware.IdentityResolver
}

// RouterOptions tunes the public surface.
type RouterOptions struct {
	AllowRoleSelection bool
	RateLimitRequests  int
	RateLimitWindow    time.Duration
}

// NewRouter wires every route. Logging, recovery and CORS wrap the router
// itself so they also cover preflight requests and unmatched paths.
func NewRouter(svc Services, opts RouterOptions, logger log.FieldLogger) http.Handler {
	r := mux.NewRouter()

	authMiddleware := middleware.NewAuthMiddleware(svc.Resolver, logger)
	rateLimiter := middleware.NewRateLimitMiddleware(logger)
	limit := rateLimiter.RateLimit(opts.RateLimitRequests, opts.RateLimitWindow)

	authHandler := NewAuthHandler(svc.Identity, logger, opts.AllowRoleSelection)
	bookingHandler := NewBookingHandler(svc.Bookings, logger)
	adminHandler := NewAdminHandler(svc.Bookings, svc.Mechanics, svc.Identity, logger)

	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.Handle("/api/auth/register", limit(http.HandlerFunc(authHandler.Register))).Methods(http.MethodPost)
	r.Handle("/api/auth/login", limit(http.HandlerFunc(authHandler.Login))).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	api.HandleFunc("/auth/update-profile", authHandler.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods(http.MethodPost)

	api.HandleFunc("/bookings", bookingHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/bookings", bookingHandler.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", bookingHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/bookings/{id}", bookingHandler.Delete).Methods(http.MethodDelete)

	mechanicOnly := authMiddleware.RequireRole(models.RoleMechanic, models.RoleAdmin)
	api.Handle("/admin/mechanic/bookings", mechanicOnly(http.HandlerFunc(bookingHandler.ListAssigned))).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/bookings", adminHandler.ListBookings).Methods(http.MethodGet)
	admin.HandleFunc("/assign-mechanic", adminHandler.AssignMechanic).Methods(http.MethodPost)
	admin.HandleFunc("/update-booking", bookingHandler.UpdateStatus).Methods(http.MethodPost)
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/mechanics", adminHandler.CreateMechanic).Methods(http.MethodPost)
	admin.HandleFunc("/mechanics", adminHandler.ListMechanics).Methods(http.MethodGet)
	admin.HandleFunc("/mechanics/{id}", adminHandler.UpdateMechanic).Methods(http.MethodPut)
	admin.HandleFunc("/mechanics/{id}", adminHandler.DeleteMechanic).Methods(http.MethodDelete)

	mechanic := api.PathPrefix("/mechanic").Subrouter()
	mechanic.Use(mechanicOnly)
	mechanic.HandleFunc("/bookings", bookingHandler.ListAssigned).Methods(http.MethodGet)
	mechanic.HandleFunc("/update", bookingHandler.UpdateStatus).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	var handler http.Handler = r
	handler = middleware.CORS(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	return handler
}
