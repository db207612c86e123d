package router

import (
	"database/sql"
	"fmt"
	"net/http"

	"reservation-api/internal/config"
	"reservation-api/internal/handlers"
	"reservation-api/internal/middleware"
	"reservation-api/internal/ratelimit"
	"reservation-api/internal/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Services is built once at startup and shared read-only by all requests.
type Services struct {
	Auth         *services.AuthService
	Users        *services.UserService
	Restaurants  *services.RestaurantService
	Reservations *services.ReservationService
	LoginLimiter ratelimit.LoginLimiter
}

// NewServices fails when the token secret is missing, so the caller can stop
// before serving traffic.
func NewServices(db *sql.DB, rdb *redis.Client, cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	authService, err := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	var limiter ratelimit.LoginLimiter
	if rdb != nil {
		limiter = ratelimit.NewRedisLoginLimiter(rdb, cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow)
	} else {
		limiter = ratelimit.NewMemoryLoginLimiter(cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow)
	}

	hasher := services.NewPasswordHasher(cfg.BcryptCost)
	return &Services{
		Auth:         authService,
		Users:        services.NewUserService(db, hasher, logger),
		Restaurants:  services.NewRestaurantService(db, logger),
		Reservations: services.NewReservationService(db, logger),
		LoginLimiter: limiter,
	}, nil
}

func SetupRouter(svc *Services, db *sql.DB, rdb *redis.Client, cfg *config.Config, logger zerolog.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Auth, svc.LoginLimiter, logger)
	userHandler := handlers.NewUserHandler(svc.Users, logger)
	restaurantHandler := handlers.NewRestaurantHandler(svc.Restaurants, logger)
	reservationHandler := handlers.NewReservationHandler(svc.Reservations, logger)
	healthHandler := handlers.NewHealthHandler(db, rdb, logger)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(rateLimiter.Middleware())

	r.HandleFunc("/health", healthHandler.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.Readiness).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	public := r.NewRoute().Subrouter()
	public.Use(middleware.RequestValidation())
	public.HandleFunc("/register", authHandler.Register).Methods("POST")
	public.HandleFunc("/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/restaurants", restaurantHandler.List).Methods("GET")
	r.HandleFunc("/restaurants/{id}", restaurantHandler.Get).Methods("GET")

	authenticate := middleware.Authentication(svc.Auth, logger)

	admin := r.NewRoute().Subrouter()
	admin.Use(authenticate)
	admin.Use(middleware.RequireAdmin())
	admin.Use(middleware.RequestValidation())
	admin.HandleFunc("/restaurants", restaurantHandler.Create).Methods("POST")
	admin.HandleFunc("/restaurants/{id}", restaurantHandler.Delete).Methods("DELETE")

	customer := r.NewRoute().Subrouter()
	customer.Use(authenticate)
	customer.Use(middleware.RequestValidation())
	customer.HandleFunc("/restaurants/{id}/reservations", reservationHandler.Create).Methods("POST")
	customer.HandleFunc("/users/me", userHandler.GetMe).Methods("GET")
	customer.HandleFunc("/users/me/reservations", reservationHandler.ListMine).Methods("GET")
	customer.HandleFunc("/reservations/{id}", reservationHandler.Cancel).Methods("DELETE")

	// CORS wraps the router so preflight requests are answered before route
	// method matching.
	return middleware.CORS()(r)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"success":false,"message":"Not found"}`))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"success":false,"message":"Method not allowed"}`))
}
