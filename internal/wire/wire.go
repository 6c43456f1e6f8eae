package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/payment"
	"resort-booking/internal/usecase"
	"resort-booking/pkg/middleware"
	"resort-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the collaborators built in main. Notifier, Cache and Redis may be
// nil.
type Deps struct {
	Repo     *repository.Repository
	Gateway  payment.Gateway
	Notifier usecase.BookingNotifier
	Cache    usecase.AvailabilityCache
	Redis    *redis.Client
	Config   *utils.Config
	Logger   *zap.Logger
}

type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

func Wiring(deps Deps) (*App, error) {
	service := usecase.NewService(deps.Repo, deps.Gateway, deps.Notifier, deps.Cache, deps.Config, deps.Logger)
	handler := adaptor.NewHandler(service, deps.Logger)

	limits, err := newRateLimits(deps.Redis, deps.Config.RateLimit, deps.Logger)
	if err != nil {
		return nil, err
	}

	router := setupRouter(handler, service, limits, deps.Config, deps.Logger)

	return &App{
		Router:  router,
		Service: service,
	}, nil
}

func setupRouter(
	handler *adaptor.Handler,
	service *usecase.Service,
	limits *rateLimits,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.AllowedOrigins))
	r.Use(middleware.Metrics)

	auth := middleware.AuthSession(service.Auth, logger)
	admin := middleware.Admin(logger)

	wireAuth(r, handler.Auth, auth, limits)
	wireUser(r, handler.User, auth, admin)
	wireResort(r, handler.Resort, handler.Availability, auth, admin)
	wireAttempt(r, handler.Attempt, handler.Payment, auth, limits)
	wirePayment(r, handler.Payment, auth)
	wireBooking(r, handler.Booking, auth, admin)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
