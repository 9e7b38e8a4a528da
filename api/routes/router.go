package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vincentbui21/SmartJuiceSystem/api/controllers"
	"github.com/vincentbui21/SmartJuiceSystem/api/middleware"
	"github.com/vincentbui21/SmartJuiceSystem/internal/assignment"
	"github.com/vincentbui21/SmartJuiceSystem/internal/containers"
	"github.com/vincentbui21/SmartJuiceSystem/internal/customers"
	"github.com/vincentbui21/SmartJuiceSystem/internal/dashboard"
	"github.com/vincentbui21/SmartJuiceSystem/internal/dispatch"
	"github.com/vincentbui21/SmartJuiceSystem/internal/orders"
	"github.com/vincentbui21/SmartJuiceSystem/internal/settings"
	"github.com/vincentbui21/SmartJuiceSystem/internal/staffauth"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Optional fields may be
// nil; the affected endpoints then answer with a dependency error.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    pinger
	RedisClient *redis.Client
	Hub         *realtime.Hub

	Auth       staffauth.Service
	Customers  customers.Service
	Orders     orders.Service
	Containers containers.Service
	Assignment assignment.Service
	Dispatch   dispatch.Service
	Settings   settings.Service
	Dashboard  dashboard.Service
	Printer    controllers.PouchLabelPrinter
}

type pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginAccountLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/cities", controllers.CityList(deps.Settings, logg))
	})

	// A separate mount for /api/v1/auth would shadow the whole /api/v1
	// subtree in chi, so login lives inside the same route with its own
	// middleware chain.
	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RedisClient, logg)).
			Post("/auth/login", controllers.StaffLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.RedisClient, logg))

			r.Get("/ping", controllers.PrivatePing())
			r.Get("/auth/me", controllers.CurrentAccount(deps.Auth, logg))
			r.Get("/events", controllers.EventStream(deps.Hub, logg))

			r.Post("/entries", controllers.EntryCreate(deps.Customers, logg))

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.CustomerList(deps.Customers, logg))
				r.Get("/{customerId}", controllers.CustomerGet(deps.Customers, logg))
				r.Put("/{customerId}", controllers.CustomerUpdate(deps.Customers, logg))
				r.Delete("/{customerId}", controllers.CustomerDelete(deps.Customers, logg))
				r.Get("/{customerId}/sms-status", controllers.CustomerSmsStatus(deps.Customers, logg))
				r.Delete("/{customerId}/sms-status", controllers.CustomerSmsReset(deps.Customers, logg))
				r.Post("/{customerId}/notify", controllers.CustomerNotify(deps.Dispatch, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/pickup-search", controllers.OrderPickupSearch(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
				r.Put("/{orderId}", controllers.OrderUpdate(deps.Orders, logg))
				r.Delete("/{orderId}", controllers.OrderDelete(deps.Orders, logg))
				r.Post("/{orderId}/done", controllers.OrderDone(deps.Orders, logg))
				r.Post("/{orderId}/ready", controllers.OrderReady(deps.Orders, logg))
				r.Post("/{orderId}/pickup", controllers.OrderPickup(deps.Orders, logg))
				r.Get("/{orderId}/boxes", controllers.OrderExpectedBoxes(deps.Orders, logg))
			})

			r.Put("/crates", controllers.CrateUpdate(deps.Orders, logg))

			r.Route("/pallets", func(r chi.Router) {
				r.Get("/", controllers.PalletList(deps.Containers, logg))
				r.Post("/", controllers.PalletCreate(deps.Containers, logg))
				r.Delete("/{palletId}", controllers.PalletDelete(deps.Containers, logg))
				r.Get("/{palletId}/contents", controllers.PalletContents(deps.Containers, logg))
				r.Post("/{palletId}/load-boxes", controllers.PalletLoadBoxes(deps.Assignment, logg))
				r.Post("/{palletId}/shelve", controllers.PalletShelve(deps.Assignment, logg))
			})

			r.Route("/shelves", func(r chi.Router) {
				r.Get("/", controllers.ShelfList(deps.Containers, logg))
				r.Post("/", controllers.ShelfCreate(deps.Containers, logg))
				r.Get("/locations", controllers.ShelfLocations(deps.Containers, logg))
				r.Delete("/{shelfId}", controllers.ShelfDelete(deps.Containers, logg))
				r.Get("/{shelfId}/contents", controllers.ShelfContents(deps.Containers, logg))
				r.Post("/{shelfId}/load-boxes", controllers.ShelfLoadBoxes(deps.Assignment, logg))
			})

			r.Route("/boxes", func(r chi.Router) {
				r.Post("/move", controllers.BoxMove(deps.Containers, logg))
				r.Get("/scan-info/{boxId}", controllers.BoxScanInfo(deps.Orders, logg))
			})

			r.Post("/scan/classify", controllers.ScanClassify(logg))

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/summary", controllers.DashboardSummary(deps.Dashboard, logg))
				r.Get("/daily", controllers.DashboardDaily(deps.Dashboard, logg))
				r.Get("/activity", controllers.DashboardActivity(deps.Dashboard, logg))
			})

			r.Route("/printer", func(r chi.Router) {
				r.Post("/print", controllers.PrinterPrint(deps.Printer, logg))
				r.Post("/test", controllers.PrinterTest(deps.Printer, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))

				r.Post("/auth/register", controllers.StaffRegister(deps.Auth, logg))

				r.Route("/settings", func(r chi.Router) {
					r.Get("/", controllers.SettingsAll(deps.Settings, logg))
					r.Put("/", controllers.SettingsUpdate(deps.Settings, logg))
					r.Route("/cities", func(r chi.Router) {
						r.Get("/", controllers.CityList(deps.Settings, logg))
						r.Post("/", controllers.CityAdd(deps.Settings, logg))
						r.Delete("/{cityId}", controllers.CityRemove(deps.Settings, logg))
					})
					r.Route("/sms-templates", func(r chi.Router) {
						r.Get("/", controllers.TemplateList(deps.Settings, logg))
						r.Put("/", controllers.TemplatePut(deps.Settings, logg))
						r.Delete("/{locationKey}", controllers.TemplateRemove(deps.Settings, logg))
					})
				})
			})
		})
	})

	return r
}
