package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/posledger/api/controllers"
	"github.com/angelmondragon/posledger/api/middleware"
	"github.com/angelmondragon/posledger/internal/auth"
	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/internal/inventory"
	"github.com/angelmondragon/posledger/internal/loyalty"
	"github.com/angelmondragon/posledger/internal/notifications"
	"github.com/angelmondragon/posledger/internal/orders"
	"github.com/angelmondragon/posledger/internal/payables"
	"github.com/angelmondragon/posledger/internal/registers"
	"github.com/angelmondragon/posledger/pkg/auth/session"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/logger"
	pkgredis "github.com/angelmondragon/posledger/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs: readiness,
// idempotent replays and login throttling.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies are the collaborators mounted on the router. Nil services
// answer 500 on their routes.
type Dependencies struct {
	DB        controllers.Pinger
	Redis     RedisStore
	Sessions  session.AccessSessionChecker
	Auth      auth.Service
	Registers registers.Service
	Inventory inventory.Service
	Orders    orders.Service
	Credit    credit.Service
	Loyalty   loyalty.Service
	Payables  payables.Service
	Alerts    notifications.Service
	Metrics   http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if cfg.App.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.App.RequestTimeout))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	var redisPinger controllers.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	var limiter middleware.FixedWindowLimiter
	if deps.Redis != nil {
		redisPinger = deps.Redis
		idempotencyStore = deps.Redis
		limiter = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		manager := middleware.RequireRole(enums.UserRoleManager, logg)

		r.Route("/registers", func(r chi.Router) {
			r.Post("/open", controllers.RegisterOpen(deps.Registers, logg))
			r.Post("/close", controllers.RegisterClose(deps.Registers, logg))
			r.Get("/current", controllers.RegisterCurrent(deps.Registers, logg))
			r.Get("/", controllers.RegisterList(deps.Registers, logg))
			r.Get("/{registerId}", controllers.RegisterDetail(deps.Registers, logg))
			r.With(manager).Post("/{registerId}/recalculate", controllers.RegisterRecalculate(deps.Registers, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/low-stock", controllers.InventoryLowStock(deps.Inventory, logg))
			r.With(manager).Put("/{itemId}", controllers.InventorySetStock(deps.Inventory, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Delete("/{orderId}", controllers.OrderDelete(deps.Orders, logg))
			r.Post("/{orderId}/items", controllers.OrderAddItem(deps.Orders, logg))
			r.Delete("/{orderId}/items/{itemId}", controllers.OrderRemoveItem(deps.Orders, logg))
			r.Patch("/{orderId}/status", controllers.OrderUpdateStatus(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
			r.Post("/{orderId}/payment", controllers.OrderCompletePayment(deps.Orders, logg))
		})

		r.Route("/customers/{customerId}", func(r chi.Router) {
			r.Get("/credit", controllers.CustomerCreditHistory(deps.Credit, logg))
			r.With(manager).Post("/credit", controllers.CustomerCreditAdjust(deps.Credit, logg))
			r.Get("/loyalty", controllers.CustomerLoyaltyHistory(deps.Loyalty, logg))
			r.With(manager).Post("/loyalty", controllers.CustomerLoyaltyAdjust(deps.Loyalty, logg))
		})

		r.With(manager).Get("/sellers", controllers.SellerList(deps.Payables, logg))
		r.With(manager).Post("/sellers", controllers.SellerCreate(deps.Payables, logg))
		r.Route("/sellers/{sellerId}", func(r chi.Router) {
			r.Use(manager)
			r.Get("/", controllers.SellerSummary(deps.Payables, logg))
			r.Post("/payables", controllers.SellerCreatePayable(deps.Payables, logg))
			r.Post("/payments", controllers.SellerPay(deps.Payables, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListAlerts(deps.Alerts, logg))
			r.Post("/read-all", controllers.MarkAllAlertsRead(deps.Alerts, logg))
			r.Post("/{alertId}/read", controllers.MarkAlertRead(deps.Alerts, logg))
		})
	})

	return r
}
