package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/essenza-shop/essenza-backend/api/controllers"
	webhookcontrollers "github.com/essenza-shop/essenza-backend/api/controllers/webhooks"
	"github.com/essenza-shop/essenza-backend/api/middleware"
	"github.com/essenza-shop/essenza-backend/internal/apikeys"
	"github.com/essenza-shop/essenza-backend/internal/cart"
	"github.com/essenza-shop/essenza-backend/internal/catalog"
	"github.com/essenza-shop/essenza-backend/internal/discount"
	"github.com/essenza-shop/essenza-backend/internal/orders"
	"github.com/essenza-shop/essenza-backend/internal/payments"
	"github.com/essenza-shop/essenza-backend/internal/stats"
	"github.com/essenza-shop/essenza-backend/pkg/config"
	"github.com/essenza-shop/essenza-backend/pkg/db"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs. The API binary wires the
// concrete implementations, tests swap in stubs.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     *redis.Client
	Catalog   catalog.Service
	Cart      cart.Service
	Discounts discount.Service
	Orders    orders.Service
	Payments  payments.Service
	Stats     stats.Service
	APIKeys   apikeys.Service
	APIKeyDB  middleware.APIKeyStore
	Metrics   http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.AuthRateLimit.WebhookWindow,
		cfg.AuthRateLimit.WebhookIPLimit,
	)
	apiKeyPolicy := middleware.NewRateLimitPolicy(
		"api_key",
		cfg.AuthRateLimit.APIKeyWindow,
		cfg.AuthRateLimit.APIKeyLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, deps.Redis, logg))
		ipn := webhookcontrollers.PesapalIPN(deps.Payments, deps.Redis, cfg.Eventing.WebhookReplayTTL, logg)
		r.Get("/pesapal", ipn)
		r.Post("/pesapal", ipn)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/{idOrSlug}", controllers.GetProduct(deps.Catalog, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.Catalog, logg))
			r.Get("/{categoryID}", controllers.GetCategory(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))

			r.Post("/discounts/validate", controllers.ValidateDiscountCode(deps.Discounts, logg))

			r.Route("/carts", func(r chi.Router) {
				r.Post("/", controllers.CreateCart(deps.Cart, logg))
				r.Get("/{cartID}", controllers.GetCart(deps.Cart, logg))
				r.Post("/{cartID}/items", controllers.AddCartItem(deps.Cart, logg))
				r.Patch("/{cartID}/items/{productID}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/{cartID}/items/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
			})

			r.Post("/orders", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.GetOrder(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireStaff(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
			r.Patch("/{productID}", controllers.UpdateProduct(deps.Catalog, logg))
			r.Delete("/{productID}", controllers.DeleteProduct(deps.Catalog, logg))
		})
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CreateCategory(deps.Catalog, logg))
			r.Patch("/{categoryID}", controllers.UpdateCategory(deps.Catalog, logg))
			r.Delete("/{categoryID}", controllers.DeleteCategory(deps.Catalog, logg))
		})
		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.ListDiscounts(deps.Discounts, logg))
			r.Post("/", controllers.CreateDiscount(deps.Discounts, logg))
			r.Get("/{discountID}", controllers.GetDiscount(deps.Discounts, logg))
			r.Patch("/{discountID}", controllers.UpdateDiscount(deps.Discounts, logg))
			r.Delete("/{discountID}", controllers.DeleteDiscount(deps.Discounts, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Patch("/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			r.Post("/{orderID}/initiate-payment", controllers.InitiateOrderPayment(deps.Orders, deps.Payments, logg))
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(deps.Payments, logg))
			r.Get("/{transactionID}", controllers.GetTransaction(deps.Payments, logg))
			r.Patch("/{transactionID}", controllers.UpdateTransaction(deps.Payments, logg))
			r.Delete("/{transactionID}", controllers.DeleteTransaction(deps.Payments, logg))
		})
		r.Route("/callback-urls", func(r chi.Router) {
			r.Get("/", controllers.ListCallbackURLs(deps.Payments, logg))
			r.Post("/", controllers.RegisterCallbackURL(deps.Payments, logg))
		})
		r.Get("/stats", controllers.GetStats(deps.Stats, logg))

		if deps.APIKeys != nil {
			r.Route("/api-keys", func(r chi.Router) {
				r.Get("/", controllers.ListAPIKeys(deps.APIKeys, logg))
				r.Post("/", controllers.CreateAPIKey(deps.APIKeys, logg))
				r.Delete("/{keyID}", controllers.RevokeAPIKey(deps.APIKeys, logg))
			})
		}
	})

	// Machine integrations authenticate with an API key instead of a JWT.
	if deps.APIKeyDB != nil {
		r.Route("/api/integrations/v1", func(r chi.Router) {
			r.Use(middleware.RateLimit(apiKeyPolicy, deps.Redis, logg))
			r.Use(middleware.APIKeyAuth(deps.APIKeyDB, logg))

			r.Get("/orders", controllers.ListOrders(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.GetOrder(deps.Orders, logg))
			r.Get("/transactions", controllers.ListTransactions(deps.Payments, logg))
			r.Get("/stats", controllers.GetStats(deps.Stats, logg))
		})
	}

	return r
}
