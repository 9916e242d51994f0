package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giftree-kr/giftree-backend/api/controllers"
	"github.com/giftree-kr/giftree-backend/api/middleware"
	checkoutsvc "github.com/giftree-kr/giftree-backend/internal/checkout"
	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/internal/purchases"
	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/db"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gifticonService gifticons.Service,
	couponService coupons.Service,
	purchaseService purchases.Service,
	checkoutManager *checkoutsvc.Manager,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisPinger db.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(dbP, redisPinger)))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/gifticons", controllers.BrowseGifticons(gifticonService, logg))
		r.Get("/coupons", controllers.ListCoupons(couponService, logg))
		r.Get("/purchases", controllers.ListPurchases(purchaseService, logg))

		r.Route("/checkout/sessions", func(r chi.Router) {
			r.Post("/", controllers.StartCheckout(checkoutManager, logg))
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", controllers.GetCheckout(checkoutManager, logg))
				r.Post("/select", controllers.SelectUnit(checkoutManager, logg))
				r.Post("/deselect", controllers.DeselectUnit(checkoutManager, logg))
				r.Post("/autofill", controllers.AutoFillCheckout(checkoutManager, logg))
				r.Post("/autofill/cancel", controllers.CancelAutoFill(checkoutManager, logg))
				r.Post("/coupon", controllers.PickCoupon(checkoutManager, logg))
				r.Post("/proceed", controllers.ProceedToPayment(checkoutManager, logg))
				r.Post("/back", controllers.BackToSelection(checkoutManager, logg))
				r.Post("/confirm", controllers.ConfirmPayment(checkoutManager, logg))
				r.Post("/complete", controllers.CompleteCheckout(checkoutManager, logg))
				r.Delete("/", controllers.AbandonCheckout(checkoutManager, logg))
			})
		})
	})

	return r
}
