package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/marketplace-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса маркетплейса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)

		r.Get("/offers", h.ListOffers)
		r.Get("/offers/{offerID}", h.GetOffer)
		r.Get("/offerdetails/{tierID}", h.GetOfferDetail)
		r.Get("/order-count/{userID}", h.GetOrderCount)
		r.Get("/completed-order-count/{userID}", h.GetCompletedOrderCount)
		r.Get("/base-info", h.GetBaseInfo)
		r.Get("/base-info/", h.GetBaseInfo)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/profile/{userID}", h.GetProfile)
			r.Patch("/profile/{userID}", h.PatchProfile)
			r.Get("/profiles/business", h.ListBusinessProfiles)
			r.Get("/profiles/customer", h.ListCustomerProfiles)

			r.Post("/offers", h.CreateOffer)
			r.Patch("/offers/{offerID}", h.PatchOffer)
			r.Delete("/offers/{offerID}", h.DeleteOffer)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Patch("/orders/{orderID}/status", h.PatchOrderStatus)

			r.Post("/reviews", h.CreateReview)
			r.Get("/reviews", h.ListReviews)
			r.Patch("/reviews/{reviewID}", h.PatchReview)
			r.Delete("/reviews/{reviewID}", h.DeleteReview)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, kindNotFound, "resource not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	})

	return r
}
