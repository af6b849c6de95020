package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/couponboard/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса купонов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(h.auth.WithSession)

	r.Route("/api", func(r chi.Router) {
		r.Get("/coupons", h.ListCoupons)
		r.Get("/coupons/{id}", h.GetCoupon)
		r.Get("/coupons/{id}/countdown", h.CouponCountdown)
		r.Get("/brands", h.GetBrands)
		r.Get("/meta", h.GetMeta)

		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequireUser)

				r.Post("/logout", h.Logout)
				r.Get("/profile", h.GetProfile)
				r.Put("/profile", h.UpdateProfile)

				r.Get("/coupons", h.GetUserCoupons)
				r.Post("/coupons", h.AddCoupon)
				r.Put("/coupons/{id}", h.UpdateUserCoupon)
				r.Delete("/coupons/{id}", h.DeleteUserCoupon)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)
			r.Post("/logout", h.AdminLogout)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequireAdmin)

				r.Get("/coupons", h.AdminListCoupons)
				r.Put("/coupons/{id}", h.AdminUpdateCoupon)
				r.Patch("/coupons/{id}/approval", h.AdminSetApproval)
				r.Delete("/coupons/{id}", h.AdminDeleteCoupon)

				r.Get("/summary", h.AdminSummary)

				r.Get("/users", h.AdminListUsers)
				r.Put("/users/{id}", h.AdminUpdateUser)
				r.Delete("/users/{id}", h.AdminDeleteUser)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
