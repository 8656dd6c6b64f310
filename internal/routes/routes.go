package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/grvbrk/intra_catalog/internal/app"
	"github.com/grvbrk/intra_catalog/internal/metrics"
	"github.com/grvbrk/intra_catalog/internal/utils"
)

func SetupRoutes(app *app.Application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(httprate.LimitAll(200, time.Minute))
	r.Use(app.MiddlewareHandler.RequestLogger)
	r.Use(app.MiddlewareHandler.Security)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, utils.Envelope{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))

		r.Get("/admin/google/login", app.AdminOauth.Login)
		r.Get("/admin/google/logout", app.AdminOauth.Logout)
		r.Get("/admin/google/callback", app.AdminOauth.Callback)
	})

	r.Route("/api/v1/public", func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, time.Minute))
		r.Use(app.MiddlewareHandler.Cors)

		r.Get("/videos", app.CatalogHandler.HandlerGetVideos)
		r.Get("/vehicles", app.CatalogHandler.HandlerGetVehicles)
		r.Get("/applications", app.CatalogHandler.HandlerGetApplications)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, time.Minute))
		r.Use(app.MiddlewareHandler.Cors)
		r.Use(app.MiddlewareHandler.AuthenticateAdmin)

		r.Get("/me", app.AdminHandler.HandlerMe)
		r.Post("/logout", app.AdminHandler.HandlerLogout)

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", app.AdminHandler.Videos.HandlerList)
			r.Post("/", app.AdminHandler.Videos.HandlerSubmit)
			r.Get("/state", app.AdminHandler.Videos.HandlerState)
			r.Post("/new", app.AdminHandler.Videos.HandlerStartCreate)
			r.Post("/cancel", app.AdminHandler.Videos.HandlerCancel)
			r.Post("/{id}/edit", app.AdminHandler.Videos.HandlerStartEdit)
			r.Delete("/{id}", app.AdminHandler.Videos.HandlerDelete)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", app.AdminHandler.Vehicles.HandlerList)
			r.Post("/", app.AdminHandler.Vehicles.HandlerSubmit)
			r.Get("/state", app.AdminHandler.Vehicles.HandlerState)
			r.Post("/new", app.AdminHandler.Vehicles.HandlerStartCreate)
			r.Post("/cancel", app.AdminHandler.Vehicles.HandlerCancel)
			r.Post("/images", app.AdminHandler.HandlerUploadVehicleImage)
			r.Post("/{id}/edit", app.AdminHandler.Vehicles.HandlerStartEdit)
			r.Delete("/{id}", app.AdminHandler.Vehicles.HandlerDelete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", app.AdminHandler.HandlerGetUsers)
			r.Put("/{id}/role", app.AdminHandler.HandlerSetUserRole)
		})
	})

	return r
}
