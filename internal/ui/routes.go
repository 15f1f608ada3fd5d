package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the panel on r. Only the login page is reachable
// without a session.
func (ui *UI) RegisterRoutes(r chi.Router) {
	r.Get("/login", ui.HandleLogin)
	r.Post("/login", ui.HandleLoginPost)

	r.With(ui.AuthMiddleware).Group(func(r chi.Router) {
		r.Get("/", http.RedirectHandler("/products", http.StatusSeeOther).ServeHTTP)
		r.Get("/logout", ui.HandleLogout)
		r.Post("/logout", ui.HandleLogout)
		r.Mount("/products", ui.productRoutes())
	})
}

func (ui *UI) productRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", ui.HandleProductList)
	r.Post("/", ui.HandleProductCreate)
	r.Get("/new", ui.HandleProductNew)

	r.Get("/{id}/edit", ui.HandleProductEdit)
	r.Post("/{id}", ui.HandleProductUpdate)
	r.Get("/{id}/delete", ui.HandleProductDeleteConfirm)
	r.Post("/{id}/delete", ui.HandleProductDelete)
	return r
}
