package journals

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.CreateDraft)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.UpdateDraft)
	r.Delete("/{id}", h.DeleteDraft)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/reverse", h.Reverse)
}
