package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the holdings routes under the API router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload-process", h.HandleUploadProcess)

	r.Get("/composition", h.HandleGetComposition)
	r.Get("/performance", h.HandleGetPerformance)
	r.Get("/top-holdings", h.HandleGetTopHoldings)
	r.Get("/holding-price-change", h.HandleGetPriceChanges)
	r.Get("/prices", h.HandleGetPrices)
	r.Get("/snapshot", h.HandleGetSnapshot)
}
