package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.String(),
		Image:       p.Image,
		Description: p.Description,
	}
}

// CatalogList returns every product in display order.
func CatalogList(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := c.List()
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, newProductResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

func CatalogGet(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := c.Get(chi.URLParam(r, "productId"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, newProductResponse(p))
	}
}
