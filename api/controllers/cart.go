package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/api/validators"
	"github.com/angelmondragon/asala-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
}

type updateCartItemRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

// CartAddItem adds one unit of a catalog product to the session cart.
func CartAddItem(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, found := c.Get(payload.ProductID)
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		session.Cart().Add(product)
		responses.WriteSuccess(w, session.View())
	}
}

// CartUpdateItem applies a quantity delta. Quantities never drop below one.
func CartUpdateItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session.Cart().UpdateQuantity(chi.URLParam(r, "productId"), payload.Delta)
		responses.WriteSuccess(w, session.View())
	}
}

// CartRemoveItem removes a line. Unknown ids are not an error.
func CartRemoveItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		session.Cart().Remove(chi.URLParam(r, "productId"))
		responses.WriteSuccess(w, session.View())
	}
}

func CartOpen(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		if err := session.OpenCart(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}

func CartClose(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		if err := session.CloseCart(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.View())
	}
}
