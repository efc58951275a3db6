package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/api/validators"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

const orderRefHeader = "X-Order-Ref"

// Checkout submits the session's order. Customer fields in the body are
// written only once the session accepts the submission.
func Checkout(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload customerFieldsRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref := uuid.NewString()
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderRef(ctx, ref)
		}
		w.Header().Set(orderRefHeader, ref)

		view, err := session.SubmitWith(ctx, payload.apply)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckoutAcknowledge dismisses the success modal.
func CheckoutAcknowledge(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		session.DismissSuccess()
		responses.WriteSuccess(w, session.View())
	}
}

// CheckoutDismissError clears the delivery error alert.
func CheckoutDismissError(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		session.DismissError()
		responses.WriteSuccess(w, session.View())
	}
}
