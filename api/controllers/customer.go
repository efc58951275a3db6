package controllers

import (
	"net/http"

	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/api/validators"
	"github.com/angelmondragon/asala-storefront/internal/customer"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

const (
	maxNameLen    = 100
	maxContactLen = 64
	maxDateLen    = 32
	maxNotesLen   = 1000
)

// customerFieldsRequest carries optional field updates. whatsapp is accepted
// as another name for contact.
type customerFieldsRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Contact      *string `json:"contact" validate:"omitempty,max=64"`
	WhatsApp     *string `json:"whatsapp" validate:"omitempty,max=64"`
	DeliveryDate *string `json:"delivery_date" validate:"omitempty,max=32"`
	Notes        *string `json:"notes" validate:"omitempty,max=1000"`
}

func (p customerFieldsRequest) apply(store *customer.Store) {
	if p.Name != nil {
		store.SetName(validators.SanitizeString(*p.Name, maxNameLen))
	}
	if p.WhatsApp != nil {
		store.SetContact(validators.SanitizeString(*p.WhatsApp, maxContactLen))
	}
	if p.Contact != nil {
		store.SetContact(validators.SanitizeString(*p.Contact, maxContactLen))
	}
	if p.DeliveryDate != nil {
		store.SetDeliveryDate(validators.SanitizeString(*p.DeliveryDate, maxDateLen))
	}
	if p.Notes != nil {
		store.SetNotes(validators.SanitizeString(*p.Notes, maxNotesLen))
	}
}

// CustomerUpdate writes the supplied fields. Values are not validated until
// checkout.
func CustomerUpdate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload customerFieldsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload.apply(session.Customer())
		responses.WriteSuccess(w, session.View())
	}
}
