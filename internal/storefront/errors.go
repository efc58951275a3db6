package storefront

import (
	"fmt"

	"github.com/angelmondragon/asala-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
)

// DeliveryFailedMessage is shown to the visitor whenever an order could not
// be delivered, whatever the cause.
const DeliveryFailedMessage = "حدث خطأ أثناء إرسال الطلب، يرجى المحاولة مرة أخرى."

var (
	// ErrSubmissionInFlight rejects a submit while another one is outstanding.
	ErrSubmissionInFlight = pkgerrors.New(pkgerrors.CodeSubmissionInFlight, "order submission already in progress")
	// ErrDeliveryFailed reports that the sender returned false.
	ErrDeliveryFailed = pkgerrors.New(pkgerrors.CodeDeliveryFailed, DeliveryFailedMessage)
)

func errEmptyCart() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
		WithDetails(map[string]string{"cart": "must contain at least one item"})
}

func errStateConflict(action string, state enums.ViewState) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s while %s", action, state)).
		WithDetails(map[string]string{"state": state.String()})
}
