package storefront

import (
	"github.com/angelmondragon/asala-storefront/internal/cart"
	"github.com/angelmondragon/asala-storefront/internal/customer"
	"github.com/angelmondragon/asala-storefront/pkg/enums"
)

// LineView is a cart line as rendered in the drawer.
type LineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

// View is a point-in-time snapshot of everything the front end renders.
type View struct {
	SessionID      string           `json:"session_id"`
	State          enums.ViewState  `json:"state"`
	CartOpen       bool             `json:"cart_open"`
	Submitting     bool             `json:"submitting"`
	SuccessVisible bool             `json:"success_visible"`
	Lines          []LineView       `json:"lines"`
	ItemCount      int              `json:"item_count"`
	Total          string           `json:"total"`
	Customer       customer.Details `json:"customer"`
	LastError      string           `json:"last_error,omitempty"`
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	lines := s.cart.Lines()
	out := make([]LineView, 0, len(lines))
	count := 0
	for _, l := range lines {
		count += l.Quantity
		out = append(out, LineView{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Image:     l.Product.Image,
			UnitPrice: l.Product.Price.String(),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}

	return View{
		SessionID:      s.id,
		State:          s.state,
		CartOpen:       s.state == enums.ViewStateCartOpen || s.state == enums.ViewStateSubmitting,
		Submitting:     s.state == enums.ViewStateSubmitting,
		SuccessVisible: s.state == enums.ViewStateSuccessShown,
		Lines:          out,
		ItemCount:      count,
		Total:          cart.Total(lines).StringFixed(2),
		Customer:       s.customer.Snapshot(),
		LastError:      s.lastError,
	}
}
