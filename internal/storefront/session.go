package storefront

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/asala-storefront/internal/cart"
	"github.com/angelmondragon/asala-storefront/internal/customer"
	"github.com/angelmondragon/asala-storefront/internal/orders"
	"github.com/angelmondragon/asala-storefront/pkg/enums"
	"github.com/angelmondragon/asala-storefront/pkg/observer"
)

// EventKind says which part of the session changed.
type EventKind string

const (
	EventCart     EventKind = "cart"
	EventCustomer EventKind = "customer"
	EventState    EventKind = "state"
)

// Event is published to session subscribers after every change.
type Event struct {
	SessionID string
	Kind      EventKind
}

// Session owns one visitor's cart, customer details and view state.
//
// The mutex guards state and lastError. The sender runs without it; the
// Submitting state is what keeps a second submit out. Cart and customer
// changes are never made with it held, so observers may read View.
type Session struct {
	id       string
	cart     *cart.Store
	customer *customer.Store
	composer orders.Composer
	sender   orders.Sender

	mu        sync.Mutex
	state     enums.ViewState
	lastError string

	lastSeen  atomic.Int64
	observers observer.List[Event]
}

// NewSession wires fresh stores to the composer and sender.
func NewSession(id string, composer orders.Composer, sender orders.Sender) *Session {
	s := &Session{
		id:       id,
		cart:     cart.NewStore(),
		customer: customer.NewStore(),
		composer: composer,
		sender:   sender,
		state:    enums.ViewStateIdle,
	}
	s.cart.Subscribe(func(cart.ChangeEvent) { s.notify(EventCart) })
	s.customer.Subscribe(func(customer.ChangeEvent) { s.notify(EventCustomer) })
	return s
}

func (s *Session) ID() string { return s.id }

// Cart exposes the cart store. Mutations are allowed in every state.
func (s *Session) Cart() *cart.Store { return s.cart }

// Customer exposes the customer-details store.
func (s *Session) Customer() *customer.Store { return s.customer }

func (s *Session) State() enums.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OpenCart shows the cart drawer. Opening an open drawer is a no-op.
func (s *Session) OpenCart() error {
	s.mu.Lock()
	switch s.state {
	case enums.ViewStateCartOpen, enums.ViewStateSubmitting:
		s.mu.Unlock()
		return nil
	case enums.ViewStateSuccessShown:
		state := s.state
		s.mu.Unlock()
		return errStateConflict("open cart", state)
	}
	s.state = enums.ViewStateCartOpen
	s.mu.Unlock()

	s.notify(EventState)
	return nil
}

// CloseCart hides the drawer. It cannot interrupt a submission.
func (s *Session) CloseCart() error {
	s.mu.Lock()
	switch s.state {
	case enums.ViewStateSubmitting:
		s.mu.Unlock()
		return errStateConflict("close cart", enums.ViewStateSubmitting)
	case enums.ViewStateCartOpen:
	default:
		s.mu.Unlock()
		return nil
	}
	s.state = enums.ViewStateIdle
	s.mu.Unlock()

	s.notify(EventState)
	return nil
}

// Submit validates and sends the current order. It issues at most one
// outbound request per call and never one while another is outstanding.
//
// On success the cart and details are cleared and the success modal shown.
// On failure nothing is cleared, the drawer stays open and LastError is set.
func (s *Session) Submit(ctx context.Context) (View, error) {
	return s.SubmitWith(ctx, nil)
}

// SubmitWith is Submit with last-moment detail edits. update runs only after
// the session has accepted the submission, so a checkout rejected for its
// state (drawer closed, order already in flight) changes nothing. Edits made
// before a validation error are kept.
func (s *Session) SubmitWith(ctx context.Context, update func(*customer.Store)) (View, error) {
	s.mu.Lock()
	switch s.state {
	case enums.ViewStateCartOpen:
	case enums.ViewStateSubmitting:
		s.mu.Unlock()
		return View{}, ErrSubmissionInFlight
	default:
		state := s.state
		s.mu.Unlock()
		return View{}, errStateConflict("submit order", state)
	}
	// Claimed before any store is touched; store callbacks must run unlocked.
	s.state = enums.ViewStateSubmitting
	s.mu.Unlock()

	if update != nil {
		update(s.customer)
	}

	lines := s.cart.Lines()
	details := s.customer.Snapshot()
	if err := checkSubmission(lines, details); err != nil {
		s.mu.Lock()
		s.state = enums.ViewStateCartOpen
		s.mu.Unlock()
		if update != nil {
			s.notify(EventState)
		}
		return View{}, err
	}

	payload := s.composer.Compose(orders.Order{
		Lines:    lines,
		Customer: details,
		Total:    cart.Total(lines),
	})
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
	s.notify(EventState)

	// A client disconnect must not leave the session stuck in Submitting.
	delivered := s.sender.SendOrder(context.WithoutCancel(ctx), payload)

	if delivered {
		s.cart.Clear()
		s.customer.Reset()
	}

	s.mu.Lock()
	if delivered {
		s.state = enums.ViewStateSuccessShown
	} else {
		s.state = enums.ViewStateCartOpen
		s.lastError = DeliveryFailedMessage
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(EventState)

	if !delivered {
		return view, ErrDeliveryFailed
	}
	return view, nil
}

func checkSubmission(lines []cart.Line, details customer.Details) error {
	if len(lines) == 0 {
		return errEmptyCart()
	}
	return customer.Validate(details)
}

// DismissSuccess closes the success modal.
func (s *Session) DismissSuccess() {
	s.mu.Lock()
	if s.state != enums.ViewStateSuccessShown {
		s.mu.Unlock()
		return
	}
	s.state = enums.ViewStateIdle
	s.mu.Unlock()

	s.notify(EventState)
}

// DismissError clears the delivery error alert.
func (s *Session) DismissError() {
	s.mu.Lock()
	if s.lastError == "" {
		s.mu.Unlock()
		return
	}
	s.lastError = ""
	s.mu.Unlock()

	s.notify(EventState)
}

// Subscribe registers fn for session events. Observers are called
// synchronously without the session lock held. Reading View is fine; anything
// slower should be handed off to another goroutine.
func (s *Session) Subscribe(fn func(Event)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Session) busy() bool {
	return s.State() == enums.ViewStateSubmitting
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) notify(kind EventKind) {
	s.observers.Notify(Event{SessionID: s.id, Kind: kind})
}
