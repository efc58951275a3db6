package cart

import (
	"sync"

	"github.com/angelmondragon/asala-storefront/internal/catalog"
	"github.com/angelmondragon/asala-storefront/pkg/observer"
	"github.com/shopspring/decimal"
)

// ChangeKind names the mutation that produced a ChangeEvent.
type ChangeKind string

const (
	ChangeAdded           ChangeKind = "added"
	ChangeQuantityUpdated ChangeKind = "quantity_updated"
	ChangeRemoved         ChangeKind = "removed"
	ChangeCleared         ChangeKind = "cleared"
)

// ChangeEvent is published after every effective cart mutation.
type ChangeEvent struct {
	Kind      ChangeKind
	ProductID string
}

// Line is one product in the cart with its quantity.
type Line struct {
	Product  catalog.Product
	Quantity int
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Store holds a single visitor's cart. Lines keep insertion order and there is
// at most one line per product id, each with quantity of at least one.
type Store struct {
	mu        sync.Mutex
	lines     []Line
	observers observer.List[ChangeEvent]
}

func NewStore() *Store {
	return &Store{}
}

// Add increments the product's line or appends a new line with quantity 1.
func (s *Store) Add(product catalog.Product) {
	s.mu.Lock()
	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, Line{Product: product, Quantity: 1})
	}
	s.mu.Unlock()

	s.observers.Notify(ChangeEvent{Kind: ChangeAdded, ProductID: product.ID})
}

// UpdateQuantity applies delta to the line, clamping at 1. The line is never
// removed this way; absent ids are ignored.
func (s *Store) UpdateQuantity(productID string, delta int) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	next := max(1, s.lines[i].Quantity+delta)
	changed := next != s.lines[i].Quantity
	s.lines[i].Quantity = next
	s.mu.Unlock()

	if changed {
		s.observers.Notify(ChangeEvent{Kind: ChangeQuantityUpdated, ProductID: productID})
	}
}

// Remove deletes the product's line if present.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.mu.Unlock()

	s.observers.Notify(ChangeEvent{Kind: ChangeRemoved, ProductID: productID})
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.lines) == 0 {
		s.mu.Unlock()
		return
	}
	s.lines = nil
	s.mu.Unlock()

	s.observers.Notify(ChangeEvent{Kind: ChangeCleared})
}

// Total is recomputed from the lines on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.lines)
}

// Lines returns a snapshot in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Get(productID string) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i], true
	}
	return Line{}, false
}

// Len is the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// ItemCount is the sum of quantities, shown as the cart badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Subscribe registers fn for change events and returns its unsubscribe func.
func (s *Store) Subscribe(fn func(ChangeEvent)) func() {
	return s.observers.Subscribe(fn)
}

// Total sums line subtotals.
func Total(lines []Line) decimal.Decimal {
	return totalOf(lines)
}

func totalOf(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

func (s *Store) indexOf(productID string) int {
	for i, l := range s.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
