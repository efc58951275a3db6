package customer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/asala-storefront/pkg/observer"
)

// Field identifies one customer-details form field.
type Field string

const (
	FieldName         Field = "name"
	FieldContact      Field = "contact"
	FieldDeliveryDate Field = "delivery_date"
	FieldNotes        Field = "notes"
)

// ParseField accepts the form field names, including the legacy "whatsapp"
// alias for contact.
func ParseField(value string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "name":
		return FieldName, nil
	case "contact", "whatsapp":
		return FieldContact, nil
	case "delivery_date", "deliverydate":
		return FieldDeliveryDate, nil
	case "notes":
		return FieldNotes, nil
	}
	return "", fmt.Errorf("unknown customer field %q", value)
}

// Details is the delivery information collected before checkout. Empty
// strings are the reset values.
type Details struct {
	Name         string `json:"name" validate:"required"`
	Contact      string `json:"contact" validate:"required"`
	DeliveryDate string `json:"delivery_date" validate:"required,datetime=2006-01-02"`
	Notes        string `json:"notes"`
}

// ChangeEvent reports which field changed. Reset events carry no field.
type ChangeEvent struct {
	Field Field
	Reset bool
}

// Store holds one visitor's details. Writes are last-write-wins and never
// validated here.
type Store struct {
	mu        sync.Mutex
	details   Details
	observers observer.List[ChangeEvent]
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetName(value string)         { s.set(FieldName, value) }
func (s *Store) SetContact(value string)      { s.set(FieldContact, value) }
func (s *Store) SetDeliveryDate(value string) { s.set(FieldDeliveryDate, value) }
func (s *Store) SetNotes(value string)        { s.set(FieldNotes, value) }

// Set updates a field by its form name.
func (s *Store) Set(field string, value string) error {
	f, err := ParseField(field)
	if err != nil {
		return err
	}
	s.set(f, value)
	return nil
}

// Reset restores every field to the empty string.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.details == (Details{}) {
		s.mu.Unlock()
		return
	}
	s.details = Details{}
	s.mu.Unlock()

	s.observers.Notify(ChangeEvent{Reset: true})
}

// Snapshot returns a copy of the current details.
func (s *Store) Snapshot() Details {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}

func (s *Store) Subscribe(fn func(ChangeEvent)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Store) set(field Field, value string) {
	s.mu.Lock()
	var target *string
	switch field {
	case FieldName:
		target = &s.details.Name
	case FieldContact:
		target = &s.details.Contact
	case FieldDeliveryDate:
		target = &s.details.DeliveryDate
	case FieldNotes:
		target = &s.details.Notes
	default:
		s.mu.Unlock()
		return
	}
	changed := *target != value
	*target = value
	s.mu.Unlock()

	if changed {
		s.observers.Notify(ChangeEvent{Field: field})
	}
}
