package enums

import "fmt"

// ViewState is the storefront UI state a visitor session is in.
type ViewState string

const (
	ViewStateIdle         ViewState = "idle"
	ViewStateCartOpen     ViewState = "cart_open"
	ViewStateSubmitting   ViewState = "submitting"
	ViewStateSuccessShown ViewState = "success_shown"
)

var validViewStates = []ViewState{
	ViewStateIdle,
	ViewStateCartOpen,
	ViewStateSubmitting,
	ViewStateSuccessShown,
}

// String implements fmt.Stringer.
func (v ViewState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ViewState.
func (v ViewState) IsValid() bool {
	for _, candidate := range validViewStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseViewState converts raw input into a ViewState.
func ParseViewState(value string) (ViewState, error) {
	for _, candidate := range validViewStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid view state %q", value)
}
