package types

// SuccessEnvelope wraps every successful storefront response, usually a
// session view or a catalog listing.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of a rejected request. Details carries field messages
// for validation errors and is omitted otherwise.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewErrorEnvelope builds an error body. Pass nil details to leave the field
// out of the JSON.
func NewErrorEnvelope(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, Details: details}}
}
