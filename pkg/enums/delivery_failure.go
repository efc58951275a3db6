package enums

// DeliveryFailure classifies why an order notification did not go out. The
// class is only used for logs and metrics; callers see a boolean.
type DeliveryFailure string

const (
	DeliveryFailureNone        DeliveryFailure = ""
	DeliveryFailureNetwork     DeliveryFailure = "network"
	DeliveryFailureRejected    DeliveryFailure = "rejected"
	DeliveryFailureBreakerOpen DeliveryFailure = "breaker_open"
)

// String implements fmt.Stringer.
func (d DeliveryFailure) String() string {
	return string(d)
}

// Outcome returns the metric label for the attempt.
func (d DeliveryFailure) Outcome() string {
	if d == DeliveryFailureNone {
		return "delivered"
	}
	return string(d)
}
