package domain

// PaymentOutcome is the closed set of payment results a webhook event
// can settle an order with. Provider event types are mapped onto these
// at the edge; the settlement path never sees raw provider strings.
type PaymentOutcome string

const (
	// PaymentOutcomeSucceeded - payment completed, the sale is final
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	// PaymentOutcomeFailed - payment attempt failed
	PaymentOutcomeFailed PaymentOutcome = "failed"
	// PaymentOutcomeCancelled - buyer abandoned or cancelled checkout
	PaymentOutcomeCancelled PaymentOutcome = "cancelled"
	// PaymentOutcomeOther - recognized event with no settlement effect
	PaymentOutcomeOther PaymentOutcome = "other"
)

// String returns the string representation
func (o PaymentOutcome) String() string {
	return string(o)
}

// IsValid checks if the outcome is one of the known variants
func (o PaymentOutcome) IsValid() bool {
	switch o {
	case PaymentOutcomeSucceeded, PaymentOutcomeFailed, PaymentOutcomeCancelled, PaymentOutcomeOther:
		return true
	}
	return false
}

// Settles reports whether the outcome changes order state
func (o PaymentOutcome) Settles() bool {
	return o == PaymentOutcomeSucceeded || o == PaymentOutcomeFailed || o == PaymentOutcomeCancelled
}
