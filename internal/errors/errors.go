package errors

import "errors"

// Business error taxonomy of the booking engine. Expected conditions are
// returned as values, never panics; callers classify with errors.Is.
var (
	// ErrNotFound - seat, booking, match or payment id unknown. Not retryable.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyTaken - a seat was claimed by a concurrent reservation.
	// Surfaced per seat in the partial-failure list, not fatal to the request.
	ErrAlreadyTaken = errors.New("seat already taken")

	// ErrAlreadyPaid - duplicate settlement attempt on a paid booking.
	ErrAlreadyPaid = errors.New("booking already paid")

	// ErrPaymentInFlight - another settlement or refund for the same booking
	// is still waiting on the gateway. Retryable once it resolves.
	ErrPaymentInFlight = errors.New("payment attempt already in flight")

	// ErrGateway - explicit gateway failure or timeout. Recorded as a failed
	// payment; the caller may retry with a fresh settlement call.
	ErrGateway = errors.New("payment gateway failure")

	// ErrStorage - the underlying transaction could not commit. The whole
	// operation rolled back; no partial state persisted.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidInput - a precondition on the request itself failed.
	ErrInvalidInput = errors.New("invalid input")
)
