package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEventNotFound is returned when a booking references an unknown event.
	ErrEventNotFound = errors.New("event not found")

	// ErrClinicNotFound is returned when an event's owning clinic doesn't exist.
	ErrClinicNotFound = errors.New("clinic not found")

	// ErrClinicNotActive is returned when booking against a pending or
	// rejected clinic. Only active clinics participate in bookings.
	ErrClinicNotActive = errors.New("clinic is not active")

	// ErrReservationNotFound is returned for an unknown reservation id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrAlreadyCancelled is returned when cancelling a reservation twice.
	// The refund must be issued exactly once.
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
)

// ValidationError reports malformed or missing request fields. Rejected
// before the ledger is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrClinicNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

// IsClientError returns true for business-rule failures the caller can act
// on, as opposed to system faults.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrClinicNotActive) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.As(err, &ve)
}
