// Package errs defines sentinel error values shared across the service
// layers. Handlers match them with errors.Is to pick a transport status,
// so wrapped context added along the way never changes the error kind.
package errs

import "errors"

// ErrNotFound is returned when a referenced entity (booking, flight,
// hotel, payment, user) does not exist. It is permanent and not retried.
var ErrNotFound = errors.New("resource not found")

// ErrSoldOut is returned when an inventory item has no units left. This
// is an expected business outcome, not a system fault.
var ErrSoldOut = errors.New("sold out")

// ErrInvalidTransition is returned when a booking status change is not
// permitted by the transition table, including any attempt to leave a
// terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUserValidationFailed is returned when the traveler cannot be
// validated, either because the user service rejected the id or because
// it was unreachable.
var ErrUserValidationFailed = errors.New("user validation failed")

// ErrPaymentFailed is returned when the payment gateway declines a
// payment attempt. The payment record itself is still persisted.
var ErrPaymentFailed = errors.New("payment processing failed")

// ErrDuplicate signals a uniqueness conflict on resource creation.
var ErrDuplicate = errors.New("duplicate resource")

// ErrUpstreamUnavailable is returned when a collaborator call failed or
// timed out.
var ErrUpstreamUnavailable = errors.New("upstream service unavailable")
