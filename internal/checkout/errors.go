package checkout

import "fmt"

// Code is the stable machine-readable identifier surfaced to clients when
// a checkout fails. The wrapped cause never leaves the service.
type Code string

const (
	CodeCheckoutUnavailable Code = "CHECKOUT_UNAVAILABLE"
	CodeItemLookupFailed    Code = "ITEM_LOOKUP_FAILED"
	CodeSpotUnavailable     Code = "SPOT_NO_LONGER_AVAILABLE"
	CodePaymentAuthFailed   Code = "PAYMENT_AUTHORIZATION_FAILED"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeOrderCreateFailed   Code = "ORDER_CREATION_FAILED"
	CodeOrderUpdateFailed   Code = "ORDER_UPDATE_FAILED"
	CodePaymentSettleFailed Code = "PAYMENT_SETTLEMENT_FAILED"
	CodeOrderPersistFailed  Code = "ORDER_PERSISTENCE_FAILED"
)

// Error is the terminal error a checkout saga returns to its caller. It
// identifies which step failed; everything reserved or authorized before
// that step has already been compensated by the time the caller sees it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}
