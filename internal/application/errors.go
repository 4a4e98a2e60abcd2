package application

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionNotFound is returned by the session repository when no row
// matches the given session or payment intent identifier.
var ErrSessionNotFound = errors.New("pay session not found")

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeMissingFields    = "MISSING_FIELDS"
	ErrCodeInvalidCoupon    = "INVALID_COUPON"
	ErrCodePayCreateFailed  = "PAY_CREATE_FAILED"
	ErrCodePayStatusFailed  = "PAY_STATUS_FAILED"
	ErrCodePayExpireFailed  = "PAY_EXPIRE_FAILED"
	ErrCodeSignatureInvalid = "SIGNATURE_INVALID"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

func NewMissingFieldsError(msg string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMissingFields,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInvalidCouponError(msg string) *ServiceError {
	if msg == "" {
		msg = "promo code is not usable"
	}
	return &ServiceError{
		Code:       ErrCodeInvalidCoupon,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewPayCreateFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayCreateFailed,
		Message:    "could not create payment intent",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewPayStatusFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayStatusFailed,
		Message:    "could not retrieve payment status",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewPayExpireFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayExpireFailed,
		Message:    "could not expire payment session",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewSignatureInvalidError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeSignatureInvalid,
		Message:    "webhook signature verification failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewSessionNotFoundError(id string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeSessionNotFound,
		Message:    fmt.Sprintf("no session for payment intent %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
