package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DomainError is an error with a stable code of the form
// AR-<AREA>-<STATUS><SEQ>, where STATUS is the HTTP status the error maps to.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

// NewDomainError creates a DomainError.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError with the same code, so sentinels compare
// equal to their WithDetails/WithCause copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// Status returns the HTTP status embedded in the code, or 500 when the code
// does not carry one.
func (e *DomainError) Status() int {
	i := strings.LastIndexByte(e.Code, '-')
	if i < 0 || len(e.Code)-i-1 != 4 {
		return 500
	}
	n, err := strconv.Atoi(e.Code[i+1 : i+4])
	if err != nil || n < 400 || n > 599 {
		return 500
	}
	return n
}

// IsDomainError reports whether err wraps a DomainError with code. An empty
// code matches any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return code == "" || de.Code == code
}

// GetErrorCode returns the code of the DomainError wrapped by err, or "".
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Session errors.
var (
	// ErrSessionNotFound indicates no session is stored under the id.
	// It is a normal outcome, callers treat it as absence.
	ErrSessionNotFound = NewDomainError("AR-SESS-4040", "session not found")

	// ErrSessionIDInvalid indicates the session id is not a 128-bit identifier.
	ErrSessionIDInvalid = NewDomainError("AR-SESS-4000", "invalid session id")

	// ErrUnauthorized indicates neither the assertion token nor the stored
	// session produced claims.
	ErrUnauthorized = NewDomainError("AR-SESS-4011", "unauthorized")
)

// Token validation errors. Validate reports these only through
// ValidateReason and ValidateErr.
var (
	// ErrTokenMalformed indicates the token format is invalid.
	ErrTokenMalformed = NewDomainError("AR-TOKN-4000", "malformed token")

	// ErrTokenInvalid indicates the token failed validation.
	ErrTokenInvalid = NewDomainError("AR-TOKN-4010", "invalid token")

	// ErrTokenExpired indicates the token lifetime has ended.
	ErrTokenExpired = NewDomainError("AR-TOKN-4011", "token expired")

	// ErrTokenNotYetValid indicates the token's not-before is in the future.
	ErrTokenNotYetValid = NewDomainError("AR-TOKN-4012", "token not yet valid")

	// ErrTokenIssuer indicates the issuer is not in the allow-list.
	ErrTokenIssuer = NewDomainError("AR-TOKN-4031", "issuer not allowed")

	// ErrTokenAudience indicates no audience is in the allow-list.
	ErrTokenAudience = NewDomainError("AR-TOKN-4032", "audience not allowed")
)

// ErrClaimsCorrupt indicates a stored claim record could not be decoded.
var ErrClaimsCorrupt = NewDomainError("AR-CODC-5001", "claims record corrupt")

var (
	// ErrConfiguration indicates invalid or missing configuration.
	ErrConfiguration = NewDomainError("AR-CONF-5001", "configuration error")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("AR-SYS-5000", "internal server error")

	// ErrStorageUnavailable indicates the session backend failed.
	ErrStorageUnavailable = NewDomainError("AR-STOR-5030", "session store unavailable")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("AR-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("AR-SYS-4290", "too many requests")

	// ErrNotFound indicates the route or resource does not exist.
	ErrNotFound = NewDomainError("AR-SYS-4040", "not found")
)
