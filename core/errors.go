package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorCodeUnknown               = "UNKNOWN_ERROR"
	ErrorCodeNetwork               = "NETWORK_ERROR"
	ErrorCodeValidation            = "VALIDATION_ERROR"
	ErrorCodeRefreshUnavailable    = "REFRESH_UNAVAILABLE"
	ErrorCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ErrorCodeProviderLoadFailed    = "PROVIDER_LOAD_FAILED"
	ErrorCodeProviderCancelled     = "PROVIDER_CANCELLED"
	ErrorCodeProviderFailed        = "PROVIDER_SIGN_IN_FAILED"
)

const (
	networkErrorMessage       = "Unable to connect to the server"
	refreshUnavailableMessage = "No refresh token"
	unknownErrorMessage       = "An unexpected error occurred"

	// statusClientClosedRequest marks a flow the user abandoned.
	statusClientClosedRequest = 499
)

// ErrRefreshFailed is matched by every error returned from a failed refresh.
var ErrRefreshFailed = errors.New("core: token refresh failed")

// StructuredError is the canonical failure shape. Code is always set and a
// StatusCode of 0 means no response was received.
type StructuredError struct {
	Code        string `json:"code"`
	StatusCode  int    `json:"statusCode"`
	Message     string `json:"message"`
	Field       string `json:"field,omitempty"`
	NativeError string `json:"error,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Path        string `json:"path,omitempty"`
}

func (e StructuredError) normalized() StructuredError {
	e.Code = strings.TrimSpace(e.Code)
	if e.Code == "" {
		e.Code = ErrorCodeUnknown
	}
	e.Field = strings.TrimSpace(e.Field)
	return e
}

func (e *StructuredError) clone() *StructuredError {
	if e == nil {
		return nil
	}
	copied := *e
	return &copied
}

type ErrorKind string

const (
	KindNetwork            ErrorKind = "network"
	KindAPI                ErrorKind = "api"
	KindProvider           ErrorKind = "provider"
	KindRefreshUnavailable ErrorKind = "refresh_unavailable"
	KindUnknown            ErrorKind = "unknown"
)

// Failure is the closed set of errors that leave the session core. Match on
// the concrete type or on Kind.
type Failure interface {
	error
	Kind() ErrorKind
	Structured() StructuredError
	ToServiceError() *goerrors.Error
	failure()
}

type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return networkErrorMessage
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (*NetworkError) Kind() ErrorKind { return KindNetwork }

func (*NetworkError) Structured() StructuredError {
	return StructuredError{
		Code:       ErrorCodeNetwork,
		StatusCode: 0,
		Message:    networkErrorMessage,
	}
}

func (e *NetworkError) ToServiceError() *goerrors.Error {
	return serviceError(e, goerrors.CategoryExternal, http.StatusServiceUnavailable)
}

func (*NetworkError) failure() {}

// APIError carries whatever the server reported, including domain failures
// and validation failures bound to a form field.
type APIError struct {
	Payload StructuredError
}

func NewAPIError(payload StructuredError) *APIError {
	return &APIError{Payload: payload.normalized()}
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Payload.Message); msg != "" {
		return msg
	}
	return e.Payload.Code
}

func (*APIError) Kind() ErrorKind { return KindAPI }

func (e *APIError) Structured() StructuredError {
	if e == nil {
		return StructuredError{Code: ErrorCodeUnknown}
	}
	return e.Payload.normalized()
}

func (e *APIError) Field() string {
	if e == nil {
		return ""
	}
	return e.Payload.Field
}

func (e *APIError) ToServiceError() *goerrors.Error {
	status := e.Payload.StatusCode
	rich := goerrors.New(e.Error(), categoryForStatus(status)).
		WithCode(status).
		WithTextCode(e.Structured().Code)
	if field := e.Field(); field != "" {
		rich.WithMetadata(map[string]any{"field": field})
	}
	return rich
}

func (*APIError) failure() {}

type ProviderReason string

const (
	ProviderReasonConfiguration ProviderReason = "configuration"
	ProviderReasonLoad          ProviderReason = "load"
	ProviderReasonCancelled     ProviderReason = "cancelled"
	ProviderReasonFailed        ProviderReason = "failed"
)

// ProviderError reports identity provider failures. Cancellation is kept
// apart from real failures so callers can return silently.
type ProviderError struct {
	Provider string
	Reason   ProviderReason
	Message  string
	Cause    error
}

func NewProviderError(provider string, reason ProviderReason, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider: strings.TrimSpace(provider),
		Reason:   reason,
		Message:  strings.TrimSpace(message),
		Cause:    cause,
	}
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Reason)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (*ProviderError) Kind() ErrorKind { return KindProvider }

func (e *ProviderError) Structured() StructuredError {
	code, status := providerCodeAndStatus(e.Reason)
	return StructuredError{
		Code:        code,
		StatusCode:  status,
		Message:     e.Error(),
		NativeError: e.Provider,
	}
}

func (e *ProviderError) ToServiceError() *goerrors.Error {
	_, status := providerCodeAndStatus(e.Reason)
	category := goerrors.CategoryExternal
	if e.Reason == ProviderReasonConfiguration {
		category = goerrors.CategoryInternal
	}
	return serviceError(e, category, status).
		WithMetadata(map[string]any{"provider": e.Provider, "reason": string(e.Reason)})
}

func (*ProviderError) failure() {}

func providerCodeAndStatus(reason ProviderReason) (string, int) {
	switch reason {
	case ProviderReasonConfiguration:
		return ErrorCodeProviderNotConfigured, http.StatusInternalServerError
	case ProviderReasonLoad:
		return ErrorCodeProviderLoadFailed, http.StatusServiceUnavailable
	case ProviderReasonCancelled:
		return ErrorCodeProviderCancelled, statusClientClosedRequest
	default:
		return ErrorCodeProviderFailed, http.StatusBadGateway
	}
}

type RefreshUnavailableError struct{}

func (*RefreshUnavailableError) Error() string {
	return refreshUnavailableMessage
}

func (*RefreshUnavailableError) Is(target error) bool {
	return target == ErrRefreshFailed
}

func (*RefreshUnavailableError) Kind() ErrorKind { return KindRefreshUnavailable }

func (*RefreshUnavailableError) Structured() StructuredError {
	return StructuredError{
		Code:       ErrorCodeRefreshUnavailable,
		StatusCode: http.StatusUnauthorized,
		Message:    refreshUnavailableMessage,
	}
}

func (e *RefreshUnavailableError) ToServiceError() *goerrors.Error {
	return serviceError(e, goerrors.CategoryAuth, http.StatusUnauthorized)
}

func (*RefreshUnavailableError) failure() {}

// UnknownError is synthesized when nothing richer is available.
type UnknownError struct {
	Message string
	Cause   error
}

func (e *UnknownError) Error() string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return unknownErrorMessage
	}
	return e.Message
}

func (e *UnknownError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (*UnknownError) Kind() ErrorKind { return KindUnknown }

func (e *UnknownError) Structured() StructuredError {
	return StructuredError{
		Code:       ErrorCodeUnknown,
		StatusCode: http.StatusInternalServerError,
		Message:    e.Error(),
	}
}

func (e *UnknownError) ToServiceError() *goerrors.Error {
	return serviceError(e, goerrors.CategoryInternal, http.StatusInternalServerError)
}

func (*UnknownError) failure() {}

// Normalize coerces any error into a Failure. A Failure found in the chain is
// returned as is; go-errors envelopes become APIError values; anything else
// becomes an UnknownError using the error text or the fallback message.
func Normalize(err error, fallback string) Failure {
	if err == nil {
		return nil
	}
	var failure Failure
	if errors.As(err, &failure) {
		return failure
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return NewAPIError(structuredFromServiceError(rich))
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = strings.TrimSpace(fallback)
	}
	return &UnknownError{Message: message, Cause: err}
}

// AsStructured returns the StructuredError carried by err, if any.
func AsStructured(err error) (StructuredError, bool) {
	var failure Failure
	if errors.As(err, &failure) {
		return failure.Structured(), true
	}
	return StructuredError{}, false
}

func IsCancelled(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Reason == ProviderReasonCancelled
	}
	return false
}

func IsNetworkError(err error) bool {
	var networkErr *NetworkError
	return errors.As(err, &networkErr)
}

func structuredFromServiceError(rich *goerrors.Error) StructuredError {
	out := StructuredError{
		Code:       strings.TrimSpace(rich.TextCode),
		StatusCode: rich.Code,
		Message:    strings.TrimSpace(rich.Message),
	}
	if out.StatusCode == 0 {
		out.StatusCode = http.StatusInternalServerError
	}
	if validation := rich.AllValidationErrors(); len(validation) > 0 {
		out.Field = strings.TrimSpace(validation[0].Field)
		if msg := strings.TrimSpace(validation[0].Message); msg != "" {
			out.Message = msg
		}
		if out.Code == "" {
			out.Code = ErrorCodeValidation
		}
	}
	return out.normalized()
}

// InvalidField reports one rejected input field as a go-errors validation
// envelope.
func InvalidField(field string, message string) error {
	return validationError(field, message)
}

// MissingDependency reports a handler that was built without its service.
func MissingDependency(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorCodeUnknown)
}

func validationError(field string, message string) error {
	return goerrors.NewValidation("validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorCodeValidation).
		WithSeverity(goerrors.SeverityError)
}

func serviceError(err Failure, category goerrors.Category, status int) *goerrors.Error {
	return goerrors.Wrap(err, category, err.Error()).
		WithCode(status).
		WithTextCode(err.Structured().Code)
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return goerrors.CategoryValidation
	case status >= 400 && status < 500:
		return goerrors.CategoryBadInput
	case status == 0:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryInternal
	}
}
