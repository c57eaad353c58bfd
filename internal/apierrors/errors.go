// Package apierrors defines the domain error taxonomy shared by the service
// layer and the HTTP boundary. Every domain error carries a stable
// machine-readable code, the HTTP status it renders with, and a structured
// details map; handlers render them without translation.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeAuthentication      = "AUTHENTICATION_ERROR"
	CodeAuthorization       = "AUTHORIZATION_ERROR"
	CodeVMNotFound          = "VM_NOT_FOUND"
	CodeResourceNotFound    = "RESOURCE_NOT_FOUND"
	CodeInvalidVMState      = "INVALID_VM_STATE"
	CodeValidation          = "VALIDATION_ERROR"
	CodeProvider            = "PROVIDER_ERROR"
	CodeProviderUnreachable = "PROVIDER_CONNECTION_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is a domain error with a stable code and HTTP status.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
	err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// As unwraps err into an *Error when it carries one.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewAuthentication(message string, details map[string]any) *Error {
	return &Error{
		Code:    CodeAuthentication,
		Status:  http.StatusUnauthorized,
		Message: message,
		Details: details,
	}
}

func NewAuthorization(message string) *Error {
	return &Error{
		Code:    CodeAuthorization,
		Status:  http.StatusForbidden,
		Message: message,
	}
}

func NewVMNotFound(vmUUID string) *Error {
	return &Error{
		Code:    CodeVMNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("VM with ID %q not found", vmUUID),
		Details: map[string]any{"vm_id": vmUUID},
	}
}

func NewResourceNotFound(resourceType, resourceID string) *Error {
	return &Error{
		Code:    CodeResourceNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s with ID %q not found", resourceType, resourceID),
		Details: map[string]any{
			"resource_type": resourceType,
			"resource_id":   resourceID,
		},
	}
}

// NewStateConflict reports a guard failure: action is not legal from
// currentState.
func NewStateConflict(vmUUID, currentState, action string) *Error {
	return &Error{
		Code:    CodeInvalidVMState,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("Cannot perform %q on VM %q in state %q", action, vmUUID, currentState),
		Details: map[string]any{
			"vm_id":            vmUUID,
			"current_state":    currentState,
			"requested_action": action,
		},
	}
}

func NewValidation(message, field string) *Error {
	details := map[string]any{}
	if field != "" {
		details["field"] = field
	}
	return &Error{
		Code:    CodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: message,
		Details: details,
	}
}

// NewProvider wraps an unexpected provider failure, preserving the
// underlying message in the details map.
func NewProvider(message string, err error) *Error {
	details := map[string]any{}
	if err != nil {
		details["provider_error"] = err.Error()
	}
	return &Error{
		Code:    CodeProvider,
		Status:  http.StatusBadGateway,
		Message: message,
		Details: details,
		err:     err,
	}
}

func NewProviderUnreachable(message string, err error) *Error {
	details := map[string]any{}
	if err != nil {
		details["provider_error"] = err.Error()
	}
	return &Error{
		Code:    CodeProviderUnreachable,
		Status:  http.StatusServiceUnavailable,
		Message: message,
		Details: details,
		err:     err,
	}
}

// IsNotFound reports whether err is a VM or resource not-found error.
func IsNotFound(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == http.StatusNotFound
}
