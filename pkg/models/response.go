package models

// ErrorType classifies API errors for clients.
type ErrorType string

const (
	GeneralErrorType       ErrorType = "GeneralError"
	ValidationErrorType    ErrorType = "ValidationError"
	NotFoundErrorType      ErrorType = "NotFoundError"
	ConfigurationErrorType ErrorType = "ConfigurationError"
	BackendErrorType       ErrorType = "BackendError"
)

// APIResponse is the envelope of every HTTP API response.
type APIResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	ErrorType ErrorType `json:"error_type,omitempty"`
	Data      any       `json:"data,omitempty"`
}
