package models

// ErrorType categorizes API errors so clients can branch on the kind
// without parsing messages.
type ErrorType string

const (
	GeneralErrorType      ErrorType = "general_error"
	ValidationErrorType   ErrorType = "validation_error"
	NotFoundErrorType     ErrorType = "not_found_error"
	InvalidStateErrorType ErrorType = "invalid_state_error"
)

// APIResponse is the success envelope returned by the HTTP API.
type APIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// APIError is the error envelope returned by the HTTP API.
type APIError struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}
