// Package types holds the wire envelopes every API response is wrapped in.
package types

// SuccessEnvelope wraps every 2xx payload under a single data key so the
// admin frontend unwraps responses uniformly.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of an error code: a stable machine-readable
// code, a human message, and optional structured details such as per-field
// validation messages.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Fail assembles the error envelope in one call.
func Fail(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, Details: details}}
}
