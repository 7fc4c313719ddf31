package utils

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorCodeURLRequired       ErrorCode = "URL_REQUIRED"
	ErrorCodeInvalidURL        ErrorCode = "INVALID_URL"
	ErrorCodeExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrorCodeNoSuitableFormat  ErrorCode = "NO_SUITABLE_FORMAT"
	ErrorCodeDownloadFailed    ErrorCode = "DOWNLOAD_FAILED"
	ErrorCodeServiceNotReady   ErrorCode = "SERVICE_NOT_READY"
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// AppError is the client-facing form of every failure the API reports.
// Message is what clients see under "error"; Details carries the cause.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"error"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func NewErrorWithDetails(code ErrorCode, message string, statusCode int, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func NewMissingURLError() *AppError {
	return NewError(ErrorCodeURLRequired, "URL is required", http.StatusBadRequest)
}

func NewInvalidURLError() *AppError {
	return NewError(ErrorCodeInvalidURL, "Invalid YouTube URL", http.StatusBadRequest)
}

// NewExtractionError reports a metadata or stream acquisition failure.
// message names the operation, e.g. "Failed to download video".
func NewExtractionError(message string, err error) *AppError {
	return NewErrorWithDetails(
		ErrorCodeExtractionFailed,
		message,
		http.StatusInternalServerError,
		errorDetails(err),
	)
}

func NewNoSuitableFormatError(err error) *AppError {
	return NewErrorWithDetails(
		ErrorCodeNoSuitableFormat,
		"No suitable format found",
		http.StatusUnprocessableEntity,
		errorDetails(err),
	)
}

func NewDownloadError(err error) *AppError {
	return NewErrorWithDetails(
		ErrorCodeDownloadFailed,
		"Download failed",
		http.StatusInternalServerError,
		errorDetails(err),
	)
}

func NewServiceNotReadyError() *AppError {
	return NewError(
		ErrorCodeServiceNotReady,
		"Service not ready",
		http.StatusServiceUnavailable,
	)
}

func NewRateLimitError() *AppError {
	return NewError(
		ErrorCodeRateLimitExceeded,
		"Too many requests",
		http.StatusTooManyRequests,
	)
}

func errorDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
