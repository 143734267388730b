package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Stage   string
	Message string
	Kind    error
	Cause   error
}

func (e *AppError) Error() string {
	prefix := e.Code
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Code, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap exposes both the kind sentinel and the original cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Ingestion error kinds.
var (
	ErrFormat          = errors.New("format error")
	ErrEmptyExtraction = errors.New("empty extraction")
	ErrCommit          = errors.New("commit error")
	ErrExternalEngine  = errors.New("external engine error")
	ErrCancelled       = errors.New("run cancelled")
)

const (
	CodeConfig          = "CONFIG_ERROR"
	CodeFormat          = "FORMAT_ERROR"
	CodeEmptyExtraction = "EMPTY_EXTRACTION"
	CodeCommit          = "COMMIT_ERROR"
	CodeExternalEngine  = "EXTERNAL_ENGINE_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeCancelled       = "CANCELLED"
)

var kindCodes = map[error]string{
	ErrFormat:          CodeFormat,
	ErrEmptyExtraction: CodeEmptyExtraction,
	ErrCommit:          CodeCommit,
	ErrExternalEngine:  CodeExternalEngine,
	ErrInvalidInput:    CodeInvalidInput,
	ErrCancelled:       CodeCancelled,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStageError builds an error of the given kind raised while the pipeline was in stage.
func NewStageError(kind error, stage, message string, cause error) *AppError {
	code, ok := kindCodes[kind]
	if !ok {
		code = "INTERNAL_ERROR"
	}
	return &AppError{
		Code:    code,
		Stage:   stage,
		Message: message,
		Kind:    kind,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StageOf returns the stage recorded on the first AppError in err's chain.
func StageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

// HTTPStatus maps an error to the status code an API handler should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrExternalEngine), errors.Is(err, ErrCommit):
		return http.StatusBadGateway
	case errors.Is(err, ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
