package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

type ErrorType int

const (
	ErrImport ErrorType = iota
	ErrCapability
	ErrValidation
	ErrNotFound
	ErrPersistence
	ErrConfig
	ErrUnknown
)

type EditorError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *EditorError {
	return &EditorError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *EditorError {
	return &EditorError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *EditorError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *EditorError) Unwrap() error {
	return e.Cause
}

func (e *EditorError) WithContext(key string, value any) *EditorError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrImport:
		return "Import"
	case ErrCapability:
		return "Capability"
	case ErrValidation:
		return "Validation"
	case ErrNotFound:
		return "NotFound"
	case ErrPersistence:
		return "Persistence"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *EditorError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

func (h *DefaultErrorHandler) Handle(err error) bool {
	var edErr *EditorError
	if !errors.As(err, &edErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(edErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *EditorError) string {
	switch err.Type {
	case ErrImport:
		return "Invalid SRT file format. Please check the file and try again"
	case ErrCapability:
		return "Upgrade to Pro to use advanced editing features"
	case ErrValidation:
		return "Please verify the request parameters; words per subtitle must be greater than zero"
	case ErrNotFound:
		return "The requested project, cue or job does not exist"
	case ErrPersistence:
		return "Changes are kept in memory; they will be saved on the next save or autosave"
	case ErrConfig:
		return "Please check that the settings file or environment variables are set correctly"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var edErr *EditorError
	if errors.As(err, &edErr) {
		return edErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *EditorError {
	return NewErrorWithCause(errorType, message, err)
}

// Classify maps boundary errors from the codec and the policy onto the
// taxonomy. Already classified errors pass through.
func Classify(err error) *EditorError {
	if err == nil {
		return nil
	}
	var edErr *EditorError
	if errors.As(err, &edErr) {
		return edErr
	}
	var importErr *subtitle.ImportError
	if errors.As(err, &importErr) {
		return WrapError(err, ErrImport, "import failed")
	}
	var capErr *editor.CapabilityError
	if errors.As(err, &capErr) {
		return WrapError(err, ErrCapability, "pro feature").WithContext("feature", string(capErr.Feature))
	}
	return WrapError(err, ErrUnknown, "unexpected error")
}

func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
