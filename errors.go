package dacs7

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ccLee627/dacs7/internal/dispatch"
)

// ErrNotConnected is returned when an operation is attempted while the
// client is not connected to a PLC.
var ErrNotConnected = errors.New("dacs7: not connected")

// ErrorCategory classifies an error by its likely cause, so callers can
// decide whether a retry, a reconnect, or giving up entirely is appropriate.
type ErrorCategory int

const (
	// CategoryUnknown is the default for errors that could not be classified.
	CategoryUnknown ErrorCategory = iota

	// CategoryNotConnected means an operation was attempted while the
	// connection was not in the Opened state.
	CategoryNotConnected

	// CategoryTimeout means a request did not receive a response within its
	// deadline.
	CategoryTimeout

	// CategoryTagParse means a tag address string could not be parsed.
	CategoryTagParse

	// CategoryCouldNotAddPackage means an item could not be fit into any
	// package under the negotiated PDU size, even alone in its own package.
	CategoryCouldNotAddPackage

	// CategoryProtocolContent means the PLC returned a data item with a
	// non-OK return code.
	CategoryProtocolContent

	// CategoryProtocolError means the PLC returned a PDU-level error class
	// and code.
	CategoryProtocolError

	// CategoryTooMuchDataPerCall means a single logical request exceeded the
	// configured item-count or byte-size ceiling for one call.
	CategoryTooMuchDataPerCall

	// CategoryTransport means a lower-level network I/O error occurred.
	CategoryTransport

	// CategoryValidation means a caller supplied invalid arguments.
	CategoryValidation
)

// String returns a human-readable name for the category.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNotConnected:
		return "not_connected"
	case CategoryTimeout:
		return "timeout"
	case CategoryTagParse:
		return "tag_parse"
	case CategoryCouldNotAddPackage:
		return "could_not_add_package"
	case CategoryProtocolContent:
		return "protocol_content"
	case CategoryProtocolError:
		return "protocol_error"
	case CategoryTooMuchDataPerCall:
		return "too_much_data_per_call"
	case CategoryTransport:
		return "transport"
	case CategoryValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with category and context information to
// help callers decide how to respond.
type ClassifiedError struct {
	Category  ErrorCategory
	Operation string
	Err       error
	Retryable bool

	// Tag is the address string involved in the failing operation, if any.
	Tag string

	// ReturnCode is the S7 data-item return code, set for
	// CategoryProtocolContent.
	ReturnCode byte

	// ItemIndex is the index of the failing item within a multi-item
	// request, set for CategoryProtocolContent and
	// CategoryCouldNotAddPackage.
	ItemIndex int

	// ErrorClass/ErrorCode are the PDU-level error fields, set for
	// CategoryProtocolError.
	ErrorClass byte
	ErrorCode  byte
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(e.Category.String())
	if e.Operation != "" {
		b.WriteString(" during ")
		b.WriteString(e.Operation)
	}
	if e.Tag != "" {
		fmt.Fprintf(&b, " (tag=%s)", e.Tag)
	}
	if e.Category == CategoryProtocolContent {
		fmt.Fprintf(&b, " (return_code=0x%02X, item=%d)", e.ReturnCode, e.ItemIndex)
	}
	if e.Category == CategoryProtocolError {
		fmt.Fprintf(&b, " (class=0x%02X, code=0x%02X)", e.ErrorClass, e.ErrorCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// ClassifyError inspects err and returns a *ClassifiedError describing it.
// If err is already classified, it is returned unchanged.
func ClassifyError(operation string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var existing *ClassifiedError
	if errors.As(err, &existing) {
		return existing
	}

	var timeoutErr *dispatch.TimeoutError

	switch {
	case errors.Is(err, ErrNotConnected), errors.Is(err, dispatch.ErrNotConnected):
		return &ClassifiedError{Category: CategoryNotConnected, Operation: operation, Err: err, Retryable: true}
	case errors.As(err, &timeoutErr):
		return &ClassifiedError{Category: CategoryTimeout, Operation: operation, Err: err, Retryable: true}
	case isTimeoutError(err):
		return &ClassifiedError{Category: CategoryTimeout, Operation: operation, Err: err, Retryable: true}
	case isNetworkError(err):
		return &ClassifiedError{Category: CategoryTransport, Operation: operation, Err: err, Retryable: true}
	default:
		return &ClassifiedError{Category: CategoryUnknown, Operation: operation, Err: err, Retryable: false}
	}
}

func isTimeoutError(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return containsAny(err.Error(), []string{"timeout", "deadline exceeded"})
}

func isNetworkError(err error) bool {
	return containsAny(err.Error(), []string{"connection reset", "broken pipe", "connection refused", "use of closed network connection", "EOF"})
}

// NewNotConnectedError builds a ClassifiedError for an operation attempted
// outside the Opened state.
func NewNotConnectedError(operation string) *ClassifiedError {
	return &ClassifiedError{Category: CategoryNotConnected, Operation: operation, Err: ErrNotConnected, Retryable: true}
}

// NewTimeoutError builds a ClassifiedError for a request that did not
// complete before its deadline.
func NewTimeoutError(operation string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryTimeout, Operation: operation, Err: err, Retryable: true}
}

// NewTagParseError builds a ClassifiedError for a tag address string that
// could not be parsed.
func NewTagParseError(tag string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryTagParse, Operation: "parse_tag", Tag: tag, Err: err, Retryable: false}
}

// NewCouldNotAddPackageError builds a ClassifiedError for an item that could
// not be fit into any outgoing package.
func NewCouldNotAddPackageError(tag string, itemIndex int, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryCouldNotAddPackage, Operation: "plan_package", Tag: tag, ItemIndex: itemIndex, Err: err, Retryable: false}
}

// NewProtocolContentError builds a ClassifiedError for a data item that came
// back with a non-OK return code.
func NewProtocolContentError(operation string, itemIndex int, returnCode byte) *ClassifiedError {
	return &ClassifiedError{
		Category:   CategoryProtocolContent,
		Operation:  operation,
		ItemIndex:  itemIndex,
		ReturnCode: returnCode,
		Err:        fmt.Errorf("item %d returned code 0x%02X", itemIndex, returnCode),
		Retryable:  false,
	}
}

// NewProtocolError builds a ClassifiedError for a PDU-level error class and
// code reported by the PLC.
func NewProtocolError(operation string, errorClass, errorCode byte) *ClassifiedError {
	return &ClassifiedError{
		Category:   CategoryProtocolError,
		Operation:  operation,
		ErrorClass: errorClass,
		ErrorCode:  errorCode,
		Err:        fmt.Errorf("plc reported error class 0x%02X code 0x%02X", errorClass, errorCode),
		Retryable:  false,
	}
}

// NewTooMuchDataError builds a ClassifiedError for a request exceeding the
// per-call item or byte ceiling.
func NewTooMuchDataError(operation string, limit, attempted int) *ClassifiedError {
	return &ClassifiedError{
		Category:  CategoryTooMuchDataPerCall,
		Operation: operation,
		Err:       fmt.Errorf("attempted %d exceeds limit %d", attempted, limit),
		Retryable: false,
	}
}

// NewTransportError builds a ClassifiedError for a lower-level network I/O
// failure.
func NewTransportError(operation string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryTransport, Operation: operation, Err: err, Retryable: true}
}

// NewValidationError builds a ClassifiedError for invalid caller input.
func NewValidationError(operation string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryValidation, Operation: operation, Err: err, Retryable: false}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
