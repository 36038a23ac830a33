// Package errors provides the error codes shared by the lead workers and
// their conversion into BPMN errors for the workflow engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, workflow-visible error code.
type ErrorCode string

const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidStatus ErrorCode = "INVALID_STATUS"
	ErrCodeEmptyMessage  ErrorCode = "EMPTY_MESSAGE"

	ErrCodeLeadNotFound     ErrorCode = "LEAD_NOT_FOUND"
	ErrCodeStoreQueryFailed ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"

	ErrCodeJudgeTimeout         ErrorCode = "JUDGE_TIMEOUT"
	ErrCodeJudgeResponseInvalid ErrorCode = "JUDGE_RESPONSE_INVALID"

	ErrCodeDeliveryFailed  ErrorCode = "DELIVERY_FAILED"
	ErrCodeDraftSuperseded ErrorCode = "DRAFT_SUPERSEDED"
	ErrCodeAlertSendFailed ErrorCode = "ALERT_SEND_FAILED"

	ErrCodeMarketplaceFetchFailed ErrorCode = "MARKETPLACE_FETCH_FAILED"
	ErrCodeProductSearchFailed    ErrorCode = "PRODUCT_SEARCH_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the structured error every worker reports to the engine.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError finds a StandardError anywhere in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is what gets thrown to, or failed on, a Zeebe job.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the process variables set alongside the error.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// NewInvalidInputError reports job variables that cannot be processed.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

// NewInvalidStatusError reports an unknown or disallowed lead status.
func NewInvalidStatusError(status string) *StandardError {
	return newError(ErrCodeInvalidStatus, "Invalid lead status", fmt.Sprintf("status: %s", status), false, nil)
}

// NewEmptyMessageError rejects an inbound event with neither body nor media.
func NewEmptyMessageError(phone string) *StandardError {
	return newError(ErrCodeEmptyMessage, "Inbound message has no body and no media", fmt.Sprintf("phone: %s", phone), false, nil)
}

func NewLeadNotFoundError(leadID string) *StandardError {
	return newError(ErrCodeLeadNotFound, "Lead not found", fmt.Sprintf("leadId: %s", leadID), false, nil)
}

// NewStoreQueryFailedError wraps a failed read against the lead store.
func NewStoreQueryFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeStoreQueryFailed, "Lead store query failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

// NewStoreWriteFailedError wraps a failed write against the lead store.
func NewStoreWriteFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeStoreWriteFailed, "Lead store write failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

// NewJudgeTimeoutError is logged when the external judgment exceeds its budget.
// It never fails a job; the heuristic result is used instead.
func NewJudgeTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeJudgeTimeout, "External judgment timed out",
		fmt.Sprintf("timeout: %s", timeout), false, nil)
}

func NewJudgeResponseInvalidError(details string) *StandardError {
	return newError(ErrCodeJudgeResponseInvalid, "External judgment response rejected", details, false, nil)
}

// NewDeliveryFailedError surfaces a transport failure. Sends are not retried
// by the engine.
func NewDeliveryFailedError(to string, err error) *StandardError {
	return newError(ErrCodeDeliveryFailed, "Message delivery failed",
		fmt.Sprintf("to: %s, error: %v", to, err), false, err)
}

func NewDraftSupersededError(leadID string) *StandardError {
	return newError(ErrCodeDraftSuperseded, "Draft superseded by a newer inbound message",
		fmt.Sprintf("leadId: %s", leadID), false, nil)
}

func NewAlertSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeAlertSendFailed, "Boss alert delivery failed",
		fmt.Sprintf("channel: %s, error: %v", channel, err), true, err)
}

func NewMarketplaceFetchFailedError(err error) *StandardError {
	return newError(ErrCodeMarketplaceFetchFailed, "Marketplace lead fetch failed", err.Error(), true, err)
}

func NewProductSearchFailedError(query string, err error) *StandardError {
	return newError(ErrCodeProductSearchFailed, "Product search failed",
		fmt.Sprintf("query: %s, error: %v", query, err), true, err)
}

// NewInternalError wraps anything that is not already a StandardError.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:           "INVALID_INPUT",
	ErrCodeInvalidStatus:          "INVALID_STATUS",
	ErrCodeEmptyMessage:           "EMPTY_MESSAGE",
	ErrCodeLeadNotFound:           "LEAD_NOT_FOUND",
	ErrCodeStoreQueryFailed:       "STORE_UNAVAILABLE",
	ErrCodeStoreWriteFailed:       "STORE_UNAVAILABLE",
	ErrCodeJudgeTimeout:           "JUDGE_TIMEOUT",
	ErrCodeJudgeResponseInvalid:   "JUDGE_RESPONSE_INVALID",
	ErrCodeDeliveryFailed:         "DELIVERY_FAILED",
	ErrCodeDraftSuperseded:        "DRAFT_SUPERSEDED",
	ErrCodeAlertSendFailed:        "ALERT_SEND_FAILED",
	ErrCodeMarketplaceFetchFailed: "MARKETPLACE_FETCH_FAILED",
	ErrCodeProductSearchFailed:    "PRODUCT_SEARCH_FAILED",
}

// GetRetryCount returns how many engine retries a code is worth.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreQueryFailed,
		ErrCodeStoreWriteFailed,
		ErrCodeMarketplaceFetchFailed,
		ErrCodeProductSearchFailed:
		return 3

	case ErrCodeAlertSendFailed:
		return 2

	default:
		// delivery failures included: the transport owns resend policy
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for dashboards and error variables.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "STORE") || strings.HasPrefix(codeStr, "LEAD"):
		return "STORE"
	case strings.HasPrefix(codeStr, "JUDGE"):
		return "JUDGMENT"
	case strings.Contains(codeStr, "DELIVERY") || strings.Contains(codeStr, "DRAFT") || strings.Contains(codeStr, "ALERT"):
		return "MESSAGING"
	case strings.HasPrefix(codeStr, "MARKETPLACE") || strings.HasPrefix(codeStr, "PRODUCT"):
		return "INTEGRATION"
	case strings.HasPrefix(codeStr, "INVALID") || strings.HasPrefix(codeStr, "EMPTY"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
