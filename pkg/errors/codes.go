package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are prefixed with the module that owns them (MOL, ANN, COR, ...).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeConfigInvalid      ErrorCode = "COMMON_017"
)

// Aliases used at call sites.
const (
	CodeUnknown      = ErrorCode("")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
)

// Molecule Module Error Codes
const (
	// ErrCodeInvalidEncoding marks a structural encoding that cannot be
	// fingerprinted. Never fatal.
	ErrCodeInvalidEncoding           ErrorCode = "MOL_001"
	ErrCodeFingerprintLengthMismatch ErrorCode = "MOL_002"
	// ErrCodeCodecUnavailable marks a missing or misconfigured feature
	// extractor. Fatal to the run.
	ErrCodeCodecUnavailable ErrorCode = "MOL_003"
)

// Annotation Module Error Codes
const (
	ErrCodeAnnotationUnavailable ErrorCode = "ANN_001"
	ErrCodeTransport             ErrorCode = "ANN_002"
	ErrCodeMalformedPayload      ErrorCode = "ANN_003"
)

// Corpus / Ingestion Module Error Codes
const (
	// ErrCodeCorpusLoadFailure is fatal to the run.
	ErrCodeCorpusLoadFailure ErrorCode = "COR_001"
	ErrCodeQueryLoadFailure  ErrorCode = "COR_002"
)

// Screening Module Error Codes
const (
	ErrCodeScreeningFailed ErrorCode = "SCR_001"
	ErrCodeReportFailed    ErrorCode = "SCR_002"
	ErrCodeSinkFailed      ErrorCode = "SCR_003"
)

// ErrorCodeHTTPStatus maps each code to the HTTP status the API layer returns.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeConfigInvalid:      http.StatusInternalServerError,

	ErrCodeInvalidEncoding:           http.StatusUnprocessableEntity,
	ErrCodeFingerprintLengthMismatch: http.StatusInternalServerError,
	ErrCodeCodecUnavailable:          http.StatusServiceUnavailable,

	ErrCodeAnnotationUnavailable: http.StatusBadGateway,
	ErrCodeTransport:             http.StatusBadGateway,
	ErrCodeMalformedPayload:      http.StatusBadGateway,

	ErrCodeCorpusLoadFailure: http.StatusServiceUnavailable,
	ErrCodeQueryLoadFailure:  http.StatusBadRequest,

	ErrCodeScreeningFailed: http.StatusInternalServerError,
	ErrCodeReportFailed:    http.StatusInternalServerError,
	ErrCodeSinkFailed:      http.StatusInternalServerError,
}

// ErrorCodeMessage holds the default message for each code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "not found",
	ErrCodeConflict:           "conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeConfigInvalid:      "invalid configuration",

	ErrCodeInvalidEncoding:           "invalid structural encoding",
	ErrCodeFingerprintLengthMismatch: "fingerprint length mismatch",
	ErrCodeCodecUnavailable:          "fingerprint codec unavailable",

	ErrCodeAnnotationUnavailable: "annotation unavailable",
	ErrCodeTransport:             "annotation service transport error",
	ErrCodeMalformedPayload:      "malformed annotation payload",

	ErrCodeCorpusLoadFailure: "corpus load failed",
	ErrCodeQueryLoadFailure:  "query load failed",

	ErrCodeScreeningFailed: "screening failed",
	ErrCodeReportFailed:    "report generation failed",
	ErrCodeSinkFailed:      "result sink failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsFatal reports whether a code aborts a screening run. Everything else is
// absorbed into counters or the Unknown annotation.
func IsFatal(code ErrorCode) bool {
	switch code {
	case ErrCodeCorpusLoadFailure, ErrCodeCodecUnavailable, ErrCodeQueryLoadFailure, ErrCodeConfigInvalid:
		return true
	}
	return false
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.SplitN(string(code), "_", 2)
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
