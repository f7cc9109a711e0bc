package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"
)

// Sentinel codes that never map to a stored error.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Scoring module error codes.
const (
	ErrCodeProductNotFound  ErrorCode = "SCORE_001"
	ErrCodeProductInvalid   ErrorCode = "SCORE_002"
	ErrCodeDataUnavailable  ErrorCode = "SCORE_003"
	ErrCodeComputation      ErrorCode = "SCORE_004"
	ErrCodeWeightsInvalid   ErrorCode = "SCORE_005"
	ErrCodeScoringFailed    ErrorCode = "SCORE_006"
	ErrCodeBatchPartialFail ErrorCode = "SCORE_007"
)

// Association-mining module error codes.
const (
	ErrCodeMiningThresholds ErrorCode = "MINE_001"
	ErrCodeMiningFailed     ErrorCode = "MINE_002"
	ErrCodeCorpusSource     ErrorCode = "MINE_003"
)

// Recommendation module error codes.
const (
	ErrCodeBundleSeedInvalid ErrorCode = "REC_001"
	ErrCodeCatalogSource     ErrorCode = "REC_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
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
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeProductNotFound:  http.StatusNotFound,
	ErrCodeProductInvalid:   http.StatusBadRequest,
	ErrCodeDataUnavailable:  http.StatusServiceUnavailable,
	ErrCodeComputation:      http.StatusInternalServerError,
	ErrCodeWeightsInvalid:   http.StatusInternalServerError,
	ErrCodeScoringFailed:    http.StatusInternalServerError,
	ErrCodeBatchPartialFail: http.StatusMultiStatus,

	ErrCodeMiningThresholds: http.StatusBadRequest,
	ErrCodeMiningFailed:     http.StatusInternalServerError,
	ErrCodeCorpusSource:     http.StatusServiceUnavailable,

	ErrCodeBundleSeedInvalid: http.StatusBadRequest,
	ErrCodeCatalogSource:     http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeProductNotFound:  "product not found",
	ErrCodeProductInvalid:   "invalid product record",
	ErrCodeDataUnavailable:  "required data source unavailable",
	ErrCodeComputation:      "scoring invariant violated",
	ErrCodeWeightsInvalid:   "niche weight profile invalid",
	ErrCodeScoringFailed:    "product scoring failed",
	ErrCodeBatchPartialFail: "batch scoring completed with failures",

	ErrCodeMiningThresholds: "invalid mining thresholds",
	ErrCodeMiningFailed:     "association rule mining failed",
	ErrCodeCorpusSource:     "transaction corpus unavailable",

	ErrCodeBundleSeedInvalid: "invalid bundle seed products",
	ErrCodeCatalogSource:     "product catalog unavailable",
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

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
