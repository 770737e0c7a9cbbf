package errinfo

import "fmt"

// ErrorInfo is the structured error payload surfaced to callers and over RPC.
type ErrorInfo struct {
	ErrorCode string   `json:"error_code"`
	Retryable bool     `json:"retryable"`
	Actions   []string `json:"actions,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.ErrorCode
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Detail)
}

const (
	CodeNoDocumentLoaded   = "NO_DOCUMENT_LOADED"
	CodeNoWorkspaceOpen    = "NO_WORKSPACE_OPEN"
	CodeFileNotFound       = "FILE_NOT_FOUND"
	CodeFileAccessDenied   = "FILE_ACCESS_DENIED"
	CodeFileReadFailed     = "FILE_READ_FAILED"
	CodeFileWriteFailed    = "FILE_WRITE_FAILED"
	CodeSizeLimitExceeded  = "SIZE_LIMIT_EXCEEDED"
	CodeTargetNotFound     = "TARGET_NOT_FOUND"
	CodeInvalidPattern     = "INVALID_PATTERN"
	CodeSnapshotNotFound   = "SNAPSHOT_NOT_FOUND"
	CodeRangeInvalid       = "RANGE_INVALID"
	CodeNetworkUnavailable = "NETWORK_UNAVAILABLE"
	CodeUnknown            = "UNKNOWN_ERROR"
)

const (
	ActionRetry        = "retry"
	ActionLoadDocument = "load_document"
	ActionOpenFolder   = "open_folder"
	ActionCheckPattern = "check_pattern"
)

func NoDocumentLoaded() *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNoDocumentLoaded,
		Retryable: false,
		Actions:   []string{ActionLoadDocument},
		Detail:    "no document is loaded",
	}
}

func NoWorkspaceOpen() *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNoWorkspaceOpen,
		Retryable: false,
		Actions:   []string{ActionOpenFolder},
		Detail:    "no workspace folder is open",
	}
}

func FileNotFound(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileNotFound,
		Retryable: false,
		Detail:    detail,
	}
}

func FileAccessDenied(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileAccessDenied,
		Retryable: false,
		Detail:    detail,
	}
}

func FileReadFailed(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileReadFailed,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func FileWriteFailed(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileWriteFailed,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func SizeLimitExceeded(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeSizeLimitExceeded,
		Retryable: false,
		Detail:    detail,
	}
}

func TargetNotFound(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeTargetNotFound,
		Retryable: false,
		Detail:    detail,
	}
}

func InvalidPattern(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeInvalidPattern,
		Retryable: false,
		Actions:   []string{ActionCheckPattern},
		Detail:    detail,
	}
}

func SnapshotNotFound(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeSnapshotNotFound,
		Retryable: false,
		Detail:    detail,
	}
}

func RangeInvalid(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeRangeInvalid,
		Retryable: false,
		Detail:    detail,
	}
}

func NetworkUnavailable(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNetworkUnavailable,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func Unknown(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeUnknown,
		Retryable: false,
		Detail:    detail,
	}
}

// From maps an arbitrary error to an ErrorInfo, passing structured errors
// through untouched.
func From(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	if info, ok := err.(*ErrorInfo); ok {
		return info
	}
	return Unknown(err.Error())
}
