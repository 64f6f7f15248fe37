package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Job & Judgment errors
// 14000-14999: Sandbox errors
// 15000-15999: Webhook errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Store errors (10100-10199)
	StoreError     ErrorCode = 10100
	StoreSetFailed ErrorCode = 10101

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300
	InvalidFormat    ErrorCode = 10301

	// Configuration errors (10400-10499)
	ConfigMissing ErrorCode = 10400
	ConfigInvalid ErrorCode = 10401

	// ========== Job & Judgment Errors (13000-13999) ==========

	// Job (13000-13099)
	JobNotFound     ErrorCode = 13000
	JobDecodeFailed ErrorCode = 13001
	JobExpired      ErrorCode = 13002

	// Judgment (13100-13199)
	JudgmentContract    ErrorCode = 13100
	LanguageUnsupported ErrorCode = 13101

	// ========== Sandbox Errors (14000-14999) ==========

	SandboxSpawnFailed ErrorCode = 14000
	SandboxProtocol    ErrorCode = 14001
	SandboxSystemError ErrorCode = 14002

	// ========== Webhook Errors (15000-15999) ==========

	WebhookRejected  ErrorCode = 15000
	WebhookTransport ErrorCode = 15001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Store
	StoreError:     "Job store operation failed",
	StoreSetFailed: "Failed to write job store entry",

	// Validation
	ValidationFailed: "Validation failed",
	InvalidFormat:    "Invalid format",

	// Configuration
	ConfigMissing: "Configuration entry is missing",
	ConfigInvalid: "Configuration entry is invalid",

	// Job
	JobNotFound:     "Judgment job not found",
	JobDecodeFailed: "Failed to decode judgment job",
	JobExpired:      "Judgment job has expired",

	// Judgment
	JudgmentContract:    "Verdict sequence violates the judgment contract",
	LanguageUnsupported: "Programming language not supported",

	// Sandbox
	SandboxSpawnFailed: "Failed to spawn sandbox",
	SandboxProtocol:    "Sandbox produced unexpected output",
	SandboxSystemError: "Sandbox runner reported a system error",

	// Webhook
	WebhookRejected:  "Webhook receiver rejected the event",
	WebhookTransport: "Webhook request failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == JobNotFound:
		return 404
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == JobDecodeFailed:
		return 400
	default:
		return 500
	}
}
