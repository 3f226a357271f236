package logic

import "fmt"

// Reason explains why a player produced no usable data.
type Reason string

const (
	// ReasonProxyFailed: the account/list batch could not be reached or did
	// not answer JSON.
	ReasonProxyFailed Reason = "proxy_failed"
	// ReasonErrorResponse: account/list answered with an error status.
	ReasonErrorResponse Reason = "error_response"

	ReasonNotFound           Reason = "wg_not_found"
	ReasonMissingAccountID   Reason = "wg_missing_account_id"
	ReasonInvalidAccountID   Reason = "wg_invalid_account_id"
	ReasonFetchFailed        Reason = "fetch_failed"
	ReasonInvalidStatPayload Reason = "invalid_payload"
)

// InputError is a request the service refuses before any external call.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func inputErr(field, format string, args ...any) error {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func reasonsToStrings(m map[string]Reason) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}
