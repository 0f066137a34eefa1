package supabase

import (
	"encoding/json"
	"fmt"
)

// APIError is a failed PostgREST or auth call.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase error %d: %s", e.StatusCode, e.Message)
}

func parseAPIError(status int, body []byte) error {
	var raw struct {
		Code             any    `json:"code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = fmt.Sprintf("status %d", status)
		return apiErr
	}

	if raw.Code != nil {
		apiErr.Code = fmt.Sprint(raw.Code)
	}
	apiErr.Details = raw.Details
	apiErr.Hint = raw.Hint
	switch {
	case raw.Message != "":
		apiErr.Message = raw.Message
	case raw.Msg != "":
		apiErr.Message = raw.Msg
	case raw.ErrorDescription != "":
		apiErr.Message = raw.ErrorDescription
	case raw.Error != "":
		apiErr.Message = raw.Error
	default:
		apiErr.Message = fmt.Sprintf("status %d", status)
	}
	return apiErr
}
