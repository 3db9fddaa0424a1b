package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-session/core"
)

const defaultErrorMessage = "An error occurred"

// decodeErrorResponse builds an APIError from whatever the body supplies.
// Bodies that are not JSON objects yield the defaults.
func decodeErrorResponse(status int, body []byte) *core.APIError {
	payload := map[string]any{}
	_ = json.Unmarshal(body, &payload)

	structured := core.StructuredError{
		Code:        stringField(payload, "code"),
		StatusCode:  status,
		Message:     messageField(payload["message"]),
		Field:       stringField(payload, "field"),
		NativeError: stringField(payload, "error"),
		Timestamp:   stringField(payload, "timestamp"),
		Path:        stringField(payload, "path"),
	}
	if value, ok := payload["statusCode"].(float64); ok && value > 0 {
		structured.StatusCode = int(value)
	}
	if structured.Code == "" {
		structured.Code = core.ErrorCodeUnknown
	}
	if structured.Message == "" {
		structured.Message = defaultErrorMessage
	}
	return core.NewAPIError(structured)
}

func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

// messageField accepts a string or a list of strings, as returned by
// servers that report every failed constraint.
func messageField(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

func configurationError(message string, baseURL string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode("INVALID_BASE_URL").
		WithMetadata(map[string]any{"base_url": baseURL})
}
