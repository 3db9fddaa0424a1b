package core

import "strings"

const RedactedValue = "[REDACTED]"

// Keys containing one of these fragments carry credentials.
var sensitiveFragments = []string{"password", "secret", "token", "authorization", "credential", "code"}

// Keys that look sensitive by fragment but are needed to trace a failure.
var traceKeys = map[string]struct{}{
	"provider":    {},
	"user_id":     {},
	"error_code":  {},
	"status_code": {},
	"event_type":  {},
	"endpoint":    {},
}

// RedactSensitiveMap returns a copy of fields with credential values masked
// at any depth. The input is never modified.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if isSensitiveKey(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactSensitiveMap(typed)
	case []any:
		items := make([]any, 0, len(typed))
		for _, item := range typed {
			items = append(items, redactValue(item))
		}
		return items
	case map[string]string:
		out := make(map[string]string, len(typed))
		for key, item := range typed {
			if isSensitiveKey(key) {
				item = RedactedValue
			}
			out[key] = item
		}
		return out
	}
	return value
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	if _, ok := traceKeys[key]; ok {
		return false
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}
