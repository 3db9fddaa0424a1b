package i18n

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-session/core"
)

const (
	errorKeyPrefix = "errors."
	genericKey     = errorKeyPrefix + core.ErrorCodeUnknown
	genericMessage = "Something went wrong. Please try again."
)

// Lookup resolves a catalog key to a localized string.
type Lookup interface {
	Lookup(key string) (string, bool)
}

type LookupFunc func(key string) (string, bool)

func (fn LookupFunc) Lookup(key string) (string, bool) {
	if fn == nil {
		return "", false
	}
	return fn(key)
}

// MapLookup serves keys from a flat map.
type MapLookup map[string]string

func (m MapLookup) Lookup(key string) (string, bool) {
	text, ok := m[key]
	return text, ok
}

// Translator turns failures into display strings. It never fails; a nil
// lookup degrades to the error's own message.
type Translator struct {
	lookup Lookup
}

func NewTranslator(lookup Lookup) *Translator {
	return &Translator{lookup: lookup}
}

// Translate resolves value to a display string. Strings pass through
// unchanged. Errors carrying a code are looked up as errors.<code> and fall
// back to their message; other errors use their message; anything else gets
// the generic message.
func (t *Translator) Translate(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case core.StructuredError:
		return t.translateStructured(typed)
	case *core.StructuredError:
		if typed == nil {
			return t.generic()
		}
		return t.translateStructured(*typed)
	case error:
		return t.translateError(typed)
	default:
		return t.generic()
	}
}

func (t *Translator) translateError(err error) string {
	if err == nil {
		return t.generic()
	}
	var unknown *core.UnknownError
	if errors.As(err, &unknown) && unknown != nil && strings.TrimSpace(unknown.Message) == "" {
		return t.generic()
	}
	var failure core.Failure
	if errors.As(err, &failure) {
		return t.translateStructured(failure.Structured())
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return t.translateStructured(core.Normalize(rich, "").Structured())
	}
	if message := strings.TrimSpace(err.Error()); message != "" {
		return message
	}
	return t.generic()
}

func (t *Translator) translateStructured(payload core.StructuredError) string {
	code := strings.TrimSpace(payload.Code)
	if code != "" && code != core.ErrorCodeUnknown {
		if text, ok := t.find(errorKeyPrefix + code); ok {
			return text
		}
	}
	if message := strings.TrimSpace(payload.Message); message != "" {
		return message
	}
	return t.generic()
}

func (t *Translator) generic() string {
	if text, ok := t.find(genericKey); ok {
		return text
	}
	return genericMessage
}

func (t *Translator) find(key string) (string, bool) {
	if t == nil || t.lookup == nil {
		return "", false
	}
	text, ok := t.lookup.Lookup(key)
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// FieldOf reports the input field a failure is attributed to.
func FieldOf(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	field := strings.TrimSpace(core.Normalize(err, "").Structured().Field)
	return field, field != ""
}

// ToFieldErrorMap maps the failing field to its translated message. It
// returns nil when the error is not attributable to a single field.
func (t *Translator) ToFieldErrorMap(err error) map[string]string {
	field, ok := FieldOf(err)
	if !ok {
		return nil
	}
	return map[string]string{field: t.Translate(err)}
}
