package pricing

import "fmt"

// ValidationKind identifies which class of input check failed.
type ValidationKind string

const (
	KindInvalidSymbol     ValidationKind = "invalid-symbol"
	KindInvalidPrice      ValidationKind = "invalid-price"
	KindInvalidExpiry     ValidationKind = "invalid-expiry"
	KindInvalidVolatility ValidationKind = "invalid-volatility"
	KindInvalidOptionType ValidationKind = "invalid-option-type"
)

// ValidationError reports a single rejected input field. It is returned
// before any numeric work happens.
type ValidationError struct {
	Field string
	Kind  ValidationKind
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pricing: %s (%s): %s", e.Field, e.Kind, e.Msg)
}

func invalidField(field string, kind ValidationKind, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field: field,
		Kind:  kind,
		Msg:   fmt.Sprintf(format, args...),
	}
}
