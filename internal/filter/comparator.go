package filter

import "fmt"

// BinaryFunction is the name under which the case-sensitive comparator is registered.
const BinaryFunction = "binary"

// Comparator wraps a parameter placeholder in a SQL function call.
type Comparator func(placeholder string) string

// ComparatorResolver looks up custom string functions by name.
type ComparatorResolver interface {
	Lookup(name string) (Comparator, bool)
}

// Functions is a registry of custom string functions. Only values of type
// Comparator resolve; anything else registered under a name is treated as
// missing.
type Functions map[string]any

func (f Functions) Lookup(name string) (Comparator, bool) {
	c, ok := f[name].(Comparator)
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

// FormatFunction returns a Comparator that substitutes the placeholder into
// format, e.g. "BINARY(%s)" or `%s COLLATE "C"`.
func FormatFunction(format string) Comparator {
	return func(placeholder string) string {
		return fmt.Sprintf(format, placeholder)
	}
}
