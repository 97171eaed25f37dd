package toolset

import (
	"fmt"
	"math"
	"strconv"
)

// ArgError reports a missing or mistyped tool argument.
type ArgError struct {
	Name   string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Name, e.Reason)
}

// String returns a required, non-empty string argument.
func String(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", &ArgError{Name: name, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgError{Name: name, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	if s == "" {
		return "", &ArgError{Name: name, Reason: "must not be empty"}
	}
	return s, nil
}

// OptionalString returns a string argument, or def when it is absent.
func OptionalString(args map[string]any, name, def string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgError{Name: name, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, nil
}

// Int returns an integer argument, or def when it is absent. JSON numbers
// arrive as float64 and must be whole; numeric strings are accepted.
func Int(args map[string]any, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, &ArgError{Name: name, Reason: "must be a whole number"}
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, &ArgError{Name: name, Reason: "must be a number"}
		}
		return i, nil
	}
	return 0, &ArgError{Name: name, Reason: fmt.Sprintf("must be a number, got %T", v)}
}

// Object returns an optional JSON object argument.
func Object(args map[string]any, name string) (map[string]any, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ArgError{Name: name, Reason: fmt.Sprintf("must be an object, got %T", v)}
	}
	return m, nil
}

// Slice returns an optional JSON array argument.
func Slice(args map[string]any, name string) ([]any, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.([]any)
	if !ok {
		return nil, &ArgError{Name: name, Reason: fmt.Sprintf("must be an array, got %T", v)}
	}
	return s, nil
}
