package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"
)

var (
	// ErrNotUnicode indicates an environment value that is not valid UTF-8.
	ErrNotUnicode = errors.New("environment variable was not valid unicode")
	// ErrParse indicates an environment value rejected by its parser.
	ErrParse = errors.New("environment variable value could not be parsed")
)

// NotUnicodeError is returned when a variable is set to bytes that are not
// valid UTF-8. Value holds the raw bytes.
type NotUnicodeError struct {
	Key   string
	Value []byte
}

func (e *NotUnicodeError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrNotUnicode, e.Key, e.Value)
}

// Is reports whether target is [ErrNotUnicode].
func (e *NotUnicodeError) Is(target error) bool {
	return target == ErrNotUnicode
}

// ParseError is returned when a variable is set but its value was rejected
// by the parser. Value is the exact string that failed.
type ParseError struct {
	Err   error
	Key   string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v (value was %q)", ErrParse, e.Key, e.Err, e.Value)
}

// Is reports whether target is [ErrParse].
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Unwrap returns the parser's error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse looks up key and converts its value with parse.
//
// The boolean result reports whether the variable was set. An absent variable
// yields the zero value, false and a nil error. Errors are always either a
// [*NotUnicodeError] or a [*ParseError].
func Parse[T any](key string, parse func(string) (T, error)) (T, bool, error) {
	var zero T

	raw, ok := os.LookupEnv(key)
	if !ok {
		return zero, false, nil
	}

	if !utf8.ValidString(raw) {
		return zero, true, &NotUnicodeError{Key: key, Value: []byte(raw)}
	}

	v, err := parse(raw)
	if err != nil {
		return zero, true, &ParseError{Key: key, Value: raw, Err: err}
	}

	return v, true, nil
}

// String returns the value of key unchanged. Only a non-UTF-8 value fails.
func String(key string) (string, bool, error) {
	return Parse(key, func(s string) (string, error) { return s, nil })
}

// Bool parses key with [strconv.ParseBool].
func Bool(key string) (bool, bool, error) {
	return Parse(key, strconv.ParseBool)
}
