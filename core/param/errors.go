package param

import (
	"errors"
	"fmt"
)

// List of descriptor errors.
var (
	ErrLocationCountMismatch = errors.New("location count mismatch")
	ErrInvalidCallKind       = errors.New("invalid call kind")
	ErrTooManyPairs          = errors.New("too many replacement pairs")
	ErrReservedOffset        = errors.New("offset byte reserved as terminator")
)

// List of splice errors.
var (
	ErrOutOfBounds        = errors.New("reference to out of local stack")
	ErrPayloadOutOfBounds = errors.New("replacement outside payload")
)

// ConfigError reports a malformed config descriptor.
type ConfigError struct {
	Err error
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Msg == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: %v: %s", e.Err, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(err error, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Err: err, Msg: fmt.Sprintf(format, args...)}
}

// SpliceError reports a replacement that references scratch memory or payload
// bytes that do not exist.
type SpliceError struct {
	Pair   int // position of the offending replacement
	Offset int // payload word offset, counted after the selector
	Index  int // scratch memory index
	Err    error
}

func (e *SpliceError) Error() string {
	return fmt.Sprintf("splice #%d (offset %d, index %d): %v", e.Pair, e.Offset, e.Index, e.Err)
}

func (e *SpliceError) Unwrap() error { return e.Err }
