package config

import "fmt"

// ConfigErrorType classifies configuration failures
type ConfigErrorType string

const (
	ErrTypeRead       ConfigErrorType = "read"
	ErrTypeParse      ConfigErrorType = "parse"
	ErrTypeEnv        ConfigErrorType = "env"
	ErrTypeValidation ConfigErrorType = "validation"
)

// ConfigError is returned by LoadConfig and Validate. All configuration
// errors are fatal at startup.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
