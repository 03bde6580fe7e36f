package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid mandatory settings or roster columns.
// It is fatal and aborts a run before any record is processed.
type ConfigurationError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error: ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// AssetNotFoundError reports a template image or font that cannot be used.
// Kind is "template" or "font".
type AssetNotFoundError struct {
	Kind  string
	Path  string
	Cause error
}

func (e *AssetNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s asset unavailable: %s: %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s asset unavailable: %s", e.Kind, e.Path)
}

func (e *AssetNotFoundError) Unwrap() error {
	return e.Cause
}

// Asset kinds.
const (
	AssetTemplate = "template"
	AssetFont     = "font"
)

// ParseError reports a single roster value that could not be parsed.
type ParseError struct {
	Field string
	Value string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s %q: %v", e.Field, e.Value, e.Cause)
	}
	return fmt.Sprintf("parse error: %s %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// AuthenticationError reports transport credentials rejected by the server.
type AuthenticationError struct {
	Transport string
	Cause     error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication error (%s): %v", e.Transport, e.Cause)
	}
	return fmt.Sprintf("authentication error (%s)", e.Transport)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// DeliveryError reports one message that could not be delivered.
type DeliveryError struct {
	Recipient string
	Cause     error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery error to %q: %v", e.Recipient, e.Cause)
	}
	return fmt.Sprintf("delivery error to %q", e.Recipient)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return ExitCodeAuth
	}
	return ExitCodeError
}
