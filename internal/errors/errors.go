package errors

import (
	"fmt"
	"time"
)

// Error types for the lightning-route-index system
type ErrorType string

const (
	// Indexing errors
	ErrorTypeScan    ErrorType = "scan"
	ErrorTypeParse   ErrorType = "parse"
	ErrorTypeRestore ErrorType = "restore"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ScanError represents a failure inside a scan pass. Scan errors are caught
// at the scan boundary: the single-flight guard is released and the previous
// cache is left untouched.
type ScanError struct {
	Type       ErrorType
	FilePath   string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a scan error with context.
func NewScanError(op string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeScan,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFile adds file information to the error.
func (e *ScanError) WithFile(path string) *ScanError {
	e.FilePath = path
	return e
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// RestoreError records one persisted entry that could not be re-resolved
// against the current workspace. Restore errors are never fatal: the entry is
// dropped and restoration continues with the remaining routes.
type RestoreError struct {
	Type      ErrorType
	FilePath  string
	Signature string
	Reason    string
	Timestamp time.Time
}

// NewRestoreError creates a restore error for a stale persisted entry.
func NewRestoreError(path, signature, reason string) *RestoreError {
	return &RestoreError{
		Type:      ErrorTypeRestore,
		FilePath:  path,
		Signature: signature,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface.
func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore skipped %s in %s: %s", e.Signature, e.FilePath, e.Reason)
}

// ParseError represents a parsing error in a single source file.
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Underlying error
}

// NewParseError creates a parse error.
func NewParseError(path string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Underlying: err,
	}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.FilePath, e.Underlying)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents malformed configuration input.
type ConfigError struct {
	Type    ErrorType
	Field   string
	Message string
}

// NewConfigError creates a configuration error.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Type:    ErrorTypeConfig,
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
