// Package errors provides the typed errors used across linksort.
// Every error carries an ErrorKind so callers can branch on the failure class
// (missing file, bad configuration, unusable rule, journal failure) without
// string matching.
package errors

import (
	"errors"
	"fmt"
)

var (
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
)

var (
	ErrFileNotFound    = NewFileError("file not found", "", FileNotFound, nil)
	ErrFileExists      = NewFileError("file already exists", "", FileExists, nil)
	ErrPathOutsideRoot = NewFileError("path is outside the vault", "", InvalidPath, nil)
	ErrRuleNotFound    = NewRuleError("rule not found", "", RuleNotFound, nil)
)

// ErrorKind represents the kind of error
type ErrorKind int

const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	FileExists
	InvalidPath
	FileOperationFailed
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Rule error kinds
	InvalidRule
	RuleNotFound
	// History journal error kinds
	DatabaseOperationFailed
	// Editor input
	InvalidInputData
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError reports a failed operation on a vault path.
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: kind},
		path:             path,
	}
}

func (e *FileError) Error() string {
	if e.path == "" {
		return e.ApplicationError.Error()
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
	}
	return fmt.Sprintf("%s: %s", e.msg, e.path)
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError reports an invalid or unreadable configuration value.
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: kind},
		param:            param,
	}
}

func (e *ConfigError) Error() string {
	if e.param == "" {
		return e.ApplicationError.Error()
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
	}
	return fmt.Sprintf("%s: %s", e.msg, e.param)
}

// Param returns the configuration key associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// RuleError reports a routing rule that cannot be used or found.
type RuleError struct {
	ApplicationError
	ruleName string
}

// NewRuleError creates a new rule error
func NewRuleError(msg string, ruleName string, kind ErrorKind, err error) *RuleError {
	return &RuleError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: kind},
		ruleName:         ruleName,
	}
}

func (e *RuleError) Error() string {
	if e.ruleName == "" {
		return e.ApplicationError.Error()
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.msg, e.ruleName, e.err)
	}
	return fmt.Sprintf("%s: %s", e.msg, e.ruleName)
}

// RuleName returns the rule name associated with the error
func (e *RuleError) RuleName() string {
	return e.ruleName
}

// DatabaseError reports a failure in the history journal.
type DatabaseError struct {
	ApplicationError
	operation string
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, err error) *DatabaseError {
	return &DatabaseError{
		ApplicationError: ApplicationError{msg: msg, err: err, kind: DatabaseOperationFailed},
	}
}

// WithOperation records which journal operation failed.
func (e *DatabaseError) WithOperation(operation string) *DatabaseError {
	e.operation = operation
	return e
}

func (e *DatabaseError) Error() string {
	if e.operation == "" {
		return e.ApplicationError.Error()
	}
	if e.err != nil {
		return fmt.Sprintf("%s: operation=%s: %v", e.msg, e.operation, e.err)
	}
	return fmt.Sprintf("%s: operation=%s", e.msg, e.operation)
}

// Operation returns the journal operation associated with the error
func (e *DatabaseError) Operation() string {
	return e.operation
}

// InvalidInputError reports editor input that cannot be committed.
type InvalidInputError struct {
	ApplicationError
	field string
}

// NewInvalidInputError creates a new invalid input error for field.
func NewInvalidInputError(msg string, field string) *InvalidInputError {
	return &InvalidInputError{
		ApplicationError: ApplicationError{msg: msg, kind: InvalidInputData},
		field:            field,
	}
}

func (e *InvalidInputError) Error() string {
	if e.field == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.field)
}

// Field returns the offending input field.
func (e *InvalidInputError) Field() string {
	return e.field
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{msg: msg, kind: Unknown}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{msg: fmt.Sprintf(format, args...), kind: Unknown}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: msg, err: err, kind: Unknown}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: fmt.Sprintf(format, args...), err: err, kind: Unknown}
}

func fileKind(err error) ErrorKind {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind()
	}
	return Unknown
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	return fileKind(err) == FileNotFound
}

// IsFileAccessDenied checks if the error is a file access denied error
func IsFileAccessDenied(err error) bool {
	return fileKind(err) == FileAccessDenied
}

// IsFileExists checks if the error reports an occupied destination
func IsFileExists(err error) bool {
	return fileKind(err) == FileExists
}

// IsInvalidPath checks if the error reports a path escaping the vault
func IsInvalidPath(err error) bool {
	return fileKind(err) == InvalidPath
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsInvalidRule checks if the error is an invalid rule error
func IsInvalidRule(err error) bool {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.Kind() == InvalidRule
	}
	return false
}

// IsRuleNotFound checks if the error reports a missing rule index
func IsRuleNotFound(err error) bool {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.Kind() == RuleNotFound
	}
	return false
}

// IsDatabaseError checks if the error is a history journal error
func IsDatabaseError(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}

// IsInvalidInputError checks if the error is an invalid input error
func IsInvalidInputError(err error) bool {
	var inputErr *InvalidInputError
	return errors.As(err, &inputErr)
}
