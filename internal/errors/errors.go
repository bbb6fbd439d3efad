package errors

import "fmt"

// ErrorCode represents a CoinVault error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCorruptBackup    ErrorCode = "CORRUPT_BACKUP"
	ErrPartialMigration ErrorCode = "PARTIAL_MIGRATION"
	ErrCloudUnavailable ErrorCode = "CLOUD_UNAVAILABLE"
	ErrInternal         ErrorCode = "INTERNAL"
)

// VaultError represents a structured error with code and details.
type VaultError struct {
	Code    ErrorCode
	Message string
	Details map[string]any

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates an error for invalid parameters.
func NewInvalidRequest(msg string) *VaultError {
	return &VaultError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for an id absent from the store.
func NewNotFound(id string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("record not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewStoreUnavailable creates an error for a failed store initialization.
// Fatal to the session: callers surface it and do not retry.
func NewStoreUnavailable(err error) *VaultError {
	msg := "store unavailable"
	if err != nil {
		msg = fmt.Sprintf("store unavailable: %v", err)
	}
	return &VaultError{
		Code:    ErrStoreUnavailable,
		Message: msg,
		Cause:   err,
	}
}

// NewCorruptBackup creates an error for a backup document that could not
// be decoded after exhausting format detection.
func NewCorruptBackup(reason string, err error) *VaultError {
	return &VaultError{
		Code:    ErrCorruptBackup,
		Message: fmt.Sprintf("corrupt backup: %s", reason),
		Cause:   err,
	}
}

// NewPartialMigration creates an error reporting that some legacy records
// could not be replayed into the store.
func NewPartialMigration(failed, total int) *VaultError {
	return &VaultError{
		Code:    ErrPartialMigration,
		Message: fmt.Sprintf("legacy migration incomplete: %d of %d records failed", failed, total),
		Details: map[string]any{"failed": failed, "total": total},
	}
}

// NewCloudUnavailable creates an error for a failed cloud file operation.
func NewCloudUnavailable(op string, err error) *VaultError {
	return &VaultError{
		Code:    ErrCloudUnavailable,
		Message: fmt.Sprintf("cloud %s failed: %v", op, err),
		Cause:   err,
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *VaultError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VaultError{
		Code:    ErrInternal,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is a VaultError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*VaultError); ok {
		return vErr.Code == code
	}
	return false
}
