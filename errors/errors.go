// Package errors provides error handling for ngmigrate.
//
// It re-exports github.com/cockroachdb/errors so every package wraps errors the
// same way and keeps stack traces, hints and details intact across the
// discovery, render and import layers.
//
//	entity, err := store.GetByAppAndID(ctx, cg.Service, appID, id)
//	if err != nil {
//	    return errors.Wrapf(err, "read service %s", id)
//	}
//
// Sentinels below are matched with errors.Is after wrapping.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing hints and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors shared across packages.
var (
	// ErrNotFound indicates a legacy entity or target document does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input (config, overrides, bundle)
	ErrInvalidRequest = New("invalid request")

	// ErrTimeout indicates a remote call exceeded its deadline
	ErrTimeout = New("operation timed out")

	// ErrConflict indicates the target rejected a document as conflicting
	ErrConflict = New("resource conflict")

	// ErrServiceUnavailable indicates the target system could not be reached
	ErrServiceUnavailable = New("service unavailable")
)

// IsNotFoundError reports whether err is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError reports whether err is or wraps ErrInvalidRequest.
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsTimeoutError reports whether err is or wraps ErrTimeout.
func IsTimeoutError(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message.
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
