package deploy

import (
	"errors"
	"fmt"
)

var (
	// ErrRolledBack matches installs that failed and were rolled back.
	ErrRolledBack = errors.New("install failed, previous configuration restored")
	// ErrCorrupted matches installs whose rollback also failed.
	ErrCorrupted = errors.New("install failed and rollback failed, configuration left corrupted")
	// ErrUninstallFailed matches failed uninstalls.
	ErrUninstallFailed = errors.New("uninstall failed")
)

// RollbackError records which rollback step failed.
type RollbackError struct {
	State State
	Err   error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed while %s: %v", e.State, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// Error is the typed failure derived from an Outcome.
type Error struct {
	Result   Result
	Service  string
	Config   string
	Cause    error
	Rollback error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s/%s: %s", e.Service, e.Config, e.Result)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Rollback != nil {
		msg += "; " + e.Rollback.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrRolledBack:
		return e.Result == InstallFailedRestored
	case ErrCorrupted:
		return e.Result == InstallFailedCorrupted
	case ErrUninstallFailed:
		return e.Result == UninstallFailed
	}
	return false
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Rollback != nil {
		errs = append(errs, e.Rollback)
	}
	return errs
}
