package exitcodes

import (
	"errors"
	"fmt"
	"os"
)

// Standard exit codes for confdeploy
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates nothing was touched because a precondition failed
	// (e.g., descriptor missing or malformed, unknown config, unsupported service)
	PreconditionFailed = 3

	// ProcessError indicates a validate/activate hook failed outside of a
	// transactional install (e.g., uninstall reload rejected)
	ProcessError = 5

	// ValidationError indicates invalid deployer configuration
	ValidationError = 6

	// RolledBack indicates the new configuration was rejected and the
	// previous configuration was restored and is active again
	RolledBack = 7

	// Corrupted indicates rollback itself failed and the target is left in
	// a broken state that needs manual intervention
	Corrupted = 8
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// CodeForError returns the appropriate exit code for an error.
// The outermost ErrorWithCode in the chain wins; anything else maps to GeneralError.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}

	return GeneralError
}
