package settings

import (
	"errors"
	"fmt"
)

var (
	ErrDescriptorNotFound  = errors.New("descriptor not found")
	ErrDescriptorMalformed = errors.New("descriptor invalid or empty")
	ErrConfigNotFound      = errors.New("config definition not found")
	ErrMissingSetting      = errors.New("required setting missing")
)

// ResolutionError reports why settings for a (service, config) pair could not
// be produced. Kind is one of the Err* sentinels above.
type ResolutionError struct {
	Kind    error
	Service string
	Config  string
	Err     error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%v for service [%s]", e.Kind, e.Service)
	if e.Kind == ErrConfigNotFound {
		msg = fmt.Sprintf("%v: %s (service [%s])", e.Kind, e.Config, e.Service)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel kind so callers can use errors.Is.
func (e *ResolutionError) Is(target error) bool { return target == e.Kind }

func (e *ResolutionError) Unwrap() error { return e.Err }
