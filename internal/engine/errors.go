package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrerequisite marks an event whose required upstream entity is absent.
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	// ErrUnresolvableTokenMetadata marks a token whose decimals could not be read.
	ErrUnresolvableTokenMetadata = errors.New("unresolvable token metadata")
	// ErrUnknownFactory marks a PoolCreated emitted by a factory other than the configured one.
	ErrUnknownFactory = errors.New("unknown factory")

	errExcludedPool = errors.New("excluded pool")
)

// prerequisiteError names the absent entity.
type prerequisiteError struct {
	kind string
	id   string
}

func missing(kind, id string) error {
	return &prerequisiteError{kind: kind, id: id}
}

func (e *prerequisiteError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrMissingPrerequisite, e.kind, e.id)
}

func (e *prerequisiteError) Is(target error) bool {
	return target == ErrMissingPrerequisite
}

// IsDroppable reports whether err means the event was dropped with state unchanged.
func IsDroppable(err error) bool {
	return errors.Is(err, ErrMissingPrerequisite) ||
		errors.Is(err, ErrUnresolvableTokenMetadata) ||
		errors.Is(err, ErrUnknownFactory)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, errExcludedPool):
		return "excluded_pool"
	case errors.Is(err, ErrUnresolvableTokenMetadata):
		return "unresolvable_token_metadata"
	case errors.Is(err, ErrUnknownFactory):
		return "unknown_factory"
	default:
		return "missing_prerequisite"
	}
}

// isSilent reports drops that are expected during normal operation.
func isSilent(err error) bool {
	var pe *prerequisiteError
	if errors.As(err, &pe) {
		return pe.kind == "token"
	}
	return errors.Is(err, errExcludedPool)
}
