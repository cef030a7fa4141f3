package actions

import "errors"

var (
	// ErrUnknownAction is returned when no handler is registered for an action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrValidation is returned when an action's input has the wrong shape.
	ErrValidation = errors.New("invalid action input")

	// ErrHandlerRequired is returned when registering a nil handler.
	ErrHandlerRequired = errors.New("action handler required")
)
