package schema

import "errors"

var (
	// ErrEmptyPrompt indicates the prompt was empty.
	ErrEmptyPrompt = errors.New("empty prompt")
	// ErrTurnInFlight indicates a send was attempted while a turn is
	// still streaming on the same consumer.
	ErrTurnInFlight = errors.New("turn already in flight")
	// ErrUnauthorized indicates the backend rejected the session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrChannelClosed indicates a publish on a closed broadcast channel.
	ErrChannelClosed = errors.New("broadcast channel closed")
	// ErrCoordinatorDestroyed indicates use after Destroy.
	ErrCoordinatorDestroyed = errors.New("coordinator destroyed")
	// ErrInvalidConfig indicates a malformed configuration value.
	ErrInvalidConfig = errors.New("invalid config")
)
