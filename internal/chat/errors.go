package chat

import "errors"

// Error taxonomy shared by the registry and the message log. Handlers map
// these onto HTTP status codes; anything else is treated as a storage
// failure and surfaced as a 500.
var (
	ErrValidation = errors.New("invalid input")
	ErrConflict   = errors.New("name already taken")
	ErrNotFound   = errors.New("participant not found")
)
