package planning

import "errors"

// Configuration errors. They are contract violations of the caller and are
// never retried.
var (
	ErrNoProductionUnits      = errors.New("no production units configured")
	ErrUnknownDefaultResource = errors.New("default resource is not a configured production unit")
	ErrInvalidParameters      = errors.New("invalid planning parameters")
)
