package projection

import "github.com/pkg/errors"

var (
	// ErrUnknownCountry is returned when no parameters are registered for a country code.
	ErrUnknownCountry = errors.New("unknown country")

	// ErrOutOfDomain is returned for coordinates the projection cannot represent,
	// such as latitudes at or beyond the poles.
	ErrOutOfDomain = errors.New("coordinate out of projection domain")

	// ErrInvalidParameters is returned when a parameter set cannot define a projection.
	ErrInvalidParameters = errors.New("invalid projection parameters")
)
