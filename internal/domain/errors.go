package domain

import "errors"

// Error kinds. Callers match them with errors.Is; producers wrap them with
// fmt.Errorf("...: %w", ErrX) to add context.
var (
	// ErrMissingInput - an upload was attempted without both files
	ErrMissingInput = errors.New("missing input")
	// ErrMalformedInput - an uploaded file could not be parsed
	ErrMalformedInput = errors.New("malformed input")
	// ErrUpstreamFailure - the backend failed or returned an error status
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrInvalidArgument - a parameter is outside its contract
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDataGap - no price exists for a holding at the requested date
	ErrDataGap = errors.New("data gap")
)
