package domain

import (
	"errors"
	"fmt"
)

// Station resolution failures. Distinct from fetch failures so the transport
// layer can map them to a client error rather than an upstream error.
var (
	// ErrNoStationFound means the listing was empty, unparsable, or no
	// candidate survived the caller's filters.
	ErrNoStationFound = errors.New("no station found in listing")

	// ErrNoCoordinateData means candidates existed but none carried a usable
	// code and coordinate pair.
	ErrNoCoordinateData = errors.New("no station with usable coordinates")
)

// GenerationError wraps a text-generation backend failure with the pipeline
// stage it occurred in. It is fatal to the enclosing pipeline invocation and
// is never retried.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at stage %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StationFetchError wraps a tide-data backend failure (network, upstream
// error, malformed transport response) for a given data kind.
type StationFetchError struct {
	Kind string
	Err  error
}

func (e *StationFetchError) Error() string {
	return fmt.Sprintf("tide backend fetch failed for %s: %v", e.Kind, e.Err)
}

func (e *StationFetchError) Unwrap() error { return e.Err }
