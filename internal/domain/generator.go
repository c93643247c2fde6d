package domain

import "context"

// TextStream is a finite, non-restartable sequence of generated text
// fragments. Next advances to the next fragment; after Next returns false the
// caller must check Err. Close releases the underlying transport.
type TextStream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Generator is the text-generation backend. One outbound request per call,
// no retries; a failure surfaces as a single error to the caller.
type Generator interface {
	// Invoke blocks until the full response text is available.
	Invoke(ctx context.Context, system, user string) (string, error)

	// Stream opens one backend request and yields fragments in delivery
	// order, without coalescing or reordering.
	Stream(ctx context.Context, system, user string) (TextStream, error)
}

// StationLocator resolves the nearest observation station to a coordinate
// for a station-listing data kind.
type StationLocator interface {
	Nearest(ctx context.Context, kind string, lat, lon float64, filters StationFilters) (StationInfo, error)
}

// SeriesFetcher retrieves a raw observation series for a station and date.
// The payload shape is untyped by design; see NearestStation and
// SummarizeTideSeries for how it is consumed.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, kind, obsCode, date string) (any, error)
}
