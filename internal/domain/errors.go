package domain

import "errors"

var (
	// ErrUpstreamUnavailable reports that a feed call failed. It surfaces to
	// the caller as a hard failure; any retry policy belongs to the feed
	// client's operator, not to this service.
	ErrUpstreamUnavailable = errors.New("upstream feed unavailable")

	// ErrDuplicateObject reports that an object with the same NeoWs id is
	// already ingested. Ingestion recovers from it locally by counting the
	// object as skipped.
	ErrDuplicateObject = errors.New("object already ingested")
)
