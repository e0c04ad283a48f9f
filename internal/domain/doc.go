// Package domain models near-Earth-object (NEO) observation data and the
// risk classification derived from it.
//
// # Data Source
//
// Observations originate from the NASA NeoWs feed
// (https://api.nasa.gov/neo/rest/v1/feed), which groups close approaches by
// calendar date. Each feed entry carries the object's NeoWs identifier, an
// estimated maximum diameter in kilometers, the relative velocity of the
// approach in km/s, the miss distance in kilometers, and NASA's
// "potentially hazardous" flag.
//
// The NeoWs identifier is stable: re-fetching the same object yields the
// same id, which is what makes ingestion idempotent (duplicate upserts are
// detected and skipped, never stored twice).
//
// # Risk Scoring
//
// Risk is a weighted combination of the physical parameters:
//
//	score = diameter_km*40 + velocity_km_s*2 - miss_distance_km/1_000_000
//	        + 30 if hazardous
//
// rounded to two decimals, then bucketed into four ordered tiers:
//
//	score >= 80  CRITICAL
//	score >= 50  HIGH
//	score >= 30  MODERATE
//	otherwise    LOW
//
// The stored object schema does not retain miss distance (it is a property
// of one approach, not of the object), so batch classification over stored
// objects substitutes [DefaultMissDistanceKM]. This approximation is part of
// the scoring contract: historical records were produced with it, and
// changing the substitute would make new scores incomparable with stored
// ones. Classification of live feed data uses the true per-approach miss
// distance, so the two modes intentionally disagree for the same object.
//
// # Chat
//
// Chat messages are immutable once created. The server assigns the arrival
// timestamp, and arrival order is the single total order used for both the
// durable log and delivery to members. A raw inbound line is either
// "sender: body" or bare text; bare text is attributed to "Anonymous".
package domain
