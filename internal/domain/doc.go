// Package domain models the wildlife-sighting reconstruction pipeline: the
// stage logic that turns raw, irregular sighting reports into a dense,
// environmentally enriched daily grid.
//
// # Data Source
//
// Sightings arrive as delimited files with a calendar date, a species
// identifier, and either a free-text location typed by the reporter or a
// WGS84 coordinate pair. Environmental covariates come from a separate export
// keyed by barangay PSGC code and date.
//
// # Conventions
//
// Dates:
//
//	Serialized as YYYY/MM/DD after cleaning. Earlier inputs may use
//	YYYY-MM-DD, which is rewritten before parsing. Internally every date is
//	a UTC midnight [time.Time]; see [ParseDate] and [FormatDate].
//
// Administrative codes:
//
//	PSGC codes are hierarchical integers (region → province →
//	city/municipality → barangay). Upstream numeric serialization sometimes
//	emits them as floats ("102802046.0"); [ParseAdminCode] coerces them.
//
// Locations:
//
//	Canonical strings end in "[locality], [island group]?, Philippines [ZIP]?".
//	Normalization is idempotent: see [LocationNormalizer].
//
// Missing values:
//
//	Environmental values use NaN as the missing marker in memory and the empty
//	string on disk.
//
// # Stage Order
//
// clean → geocode → (merge) → assign → aggregate → grid → redistribute →
// harmonize → fuse → impute → normalize. Each stage reads only the previous
// stage's output.
package domain
