package policy

import "time"

// ContributorCacheTTL bounds staleness of cached contributor lookups. Writes
// invalidate eagerly; the TTL only matters when an invalidation is lost.
var ContributorCacheTTL = 24 * time.Hour

// StartTimeBackdateTolerance is how far in the past a vesting schedule's
// start may lie. Grants are routinely cut before they are recorded; anything
// older is treated as a data-entry error.
var StartTimeBackdateTolerance = 30 * 24 * time.Hour
