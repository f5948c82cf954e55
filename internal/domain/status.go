package domain

// SourceStatus is the single status reported for one source fetch.
type SourceStatus string

const (
	StatusLive       SourceStatus = "live"
	StatusBlocked    SourceStatus = "blocked"
	StatusFetchError SourceStatus = "fetch_error"
	StatusParseFail  SourceStatus = "parse_failed"
	StatusFallback   SourceStatus = "fallback"
	StatusNoData     SourceStatus = "no_data"
)

// ResolveSourceStatus collapses run counters into a single status.
//
// Precedence is intentionally strict so the root cause is obvious in
// reports: live > blocked > fetch_error > parse_failed > fallback > no_data.
func ResolveSourceStatus(liveCount, fallbackCount, blockedCount, parseMissCount, errorCount int) SourceStatus {
	switch {
	case liveCount > 0:
		return StatusLive
	case blockedCount > 0:
		return StatusBlocked
	case errorCount > 0:
		return StatusFetchError
	case parseMissCount > 0:
		return StatusParseFail
	case fallbackCount > 0:
		return StatusFallback
	default:
		return StatusNoData
	}
}
