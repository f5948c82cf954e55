package domain

import "fmt"

// StrictLiveError is returned when strict-live policy is enabled, the source
// descriptor requires live data, and a fetch produced zero live items.
type StrictLiveError struct {
	SourceName string
	Status     SourceStatus
}

func (e *StrictLiveError) Error() string {
	return fmt.Sprintf("strict live mode: source %q returned zero live candidates (status=%s)", e.SourceName, e.Status)
}
