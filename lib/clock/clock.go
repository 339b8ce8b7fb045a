package clock

import "time"

const layout = "2006-01-02T15:04:05Z"

// Now returns the current UTC time in the wire format used by API
// response envelopes.
func Now() string {
	return time.Now().UTC().Format(layout)
}
