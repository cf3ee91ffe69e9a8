// Package echo is a plain dispatch target for connectivity checks.
package echo

import "time"

// New returns the operation table: ping answers the server clock in Unix
// milliseconds and echo returns its first param.
func New() map[string]any {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) map[string]any {
	return map[string]any{
		"ping": func() int64 { return now().UnixMilli() },
		"echo": func(v any) any { return v },
	}
}
