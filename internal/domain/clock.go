package domain

import "time"

// now returns the current UTC time for the saga context helpers'
// UpdatedAt stamps. The constructors in types.go call time.Now directly.
func now() time.Time {
	return time.Now().UTC()
}
