// Package subscription makes the ids that name subscriptions on a relay
// connection.
package subscription

import (
	"github.com/google/uuid"
)

// MaxLen is the longest id relays are required to accept.
const MaxLen = 64

// DefaultLabel is used when the caller gives no label.
const DefaultLabel = "sub"

// NewID makes an id of the form <label>-<8 hex characters of a random uuid>,
// trying again until taken reports the id is free.
func NewID(label st, taken func(id st) bo) (id st) {
	if label == "" {
		label = DefaultLabel
	}
	// leave room for the dash and the suffix
	if len(label) > MaxLen-9 {
		label = label[:MaxLen-9]
	}
	for {
		id = label + "-" + uuid.NewString()[:8]
		if taken == nil || !taken(id) {
			return
		}
		log.T.F("subscription id %s collided, trying again", id)
	}
}

// IsValid reports whether an id is between 1 and MaxLen characters.
func IsValid(id st) bo { return len(id) > 0 && len(id) <= MaxLen }
