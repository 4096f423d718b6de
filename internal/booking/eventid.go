package booking

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"
)

var eventIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// EventIDFromKey derives a Google Calendar event id from an idempotency key.
// Ids must use the base32hex alphabet (0-9, a-v); the result is 32 characters.
func EventIDFromKey(calendarID, key string) string {
	sum := sha256.Sum256([]byte(calendarID + "\x00" + key))
	return strings.ToLower(eventIDEncoding.EncodeToString(sum[:20]))
}
