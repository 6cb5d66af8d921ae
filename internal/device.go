package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeviceFingerprint returns a short stable hex digest of a user agent string, used where
// the raw header is too long or too revealing to log.
func DeviceFingerprint(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:8])
}
