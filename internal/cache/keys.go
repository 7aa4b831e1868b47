package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key builders. Keys are namespaced by concern so invalidation stays
// targeted.

// UserKey caches the current-user lookup per credential.
func UserKey(token string) string {
	return "user:" + hashToken(token)
}

// hashToken avoids storing raw bearer tokens as cache keys.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
