package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func TaskStatusKey(taskID uuid.UUID) string {
	return fmt.Sprintf("vsl:task:%s", taskID)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("vsl:ratelimit:%s", client)
}

// SearchResultKey hashes the normalized query so arbitrary user text never
// ends up inside a Redis key.
func SearchResultKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("vsl:search:%s", hex.EncodeToString(sum[:8]))
}
